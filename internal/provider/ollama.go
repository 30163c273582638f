package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"riva/internal/logging"
)

// OllamaClient implements Client against a local Ollama server.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOllamaConfig returns sensible defaults for a local server.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "qwen2.5-coder:7b",
		Timeout: 120 * time.Second,
	}
}

// NewOllamaClient creates a client with default config.
func NewOllamaClient() *OllamaClient {
	return NewOllamaClientWithConfig(DefaultOllamaConfig())
}

// NewOllamaClientWithConfig creates a client with custom config.
func NewOllamaClientWithConfig(config OllamaConfig) *OllamaClient {
	return &OllamaClient{
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

func (c *OllamaClient) chat(ctx context.Context, system, user, format string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	messages := make([]ollamaMessage, 0, 2)
	if system != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: system})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: user})

	reqBody := ollamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Format:   format,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("API error: %s", parsed.Error)
	}

	logging.APIDebug("ollama reply: %d chars", len(parsed.Message.Content))
	return strings.TrimSpace(parsed.Message.Content), nil
}

// ChatText sends a prompt and returns the reply text.
func (c *OllamaClient) ChatText(ctx context.Context, system, user string, timeout time.Duration) (string, error) {
	return c.chat(ctx, system, user, "", timeout)
}

// ChatJSON sends a prompt with JSON output forced and extracts the payload.
func (c *OllamaClient) ChatJSON(ctx context.Context, system, user string, timeout time.Duration) (string, error) {
	text, err := c.chat(ctx, system, user, "json", timeout)
	if err != nil {
		return "", err
	}
	return ExtractJSON(text)
}

// SetModel changes the model used for completions.
func (c *OllamaClient) SetModel(model string) {
	c.model = model
}

// Model returns the current model.
func (c *OllamaClient) Model() string {
	return c.model
}
