package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"bare array", `[1, 2, 3]`, `[1, 2, 3]`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose wrapped", `Here you go: {"a": {"b": 2}} hope that helps`, `{"a": {"b": 2}}`},
		{"braces in strings", `{"code": "if x { y }"}`, `{"code": "if x { y }"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("sorry, I cannot help with that")
	require.Error(t, err)
}

func TestAnthropicClient_ChatText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "be brief", req["system"])

		resp := map[string]interface{}{
			"id": "msg_01",
			"content": []map[string]string{
				{"type": "text", "text": "hello from the model"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewAnthropicClientWithConfig(AnthropicConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "claude-sonnet-4-20250514",
		Timeout: 5 * time.Second,
	})

	text, err := client.ChatText(context.Background(), "be brief", "say hello", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello from the model", text)
}

func TestAnthropicClient_NoAPIKey(t *testing.T) {
	client := NewAnthropicClient("")
	_, err := client.ChatText(context.Background(), "", "hi", time.Second)
	require.Error(t, err)
}

func TestOllamaClient_ChatJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		resp := map[string]interface{}{
			"model":   "test",
			"message": map[string]string{"role": "assistant", "content": "```json\n{\"what\": \"x\"}\n```"},
			"done":    true,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewOllamaClientWithConfig(OllamaConfig{
		BaseURL: srv.URL,
		Model:   "test",
		Timeout: 5 * time.Second,
	})

	out, err := client.ChatJSON(context.Background(), "", "decompose", 5*time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"what": "x"}`, out)
}
