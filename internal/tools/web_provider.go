package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// WebProvider exposes fetch_docs and web_search against configured HTTP
// endpoints. When no endpoint is configured the tool is simply absent, so
// context gathering skips it.
type WebProvider struct {
	*Registry
	httpClient *http.Client
}

// WebConfig configures the web-backed tools. Empty URLs disable the
// corresponding tool.
type WebConfig struct {
	// DocsURL is a template queried as DocsURL?q=<library>.
	DocsURL string
	// SearchURL is a template queried as SearchURL?q=<query>.
	SearchURL string
	Timeout   time.Duration
}

// NewWebProvider builds the provider, registering only the tools that have
// an endpoint configured.
func NewWebProvider(config WebConfig) *WebProvider {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &WebProvider{
		Registry:   NewRegistry(),
		httpClient: &http.Client{Timeout: timeout},
	}

	if config.DocsURL != "" {
		docsURL := config.DocsURL
		p.MustRegister(&Tool{
			Name:        "fetch_docs",
			Description: "Fetch short documentation for a library",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				library := stringArg(args, "library", "")
				if library == "" {
					return "", fmt.Errorf("library is required")
				}
				return p.get(ctx, docsURL, library)
			},
		})
	}

	if config.SearchURL != "" {
		searchURL := config.SearchURL
		p.MustRegister(&Tool{
			Name:        "web_search",
			Description: "Search the web for a query",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				query := stringArg(args, "query", "")
				if query == "" {
					return "", fmt.Errorf("query is required")
				}
				return p.get(ctx, searchURL, query)
			},
		})
	}
	return p
}

func (p *WebProvider) get(ctx context.Context, base, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", base+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return extractText(string(body)), nil
	}
	return string(body), nil
}

// extractText strips an HTML document to its visible text, skipping script
// and style elements. Falls back to the raw input when parsing fails.
func extractText(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return doc
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.TrimSpace(b.String())
}
