// Package suggestion talks to an OpenRouter-compatible chat completions API
// to propose related concepts for a mind-map node.
package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"mindmap-backend/application/ports"
	apperrors "mindmap-backend/pkg/errors"

	"go.uber.org/zap"
)

const (
	serviceName = "openrouter"

	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "deepseek/deepseek-chat-v3.1:free"
	DefaultReferer = "http://localhost:5173"
	DefaultTitle   = "MindFlow"

	maxTokens    = 200
	temperature  = 0.7
	maxBodyBytes = 1 << 20
)

// Config holds the client settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Referer string
	Title   string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Referer == "" {
		c.Referer = DefaultReferer
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Client implements ports.SuggestionService over HTTP
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ ports.SuggestionService = (*Client)(nil)

// New creates a client with its own transport
func New(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: tr, Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// NewWithHTTPClient swaps the HTTP client, mostly for tests
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	c := New(cfg, logger)
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// BuildPrompt renders the instruction sent for a label and the labels
// already on the map
func BuildPrompt(label string, existing []string) string {
	var b strings.Builder
	if len(existing) > 0 {
		b.WriteString("Existing nodes in this mind map: ")
		b.WriteString(strings.Join(existing, ", "))
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "Given the node %q, suggest 3-5 related concepts or ideas that would make good child nodes in a mind map. ", label)
	fmt.Fprintf(&b, "Focus on concepts that are directly related, complementary, or that would help expand understanding of %q. ", label)
	b.WriteString("Return only a JSON array of strings, no additional text.")
	return b.String()
}

// Suggest asks the model for related concepts. Transport failures and
// non-2xx answers are RemoteUnavailable; unusable content is
// MalformedResponse.
func (c *Client) Suggest(ctx context.Context, label string, existing []string) ([]string, error) {
	if c.cfg.APIKey == "" {
		return nil, apperrors.NewRemoteUnavailableError(serviceName, fmt.Errorf("api key is not configured"))
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: BuildPrompt(label, existing)}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, apperrors.NewInternalError("encode suggestion request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewInternalError("build suggestion request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("HTTP-Referer", c.cfg.Referer)
	req.Header.Set("X-Title", c.cfg.Title)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewRemoteUnavailableError(serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewRemoteUnavailableError(serviceName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Suggestion request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(raw), 256)),
		)
		return nil, apperrors.NewRemoteUnavailableError(serviceName,
			fmt.Errorf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))).
			WithDetail("status", resp.StatusCode)
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apperrors.NewMalformedResponseError(serviceName, "response is not JSON")
	}
	if len(decoded.Choices) == 0 {
		return nil, apperrors.NewMalformedResponseError(serviceName, "no choices in response")
	}

	suggestions, err := ParseSuggestions(decoded.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Suggestions received",
		zap.String("label", label),
		zap.Int("count", len(suggestions)),
	)
	return suggestions, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
