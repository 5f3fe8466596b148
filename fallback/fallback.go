// Package fallback extracts record fields semantically when deterministic
// selectors come up empty. It talks to an OpenAI-compatible chat completions
// endpoint; every failure mode — missing key, transport error, bad status,
// refusal sentinel — degrades to "no value" so callers never depend on the
// gateway being up.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Field names a record attribute the gateway can recover.
type Field string

const (
	FieldTitle Field = "title"
	FieldPrice Field = "price"
)

// Config controls the gateway.
type Config struct {
	// BaseURL of the OpenAI-compatible API. Default: https://api.deepseek.com/v1.
	BaseURL string
	// APIKey authorizes requests. Empty disables the gateway entirely.
	APIKey string
	// Model to query. Default: deepseek-chat.
	Model string
	// Timeout bounds each extraction call. Default: 60s.
	Timeout time.Duration
	// MaxContextBytes truncates page content before conversion. Default: 100000.
	MaxContextBytes int
	Logger          *slog.Logger
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.deepseek.com/v1"
	}
	if c.Model == "" {
		c.Model = "deepseek-chat"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxContextBytes <= 0 {
		c.MaxContextBytes = 100_000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Gateway is a semantic field extractor backed by a chat completions API.
type Gateway struct {
	cfg    Config
	client *http.Client
}

// New creates a Gateway. A nil return means the gateway is disabled (no API
// key); callers may hold and call a nil *Gateway safely.
func New(cfg Config) *Gateway {
	cfg.defaults()
	if cfg.APIKey == "" {
		cfg.Logger.Info("fallback: no API key configured, gateway disabled")
		return nil
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

var prompts = map[Field]string{
	FieldTitle: "Extract the product title from this page content. " +
		"Reply with the title text only, nothing else. " +
		"If no product title is present, reply with exactly: none",
	FieldPrice: "Extract the product price from this page content, " +
		"including the currency symbol. Reply with the price only, nothing " +
		"else. If no price is present, reply with exactly: none",
}

// ExtractField asks the model for one field of the rendered page. html is
// the raw page source; it is truncated, cleaned, and converted to markdown
// before being sent. ok is false whenever no usable value was obtained, for
// any reason.
func (g *Gateway) ExtractField(ctx context.Context, html string, field Field) (string, bool) {
	if g == nil {
		return "", false
	}
	log := g.cfg.Logger

	prompt, known := prompts[field]
	if !known {
		log.Warn("fallback: unknown field", "field", string(field))
		return "", false
	}

	content := PrepareContext(html, g.cfg.MaxContextBytes)
	if content == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	value, err := g.complete(ctx, prompt+"\n\n"+content)
	if err != nil {
		log.Warn("fallback: extraction call failed", "field", string(field), "error", err)
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "none") {
		log.Debug("fallback: model found no value", "field", string(field))
		return "", false
	}
	log.Info("fallback: recovered field", "field", string(field))
	return value, true
}

func (g *Gateway) complete(ctx context.Context, userContent string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: userContent},
		},
		Temperature: 0.1,
		MaxTokens:   50,
	})
	if err != nil {
		return "", fmt.Errorf("fallback: marshal request: %w", err)
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fallback: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fallback: post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("fallback: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fallback: status %d: %s", resp.StatusCode, truncateForLog(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("fallback: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("fallback: response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncateForLog(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
