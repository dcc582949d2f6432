package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/llm"
)

var (
	_ llm.VisionModel = (*Client)(nil)
	_ llm.TextModel   = (*Client)(nil)
)

// ErrNotConfigured is returned before any network call when no API key is set.
var ErrNotConfigured = errors.New("gemini api key not configured")

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// GenerateWithMedia sends the instruction and one inline binary to the vision model.
func (c *Client) GenerateWithMedia(ctx context.Context, instruction string, data []byte, mimeType string, opts ...llm.Option) (string, error) {
	parts := []part{
		{Text: instruction},
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
	}
	return c.generate(ctx, c.cfg.VisionModel, parts, llm.Apply(opts...), "media_bytes", len(data))
}

// Generate sends a text-only prompt to the text model.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return c.generate(ctx, c.cfg.TextModel, []part{{Text: prompt}}, llm.Apply(opts...), "prompt_len", len(prompt))
}

func (c *Client) generate(ctx context.Context, model string, parts []part, o llm.GenerateOptions, sizeKey string, size int) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrNotConfigured
	}
	rid := uuid.New().String()
	start := time.Now()

	temp := c.cfg.Temperature
	if o.Temperature != nil {
		temp = *o.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}
	body := generateContentRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: generationConfig{Temperature: temp, MaxOutputTokens: maxTokens},
	}

	c.logger.Info("gemini.generate.start",
		"req_id", rid,
		"model", model,
		"temp", temp,
		"max_tokens", maxTokens,
		sizeKey, size,
	)

	endpoint := c.endpoint(model)
	var raw []byte
	var err error
	for attempt := 0; ; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return "", werr
		}
		raw, _, err = llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger)
		if err == nil {
			break
		}
		var se *llm.StatusError
		if !errors.As(err, &se) || !retryable(se.Code) || attempt >= c.cfg.MaxRetries {
			c.logger.Error("gemini.generate.http_error",
				"req_id", rid, "error", err, "attempt", attempt+1,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return "", fmt.Errorf("gemini %s: %w", model, err)
		}
		if se.Code == http.StatusTooManyRequests {
			c.limiter.Backoff(se.RetryAfter)
		}
		c.logger.Warn("gemini.generate.retry", "req_id", rid, "status", se.Code, "attempt", attempt+1)
	}

	text, finish, err := llm.ResponseText(raw)
	if err != nil {
		c.logger.Error("gemini.generate.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("gemini %s: unexpected response: %w", model, err)
	}

	c.logger.Info("gemini.generate.ok",
		"req_id", rid,
		"model", model,
		"finish_reason", finish,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (c *Client) endpoint(model string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + url.PathEscape(model) +
		":generateContent?key=" + url.QueryEscape(c.cfg.APIKey)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
