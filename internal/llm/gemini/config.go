package gemini

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/llm"
)

// Config for the Gemini client.
type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	BaseURL     string // default https://generativelanguage.googleapis.com/v1beta
	VisionModel string
	TextModel   string
	Temperature float32 // used when a call does not override it
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int // extra attempts after a 429 or 5xx
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *llm.RateLimiter
	logger  *slog.Logger
}

type ClientOption func(*Client)

// WithRateLimiter shares one limiter between clients that hit the same key.
func WithRateLimiter(l *llm.RateLimiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func NewClient(cfg Config, logger *slog.Logger, opts ...ClientOption) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gemini-2.0-flash"
	}
	if cfg.TextModel == "" {
		cfg.TextModel = cfg.VisionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}
