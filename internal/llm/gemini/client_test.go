package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/llm"
)

const okBody = `{"candidates":[{"content":{"parts":[{"text":"  Title: Fire Drill Record \n"}]},"finishReason":"STOP"}]}`

func TestGenerateWithMedia_RequestShape(t *testing.T) {
	var got generateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k-123", BaseURL: srv.URL, VisionModel: "gemini-test", Temperature: 0.5}, nil)
	text, err := c.GenerateWithMedia(context.Background(), "read this", []byte("PNGDATA"), "image/png",
		llm.WithTemperature(0.3), llm.WithMaxTokens(8192))
	require.NoError(t, err)
	assert.Equal(t, "Title: Fire Drill Record", text)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "read this", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("PNGDATA")), parts[1].InlineData.Data)
	assert.InDelta(t, 0.3, got.GenerationConfig.Temperature, 1e-6)
	assert.Equal(t, 8192, got.GenerationConfig.MaxOutputTokens)
}

func TestGenerate_UsesTextModelAndDefaults(t *testing.T) {
	var got generateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-model:generateContent", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, TextModel: "text-model", Temperature: 0.7, MaxTokens: 100}, nil)
	_, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Nil(t, got.Contents[0].Parts[0].InlineData)
	assert.InDelta(t, 0.7, got.GenerationConfig.Temperature, 1e-6)
	assert.Equal(t, 100, got.GenerationConfig.MaxOutputTokens)
}

func TestGenerate_MissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response")
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 1}, nil)
	_, err := c.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_TooManyRequestsOpensBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	limiter := llm.NewRateLimiter(100, 1)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 0}, nil, WithRateLimiter(limiter))
	_, err := c.Generate(context.Background(), "x")

	var se *llm.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	// no retry left, so the window is never opened
	assert.True(t, limiter.RetryAt().IsZero())

	limiter.Backoff(se.RetryAfter)
	assert.WithinDuration(t, time.Now().Add(7*time.Second), limiter.RetryAt(), 2*time.Second)
}

func TestGenerate_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Generate(ctx, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
