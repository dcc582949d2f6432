package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

func TestNewComponents(t *testing.T) {
	cfg := common.LoadConfig()
	c, err := NewComponents(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, c.Router)
	assert.NotNil(t, c.Fetcher)
	assert.NotNil(t, c.Enricher)
	assert.NotNil(t, c.Processor)
}

func TestNewComponents_DriveProxy(t *testing.T) {
	t.Setenv("GDRIVE_API_KEY", "test-key")
	_, err := NewComponents(context.Background(), common.LoadConfig(), nil, nil)
	require.NoError(t, err)
}

func TestNewComponents_BadRoster(t *testing.T) {
	t.Setenv("ROSTER_FILE", t.TempDir()+"/missing.yaml")
	_, err := NewComponents(context.Background(), common.LoadConfig(), nil, nil)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestNewExtraction_ModelRetries(t *testing.T) {
	tests := []struct {
		name    string
		retries string
		want    int32
	}{
		{"default is a single call", "", 1},
		{"configured retries", "2", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			t.Setenv("GEMINI_API_KEY", "k")
			t.Setenv("GEMINI_BASE_URL", srv.URL)
			t.Setenv("GEMINI_RPS", "1000")
			t.Setenv("GEMINI_MAX_RETRIES", tt.retries)

			ex, err := NewExtraction(context.Background(), common.LoadConfig(), nil)
			require.NoError(t, err)
			_, err = ex.Model.Generate(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, calls.Load())
		})
	}
}
