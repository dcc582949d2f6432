package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestPipelineError_IsAndKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", FetchError(ReasonNotPubliclyShared, "sign-in page", nil))

	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, ErrNotPubliclyShared)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrExtraction)

	kind, reason, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindFetch, kind)
	assert.Equal(t, ReasonNotPubliclyShared, reason)

	_, _, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithArtifact(t *testing.T) {
	orig := ParseError("no rows", nil)
	tagged := WithArtifact(orig, "register.xlsx")
	assert.Equal(t, "ParseError [register.xlsx]: no rows", tagged.Error())
	assert.Empty(t, orig.Artifact, "original is not mutated")

	plain := errors.New("disk full")
	assert.Same(t, plain, WithArtifact(plain, "x"))
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"not shared", FetchError(ReasonNotPubliclyShared, "x", nil), codes.PermissionDenied},
		{"unsupported type", FetchError(ReasonUnsupportedType, "x", nil), codes.InvalidArgument},
		{"unsupported", UnsupportedError("x"), codes.InvalidArgument},
		{"transport", FetchError(ReasonTransport, "x", nil), codes.Unavailable},
		{"extraction", ExtractionError("x", nil), codes.Unavailable},
		{"parse", ParseError("x", nil), codes.FailedPrecondition},
		{"generation", GenerationError("x", nil), codes.Internal},
		{"canceled wins", ExtractionError("x", context.Canceled), codes.Canceled},
		{"deadline", fmt.Errorf("w: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"not found", NewAppError("NOT_FOUND", "x", ErrNotFound), codes.NotFound},
		{"validation", NewValidator().Field("f", "", Required).Err(), codes.InvalidArgument},
		{"other", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err).Code())
		})
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("code", "AAC.1", Required, ObjectiveCode).
		Field("code2", "COP.2.a", ObjectiveCode).
		Field("link", "https://docs.google.com/x", HTTPURL)
	assert.NoError(t, v.Err())

	v = NewValidator().
		Field("code", "1.AAC", ObjectiveCode).
		Field("link", "ftp://host/x", HTTPURL).
		Field("title", "abcdef", MaxLength(5)).
		Field("files", []string{}, Required)
	err := v.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, v.Errors(), 4)
	for _, f := range []string{"'code'", "'link'", "'title'", "'files'"} {
		assert.Contains(t, err.Error(), f)
	}
}

func TestRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	require.NotEmpty(t, id)
	again, same := EnsureRequestID(ctx)
	assert.Equal(t, id, same)
	assert.Equal(t, id, RequestIDFromContext(again))

	ctx = WithObjectiveCode(ctx, "HRM.4.a")
	assert.Equal(t, "HRM.4.a", ObjectiveCodeFromContext(ctx))
	assert.Empty(t, ObjectiveCodeFromContext(context.Background()))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/e.db")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("PIPELINE_WORKERS", "3")
	t.Setenv("PIPELINE_ARTIFACT_TIMEOUT", "45s")
	t.Setenv("GEMINI_RPS", "not-a-number")
	t.Setenv("SIGNATORIES", "PREPARED BY|A One|Nurse|/a.png;bad entry;APPROVED BY|B Two|Director")

	cfg := LoadConfig()
	assert.Equal(t, StoreDriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.ArtifactTimeout)
	assert.Equal(t, 2.0, cfg.Gemini.RequestsPerSecond)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Zero(t, cfg.Gemini.MaxRetries)
	require.Len(t, cfg.Signatories, 2)
	assert.Equal(t, SignatoryConfig{Role: "PREPARED BY", Name: "A One", Designation: "Nurse", SignatureImage: "/a.png"}, cfg.Signatories[0])
	assert.Empty(t, cfg.Signatories[1].SignatureImage)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database:    DatabaseConfig{Driver: StoreDriverPostgres, DSN: "postgres://x"},
			Gemini:      GeminiConfig{APIKey: "k"},
			Pipeline:    PipelineConfig{Workers: 1},
			Signatories: DefaultSignatories,
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"postgres without dsn", func(c *Config) { c.Database.DSN = "" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = StoreDriverSQLite }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"no api key", func(c *Config) { c.Gemini.APIKey = "" }},
		{"no workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"negative retries", func(c *Config) { c.Gemini.MaxRetries = -1 }},
		{"negative sample", func(c *Config) { c.Enrichment.PatientSample = -1 }},
		{"no signatories", func(c *Config) { c.Signatories = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "CONFIG_ERROR", appErr.Code)
		})
	}
}
