package common

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID     contextKey = "request_id"
	ContextKeyObjectiveCode contextKey = "objective_code"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// EnsureRequestID returns ctx carrying a request ID, minting one when absent.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// WithObjectiveCode adds the objective being evidenced to the context
func WithObjectiveCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, ContextKeyObjectiveCode, code)
}

// ObjectiveCodeFromContext extracts the objective code from context
func ObjectiveCodeFromContext(ctx context.Context) string {
	if code, ok := ctx.Value(ContextKeyObjectiveCode).(string); ok {
		return code
	}
	return ""
}
