// Package trace carries request-scoped identifiers through contexts and
// into structured logs, so a verdict can be correlated across the handler,
// the service pipeline, and the scorer.
package trace

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// RequestIDHeader is the HTTP header used to propagate request IDs.
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID extracts the request ID, empty if none is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ensure returns the context's request ID, minting one if absent.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := RequestID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// Logger returns a slog.Logger annotated with the context's request ID.
func Logger(ctx context.Context) *slog.Logger {
	id := RequestID(ctx)
	if id == "" {
		return slog.Default()
	}
	return slog.Default().With("request_id", id)
}
