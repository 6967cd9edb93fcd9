// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler carrying the service name, plus an interaction
// ID propagated through context.Context so one dashboard interaction's log
// lines stay correlatable.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const interactionIDKey ctxKey = "interaction_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// WithInteractionID stores an interaction ID in the context.
func WithInteractionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, interactionIDKey, id)
}

// InteractionID extracts the interaction ID from context. Returns "" if not set.
func InteractionID(ctx context.Context) string {
	if v, ok := ctx.Value(interactionIDKey).(string); ok {
		return v
	}
	return ""
}

// NewInteractionID builds an ID from the endpoint name and timestamp.
func NewInteractionID(endpoint string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", endpoint, ts.UnixNano())
}

// Attrs returns slog attributes including the interaction ID from context.
// Usage: slog.Info("msg", logger.Attrs(ctx)...)
func Attrs(ctx context.Context) []any {
	id := InteractionID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("interaction_id", id)}
}
