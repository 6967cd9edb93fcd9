package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInteractionID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if id := InteractionID(ctx); id != "" {
		t.Errorf("expected empty interaction id, got %q", id)
	}

	ctx = WithInteractionID(ctx, "sl_apply-123")
	if id := InteractionID(ctx); id != "sl_apply-123" {
		t.Errorf("expected 'sl_apply-123', got %q", id)
	}
}

func TestNewInteractionID(t *testing.T) {
	ts := time.Date(2026, 8, 27, 10, 30, 0, 123456789, time.UTC)
	id := NewInteractionID("sl_apply", ts)

	if !strings.HasPrefix(id, "sl_apply-") {
		t.Errorf("expected id to start with 'sl_apply-', got %s", id)
	}
	if !strings.Contains(id, "123456789") {
		t.Errorf("expected id to contain nanoseconds, got %s", id)
	}
}

func TestAttrs(t *testing.T) {
	ctx := context.Background()

	if attrs := Attrs(ctx); attrs != nil {
		t.Errorf("expected nil attrs without interaction id, got %v", attrs)
	}

	ctx = WithInteractionID(ctx, "abc-123")
	if attrs := Attrs(ctx); len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with interaction id set")
	}
}
