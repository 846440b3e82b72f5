package logger

import (
	"context"
	"testing"
)

func TestNewZapLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		log, err := NewZapLogger(Config{Level: level, Format: "json"})
		if err != nil {
			t.Fatalf("NewZapLogger(%q) returned error: %v", level, err)
		}
		if log == nil {
			t.Fatalf("NewZapLogger(%q) returned nil logger", level)
		}
	}
}

func TestZapLoggerWithContext(t *testing.T) {
	log := NewNop()

	child := log.WithContext(context.Background())
	if child == nil {
		t.Fatal("WithContext returned nil for empty context")
	}

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	child = log.WithContext(ctx)
	if child == nil {
		t.Fatal("WithContext returned nil for context with request id")
	}
	// Must not panic when used.
	child.Info("message", "key", "value")
}

func TestZapLoggerWith(t *testing.T) {
	log := NewNop()
	child := log.With("component", "scheduler")
	if child == nil {
		t.Fatal("With returned nil")
	}
	child.Debug("child message")
}
