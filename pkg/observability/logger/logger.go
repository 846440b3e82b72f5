// Package logger provides the structured logging contract used across the
// coordination core. All methods take a message followed by alternating
// key-value pairs.
package logger

import "context"

// Logger is the structured logging interface shared by every component.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs on
	// every subsequent entry.
	With(args ...any) Logger

	// WithContext returns a child logger enriched with request-scoped
	// fields carried by ctx (currently the request id, when present).
	WithContext(ctx context.Context) Logger
}

type contextKey string

// RequestIDKey is the context key under which a request id may be stored.
const RequestIDKey contextKey = "request_id"
