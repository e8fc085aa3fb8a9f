// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// PatientIDKey is the context key for patient ID
	PatientIDKey contextKey = "patient_id"
	// CallEventIDKey is the context key for call event ID
	CallEventIDKey contextKey = "call_event_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, patient_id, and call_event_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if patientID, ok := ctx.Value(PatientIDKey).(string); ok && patientID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("patient_id", patientID))}
	}

	if callEventID, ok := ctx.Value(CallEventIDKey).(string); ok && callEventID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("call_event_id", callEventID))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// CallPlaced logs a successfully placed outbound call.
func (l *Logger) CallPlaced(callEventID, callType, providerRef string) {
	l.Info("call_placed",
		slog.String("call_event_id", callEventID),
		slog.String("call_type", callType),
		slog.String("provider_ref", providerRef),
	)
}

// CallRejected logs a call that could not be placed.
func (l *Logger) CallRejected(callEventID, reason string, err error) {
	attrs := []any{
		slog.String("call_event_id", callEventID),
		slog.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.Error("call_rejected", attrs...)
}

// WebhookEvent logs an inbound provider webhook.
func (l *Logger) WebhookEvent(kind, providerRef string) {
	l.Info("webhook_event",
		slog.String("kind", kind),
		slog.String("provider_ref", providerRef),
	)
}

// WebhookDropped logs a webhook that could not be matched to a call event.
func (l *Logger) WebhookDropped(kind, providerRef, reason string) {
	l.Warn("webhook_dropped",
		slog.String("kind", kind),
		slog.String("provider_ref", providerRef),
		slog.String("reason", reason),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
