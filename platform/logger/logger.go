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
	// EventIDKey is the context key for the external event identifier
	EventIDKey contextKey = "event_id"
	// BusinessIDKey is the context key for the resolved business
	BusinessIDKey contextKey = "business_id"
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
// Supports request_id, event_id, and business_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if eventID, ok := ctx.Value(EventIDKey).(string); ok && eventID != "" {
		newLogger = newLogger.WithEventID(eventID)
	}

	if businessID, ok := ctx.Value(BusinessIDKey).(string); ok && businessID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("business_id", businessID))}
	}

	return newLogger
}

// WithEventID returns a logger scoped to an external event identifier.
func (l *Logger) WithEventID(eventID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("event_id", eventID)),
	}
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

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// WebhookEvent logs the outcome of a webhook event envelope.
func (l *Logger) WebhookEvent(eventType, eventID, outcome string) {
	l.Info("webhook_event",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.String("outcome", outcome),
	)
}

// SendFailure logs an outbound message that the provider rejected.
// These are never fatal to the request; they are recorded for operator follow-up.
func (l *Logger) SendFailure(businessID, to string, err error) {
	l.Warn("sms_send_failed",
		slog.String("business_id", businessID),
		slog.String("to", to),
		slog.String("error", err.Error()),
	)
}

// ComplianceBlock logs a suppressed send. The external caller never sees
// these; the log line is the only operator-visible trace.
func (l *Logger) ComplianceBlock(businessID, phone, reason string) {
	l.Warn("compliance_block",
		slog.String("business_id", businessID),
		slog.String("phone", phone),
		slog.String("reason", reason),
	)
}
