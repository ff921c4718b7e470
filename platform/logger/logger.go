// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey is the context key for the organization ID
	TenantIDKey contextKey = "tenant_id"
	// LeadIDKey is the context key for the lead ID being processed
	LeadIDKey contextKey = "lead_id"
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
// Supports request_id, tenant_id, and lead_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID); ok && tenantID != uuid.Nil {
		newLogger = newLogger.WithTenant(tenantID)
	}

	if leadID, ok := ctx.Value(LeadIDKey).(uuid.UUID); ok && leadID != uuid.Nil {
		newLogger = newLogger.WithLead(leadID)
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// WithTenant returns a logger scoped to an organization.
func (l *Logger) WithTenant(tenantID uuid.UUID) *Logger {
	return &Logger{
		Logger: l.With(slog.String("tenant_id", tenantID.String())),
	}
}

// WithLead returns a logger scoped to a lead.
func (l *Logger) WithLead(leadID uuid.UUID) *Logger {
	return &Logger{
		Logger: l.With(slog.String("lead_id", leadID.String())),
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

// ScoreComputed logs a completed scoring run.
func (l *Logger) ScoreComputed(leadID, activityID uuid.UUID, score, confidence float64, durationMs float64) {
	l.Info("score_computed",
		slog.String("lead_id", leadID.String()),
		slog.String("activity_id", activityID.String()),
		slog.Float64("score", score),
		slog.Float64("confidence", confidence),
		slog.Float64("duration_ms", durationMs),
	)
}

// ScorerTimedOut logs a factor scorer that exceeded its budget.
func (l *Logger) ScorerTimedOut(factor string, leadID uuid.UUID, budgetMs int64) {
	l.Warn("scorer_timed_out",
		slog.String("factor", factor),
		slog.String("lead_id", leadID.String()),
		slog.Int64("budget_ms", budgetMs),
	)
}

// TriggerDropped logs a trigger notification that was discarded.
func (l *Logger) TriggerDropped(reason string, leadID, activityID uuid.UUID) {
	l.Warn("trigger_dropped",
		slog.String("reason", reason),
		slog.String("lead_id", leadID.String()),
		slog.String("activity_id", activityID.String()),
	)
}

// SettingsUpdated logs a tenant configuration change.
func (l *Logger) SettingsUpdated(organizationID string) {
	l.Info("settings_updated",
		slog.String("organization_id", organizationID),
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
