// Package logging carries learner correlation ids through contexts and
// injects them into slog records.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	learnerIDKey ctxKey = iota
	sessionIDKey
	lessonIDKey
	stepIDKey
)

// correlationKeys lists the context keys in attribute order.
var correlationKeys = []struct {
	key  ctxKey
	attr string
}{
	{learnerIDKey, "learner_id"},
	{sessionIDKey, "session_id"},
	{lessonIDKey, "lesson_id"},
	{stepIDKey, "step_id"},
}

// WithLearnerID returns a context with the learner ID set.
func WithLearnerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, learnerIDKey, id)
}

// WithSessionID returns a context with the lesson session ID set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithLessonID returns a context with the lesson ID set.
func WithLessonID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, lessonIDKey, id)
}

// WithStepID returns a context with the step ID set.
func WithStepID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, stepIDKey, id)
}

// LearnerID extracts the learner ID from the context, or "" if absent.
func LearnerID(ctx context.Context) string { return value(ctx, learnerIDKey) }

// SessionID extracts the session ID from the context, or "" if absent.
func SessionID(ctx context.Context) string { return value(ctx, sessionIDKey) }

// LessonID extracts the lesson ID from the context, or "" if absent.
func LessonID(ctx context.Context) string { return value(ctx, lessonIDKey) }

// StepID extracts the step ID from the context, or "" if absent.
func StepID(ctx context.Context) string { return value(ctx, stepIDKey) }

func value(ctx context.Context, k ctxKey) string {
	v, _ := ctx.Value(k).(string)
	return v
}

// WithIDs sets the learner, lesson and step IDs at once. Empty values are skipped.
func WithIDs(ctx context.Context, learnerID, lessonID, stepID string) context.Context {
	if learnerID != "" {
		ctx = WithLearnerID(ctx, learnerID)
	}
	if lessonID != "" {
		ctx = WithLessonID(ctx, lessonID)
	}
	if stepID != "" {
		ctx = WithStepID(ctx, stepID)
	}
	return ctx
}

// attrs returns the correlation attributes present on ctx.
func attrs(ctx context.Context) []slog.Attr {
	var out []slog.Attr
	for _, k := range correlationKeys {
		if v := value(ctx, k.key); v != "" {
			out = append(out, slog.String(k.attr, v))
		}
	}
	return out
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	for _, a := range attrs(ctx) {
		logger = logger.With(a)
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(attrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(as)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
