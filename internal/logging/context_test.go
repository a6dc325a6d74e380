package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", LearnerID(ctx))
	assert.Equal(t, "", SessionID(ctx))
	assert.Equal(t, "", LessonID(ctx))
	assert.Equal(t, "", StepID(ctx))

	ctx = WithLearnerID(ctx, "l-1")
	ctx = WithSessionID(ctx, "s-9")
	ctx = WithLessonID(ctx, "mcu-breadboard-blinky")
	ctx = WithStepID(ctx, "wiring-2")

	assert.Equal(t, "l-1", LearnerID(ctx))
	assert.Equal(t, "s-9", SessionID(ctx))
	assert.Equal(t, "mcu-breadboard-blinky", LessonID(ctx))
	assert.Equal(t, "wiring-2", StepID(ctx))
}

func TestWithIDsSkipsEmpty(t *testing.T) {
	ctx := WithStepID(context.Background(), "keep")
	ctx = WithIDs(ctx, "l-1", "lesson-a", "")
	assert.Equal(t, "l-1", LearnerID(ctx))
	assert.Equal(t, "lesson-a", LessonID(ctx))
	assert.Equal(t, "keep", StepID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithIDs(context.Background(), "l-7", "blinky", "upload")
	LogWith(ctx, logger).Info("test message")

	output := buf.String()
	assert.Contains(t, output, "learner_id=l-7")
	assert.Contains(t, output, "lesson_id=blinky")
	assert.Contains(t, output, "step_id=upload")
	assert.NotContains(t, output, "session_id")
	assert.Contains(t, output, "test message")
}

func TestLogWithEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogWith(context.Background(), logger).Info("no context")

	output := buf.String()
	assert.NotContains(t, output, "learner_id")
	assert.NotContains(t, output, "step_id")
	assert.Contains(t, output, "no context")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithSessionID(WithIDs(context.Background(), "l-auto", "lesson-auto", "step-auto"), "s-auto")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"learner_id":"l-auto"`)
	assert.Contains(t, output, `"session_id":"s-auto"`)
	assert.Contains(t, output, `"lesson_id":"lesson-auto"`)
	assert.Contains(t, output, `"step_id":"step-auto"`)
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "learner_id")
	assert.NotContains(t, output, "lesson_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCorrelationHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "session")}))

	logger.InfoContext(WithLearnerID(context.Background(), "l-attr"), "with attrs")
	assert.Contains(t, buf.String(), `"learner_id":"l-attr"`)
	assert.Contains(t, buf.String(), `"component":"session"`)

	buf.Reset()
	grouped := slog.New(handler.WithGroup("api"))
	grouped.InfoContext(WithLearnerID(context.Background(), "l-grp"), "grouped", "key", "val")
	assert.Contains(t, buf.String(), "l-grp")
	assert.Contains(t, buf.String(), "grouped")
}
