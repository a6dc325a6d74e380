package streaming

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan StreamEvent) StreamEvent {
	t.Helper()
	select {
	case got, ok := <-ch:
		require.True(t, ok, "channel closed")
		return got
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return StreamEvent{}
}

func assertQuiet(t *testing.T, ch <-chan StreamEvent) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishSubscribe(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, StreamEvent{
		LearnerID: "l-1",
		SessionID: "s-1",
		LessonID:  "mcu-breadboard-blinky",
		StepID:    "challenge-1",
		EventType: "hint_revealed",
		Payload:   map[string]any{"revealed": 1},
	}))

	got := receive(t, ch)
	assert.Equal(t, "l-1", got.LearnerID)
	assert.Equal(t, "challenge-1", got.StepID)
	assert.Equal(t, "hint_revealed", got.EventType)
	assert.False(t, got.Timestamp.IsZero(), "publish stamps events")
}

func TestPublishKeepsTimestamp(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()
	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	defer cancel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", EventType: "step_advanced", Timestamp: at}))
	assert.Equal(t, at, receive(t, ch).Timestamp)
}

func TestFilterByLearner(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{LearnerID: "l-1"})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", EventType: "lesson_started"}))
	require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-2", EventType: "lesson_started"}))

	assert.Equal(t, "l-1", receive(t, ch).LearnerID)
	assertQuiet(t, ch)
}

func TestFilterBySession(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{LearnerID: "l-1", SessionID: "s-2"})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", SessionID: "s-1", EventType: "step_advanced"}))
	require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", SessionID: "s-2", EventType: "step_back"}))

	assert.Equal(t, "step_back", receive(t, ch).EventType)
	assertQuiet(t, ch)
}

func TestFilterByEventType(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{
		EventTypes: []string{"xp_awarded", "level_up"},
	})
	require.NoError(t, err)
	defer cancel()

	for _, typ := range []string{"xp_awarded", "step_advanced", "level_up"} {
		require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", EventType: typ}))
	}

	received := []string{receive(t, ch).EventType, receive(t, ch).EventType}
	assert.Equal(t, []string{"xp_awarded", "level_up"}, received)
	assertQuiet(t, ch)
}

func TestMultipleSubscribers(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch1, cancel1, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := hub.Subscribe(ctx, EventFilter{LearnerID: "l-1"})
	require.NoError(t, err)
	defer cancel2()
	assert.Equal(t, 2, hub.Subscribers())

	require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", EventType: "lesson_completed"}))
	for _, ch := range []<-chan StreamEvent{ch1, ch2} {
		assert.Equal(t, "lesson_completed", receive(t, ch).EventType)
	}
}

func TestCancelClosesAndUnsubscribes(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	cancel()
	cancel()

	require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", EventType: "step_advanced"}))
	_, ok := <-ch
	assert.False(t, ok, "cancel closes the channel")
	assert.Zero(t, hub.Subscribers())
}

func TestBackpressure(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < defaultChannelBuffer+10; i++ {
		require.NoError(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1", EventType: "step_advanced"}))
	}

	drained := 0
	for len(ch) > 0 {
		<-ch
		drained++
	}
	assert.Equal(t, defaultChannelBuffer, drained)
	assert.Equal(t, uint64(10), hub.Dropped())
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()
	const goroutines = 20
	const eventsPerGoroutine = 50

	cancels := make([]func(), goroutines)
	for i := range cancels {
		_, cancel, err := hub.Subscribe(ctx, EventFilter{})
		require.NoError(t, err)
		cancels[i] = cancel
	}
	defer func() {
		for _, c := range cancels {
			c()
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				_ = hub.Publish(ctx, StreamEvent{LearnerID: "l-1", EventType: "step_advanced"})
			}
		}()
		go func() {
			defer wg.Done()
			ch, cancel, err := hub.Subscribe(ctx, EventFilter{LearnerID: "l-1"})
			if err != nil {
				return
			}
			for range 5 {
				select {
				case <-ch:
				case <-time.After(10 * time.Millisecond):
				}
			}
			cancel()
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines, hub.Subscribers())
}

func TestCancelledContext(t *testing.T) {
	hub := NewMemoryHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, hub.Publish(ctx, StreamEvent{LearnerID: "l-1"}), context.Canceled)
	_, _, err := hub.Subscribe(ctx, EventFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}
