package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"locked", errors.New("database is locked"), true},
		{"busy code", fmt.Errorf("commit: %w", errors.New("SQLITE_BUSY: cannot commit")), true},
		{"table locked", errors.New("database table is locked: events"), true},
		{"constraint", errors.New("UNIQUE constraint failed"), false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBusy(tt.err))
		})
	}
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{Attempts: 5, Delay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 20*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 40*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 50*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 50*time.Millisecond, p.Backoff(10))
	assert.Zero(t, RetryPolicy{}.Backoff(3))
}

func TestRetryRun(t *testing.T) {
	p := RetryPolicy{Attempts: 3, Delay: time.Millisecond}
	busy := errors.New("database is locked")

	t.Run("succeeds after busy", func(t *testing.T) {
		calls := 0
		err := p.run(context.Background(), func() error {
			calls++
			if calls < 3 {
				return busy
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := p.run(context.Background(), func() error { calls++; return busy })
		assert.ErrorIs(t, err, busy)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := p.run(context.Background(), func() error { calls++; return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := RetryPolicy{Attempts: 3, Delay: time.Hour}
		err := slow.run(ctx, func() error { return busy })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
