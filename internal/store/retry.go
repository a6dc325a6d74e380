package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryPolicy bounds how write transactions are retried when another
// connection holds the database lock, e.g. `academy serve` and `academy mcp`
// sharing one file.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy is applied by NewLibSQLStore.
var DefaultRetryPolicy = RetryPolicy{Attempts: 4, Delay: 25 * time.Millisecond, MaxDelay: 400 * time.Millisecond}

// IsBusy reports whether err is a lock conflict worth retrying. Context
// cancellation never is.
func IsBusy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"database is locked", "sqlite_busy", "database table is locked", "sqlite_locked"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Backoff returns the delay before retry attempt (0-based): Delay doubled
// per attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	delay := p.Delay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// run calls fn until it succeeds, fails with a non-busy error, or the
// attempts run out.
func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !IsBusy(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if werr := waitForBackoff(ctx, p.Backoff(i)); werr != nil {
			return werr
		}
	}
	return err
}

func waitForBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
