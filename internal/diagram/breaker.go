package diagram

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRendererUnavailable is returned while a renderer's breaker is open.
var ErrRendererUnavailable = errors.New("renderer unavailable")

// BreakerState is the state of a renderer breaker.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // renderer is called
	BreakerOpen                         // renderer is skipped
	BreakerHalfOpen                     // one probe call allowed
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes when an external renderer is skipped.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int
	// Cooldown is how long an open breaker skips the renderer.
	Cooldown time.Duration
}

// DefaultBreakerConfig skips a binary for a minute after three failed runs.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute}
}

type breaker struct {
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// RendererBreakers tracks failures of external renderer binaries by path, so a
// broken install does not spawn a process on every diagram request.
type RendererBreakers struct {
	mu       sync.Mutex
	breakers map[string]*breaker
	config   BreakerConfig
	now      func() time.Time
}

// NewRendererBreakers creates a registry with the given config.
func NewRendererBreakers(config BreakerConfig) *RendererBreakers {
	return &RendererBreakers{
		breakers: make(map[string]*breaker),
		config:   config,
		now:      time.Now,
	}
}

// Allow reports whether the renderer at path may be called.
func (r *RendererBreakers) Allow(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.get(path)

	switch b.state {
	case BreakerOpen:
		if r.now().Sub(b.openedAt) < r.config.Cooldown {
			return fmt.Errorf("%w: %s failed %d times", ErrRendererUnavailable, path, b.failures)
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return fmt.Errorf("%w: %s is being probed", ErrRendererUnavailable, path)
		}
		b.probing = true
	}
	return nil
}

// Success closes the breaker for path.
func (r *RendererBreakers) Success(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.get(path)
	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
}

// Failure records a failed run and returns the resulting state.
func (r *RendererBreakers) Failure(path string) BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.get(path)
	b.failures++
	b.probing = false
	if b.state == BreakerHalfOpen || b.failures >= r.config.FailureThreshold {
		b.state = BreakerOpen
		b.openedAt = r.now()
	}
	return b.state
}

// State returns the breaker state for path.
func (r *RendererBreakers) State(path string) BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(path).state
}

func (r *RendererBreakers) get(path string) *breaker {
	b, ok := r.breakers[path]
	if !ok {
		b = &breaker{}
		r.breakers[path] = b
	}
	return b
}
