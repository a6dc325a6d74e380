package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestScheduler(clock *fakeClock) *Scheduler {
	return NewScheduler(slog.Default(), WithClock(clock.Now))
}

func startClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)}
}

// counter is a JobFunc that counts calls and returns err.
type counter struct {
	n   atomic.Int32
	err error
}

func (c *counter) run(context.Context) error {
	c.n.Add(1)
	return c.err
}

func TestCalculateNextRun(t *testing.T) {
	sched := newTestScheduler(startClock())
	from := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		schedule string
		want     time.Time
	}{
		{"0 * * * *", time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 2, 10, 12, 15, 0, 0, time.UTC)},
		{"0 0 * * *", time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)},
		{"@daily", time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)},
		{"@every 1h", time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			next, err := sched.CalculateNextRun(tt.schedule, from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}

	_, err := sched.CalculateNextRun("invalid cron", from)
	require.Error(t, err)
}

func TestAdd(t *testing.T) {
	clock := startClock()
	sched := newTestScheduler(clock)
	c := &counter{}

	require.NoError(t, sched.Add("hourly", "0 * * * *", c.run))
	assert.Error(t, sched.Add("hourly", "0 * * * *", c.run), "duplicate name")
	assert.Error(t, sched.Add("broken", "not a schedule", c.run))
	require.NoError(t, sched.Add("off", "", c.run))

	jobs := sched.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "hourly", jobs[0].Name)
	assert.Equal(t, time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC), jobs[0].NextRunAt)
	assert.Nil(t, jobs[0].LastRunAt)
}

func TestTickRunsDueJobs(t *testing.T) {
	clock := startClock()
	sched := newTestScheduler(clock)
	hourly, daily := &counter{}, &counter{}
	require.NoError(t, sched.Add("hourly", "@every 1h", hourly.run))
	require.NoError(t, sched.Add("daily", "@daily", daily.run))

	ctx := context.Background()
	sched.tick(ctx)
	assert.Equal(t, int32(0), hourly.n.Load())

	clock.Advance(time.Hour)
	sched.tick(ctx)
	assert.Equal(t, int32(1), hourly.n.Load())
	assert.Equal(t, int32(0), daily.n.Load())

	// already rescheduled an hour out
	sched.tick(ctx)
	assert.Equal(t, int32(1), hourly.n.Load())

	clock.Advance(12 * time.Hour)
	sched.tick(ctx)
	assert.Equal(t, int32(2), hourly.n.Load())
	assert.Equal(t, int32(1), daily.n.Load())
}

func TestJobStatusAfterRun(t *testing.T) {
	clock := startClock()
	sched := newTestScheduler(clock)
	ok := &counter{}
	bad := &counter{err: errors.New("disk full")}
	require.NoError(t, sched.Add("ok", "@every 1h", ok.run))
	require.NoError(t, sched.Add("bad", "@every 1h", bad.run))

	clock.Advance(time.Hour)
	sched.tick(context.Background())

	jobs := sched.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "bad", jobs[0].Name)
	assert.Equal(t, StatusError, jobs[0].LastRunStatus)
	assert.Equal(t, "disk full", jobs[0].LastError)
	assert.Equal(t, StatusSuccess, jobs[1].LastRunStatus)
	require.NotNil(t, jobs[1].LastRunAt)
	assert.Equal(t, clock.Now(), *jobs[1].LastRunAt)
	assert.Equal(t, clock.Now().Add(time.Hour), jobs[1].NextRunAt)
}

func TestRunNow(t *testing.T) {
	sched := newTestScheduler(startClock())
	c := &counter{}
	require.NoError(t, sched.Add("job", "@daily", c.run))

	require.NoError(t, sched.RunNow(context.Background(), "job"))
	assert.Equal(t, int32(1), c.n.Load())
	assert.Error(t, sched.RunNow(context.Background(), "missing"))
}

func TestDedupPreventsDoubleRun(t *testing.T) {
	sched := newTestScheduler(startClock())
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	require.NoError(t, sched.Add("slow", "@every 1h", func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	}))

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- sched.RunNow(ctx, "slow") }()
	<-started

	require.NoError(t, sched.RunNow(ctx, "slow"))
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), runs.Load())
}

func TestStartStop(t *testing.T) {
	clock := startClock()
	sched := NewScheduler(slog.Default(), WithClock(clock.Now), WithTickInterval(10*time.Millisecond))
	c := &counter{}
	require.NoError(t, sched.Add("job", "@every 1m", c.run))
	clock.Advance(time.Minute)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	assert.Error(t, sched.Start(ctx), "double start")

	assert.Eventually(t, func() bool { return c.n.Load() >= 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, sched.Stop())
	require.NoError(t, sched.Stop(), "stop is idempotent")
	require.NoError(t, sched.Start(ctx), "restart after stop")
	require.NoError(t, sched.Stop())
}

// --- maintenance ---

type fakeSessions struct {
	mu    sync.Mutex
	calls []time.Duration
	n     int
}

func (f *fakeSessions) AbandonIdle(_ context.Context, idle time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, idle)
	return f.n, nil
}

type fakeVacuum struct{ calls atomic.Int32 }

func (f *fakeVacuum) Vacuum(context.Context) error {
	f.calls.Add(1)
	return nil
}

func TestRegisterMaintenance(t *testing.T) {
	clock := startClock()
	sched := newTestScheduler(clock)
	sessions := &fakeSessions{n: 3}
	vac := &fakeVacuum{}

	require.NoError(t, RegisterMaintenance(sched, sessions, vac, MaintenanceConfig{
		CleanupSchedule: DefaultCleanupSchedule,
		VacuumSchedule:  DefaultVacuumSchedule,
	}))
	names := []string{}
	for _, j := range sched.Jobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{JobAbandonIdle, JobVacuum}, names)

	ctx := context.Background()
	require.NoError(t, sched.RunNow(ctx, JobAbandonIdle))
	require.NoError(t, sched.RunNow(ctx, JobVacuum))
	assert.Equal(t, []time.Duration{DefaultSessionIdleTTL}, sessions.calls)
	assert.Equal(t, int32(1), vac.calls.Load())
}

func TestRegisterMaintenance_DisabledAndInvalid(t *testing.T) {
	sched := newTestScheduler(startClock())
	require.NoError(t, RegisterMaintenance(sched, &fakeSessions{}, &fakeVacuum{}, MaintenanceConfig{
		IdleTTL:         time.Hour,
		CleanupSchedule: "@every 30m",
	}))
	require.Len(t, sched.Jobs(), 1)

	other := newTestScheduler(startClock())
	err := RegisterMaintenance(other, &fakeSessions{}, &fakeVacuum{}, MaintenanceConfig{CleanupSchedule: "nope"})
	assert.Error(t, err)
}
