package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Maintenance job names.
const (
	JobAbandonIdle = "abandon-idle-sessions"
	JobVacuum      = "vacuum"
)

// Default maintenance schedules.
const (
	DefaultCleanupSchedule = "@every 1h"
	DefaultVacuumSchedule  = "@daily"
	DefaultSessionIdleTTL  = 24 * time.Hour
)

// IdleAbandoner abandons stale lesson sessions. Satisfied by session.Service.
type IdleAbandoner interface {
	AbandonIdle(ctx context.Context, idle time.Duration) (int, error)
}

// Vacuumer compacts the store. Satisfied by store.Store.
type Vacuumer interface {
	Vacuum(ctx context.Context) error
}

// MaintenanceConfig selects schedules for the built-in jobs. Empty schedules
// disable a job; a zero IdleTTL uses DefaultSessionIdleTTL.
type MaintenanceConfig struct {
	IdleTTL         time.Duration
	CleanupSchedule string
	VacuumSchedule  string
}

// RegisterMaintenance adds the idle-session cleanup and vacuum jobs.
func RegisterMaintenance(s *Scheduler, sessions IdleAbandoner, db Vacuumer, cfg MaintenanceConfig) error {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultSessionIdleTTL
	}
	if err := s.Add(JobAbandonIdle, cfg.CleanupSchedule, func(ctx context.Context) error {
		n, err := sessions.AbandonIdle(ctx, ttl)
		if err != nil {
			return fmt.Errorf("abandon idle sessions: %w", err)
		}
		s.logger.Info("idle sessions abandoned", slog.Int("count", n), slog.Duration("ttl", ttl))
		return nil
	}); err != nil {
		return err
	}
	return s.Add(JobVacuum, cfg.VacuumSchedule, db.Vacuum)
}
