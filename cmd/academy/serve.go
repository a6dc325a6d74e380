package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/axiometa/academy/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (overrides listen_addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := loadConfig(slog.Default())
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.LogLevel))
	logger := newLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	cs, err := a.loadContent(cfg)
	if err != nil {
		return err
	}

	ttl, err := cfg.IdleTTL()
	if err != nil {
		return err
	}
	sched := scheduler.NewScheduler(logger)
	if err := scheduler.RegisterMaintenance(sched, cs.sessions, a.store, scheduler.MaintenanceConfig{
		IdleTTL:         ttl,
		CleanupSchedule: cfg.CleanupSchedule,
		VacuumSchedule:  cfg.VacuumSchedule,
	}); err != nil {
		return err
	}

	srvAPI, err := a.apiHandler(cs, sched)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srvAPI.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	writePID()
	defer os.Remove(pidPath())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("academy listening", "addr", cfg.ListenAddr, "version", version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return sched.Stop()
	})
	g.Go(func() error {
		return watchReload(gctx, cfg, level, logger)
	})

	err = g.Wait()
	logger.Info("academy stopped")
	return err
}

// watchReload re-reads configuration on SIGHUP. Only the log level applies
// at once; content is loaded once per process.
func watchReload(ctx context.Context, cfg Config, level *slog.LevelVar, logger *slog.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			cfg = applyReload(cfg, loadConfig(logger), level, logger)
		}
	}
}

// applyReload sets the new log level and warns about every other change,
// returning the configuration now in effect.
func applyReload(cfg, next Config, level *slog.LevelVar, logger *slog.Logger) Config {
	d := diffConfigs(cfg, next)
	if d.LogLevelChanged {
		level.Set(parseLevel(next.LogLevel))
		cfg.LogLevel = next.LogLevel
		logger.Info("log level changed", "level", next.LogLevel)
	}
	for _, field := range d.RestartNeeded {
		logger.Warn("config change needs a restart", "field", field)
	}
	return cfg
}

func writePID() {
	if err := os.MkdirAll(academyDir(), 0o700); err != nil {
		return
	}
	_ = os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}
