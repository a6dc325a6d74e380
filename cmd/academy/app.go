package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/axiometa/academy/internal/api"
	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/internal/progress"
	"github.com/axiometa/academy/internal/scheduler"
	"github.com/axiometa/academy/internal/session"
	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/internal/streaming"
	"github.com/axiometa/academy/internal/validation"
)

// app holds the long-lived components shared by serve and mcp.
type app struct {
	logger   *slog.Logger
	store    *store.LibSQLStore
	events   *store.EventLog
	hub      *streaming.MemoryHub
	unlocker *progress.Unlocker
}

// contentSet is the catalog and the session service built over it.
type contentSet struct {
	catalog  *catalog.Catalog
	sessions session.Service
}

func openApp(ctx context.Context, cfg Config, logger *slog.Logger) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	unlocker, err := progress.NewUnlocker(logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	return &app{
		logger:   logger,
		store:    s,
		events:   store.NewEventLog(s),
		hub:      streaming.NewMemoryHub(),
		unlocker: unlocker,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// loadContent opens and audits the content bundle, then builds the session
// service over it. Content with validation errors is refused.
func (a *app) loadContent(cfg Config) (*contentSet, error) {
	b, err := content.Open(cfg.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	cv, err := validation.NewContentValidator()
	if err != nil {
		return nil, err
	}
	result := cv.Validate(b)
	for _, w := range result.Warnings {
		a.logger.Warn("content warning", "path", w.Path, "code", w.Code, "message", w.Message)
	}
	if !result.Valid() {
		for _, e := range result.Errors {
			a.logger.Error("content error", "path", e.Path, "code", e.Code, "message", e.Message)
		}
		return nil, fmt.Errorf("content has %d validation errors", len(result.Errors))
	}

	curve, err := progress.NewLevelCurve(cfg.LevelStepExpr)
	if err != nil {
		return nil, fmt.Errorf("level_step_expr: %w", err)
	}
	cat := catalog.New(b)
	svc, err := session.NewService(session.Config{
		Store:    a.store,
		Events:   a.events,
		Catalog:  cat,
		Curve:    curve,
		Unlocker: a.unlocker,
		Hub:      a.hub,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("content loaded", "lessons", len(cat.Lessons()), "kits", len(cat.Kits()))
	return &contentSet{catalog: cat, sessions: svc}, nil
}

func (a *app) apiHandler(cs *contentSet, sched *scheduler.Scheduler) (*api.Server, error) {
	return api.NewServer(api.Deps{
		Store:     a.store,
		Events:    a.events,
		Sessions:  cs.sessions,
		Catalog:   cs.catalog,
		Unlocker:  a.unlocker,
		Hub:       a.hub,
		Scheduler: sched,
		ToolsDir:  toolsDir(),
		Logger:    a.logger,
	})
}
