package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	academymcp "github.com/axiometa/academy/pkg/mcp"
)

// runMCP serves the MCP tools on stdio. Logs go to stderr since stdout
// carries the protocol.
func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := loadConfig(slog.Default())
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

	srv := academymcp.NewAcademyServer(academymcp.AcademyServerDeps{
		Catalog:  cs.catalog,
		Sessions: cs.sessions,
		Store:    a.store,
		Unlocker: a.unlocker,
		Hub:      a.hub,
		ToolsDir: toolsDir(),
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// stdin closing ends the session.
		defer cancel()
		return srv.Serve(gctx)
	})
	g.Go(func() error { return srv.ForwardMilestones(gctx) })
	return g.Wait()
}
