package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAcademyEnv(t *testing.T) {
	t.Helper()
	for key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v) // restored after the test
			os.Unsetenv(key)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	clearAcademyEnv(t)
	cfg := loadConfigFrom(filepath.Join(t.TempDir(), "missing.json"), filepath.Join(t.TempDir(), ".env"), discardLogger())

	assert.Equal(t, ":4200", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "@every 1h", cfg.CleanupSchedule)
	assert.Equal(t, "@daily", cfg.VacuumSchedule)
	ttl, err := cfg.IdleTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestLoadConfigLayering(t *testing.T) {
	clearAcademyEnv(t)
	dir := t.TempDir()

	settings := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(settings, []byte(`{"listen_addr": ":9000", "log_level": "debug", "content_dir": "/srv/lessons"}`), 0o644))

	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("ACADEMY_LOG_LEVEL=warn\nACADEMY_SESSION_IDLE_TTL=2h\n"), 0o644))

	// The real environment beats .env.
	t.Setenv("ACADEMY_SESSION_IDLE_TTL", "30m")
	t.Cleanup(func() { os.Unsetenv("ACADEMY_LOG_LEVEL") })

	cfg := loadConfigFrom(settings, dotenv, discardLogger())
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/srv/lessons", cfg.ContentDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	ttl, err := cfg.IdleTTL()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)
}

func TestIdleTTLInvalid(t *testing.T) {
	_, err := Config{SessionIdleTTL: "soon"}.IdleTTL()
	assert.Error(t, err)
	_, err = Config{SessionIdleTTL: "-1h"}.IdleTTL()
	assert.Error(t, err)
}

func TestLoadConfigReportsMalformedFiles(t *testing.T) {
	clearAcademyEnv(t)
	dir := t.TempDir()

	settings := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(settings, []byte(`{"listen_addr": `), 0o644))
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("ACADEMY_LOG_LEVEL=\"debug\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ACADEMY_LOG_LEVEL") })

	var buf bytes.Buffer
	cfg := loadConfigFrom(settings, dotenv, slog.New(slog.NewTextHandler(&buf, nil)))

	assert.Equal(t, defaultConfig(), cfg)
	assert.Contains(t, buf.String(), "ignoring malformed settings file")
	assert.Contains(t, buf.String(), "ignoring .env file")
}

func TestLoadConfigMissingFilesAreSilent(t *testing.T) {
	clearAcademyEnv(t)
	dir := t.TempDir()

	var buf bytes.Buffer
	loadConfigFrom(filepath.Join(dir, "settings.json"), filepath.Join(dir, ".env"), slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Empty(t, buf.String())
}

func TestDiffConfigs(t *testing.T) {
	old := defaultConfig()

	d := diffConfigs(old, old)
	assert.False(t, d.LogLevelChanged)
	assert.Empty(t, d.RestartNeeded)

	next := old
	next.LogLevel = "debug"
	next.ContentDir = "/tmp/lessons"
	next.ListenAddr = ":1"
	next.VacuumSchedule = "@weekly"
	d = diffConfigs(old, next)
	assert.True(t, d.LogLevelChanged)
	assert.Equal(t, []string{"listen_addr", "content_dir", "maintenance schedules"}, d.RestartNeeded)
}

func TestApplyReload_OnlyLogLevel(t *testing.T) {
	old := defaultConfig()
	level := new(slog.LevelVar)
	level.Set(parseLevel(old.LogLevel))
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	next := old
	next.LogLevel = "error"
	next.ContentDir = "/srv/lessons"
	next.LevelStepExpr = "next + 1000"

	got := applyReload(old, next, level, logger)
	assert.Equal(t, slog.LevelError, level.Level())
	assert.Equal(t, "error", got.LogLevel)
	assert.Equal(t, old.ContentDir, got.ContentDir, "content stays as loaded")
	assert.Equal(t, old.LevelStepExpr, got.LevelStepExpr)
	assert.Contains(t, buf.String(), "field=content_dir")
	assert.Contains(t, buf.String(), "field=level_step_expr")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARNING").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}
