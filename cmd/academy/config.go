package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/axiometa/academy/internal/logging"
	"github.com/axiometa/academy/internal/scheduler"
)

// Config holds all academy server configuration.
// Priority: env vars > .env > settings.json > defaults.
type Config struct {
	ListenAddr      string `json:"listen_addr"`
	DBPath          string `json:"db_path"`
	LogLevel        string `json:"log_level"`
	ContentDir      string `json:"content_dir"`
	LevelStepExpr   string `json:"level_step_expr"`
	SessionIdleTTL  string `json:"session_idle_ttl"`
	CleanupSchedule string `json:"cleanup_schedule"`
	VacuumSchedule  string `json:"vacuum_schedule"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:      ":4200",
		DBPath:          filepath.Join(academyDir(), "academy.db"),
		LogLevel:        "info",
		SessionIdleTTL:  scheduler.DefaultSessionIdleTTL.String(),
		CleanupSchedule: scheduler.DefaultCleanupSchedule,
		VacuumSchedule:  scheduler.DefaultVacuumSchedule,
	}
}

func academyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".academy"
	}
	return filepath.Join(home, ".academy")
}

func settingsPath() string {
	return filepath.Join(academyDir(), "settings.json")
}

func toolsDir() string {
	return filepath.Join(academyDir(), "bin")
}

// envKeys maps ACADEMY_* variables onto config fields.
var envKeys = map[string]func(*Config, string){
	"ACADEMY_LISTEN_ADDR":      func(c *Config, v string) { c.ListenAddr = v },
	"ACADEMY_DB_PATH":          func(c *Config, v string) { c.DBPath = v },
	"ACADEMY_LOG_LEVEL":        func(c *Config, v string) { c.LogLevel = v },
	"ACADEMY_CONTENT_DIR":      func(c *Config, v string) { c.ContentDir = v },
	"ACADEMY_LEVEL_STEP_EXPR":  func(c *Config, v string) { c.LevelStepExpr = v },
	"ACADEMY_SESSION_IDLE_TTL": func(c *Config, v string) { c.SessionIdleTTL = v },
	"ACADEMY_CLEANUP_SCHEDULE": func(c *Config, v string) { c.CleanupSchedule = v },
	"ACADEMY_VACUUM_SCHEDULE":  func(c *Config, v string) { c.VacuumSchedule = v },
}

func loadConfig(logger *slog.Logger) Config {
	return loadConfigFrom(settingsPath(), ".env", logger)
}

// loadConfigFrom layers the configuration sources. Missing files are skipped;
// unreadable or malformed ones are logged and skipped.
func loadConfigFrom(settings, dotenv string, logger *slog.Logger) Config {
	cfg := defaultConfig()

	// Layer 2: settings.json.
	data, err := os.ReadFile(settings)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			logger.Warn("ignoring malformed settings file", "path", settings, "error", err)
			cfg = defaultConfig()
		}
	case !errors.Is(err, fs.ErrNotExist):
		logger.Warn("cannot read settings file", "path", settings, "error", err)
	}

	// Layer 3: .env fills variables not already set in the environment.
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("ignoring .env file", "path", dotenv, "error", err)
		}
	}

	// Layer 4: env vars override.
	for key, set := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			set(&cfg, v)
		}
	}
	return cfg
}

// IdleTTL parses SessionIdleTTL. An empty value uses the default.
func (c Config) IdleTTL() (time.Duration, error) {
	if c.SessionIdleTTL == "" {
		return scheduler.DefaultSessionIdleTTL, nil
	}
	d, err := time.ParseDuration(c.SessionIdleTTL)
	if err != nil {
		return 0, fmt.Errorf("session_idle_ttl: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("session_idle_ttl must be positive, got %s", d)
	}
	return d, nil
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.ContentDir != new.ContentDir {
		d.RestartNeeded = append(d.RestartNeeded, "content_dir")
	}
	if old.LevelStepExpr != new.LevelStepExpr {
		d.RestartNeeded = append(d.RestartNeeded, "level_step_expr")
	}
	if old.SessionIdleTTL != new.SessionIdleTTL || old.CleanupSchedule != new.CleanupSchedule ||
		old.VacuumSchedule != new.VacuumSchedule {
		d.RestartNeeded = append(d.RestartNeeded, "maintenance schedules")
	}
	return d
}

func pidPath() string {
	return filepath.Join(academyDir(), "academy.pid")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger: text on stderr with correlation ids
// from context. level may be changed later for config reloads.
func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(logging.NewCorrelationHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
