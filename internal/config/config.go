// Package config loads runtime configuration for the progress service.
//
// Values are resolved in this order, later sources winning:
//   - built-in defaults,
//   - an optional YAML file,
//   - a .env file in the working directory (never overriding real env vars),
//   - process environment variables.
//
// Command-line flags are applied by main on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/seamanship/internal/database"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Database  database.Config `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// SessionKey authenticates learner cookies. At least 32 bytes in production.
	SessionKey   string `yaml:"session_key"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

// TelegramConfig configures the bot front end.
type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

// SchedulerConfig configures periodic jobs.
type SchedulerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	LeaderboardInterval time.Duration `yaml:"leaderboard_interval"`
	LeaderboardSize     int           `yaml:"leaderboard_size"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: database.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			LeaderboardInterval: time.Hour,
			LeaderboardSize:     10,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env is fine.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("DB_TYPE"); ok {
		cfg.Database.Driver = v
	}
	if v, ok := lookup("DB_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := lookup("DB_MAX_OPEN_CONNS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
		}
		cfg.Database.MaxOpenConns = n
	}
	if v, ok := lookup("DB_AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_AUTO_MIGRATE: %w", err)
		}
		cfg.Database.AutoMigrate = b
	}
	if v, ok := lookup("HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := lookup("SESSION_KEY"); ok {
		cfg.HTTP.SessionKey = v
	}
	if v, ok := lookup("SECURE_COOKIE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SECURE_COOKIE: %w", err)
		}
		cfg.HTTP.SecureCookie = b
	}
	if v, ok := lookup("TELEGRAM_BOT_TOKEN"); ok {
		cfg.Telegram.Token = v
	}
	if v, ok := lookup("ADMIN_CHAT_IDS"); ok {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("ADMIN_CHAT_IDS: %w", err)
		}
		cfg.Telegram.AdminChatIDs = ids
	}
	if v, ok := lookup("ENABLE_SCHEDULER"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ENABLE_SCHEDULER: %w", err)
		}
		cfg.Scheduler.Enabled = b
	}
	if v, ok := lookup("LEADERBOARD_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEADERBOARD_INTERVAL: %w", err)
		}
		cfg.Scheduler.LeaderboardInterval = d
	}
	if v, ok := lookup("LEADERBOARD_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LEADERBOARD_SIZE: %w", err)
		}
		cfg.Scheduler.LeaderboardSize = n
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
