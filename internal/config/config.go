// Package config loads the service configuration from YAML, environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig holds the snapshot feed configuration
type FeedConfig struct {
	URL               string        `mapstructure:"url"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	Language          string        `mapstructure:"language"`
	IgnoreTournaments []string      `mapstructure:"ignore_tournaments"`
	IgnoreHandicaps   bool          `mapstructure:"ignore_handicaps"`
	HandicapEvery     int           `mapstructure:"handicap_every"` // poll handicap events every N cycles
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	BotToken         string        `mapstructure:"bot_token"`
	ChatID           string        `mapstructure:"chat_id"`
	BroadcastChatIDs []string      `mapstructure:"broadcast_chat_ids"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelayBase   time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	Backend         string `mapstructure:"backend"` // json or sqlite
	SnapshotPath    string `mapstructure:"snapshot_path"`
	DBPath          string `mapstructure:"db_path"`
	SingleRulesPath string `mapstructure:"single_rules_path"`
	ComboRulesPath  string `mapstructure:"combo_rules_path"`
	PickLog         bool   `mapstructure:"pick_log"`
}

// AlertConfig holds the audible alert configuration
type AlertConfig struct {
	SoundEnabled bool   `mapstructure:"sound_enabled"`
	Player       string `mapstructure:"player"`
	SoundFile    string `mapstructure:"sound_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory or next to the config file is loaded first.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// ODDSWATCH_TELEGRAM_BOT_TOKEN overrides telegram.bot_token
	v.SetEnvPrefix("ODDSWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.poll_interval", "30s")
	v.SetDefault("feed.timeout", "15s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay_base", "1s")
	v.SetDefault("feed.language", "en")
	v.SetDefault("feed.ignore_tournaments", []string{})
	v.SetDefault("feed.ignore_handicaps", false)
	v.SetDefault("feed.handicap_every", 5)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.broadcast_chat_ids", []string{})
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.backend", "json")
	v.SetDefault("storage.snapshot_path", "./data/matches.json")
	v.SetDefault("storage.db_path", "./data/oddswatch.db")
	v.SetDefault("storage.single_rules_path", "./data/bets.csv")
	v.SetDefault("storage.combo_rules_path", "./data/combi_bets.csv")
	v.SetDefault("storage.pick_log", false)

	v.SetDefault("alert.sound_enabled", false)
	v.SetDefault("alert.player", "paplay")
	v.SetDefault("alert.sound_file", "/usr/share/sounds/freedesktop/stereo/complete.oga")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.Feed.PollInterval < 5*time.Second {
		return fmt.Errorf("feed.poll_interval must be at least 5 seconds")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive")
	}
	if c.Feed.MaxRetries < 1 {
		return fmt.Errorf("feed.max_retries must be at least 1")
	}
	validLanguages := map[string]bool{"en": true, "es": true, "cz": true, "sk": true}
	if !validLanguages[strings.ToLower(c.Feed.Language)] {
		return fmt.Errorf("feed.language must be one of: en, es, cz, sk")
	}
	if c.Feed.HandicapEvery < 1 {
		return fmt.Errorf("feed.handicap_every must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	switch c.Storage.Backend {
	case "json":
		if c.Storage.SnapshotPath == "" {
			return fmt.Errorf("storage.snapshot_path is required for the json backend")
		}
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: json, sqlite")
	}
	if c.Storage.PickLog && c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required when storage.pick_log is enabled")
	}
	if c.Storage.SingleRulesPath == "" || c.Storage.ComboRulesPath == "" {
		return fmt.Errorf("storage.single_rules_path and storage.combo_rules_path are required")
	}

	if c.Alert.SoundEnabled && c.Alert.Player == "" {
		return fmt.Errorf("alert.player is required when alert.sound_enabled is set")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// UsesSQLite reports whether any component needs the SQLite database.
func (c *Config) UsesSQLite() bool {
	return c.Storage.Backend == "sqlite" || c.Storage.PickLog
}
