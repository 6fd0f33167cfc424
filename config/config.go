// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (Twitch chat), use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Queue and cooldown defaults mirror the bot's historical tuning.
const (
	DefaultMainQueueSize = 5
	DefaultTeamSize      = 5
	MinTeamSize          = 2
	MaxTeamSize          = 50

	DefaultNotAvailableTTL  = time.Hour
	DefaultQueueSweep       = 60 * time.Second
	DefaultCooldownSweep    = 300 * time.Second
	DefaultSnapshotInterval = 300 * time.Second
)

type Config struct {
	// Twitch
	TwitchChannel     string
	TwitchBotUsername string
	TwitchOAuthToken  string
	CommandPrefix     string

	// Queue
	MainQueueSize   int
	TeamSize        int
	NotAvailableTTL time.Duration
	QueueSweep      time.Duration

	// Cooldowns. PerCommandCooldowns maps command name to its base duration;
	// commands absent from the map fall back to DefaultCooldown.
	// GlobalCooldowns maps command name to a cross-user window.
	PerCommandCooldowns map[string]time.Duration
	GlobalCooldowns     map[string]time.Duration
	DefaultCooldown     time.Duration
	CooldownSweep       time.Duration

	// AI
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Database
	DBDsn string

	// Persistence
	SnapshotInterval time.Duration
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds
// are missing; use ValidateChatReady() when you require the chat connection. A missing
// OPENAI_API_KEY simply disables the AI command.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.CommandPrefix = os.Getenv("COMMAND_PREFIX")
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "?"
	}

	// Queue
	cfg.MainQueueSize = intEnv("QUEUE_MAIN_SIZE", DefaultMainQueueSize)
	if cfg.MainQueueSize < 1 {
		return nil, fmt.Errorf("QUEUE_MAIN_SIZE must be >= 1, got %d", cfg.MainQueueSize)
	}
	cfg.TeamSize = intEnv("QUEUE_TEAM_SIZE", DefaultTeamSize)
	if cfg.TeamSize < MinTeamSize || cfg.TeamSize > MaxTeamSize {
		return nil, fmt.Errorf("QUEUE_TEAM_SIZE must be in [%d,%d], got %d", MinTeamSize, MaxTeamSize, cfg.TeamSize)
	}
	cfg.NotAvailableTTL = durationEnv("QUEUE_NOT_AVAILABLE_TTL", DefaultNotAvailableTTL)
	cfg.QueueSweep = durationEnv("QUEUE_SWEEP_INTERVAL", DefaultQueueSweep)

	// Cooldowns: built-in table, overridable/extendable via COOLDOWNS ("ai=30s,joke=10s").
	cfg.PerCommandCooldowns = map[string]time.Duration{
		"ai":   30 * time.Second,
		"spam": 60 * time.Second,
		"joke": 10 * time.Second,
		"mod":  2 * time.Second,
	}
	if err := mergeCooldownEnv(cfg.PerCommandCooldowns, "COOLDOWNS"); err != nil {
		return nil, err
	}
	cfg.GlobalCooldowns = map[string]time.Duration{
		"joke": 5 * time.Second,
	}
	if err := mergeCooldownEnv(cfg.GlobalCooldowns, "GLOBAL_COOLDOWNS"); err != nil {
		return nil, err
	}
	cfg.DefaultCooldown = durationEnv("COOLDOWN_DEFAULT", 5*time.Second)
	cfg.CooldownSweep = durationEnv("COOLDOWN_SWEEP_INTERVAL", DefaultCooldownSweep)

	// AI
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	cfg.OpenAIModel = os.Getenv("OPENAI_MODEL")
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-3.5-turbo"
	}

	// DB. Empty means persistence is disabled and the bot runs in-memory.
	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.SnapshotInterval = durationEnv("SNAPSHOT_INTERVAL", DefaultSnapshotInterval)

	return cfg, nil
}

// ValidateChatReady checks required fields when the chat connection is enabled.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

func intEnv(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// mergeCooldownEnv parses "name=duration" pairs from the named env var and merges
// them over dst. A malformed pair fails Load rather than being silently dropped.
func mergeCooldownEnv(dst map[string]time.Duration, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid %s entry %q (want name=duration)", key, pair)
		}
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s duration %q: %v", key, pair, err)
		}
		dst[strings.ToLower(strings.TrimSpace(name))] = d
	}
	return nil
}
