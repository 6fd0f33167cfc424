// Command murphbot is the main entrypoint for the Twitch chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres, runs idempotent migrations, and
//     restores queue/cooldown state from the last snapshot.
//   - Joins Twitch chat and routes commands: viewer queue, AI assistant,
//     dynamic commands, and moderator overrides.
//   - Starts background jobs: queue availability expiry, cooldown purge,
//     and periodic state snapshots.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/murphbot/ai"
	"github.com/onnwee/murphbot/bot"
	"github.com/onnwee/murphbot/config"
	"github.com/onnwee/murphbot/cooldown"
	"github.com/onnwee/murphbot/db"
	"github.com/onnwee/murphbot/queue"
	"github.com/onnwee/murphbot/server"
	"github.com/onnwee/murphbot/telemetry"
)

const (
	queueSnapshotName    = "queue"
	cooldownSnapshotName = "cooldowns"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("twitch chat not configured", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("murphbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB is optional: without DB_DSN the bot runs in-memory only, losing
	// queue/cooldown state and dynamic commands across restarts.
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	} else {
		slog.Info("DB_DSN not set, persistence disabled")
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Queue and cooldown managers
	q := queue.NewManager(queue.Options{
		Capacity:    cfg.MainQueueSize,
		TeamSize:    cfg.TeamSize,
		MinTeamSize: config.MinTeamSize,
		MaxTeamSize: config.MaxTeamSize,
		AwayTTL:     cfg.NotAvailableTTL,
	})
	cd := cooldown.NewManager(cooldown.Options{
		PerCommand: cfg.PerCommandCooldowns,
		Global:     cfg.GlobalCooldowns,
		Default:    cfg.DefaultCooldown,
	})
	restoreState(ctx, database, q, cd)

	// AI assistant; disabled without an API key.
	assistant := ai.New(ai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if assistant.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if err := assistant.Ping(pingCtx); err != nil {
			slog.Warn("ai assistant ping failed", slog.Any("err", err))
		}
		cancel()
	}

	// Router and bot
	stats := bot.NewStats()
	router := bot.NewRouter(cfg.CommandPrefix, cd)
	bot.RegisterHandlers(router, q, assistant, database, stats)
	b := bot.New(cfg, router, stats)

	// Background jobs
	go queue.StartExpiryJob(ctx, q, cfg.QueueSweep, b.Announce)
	go cooldown.StartCleanupJob(ctx, cd, cfg.CooldownSweep)
	go startSnapshotJob(ctx, database, q, cd, cfg.SnapshotInterval)

	go func() {
		if err := b.Start(ctx); err != nil {
			slog.Error("twitch chat connection failed", slog.Any("err", err))
			stop()
		}
	}()

	// HTTP server (health/status/metrics)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handlers := server.NewHandlers(database, q, cd, stats)
	if err := server.Start(ctx, handlers, addr); err != nil {
		slog.Error("http server exited", slog.Any("err", err))
	}

	// Final snapshot so a clean shutdown loses nothing.
	saveState(context.WithoutCancel(ctx), database, q, cd)
	slog.Info("shutdown complete")
}

// restoreState loads the last persisted queue and cooldown snapshots. Missing
// or corrupt snapshots are logged and skipped; the bot starts empty.
func restoreState(ctx context.Context, database *sql.DB, q *queue.Manager, cd *cooldown.Manager) {
	if database == nil {
		return
	}
	if raw, err := db.LoadSnapshot(ctx, database, queueSnapshotName); err != nil {
		slog.Warn("queue snapshot load failed", slog.Any("err", err))
	} else if raw != nil {
		var snap queue.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			slog.Warn("queue snapshot corrupt, starting empty", slog.Any("err", err))
		} else {
			q.Restore(snap)
			slog.Info("queue state restored", slog.Int("main", len(snap.Main)), slog.Int("overflow", len(snap.Overflow)))
		}
	}
	if raw, err := db.LoadSnapshot(ctx, database, cooldownSnapshotName); err != nil {
		slog.Warn("cooldown snapshot load failed", slog.Any("err", err))
	} else if raw != nil {
		var snap cooldown.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			slog.Warn("cooldown snapshot corrupt, starting empty", slog.Any("err", err))
		} else {
			cd.Restore(snap)
		}
	}
}

func saveState(ctx context.Context, database *sql.DB, q *queue.Manager, cd *cooldown.Manager) {
	if database == nil {
		return
	}
	if raw, err := json.Marshal(q.Snapshot()); err == nil {
		if err := db.SaveSnapshot(ctx, database, queueSnapshotName, raw); err != nil {
			slog.Warn("queue snapshot save failed", slog.Any("err", err))
		}
	}
	if raw, err := json.Marshal(cd.Snapshot()); err == nil {
		if err := db.SaveSnapshot(ctx, database, cooldownSnapshotName, raw); err != nil {
			slog.Warn("cooldown snapshot save failed", slog.Any("err", err))
		}
	}
}

// startSnapshotJob persists queue and cooldown state on a timer until ctx is
// cancelled.
func startSnapshotJob(ctx context.Context, database *sql.DB, q *queue.Manager, cd *cooldown.Manager, interval time.Duration) {
	if database == nil {
		return
	}
	if interval <= 0 {
		interval = config.DefaultSnapshotInterval
	}
	slog.Info("snapshot job starting", slog.Duration("interval", interval), slog.String("component", "snapshot"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot job stopped", slog.String("component", "snapshot"))
			return
		case <-ticker.C:
			saveState(ctx, database, q, cd)
		}
	}
}
