package server

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/onnwee/murphbot/bot"
	"github.com/onnwee/murphbot/cooldown"
	"github.com/onnwee/murphbot/queue"
)

// Handlers holds dependencies for all HTTP handlers. The database is nil when
// persistence is not configured; probes and status degrade gracefully.
type Handlers struct {
	db        *sql.DB
	queue     *queue.Manager
	cooldowns *cooldown.Manager
	stats     *bot.Stats
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(db *sql.DB, q *queue.Manager, cd *cooldown.Manager, stats *bot.Stats) *Handlers {
	return &Handlers{db: db, queue: q, cooldowns: cd, stats: stats}
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests. The database check only
// runs when persistence is configured.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.db == nil {
				return nil
			}
			return h.db.PingContext(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns a lightweight status summary: uptime, message counters,
// and queue depth.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	messages, commands, errs := h.stats.Counts()
	mainDepth, overflowDepth := h.queue.Len()
	resp := map[string]any{
		"uptime":            h.stats.Uptime(),
		"messages":          messages,
		"commands":          commands,
		"errors":            errs,
		"queue_main":        mainDepth,
		"queue_overflow":    overflowDepth,
		"team_size":         h.queue.TeamSize(),
		"cooldown_commands": h.cooldowns.ActiveCommands(),
		"persistence":       h.db != nil,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
