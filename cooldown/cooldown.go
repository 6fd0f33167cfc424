// Package cooldown throttles command usage per user and, for designated commands,
// globally across all users. Durations are injected so tuning stays in config.
package cooldown

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/murphbot/telemetry"
)

// Options configures a Manager. PerCommand maps command name to its base
// duration; commands absent from the map use Default. Global maps command name
// to a cross-user window that applies regardless of privilege.
type Options struct {
	PerCommand map[string]time.Duration
	Global     map[string]time.Duration
	Default    time.Duration
}

// Manager tracks last-use timestamps. All methods are safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	perCommand map[string]time.Duration
	global     map[string]time.Duration
	defaultDur time.Duration

	// lastUsed maps command -> lowercased user -> last-use instant.
	lastUsed map[string]map[string]time.Time
	// globalLast maps command -> last use by anyone.
	globalLast map[string]time.Time

	now func() time.Time
}

func NewManager(opts Options) *Manager {
	if opts.Default <= 0 {
		opts.Default = 5 * time.Second
	}
	perCommand := make(map[string]time.Duration, len(opts.PerCommand))
	for k, v := range opts.PerCommand {
		perCommand[k] = v
	}
	global := make(map[string]time.Duration, len(opts.Global))
	for k, v := range opts.Global {
		global[k] = v
	}
	return &Manager{
		perCommand: perCommand,
		global:     global,
		defaultDur: opts.Default,
		lastUsed:   make(map[string]map[string]time.Time),
		globalLast: make(map[string]time.Time),
		now:        time.Now,
	}
}

// IsOnCooldown reports whether command is throttled for user, and if so how many
// whole seconds remain. The command's global window (when configured) is checked
// first and applies to everyone; privilege halves only the per-user component.
func (m *Manager) IsOnCooldown(command, user string, privileged bool) (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if window, ok := m.global[command]; ok {
		if last, used := m.globalLast[command]; used {
			if remaining := window - now.Sub(last); remaining > 0 {
				telemetry.CooldownBlocked(command)
				return true, ceilSeconds(remaining)
			}
		}
	}

	dur := m.baseDuration(command)
	if privileged {
		dur /= 2
	}
	if last, ok := m.lastUsed[command][key(user)]; ok {
		if remaining := dur - now.Sub(last); remaining > 0 {
			telemetry.CooldownBlocked(command)
			return true, ceilSeconds(remaining)
		}
	}
	return false, 0
}

// SetCooldown records a use of command by user, and the command's global
// timestamp when a global window is configured.
func (m *Manager) SetCooldown(command, user string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	users, ok := m.lastUsed[command]
	if !ok {
		users = make(map[string]time.Time)
		m.lastUsed[command] = users
	}
	users[key(user)] = now
	if _, ok := m.global[command]; ok {
		m.globalLast[command] = now
	}
}

// Purge drops records older than twice the longest configured base duration and
// removes command entries that hold no users.
func (m *Manager) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := 2 * m.maxDuration()
	now := m.now()
	removed := 0
	for command, users := range m.lastUsed {
		for user, last := range users {
			if now.Sub(last) > cutoff {
				delete(users, user)
				removed++
			}
		}
		if len(users) == 0 {
			delete(m.lastUsed, command)
		}
	}
	for command, last := range m.globalLast {
		if now.Sub(last) > cutoff {
			delete(m.globalLast, command)
		}
	}
	return removed
}

// ActiveCommands reports how many commands currently hold per-user records.
func (m *Manager) ActiveCommands() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastUsed)
}

func (m *Manager) baseDuration(command string) time.Duration {
	if d, ok := m.perCommand[command]; ok {
		return d
	}
	return m.defaultDur
}

func (m *Manager) maxDuration() time.Duration {
	max := m.defaultDur
	for _, d := range m.perCommand {
		if d > max {
			max = d
		}
	}
	for _, d := range m.global {
		if d > max {
			max = d
		}
	}
	return max
}

func key(user string) string { return strings.ToLower(user) }

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}

// StartCleanupJob periodically purges stale records until ctx is cancelled.
func StartCleanupJob(ctx context.Context, m *Manager, interval time.Duration) {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	slog.Info("cooldown cleanup starting", slog.Duration("interval", interval), slog.String("component", "cooldown_sweep"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cooldown cleanup stopped", slog.String("component", "cooldown_sweep"))
			return
		case <-ticker.C:
			removed := m.Purge()
			slog.Debug("cooldowns purged",
				slog.Int("removed", removed),
				slog.Int("active_commands", m.ActiveCommands()),
				slog.String("component", "cooldown_sweep"))
		}
	}
}
