package cooldown

import "time"

// Snapshot is a point-in-time copy of the manager's timestamps, shaped for
// JSON persistence. Configured durations are not part of it; they come from
// config on every start.
type Snapshot struct {
	LastUsed   map[string]map[string]time.Time `json:"last_used"`
	GlobalLast map[string]time.Time            `json:"global_last"`
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	lastUsed := make(map[string]map[string]time.Time, len(m.lastUsed))
	for command, users := range m.lastUsed {
		copied := make(map[string]time.Time, len(users))
		for user, last := range users {
			copied[user] = last
		}
		lastUsed[command] = copied
	}
	globalLast := make(map[string]time.Time, len(m.globalLast))
	for command, last := range m.globalLast {
		globalLast[command] = last
	}
	return Snapshot{LastUsed: lastUsed, GlobalLast: globalLast}
}

// Restore replaces the manager's timestamps with the snapshot's. Records for
// commands that no longer exist are harmless; the next Purge drops them once
// they age out.
func (m *Manager) Restore(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastUsed = make(map[string]map[string]time.Time, len(s.LastUsed))
	for command, users := range s.LastUsed {
		copied := make(map[string]time.Time, len(users))
		for user, last := range users {
			copied[key(user)] = last
		}
		m.lastUsed[command] = copied
	}
	m.globalLast = make(map[string]time.Time, len(s.GlobalLast))
	for command, last := range s.GlobalLast {
		m.globalLast[command] = last
	}
}
