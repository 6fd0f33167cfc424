package queue

import "time"

// Snapshot is a plain-data copy of queue state for crash recovery. The encoding
// (JSON in the db package) is the caller's choice, not part of this contract.
type Snapshot struct {
	Main         []string             `json:"main_queue"`
	Overflow     []string             `json:"overflow_queue"`
	TeamSize     int                  `json:"team_size"`
	Availability map[string]time.Time `json:"availability"`
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Main:         append([]string(nil), m.main...),
		Overflow:     append([]string(nil), m.overflow...),
		TeamSize:     m.teamSize,
		Availability: make(map[string]time.Time, len(m.away)),
	}
	for k, v := range m.away {
		s.Availability[k] = v
	}
	return s
}

// Restore replaces the current state with the snapshot. Availability entries
// for participants no longer in the main queue are dropped, and a team size
// outside the configured bounds is ignored in favor of the current value.
func (m *Manager) Restore(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.main = append([]string(nil), s.Main...)
	m.overflow = append([]string(nil), s.Overflow...)
	if s.TeamSize >= m.minTeam && s.TeamSize <= m.maxTeam {
		m.teamSize = s.TeamSize
	}
	m.away = make(map[string]time.Time, len(s.Availability))
	for k, v := range s.Availability {
		if indexOf(m.main, k) >= 0 {
			m.away[key(k)] = v
		}
	}
	m.updateDepth()
}
