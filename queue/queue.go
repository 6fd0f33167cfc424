// Package queue implements the viewer queue for turn-based games: a capacity-bounded
// main queue, an unbounded overflow queue, an away map with auto-expiry, and team
// shuffling. Participant identity is case-insensitive; the casing a viewer first
// joined with is preserved for display.
package queue

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/murphbot/telemetry"
	"github.com/onnwee/murphbot/validate"
)

// Result is the outcome of a queue operation. Message is chat-ready.
// Promoted carries the display names moved from overflow into the main
// queue as a side effect of the operation, in promotion order.
type Result struct {
	OK       bool
	Message  string
	Promoted []string
}

// Options configures a Manager. Zero values fall back to the defaults below.
type Options struct {
	Capacity    int           // main queue capacity, default 5
	TeamSize    int           // default 5
	MinTeamSize int           // default 2
	MaxTeamSize int           // default 50
	AwayTTL     time.Duration // not-available expiry, default 1h
}

// Manager owns all queue state. Every exported method takes the mutex, so an
// instance is safe for use from the chat handler and the sweep goroutine.
type Manager struct {
	mu       sync.Mutex
	capacity int
	teamSize int
	minTeam  int
	maxTeam  int
	awayTTL  time.Duration

	main     []string
	overflow []string
	// away maps the lowercased participant key to the expiry instant.
	// A key exists here only while the participant is in the main queue.
	away map[string]time.Time

	now func() time.Time
}

func NewManager(opts Options) *Manager {
	if opts.Capacity <= 0 {
		opts.Capacity = 5
	}
	if opts.TeamSize <= 0 {
		opts.TeamSize = 5
	}
	if opts.MinTeamSize <= 0 {
		opts.MinTeamSize = 2
	}
	if opts.MaxTeamSize <= 0 {
		opts.MaxTeamSize = 50
	}
	if opts.AwayTTL <= 0 {
		opts.AwayTTL = time.Hour
	}
	return &Manager{
		capacity: opts.Capacity,
		teamSize: opts.TeamSize,
		minTeam:  opts.MinTeamSize,
		maxTeam:  opts.MaxTeamSize,
		awayTTL:  opts.AwayTTL,
		away:     make(map[string]time.Time),
		now:      time.Now,
	}
}

func key(user string) string { return strings.ToLower(user) }

// indexOf finds user in list case-insensitively, -1 if absent.
func indexOf(list []string, user string) int {
	for i, u := range list {
		if strings.EqualFold(u, user) {
			return i
		}
	}
	return -1
}

func remove(list []string, i int) []string {
	return append(list[:i], list[i+1:]...)
}

// Join appends the participant to the main queue, or to overflow when the main
// queue is at capacity. Joining twice is rejected without mutation.
func (m *Manager) Join(user string) Result {
	if err := validate.Username(user); err != nil {
		return Result{Message: fmt.Sprintf("Invalid username: %v", err)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if indexOf(m.main, user) >= 0 || indexOf(m.overflow, user) >= 0 {
		return Result{Message: fmt.Sprintf("%s, you are already in queue.", user)}
	}
	if len(m.main) < m.capacity {
		m.main = append(m.main, user)
		m.updateDepth()
		return Result{OK: true, Message: fmt.Sprintf("%s joined main queue. Pos: %d", user, len(m.main))}
	}
	m.overflow = append(m.overflow, user)
	m.updateDepth()
	return Result{OK: true, Message: fmt.Sprintf("%s main queue full. Added to overflow. Pos: %d in overflow", user, len(m.overflow))}
}

// Leave removes the participant from whichever segment holds them. Removing from
// the main queue frees a slot, so the earliest overflow entrant (if any) is promoted.
func (m *Manager) Leave(user string) Result {
	if err := validate.Username(user); err != nil {
		return Result{Message: fmt.Sprintf("Invalid username: %v", err)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(user)
}

func (m *Manager) leaveLocked(user string) Result {
	if i := indexOf(m.main, user); i >= 0 {
		display := m.main[i]
		m.main = remove(m.main, i)
		delete(m.away, key(user))
		promoted := m.promoteLocked()
		m.updateDepth()
		msg := fmt.Sprintf("%s, you have left the queue.", display)
		if len(promoted) > 0 {
			msg = fmt.Sprintf("%s moved from overflow to main queue. %s", strings.Join(promoted, ", "), msg)
		}
		return Result{OK: true, Message: msg, Promoted: promoted}
	}
	if i := indexOf(m.overflow, user); i >= 0 {
		display := m.overflow[i]
		m.overflow = remove(m.overflow, i)
		m.updateDepth()
		return Result{OK: true, Message: fmt.Sprintf("%s, you left overflow queue.", display)}
	}
	return Result{Message: fmt.Sprintf("%s, you were not in any queue.", user)}
}

// promoteLocked moves overflow entrants into free main-queue slots, FIFO.
func (m *Manager) promoteLocked() []string {
	var promoted []string
	for len(m.main) < m.capacity && len(m.overflow) > 0 {
		next := m.overflow[0]
		m.overflow = m.overflow[1:]
		m.main = append(m.main, next)
		promoted = append(promoted, next)
	}
	return promoted
}

// ForceKick removes a participant from the main queue (moderator override).
// Like Leave, it promotes from overflow so the freed slot never idles.
func (m *Manager) ForceKick(user string) Result {
	if err := validate.Username(user); err != nil {
		return Result{Message: fmt.Sprintf("Invalid username: %v", err)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.main, user)
	if i < 0 {
		return Result{Message: fmt.Sprintf("%s not found in queue.", user)}
	}
	display := m.main[i]
	m.main = remove(m.main, i)
	delete(m.away, key(user))
	promoted := m.promoteLocked()
	m.updateDepth()
	msg := fmt.Sprintf("%s was removed from the queue.", display)
	if len(promoted) > 0 {
		msg = fmt.Sprintf("%s %s moved from overflow to main queue.", msg, strings.Join(promoted, ", "))
	}
	return Result{OK: true, Message: msg, Promoted: promoted}
}

// ForceJoin appends a participant directly to the main queue, bypassing the
// capacity check. The bypass is intentional: moderators may exceed capacity.
func (m *Manager) ForceJoin(user string) Result {
	if err := validate.Username(user); err != nil {
		return Result{Message: fmt.Sprintf("Invalid username: %v", err)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if indexOf(m.main, user) >= 0 || indexOf(m.overflow, user) >= 0 {
		return Result{Message: fmt.Sprintf("%s is already in queue.", user)}
	}
	m.main = append(m.main, user)
	m.updateDepth()
	return Result{OK: true, Message: fmt.Sprintf("%s was added to the main queue. Pos: %d", user, len(m.main))}
}

// MoveUp swaps the participant with their predecessor in the main queue.
func (m *Manager) MoveUp(user string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.main, user)
	if i < 0 {
		return Result{Message: fmt.Sprintf("%s not found in queue.", user)}
	}
	if i == 0 {
		return Result{Message: fmt.Sprintf("%s is already at the front of the queue.", m.main[i])}
	}
	m.main[i-1], m.main[i] = m.main[i], m.main[i-1]
	return Result{OK: true, Message: fmt.Sprintf("%s moved up to position %d.", m.main[i-1], i)}
}

// MoveDown swaps the participant with their successor in the main queue.
func (m *Manager) MoveDown(user string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.main, user)
	if i < 0 {
		return Result{Message: fmt.Sprintf("%s not found in queue.", user)}
	}
	if i == len(m.main)-1 {
		return Result{Message: fmt.Sprintf("%s is already at the back of the queue.", m.main[i])}
	}
	m.main[i], m.main[i+1] = m.main[i+1], m.main[i]
	return Result{OK: true, Message: fmt.Sprintf("%s moved down to position %d.", m.main[i+1], i+2)}
}

// MarkNotAvailable flags a main-queue participant as away for the configured TTL.
func (m *Manager) MarkNotAvailable(user string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.main, user)
	if i < 0 {
		return Result{Message: fmt.Sprintf("%s, you must be in the main queue to mark yourself not available.", user)}
	}
	m.away[key(user)] = m.now().Add(m.awayTTL)
	return Result{OK: true, Message: fmt.Sprintf("%s is now marked as not available.", m.main[i])}
}

// MarkAvailable clears an away flag. Clearing an absent flag is a reported no-op.
func (m *Manager) MarkAvailable(user string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.away[key(user)]; !ok {
		return Result{Message: fmt.Sprintf("%s was not marked as not available.", user)}
	}
	delete(m.away, key(user))
	i := indexOf(m.main, user)
	display := user
	if i >= 0 {
		display = m.main[i]
	}
	return Result{OK: true, Message: fmt.Sprintf("%s is available again.", display)}
}

// SetTeamSize updates the shuffle partition size after bounds checking.
func (m *Manager) SetTeamSize(size int) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size < m.minTeam || size > m.maxTeam {
		return Result{Message: fmt.Sprintf("Team size must be between %d and %d, got %d.", m.minTeam, m.maxTeam, size)}
	}
	m.teamSize = size
	return Result{OK: true, Message: fmt.Sprintf("Team size set to %d.", size)}
}

// TeamSize returns the current shuffle partition size.
func (m *Manager) TeamSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teamSize
}

// ShuffleTeams uniformly permutes the main queue and partitions the first
// 2*teamSize entries into two teams. It fails without mutation when fewer than
// 2*teamSize participants are queued. The shuffled order may coincide with the
// previous order; that is acceptable randomness, not an error.
func (m *Manager) ShuffleTeams() ([2][]string, Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	need := 2 * m.teamSize
	if len(m.main) < need {
		return [2][]string{}, Result{Message: fmt.Sprintf("Not enough players to shuffle. Need %d, have %d. Is team size set correctly?", need, len(m.main))}
	}
	rand.Shuffle(len(m.main), func(i, j int) {
		m.main[i], m.main[j] = m.main[j], m.main[i]
	})
	var teams [2][]string
	teams[0] = append([]string(nil), m.main[:m.teamSize]...)
	teams[1] = append([]string(nil), m.main[m.teamSize:need]...)
	return teams, Result{OK: true, Message: fmt.Sprintf("Team 1: %s | Team 2: %s", strings.Join(teams[0], ", "), strings.Join(teams[1], ", "))}
}

// Reset empties both queue segments and the away map.
func (m *Manager) Reset() Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.main = nil
	m.overflow = nil
	m.away = make(map[string]time.Time)
	m.updateDepth()
	return Result{OK: true, Message: "All queues have been cleared."}
}

// Show renders chat-ready summaries of both segments. Away participants are
// annotated in the main summary.
func (m *Manager) Show() (mainMsg, overflowMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.main) == 0 {
		mainMsg = "The queue is currently empty."
	} else {
		parts := make([]string, len(m.main))
		for i, u := range m.main {
			if _, away := m.away[key(u)]; away {
				parts[i] = u + " (not available)"
			} else {
				parts[i] = u
			}
		}
		mainMsg = "Queue: " + strings.Join(parts, ", ")
	}
	if len(m.overflow) == 0 {
		overflowMsg = "Overflow queue is empty."
	} else {
		overflowMsg = "Overflow: " + strings.Join(m.overflow, ", ")
	}
	return mainMsg, overflowMsg
}

// Len reports the current sizes of the main and overflow segments.
func (m *Manager) Len() (main, overflow int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.main), len(m.overflow)
}

// ExpireNotAvailable removes every participant whose away flag has lapsed,
// applying full leave semantics (overflow promotion included). It returns one
// chat-ready message per expired participant.
func (m *Manager) ExpireNotAvailable() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var expired []string
	for k, deadline := range m.away {
		if now.After(deadline) {
			expired = append(expired, k)
		}
	}
	var msgs []string
	for _, k := range expired {
		res := m.leaveLocked(k)
		msgs = append(msgs, fmt.Sprintf("Removed for inactivity: %s", res.Message))
	}
	return msgs
}

func (m *Manager) updateDepth() {
	telemetry.SetQueueDepth(len(m.main) + len(m.overflow))
}
