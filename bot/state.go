package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stats tracks in-process counters surfaced by ?botstat and the /status endpoint.
type Stats struct {
	mu           sync.Mutex
	startedAt    time.Time
	messageCount int
	commandCount int
	errorCount   int
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) IncMessages() {
	s.mu.Lock()
	s.messageCount++
	s.mu.Unlock()
}

func (s *Stats) IncCommands() {
	s.mu.Lock()
	s.commandCount++
	s.mu.Unlock()
}

func (s *Stats) IncErrors() {
	s.mu.Lock()
	s.errorCount++
	s.mu.Unlock()
}

// Counts returns (messages, commands, errors).
func (s *Stats) Counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount, s.commandCount, s.errorCount
}

// Uptime returns a human-readable duration since start, e.g. "1 day, 2 hours, 5 minutes".
func (s *Stats) Uptime() string {
	s.mu.Lock()
	elapsed := time.Since(s.startedAt)
	s.mu.Unlock()
	return formatUptime(elapsed)
}

func formatUptime(d time.Duration) string {
	secs := int(d.Seconds())
	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60

	var parts []string
	add := func(n int, unit string) {
		if n > 0 {
			if n == 1 {
				parts = append(parts, fmt.Sprintf("1 %s", unit))
			} else {
				parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
			}
		}
	}
	add(days, "day")
	add(hours, "hour")
	add(minutes, "minute")
	if seconds > 0 || len(parts) == 0 {
		add(seconds, "second")
		if len(parts) == 0 {
			parts = append(parts, "0 seconds")
		}
	}
	return strings.Join(parts, ", ")
}
