package bot

import (
	"testing"
	"time"
)

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{1 * time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{time.Minute, "1 minute"},
		{90 * time.Second, "1 minute, 30 seconds"},
		{2 * time.Hour, "2 hours"},
		{26*time.Hour + 5*time.Minute, "1 day, 2 hours, 5 minutes"},
		{48 * time.Hour, "2 days"},
	}
	for _, tc := range cases {
		if got := formatUptime(tc.d); got != tc.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestStatsCounts(t *testing.T) {
	s := NewStats()
	s.IncMessages()
	s.IncMessages()
	s.IncCommands()
	msgs, cmds, errs := s.Counts()
	if msgs != 2 || cmds != 1 || errs != 0 {
		t.Fatalf("Counts() = (%d, %d, %d), want (2, 1, 0)", msgs, cmds, errs)
	}
}
