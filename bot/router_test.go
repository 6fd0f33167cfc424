package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/murphbot/cooldown"
	"github.com/onnwee/murphbot/queue"
)

func newTestRouter(t *testing.T) (*Router, *queue.Manager) {
	t.Helper()
	cd := cooldown.NewManager(cooldown.Options{
		PerCommand: map[string]time.Duration{"ai": 30 * time.Second},
		Default:    5 * time.Second,
	})
	q := queue.NewManager(queue.Options{Capacity: 2, TeamSize: 2})
	r := NewRouter("?", cd)
	RegisterHandlers(r, q, nil, nil, NewStats())
	return r, q
}

func msgFrom(user string, privileged bool, text string) Message {
	return Message{User: strings.ToLower(user), DisplayName: user, Channel: "peks", IsPrivileged: privileged, Text: text}
}

func TestDispatchIgnoresNonCommands(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	for _, text := range []string{"hello chat", "", "?", "?unknowncmd"} {
		if reply, handled := r.Dispatch(ctx, msgFrom("alice", false, text)); handled {
			t.Errorf("Dispatch(%q) handled=%v reply=%q", text, handled, reply)
		}
	}
}

func TestDispatchJoinAndShow(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	reply, handled := r.Dispatch(ctx, msgFrom("alice", false, "?join"))
	if !handled || reply != "alice joined main queue. Pos: 1" {
		t.Fatalf("unexpected: handled=%v reply=%q", handled, reply)
	}
	reply, _ = r.Dispatch(ctx, msgFrom("bob", false, "?join"))
	if !strings.Contains(reply, "Pos: 2") {
		t.Fatalf("unexpected: %q", reply)
	}
	reply, _ = r.Dispatch(ctx, msgFrom("carol", false, "?queue"))
	if !strings.Contains(reply, "alice") || !strings.Contains(reply, "bob") {
		t.Fatalf("queue display missing members: %q", reply)
	}
}

func TestDispatchCooldownGate(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	if reply, _ := r.Dispatch(ctx, msgFrom("alice", false, "?queue")); strings.Contains(reply, "cooldown") {
		t.Fatalf("first invocation should not be throttled: %q", reply)
	}
	// repeating the same command within 5s is blocked
	reply, handled := r.Dispatch(ctx, msgFrom("alice", false, "?queue"))
	if !handled || !strings.Contains(reply, "cooldown") {
		t.Fatalf("expected cooldown block, got %q", reply)
	}
	// other users are unaffected
	if reply, _ := r.Dispatch(ctx, msgFrom("bob", false, "?queue")); strings.Contains(reply, "cooldown") {
		t.Fatalf("cooldown leaked across users: %q", reply)
	}
}

func TestDispatchCooldownIsPerCommand(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	if reply, _ := r.Dispatch(ctx, msgFrom("alice", false, "?join")); strings.Contains(reply, "cooldown") {
		t.Fatalf("join throttled on first use: %q", reply)
	}
	// join and nothere keep separate records; one never blocks the other
	reply, _ := r.Dispatch(ctx, msgFrom("alice", false, "?nothere"))
	if strings.Contains(reply, "cooldown") {
		t.Fatalf("join cooldown blocked nothere: %q", reply)
	}
	if !strings.Contains(reply, "marked as not available") {
		t.Fatalf("unexpected nothere reply: %q", reply)
	}
	if reply, _ := r.Dispatch(ctx, msgFrom("alice", false, "?leave")); strings.Contains(reply, "cooldown") {
		t.Fatalf("join cooldown blocked leave: %q", reply)
	}
}

func TestDispatchQueueIdentityUsesLogin(t *testing.T) {
	r, q := newTestRouter(t)
	ctx := context.Background()

	// Localized display names are not valid queue identifiers; the login
	// name always is.
	msg := Message{User: "ono", DisplayName: "オノ", Channel: "peks", Text: "?join"}
	reply, handled := r.Dispatch(ctx, msg)
	if !handled || reply != "ono joined main queue. Pos: 1" {
		t.Fatalf("unexpected: handled=%v reply=%q", handled, reply)
	}
	if main, _ := q.Len(); main != 1 {
		t.Fatalf("main queue depth = %d, want 1", main)
	}
}

func TestDispatchPrivilegeGate(t *testing.T) {
	r, q := newTestRouter(t)
	ctx := context.Background()

	reply, handled := r.Dispatch(ctx, msgFrom("alice", false, "?clearqueue"))
	if !handled || !strings.Contains(reply, "restricted to moderators") {
		t.Fatalf("expected permission denial, got %q", reply)
	}

	q.Join("bob")
	reply, _ = r.Dispatch(ctx, msgFrom("Mod1", true, "?clearqueue"))
	if reply != "All queues have been cleared." {
		t.Fatalf("privileged clear failed: %q", reply)
	}
	if main, _ := q.Len(); main != 0 {
		t.Fatal("queue not cleared")
	}
}

func TestDispatchModerationCommands(t *testing.T) {
	r, q := newTestRouter(t)
	ctx := context.Background()
	q.Join("alice")
	q.Join("bob")
	q.Join("carol") // overflow

	reply, _ := r.Dispatch(ctx, msgFrom("Mod1", true, "?fleave ALICE"))
	if !strings.Contains(reply, "removed from the queue") || !strings.Contains(reply, "carol moved from overflow") {
		t.Fatalf("unexpected fleave reply: %q", reply)
	}
	reply, _ = r.Dispatch(ctx, msgFrom("Mod1", true, "?fjoin dave"))
	if !strings.Contains(reply, "dave was added") {
		t.Fatalf("unexpected fjoin reply: %q", reply)
	}
	if reply, _ := r.Dispatch(ctx, msgFrom("Mod1", true, "?fjoin")); !strings.HasPrefix(reply, "Usage:") {
		t.Fatalf("missing usage message: %q", reply)
	}
}

func TestDispatchTeamSizeValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	reply, _ := r.Dispatch(ctx, msgFrom("Mod1", true, "?teamsize abc"))
	if !strings.Contains(reply, "must be a number") {
		t.Fatalf("non-numeric team size not rejected: %q", reply)
	}
	reply, _ = r.Dispatch(ctx, msgFrom("Mod1", true, "?teamsize 99"))
	if !strings.Contains(reply, "between 2 and 50") {
		t.Fatalf("out-of-range team size not rejected: %q", reply)
	}
	reply, _ = r.Dispatch(ctx, msgFrom("Mod1", true, "?teamsize 3"))
	if reply != "Team size set to 3." {
		t.Fatalf("valid team size rejected: %q", reply)
	}
}

func TestDispatchShuffleShortfall(t *testing.T) {
	r, q := newTestRouter(t)
	ctx := context.Background()
	q.Join("alice")

	reply, _ := r.Dispatch(ctx, msgFrom("Mod1", true, "?shuffle"))
	if !strings.Contains(reply, "Not enough players") {
		t.Fatalf("expected shortfall message, got %q", reply)
	}
}

func TestDispatchAIDisabled(t *testing.T) {
	r, _ := newTestRouter(t)
	reply, handled := r.Dispatch(context.Background(), msgFrom("alice", false, "?ai hello"))
	if !handled || !strings.Contains(reply, "unavailable") {
		t.Fatalf("expected unavailable message, got %q", reply)
	}
}

func TestDispatchCaseInsensitiveCommandName(t *testing.T) {
	r, _ := newTestRouter(t)
	reply, handled := r.Dispatch(context.Background(), msgFrom("alice", false, "?JOIN"))
	if !handled || !strings.Contains(reply, "joined main queue") {
		t.Fatalf("uppercase command not routed: %q", reply)
	}
}
