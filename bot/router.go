// Package bot connects to Twitch chat and routes prefixed commands to the queue
// manager, the cooldown manager, the AI assistant, and the dynamic command store.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onnwee/murphbot/cooldown"
	"github.com/onnwee/murphbot/telemetry"
	"github.com/onnwee/murphbot/validate"
)

// Message is the narrow view of an inbound chat message the handlers need.
// IsPrivileged is set by the transport (moderator or broadcaster badge); the
// managers trust it as given.
type Message struct {
	User         string // login name
	DisplayName  string
	Channel      string
	IsPrivileged bool
	Text         string
}

// Sender delivers outbound chat text.
type Sender interface {
	Say(channel, text string)
}

// Handler produces a chat-ready reply for one command invocation.
type Handler func(ctx context.Context, msg Message, args []string) string

type command struct {
	handler    Handler
	privileged bool
	// throttled commands are gated through the cooldown manager under this
	// name; empty means no cooldown applies.
	cooldownName string
}

// Router maps command names to handlers. The table is built once at startup;
// Dispatch never mutates it.
type Router struct {
	prefix    string
	cooldowns *cooldown.Manager
	commands  map[string]command
	// fallback resolves names not in the table (dynamic commands); nil disables.
	fallback func(ctx context.Context, name string) (string, bool)
}

func NewRouter(prefix string, cooldowns *cooldown.Manager) *Router {
	if prefix == "" {
		prefix = "?"
	}
	return &Router{
		prefix:    prefix,
		cooldowns: cooldowns,
		commands:  make(map[string]command),
	}
}

// Handle registers a command. Throttled commands pass their cooldown name.
func (r *Router) Handle(name string, h Handler, privileged bool, cooldownName string) {
	r.commands[name] = command{handler: h, privileged: privileged, cooldownName: cooldownName}
}

// SetFallback installs the resolver consulted for unknown command names.
func (r *Router) SetFallback(fn func(ctx context.Context, name string) (string, bool)) {
	r.fallback = fn
}

// Names returns the registered command names (unordered).
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// Dispatch routes one message. It returns the reply text and whether the
// message was a command at all; a handled command always yields a reply.
func (r *Router) Dispatch(ctx context.Context, msg Message) (string, bool) {
	text := validate.SanitizeMessage(msg.Text)
	if !strings.HasPrefix(text, r.prefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(text, r.prefix))
	if len(fields) == 0 {
		return "", false
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	cmd, ok := r.commands[name]
	if !ok {
		if r.fallback != nil {
			if reply, found := r.fallback(ctx, name); found {
				telemetry.CommandExecuted(name)
				return reply, true
			}
		}
		return "", false
	}

	if cmd.privileged && !msg.IsPrivileged {
		return "Sorry, this command is restricted to moderators only.", true
	}

	if cmd.cooldownName != "" {
		if blocked, remaining := r.cooldowns.IsOnCooldown(cmd.cooldownName, msg.User, msg.IsPrivileged); blocked {
			return fmt.Sprintf("@%s Command on cooldown! Wait %d seconds.", msg.DisplayName, remaining), true
		}
	}

	reply := cmd.handler(ctx, msg, args)
	if cmd.cooldownName != "" {
		r.cooldowns.SetCooldown(cmd.cooldownName, msg.User)
	}
	telemetry.CommandExecuted(name)
	slog.Debug("command executed",
		slog.String("command", name),
		slog.String("user", msg.User),
		slog.Bool("privileged", msg.IsPrivileged),
		slog.String("component", "router"))
	return reply, true
}
