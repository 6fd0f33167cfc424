package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/onnwee/murphbot/ai"
	"github.com/onnwee/murphbot/config"
	"github.com/onnwee/murphbot/db"
	"github.com/onnwee/murphbot/queue"
	"github.com/onnwee/murphbot/validate"
)

// RegisterHandlers builds the command table wiring the queue manager, the AI
// assistant, and the dynamic command store. database may be nil (dynamic
// commands disabled).
func RegisterHandlers(r *Router, q *queue.Manager, assistant *ai.Assistant, database *sql.DB, stats *Stats) {
	// Queue commands, viewer-facing. Identity is the login name: display
	// names can be localized and would fail username validation.
	r.Handle("join", func(_ context.Context, msg Message, _ []string) string {
		return q.Join(msg.User).Message
	}, false, "join")
	r.Handle("leave", func(_ context.Context, msg Message, _ []string) string {
		return q.Leave(msg.User).Message
	}, false, "leave")
	showQueue := func(_ context.Context, _ Message, _ []string) string {
		mainMsg, overflowMsg := q.Show()
		if overflowMsg == "Overflow queue is empty." {
			return mainMsg
		}
		return mainMsg + " | " + overflowMsg
	}
	// The q alias shares the queue cooldown record; every other command
	// throttles under its own name.
	r.Handle("queue", showQueue, false, "queue")
	r.Handle("q", showQueue, false, "queue")
	r.Handle("here", func(_ context.Context, msg Message, _ []string) string {
		return q.MarkAvailable(msg.User).Message
	}, false, "here")
	r.Handle("nothere", func(_ context.Context, msg Message, _ []string) string {
		return q.MarkNotAvailable(msg.User).Message
	}, false, "nothere")

	// Queue commands, moderator-only. The router enforces the privilege gate;
	// the manager trusts the call.
	withArg := func(usage string, fn func(user string) queue.Result) Handler {
		return func(_ context.Context, _ Message, args []string) string {
			if len(args) != 1 {
				return usage
			}
			return fn(args[0]).Message
		}
	}
	r.Handle("fjoin", withArg("Usage: fjoin <username>", q.ForceJoin), true, "")
	r.Handle("fleave", withArg("Usage: fleave <username>", q.ForceKick), true, "")
	r.Handle("moveup", withArg("Usage: moveup <username>", q.MoveUp), true, "")
	r.Handle("movedown", withArg("Usage: movedown <username>", q.MoveDown), true, "")
	r.Handle("teamsize", func(_ context.Context, _ Message, args []string) string {
		if len(args) != 1 {
			return "Usage: teamsize <number>"
		}
		size, err := validate.TeamSize(args[0], config.MinTeamSize, config.MaxTeamSize)
		if err != nil {
			return fmt.Sprintf("Invalid team size: %v", err)
		}
		return q.SetTeamSize(size).Message
	}, true, "")
	r.Handle("shuffle", func(_ context.Context, _ Message, _ []string) string {
		_, res := q.ShuffleTeams()
		return res.Message
	}, true, "")
	r.Handle("clearqueue", func(_ context.Context, _ Message, _ []string) string {
		return q.Reset().Message
	}, true, "")

	// AI assistant.
	r.Handle("ai", func(ctx context.Context, msg Message, args []string) string {
		if assistant == nil || !assistant.Enabled() {
			return "AI service is currently unavailable. Please try again later."
		}
		if len(args) == 0 {
			return fmt.Sprintf("@%s Please provide a message after the ai command.", msg.DisplayName)
		}
		reply, err := assistant.Respond(ctx, msg.User, strings.Join(args, " "))
		if err != nil {
			if errors.Is(err, ai.ErrRateLimited) {
				return fmt.Sprintf("@%s You're using the AI too frequently! Please slow down.", msg.DisplayName)
			}
			slog.Error("ai respond failed", slog.Any("err", err), slog.String("user", msg.User), slog.String("component", "bot"))
			stats.IncErrors()
			return "Sorry, I couldn't process that. Please try again later."
		}
		return fmt.Sprintf("@%s %s", msg.DisplayName, reply)
	}, false, "ai")

	// Dynamic commands.
	if database != nil {
		r.Handle("addcmd", func(ctx context.Context, msg Message, args []string) string {
			if len(args) < 2 {
				return "Usage: addcmd <command_name> <response>"
			}
			name := strings.ToLower(args[0])
			if err := validate.CommandName(name); err != nil {
				return fmt.Sprintf("Invalid command name: %v", err)
			}
			response := strings.Join(args[1:], " ")
			if err := validate.CommandResponse(response); err != nil {
				return fmt.Sprintf("Invalid response: %v", err)
			}
			if err := db.UpsertCommand(ctx, database, name, response, msg.User); err != nil {
				slog.Error("failed to store command", slog.Any("err", err), slog.String("component", "bot"))
				stats.IncErrors()
				return "Failed to save the command."
			}
			return fmt.Sprintf("Command '%s' has been added successfully!", name)
		}, true, "")
		r.Handle("delcmd", func(ctx context.Context, _ Message, args []string) string {
			if len(args) != 1 {
				return "Usage: delcmd <command_name>"
			}
			name := strings.ToLower(args[0])
			deleted, err := db.DeleteCommand(ctx, database, name)
			if err != nil {
				slog.Error("failed to delete command", slog.Any("err", err), slog.String("component", "bot"))
				stats.IncErrors()
				return "Failed to delete the command."
			}
			if !deleted {
				return fmt.Sprintf("Command '%s' not found.", name)
			}
			return fmt.Sprintf("Command '%s' has been removed.", name)
		}, true, "")
		r.Handle("listcmds", func(ctx context.Context, _ Message, _ []string) string {
			names, err := db.ListCommands(ctx, database)
			if err != nil {
				slog.Error("failed to list commands", slog.Any("err", err), slog.String("component", "bot"))
				stats.IncErrors()
				return "Failed to list commands."
			}
			if len(names) == 0 {
				return "No dynamic commands available."
			}
			return "Dynamic commands: " + strings.Join(names, ", ")
		}, true, "")
		r.SetFallback(func(ctx context.Context, name string) (string, bool) {
			cmd, found, err := db.GetCommand(ctx, database, name)
			if err != nil {
				slog.Warn("dynamic command lookup failed", slog.Any("err", err), slog.String("component", "bot"))
				return "", false
			}
			if !found {
				return "", false
			}
			return cmd.Response, true
		})
	}

	// Stats and help.
	r.Handle("botstat", func(_ context.Context, _ Message, _ []string) string {
		msgs, cmds, errs := stats.Counts()
		mainLen, overflowLen := q.Len()
		return fmt.Sprintf("Uptime: %s | Messages: %d | Commands: %d | Errors: %d | Queue: %d (+%d overflow)",
			stats.Uptime(), msgs, cmds, errs, mainLen, overflowLen)
	}, false, "botstat")
	r.Handle("help", func(_ context.Context, _ Message, _ []string) string {
		names := r.Names()
		sort.Strings(names)
		return "Commands: " + strings.Join(names, ", ")
	}, false, "help")
}
