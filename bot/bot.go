package bot

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/murphbot/config"
	"github.com/onnwee/murphbot/telemetry"
)

// Bot owns the Twitch IRC connection and feeds inbound messages to the router.
type Bot struct {
	client  *twitch.Client
	channel string
	router  *Router
	stats   *Stats
}

func New(cfg *config.Config, router *Router, stats *Stats) *Bot {
	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	return &Bot{
		client:  client,
		channel: cfg.TwitchChannel,
		router:  router,
		stats:   stats,
	}
}

// Say sends text to the bot's channel. It satisfies the Sender interface for
// background jobs that announce sweep removals.
func (b *Bot) Say(channel, text string) {
	if channel == "" {
		channel = b.channel
	}
	b.client.Say(channel, text)
}

// Announce sends text to the bot's home channel.
func (b *Bot) Announce(text string) { b.Say(b.channel, text) }

// Start connects to chat and blocks until ctx is cancelled or the connection
// fails. Message handling runs on the client's read loop; every state mutation
// happens through the managers' own locks.
func (b *Bot) Start(ctx context.Context) error {
	b.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		b.stats.IncMessages()
		if telemetry.MessagesSeen != nil {
			telemetry.MessagesSeen.Inc()
		}

		m := Message{
			User:         msg.User.Name,
			DisplayName:  msg.User.DisplayName,
			Channel:      msg.Channel,
			IsPrivileged: isPrivileged(msg),
			Text:         msg.Message,
		}
		reply, handled := b.router.Dispatch(ctx, m)
		if !handled {
			return
		}
		b.stats.IncCommands()
		if reply != "" {
			b.client.Say(msg.Channel, reply)
		}
	})

	// Close the connection when the root context ends.
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := b.client.Disconnect(); err != nil {
			slog.Warn("twitch disconnect error", slog.Any("err", err))
		}
		close(done)
	}()

	b.client.Join(b.channel)
	slog.Info("connecting to twitch chat", slog.String("channel", b.channel))
	if err := b.client.Connect(); err != nil && ctx.Err() == nil {
		return err
	}
	<-done
	return nil
}

// isPrivileged reports whether the author carries a moderator or broadcaster badge.
func isPrivileged(msg twitch.PrivateMessage) bool {
	if msg.User.Badges["moderator"] > 0 || msg.User.Badges["broadcaster"] > 0 {
		return true
	}
	return false
}
