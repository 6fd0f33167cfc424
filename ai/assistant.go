// Package ai wraps an OpenAI-compatible chat-completions endpoint with response
// caching, sliding-window rate limiting, bounded retries, and per-user
// conversation history.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/murphbot/telemetry"
)

const (
	defaultTimeout     = 10 * time.Second
	maxAttempts        = 3
	initialBackoff     = time.Second
	maxBackoff         = 60 * time.Second
	maxHistoryMessages = 10

	systemPrompt = "You are Murphy, a Twitch chat companion. Keep responses short, " +
		"humorous, and chat-friendly. Include the occasional Twitch emote."
)

// Options configures an Assistant.
type Options struct {
	APIKey  string
	BaseURL string // e.g. https://api.openai.com/v1
	Model   string

	HTTPClient *http.Client

	CacheTTL     time.Duration
	CacheEntries int

	Window        time.Duration
	GlobalPerMin  int
	PerUserPerMin int
}

// Assistant answers chat prompts. The zero value is unusable; construct with New.
type Assistant struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client

	cache   *responseCache
	limiter *slidingLimiter

	histMu  sync.Mutex
	history map[string][]message
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func New(opts Options) *Assistant {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "gpt-3.5-turbo"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Assistant{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		client:  client,
		cache:   newResponseCache(opts.CacheTTL, opts.CacheEntries),
		limiter: newSlidingLimiter(opts.Window, opts.GlobalPerMin, opts.PerUserPerMin),
	}
}

// Enabled reports whether an API key is configured.
func (a *Assistant) Enabled() bool { return a.apiKey != "" }

// Respond answers prompt for user. Cached responses bypass the rate limiter;
// fresh requests are rate limited, retried on transient failure, then cached.
func (a *Assistant) Respond(ctx context.Context, user, prompt string) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("ai disabled: no API key configured")
	}
	if resp, ok := a.cache.get(user, prompt); ok {
		slog.Debug("ai cache hit", slog.String("user", user), slog.String("component", "ai"))
		return resp, nil
	}
	if !a.limiter.allow(user) {
		return "", ErrRateLimited
	}

	ctx, span := telemetry.StartSpan(ctx, "ai", "chat-completion")
	defer span.End()

	reply, err := a.completeWithRetry(ctx, user, prompt)
	if err != nil {
		telemetry.RecordError(span, err)
		if telemetry.AIRequestsFailed != nil {
			telemetry.AIRequestsFailed.Inc()
		}
		return "", err
	}
	telemetry.SetSpanSuccess(span)

	a.cache.put(user, prompt, reply)
	a.appendHistory(user, message{Role: "user", Content: prompt}, message{Role: "assistant", Content: reply})
	return reply, nil
}

// ErrRateLimited is returned when the sliding window budget is exhausted.
var ErrRateLimited = fmt.Errorf("ai rate limit exceeded")

func (a *Assistant) completeWithRetry(ctx context.Context, user, prompt string) (string, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reply string
		var err error
		telemetry.TimeFunc(telemetry.AIRequestDuration, func() {
			reply, err = a.complete(ctx, user, prompt)
		})
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ClassifyCompletionError(err) == ErrorClassFatal {
			return "", err
		}
		slog.Warn("ai completion failed, retrying",
			slog.Int("attempt", attempt),
			slog.Any("err", err),
			slog.String("component", "ai"))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return "", fmt.Errorf("ai completion failed after %d attempts: %w", maxAttempts, lastErr)
}

func (a *Assistant) complete(ctx context.Context, user, prompt string) (string, error) {
	msgs := []message{{Role: "system", Content: systemPrompt}}
	msgs = append(msgs, a.historyFor(user)...)
	msgs = append(msgs, message{Role: "user", Content: prompt})

	payload, err := json.Marshal(map[string]any{
		"model":    a.model,
		"messages": msgs,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var body struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Choices) == 0 {
		return "", fmt.Errorf("completion response had no choices")
	}
	return strings.TrimSpace(body.Choices[0].Message.Content), nil
}

// Ping performs a minimal health check against the completion endpoint.
func (a *Assistant) Ping(ctx context.Context) error {
	if !a.Enabled() {
		return fmt.Errorf("ai disabled: no API key configured")
	}
	_, err := a.complete(ctx, "healthcheck", "Respond with OK.")
	return err
}

func (a *Assistant) historyFor(user string) []message {
	a.histMu.Lock()
	defer a.histMu.Unlock()
	return append([]message(nil), a.history[user]...)
}

func (a *Assistant) appendHistory(user string, msgs ...message) {
	a.histMu.Lock()
	defer a.histMu.Unlock()
	if a.history == nil {
		a.history = make(map[string][]message)
	}
	h := append(a.history[user], msgs...)
	if len(h) > maxHistoryMessages {
		h = h[len(h)-maxHistoryMessages:]
	}
	a.history[user] = h
}
