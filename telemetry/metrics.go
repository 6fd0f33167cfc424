// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesSeen     prometheus.Counter
	CommandsExecuted *prometheus.CounterVec
	CooldownBlocks   *prometheus.CounterVec
	AICacheHits      prometheus.Counter
	AICacheMisses    prometheus.Counter
	AIRequestsFailed prometheus.Counter
	AIRateLimited    prometheus.Counter

	// Histograms (seconds)
	AIRequestDuration prometheus.Observer

	// Gauges
	QueueDepthGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_seen_total", Help: "Chat messages observed"})
		CommandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_commands_executed_total", Help: "Commands executed, by command"}, []string{"command"})
		CooldownBlocks = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_cooldown_blocks_total", Help: "Command invocations blocked by cooldown, by command"}, []string{"command"})
		AICacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_ai_cache_hits_total", Help: "AI responses served from cache"})
		AICacheMisses = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_ai_cache_misses_total", Help: "AI prompts not found in cache"})
		AIRequestsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_ai_requests_failed_total", Help: "AI completion calls that failed after retries"})
		AIRateLimited = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_ai_rate_limited_total", Help: "AI requests rejected by the rate limiter"})
		AIRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_ai_request_duration_seconds", Help: "AI completion call duration seconds", Buckets: prometheus.DefBuckets})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_queue_depth", Help: "Participants across main and overflow queues"})
	})
}

// SetQueueDepth records the combined main+overflow participant count.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// CommandExecuted increments the per-command execution counter.
func CommandExecuted(command string) {
	if CommandsExecuted != nil {
		CommandsExecuted.WithLabelValues(command).Inc()
	}
}

// CooldownBlocked increments the per-command cooldown block counter.
func CooldownBlocked(command string) {
	if CooldownBlocks != nil {
		CooldownBlocks.WithLabelValues(command).Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
