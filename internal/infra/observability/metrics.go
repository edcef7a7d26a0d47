package observability

import (
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker"
)

// Metrics holds all Prometheus metrics for the assistant.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	nluFallbacks    prometheus.Counter
	chatMessages    *prometheus.CounterVec
	payments        *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assistant_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_llm_tokens_total",
				Help: "Total LLM tokens consumed by the NLU oracle.",
			},
			[]string{"type"},
		),
		nluFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "assistant_nlu_fallbacks_total",
				Help: "NLU calls answered by the local rules instead of the remote oracle.",
			},
		),
		chatMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_chat_messages_total",
				Help: "Chat messages processed, by resolved intent.",
			},
			[]string{"intent"},
		),
		payments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_payments_total",
				Help: "Payment operations by method and resulting status or error code.",
			},
			[]string{"method", "status"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_notifications_total",
				Help: "Notifications sent, by channel and result.",
			},
			[]string{"channel", "result"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "assistant_circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
			},
			[]string{"name"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrNLUFallback counts a call answered by the local rules.
func (m *Metrics) IncrNLUFallback() {
	m.nluFallbacks.Inc()
}

// IncrChatMessage counts a processed chat message by intent.
func (m *Metrics) IncrChatMessage(intent string) {
	m.chatMessages.WithLabelValues(intent).Inc()
}

// IncrPayment counts a payment outcome (status or error code).
func (m *Metrics) IncrPayment(method, status string) {
	m.payments.WithLabelValues(method, status).Inc()
}

// IncrNotification counts a notification attempt ("sent" | "failed").
func (m *Metrics) IncrNotification(channel, result string) {
	m.notifications.WithLabelValues(channel, result).Inc()
}

// SetBreakerState publishes a breaker transition. Plugged into
// resilience.BreakerOptions.OnStateChange.
func (m *Metrics) SetBreakerState(name string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

// gpt-4o-mini list prices, USD per 1k tokens.
const (
	promptCostPer1K     = 0.00015
	completionCostPer1K = 0.0006
)

// GetAssistantSnapshot returns a snapshot suitable for the
// GET /v1/metrics/assistant endpoint.
func (m *Metrics) GetAssistantSnapshot() *domain.AssistantMetrics {
	byIntent := collectByLabel(m.chatMessages, "intent")
	byStatus := collectByLabel(m.payments, "status")
	failed := collectByLabel(m.notifications, "result")["failed"]

	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	fallbacks := counterValue(m.nluFallbacks)

	var messages float64
	for _, v := range byIntent {
		messages += v
	}

	fallbackRate := float64(0)
	if messages > 0 {
		fallbackRate = fallbacks / messages
	}

	hits := getCounterValue(m.cacheHits, "session")
	misses := getCounterValue(m.cacheMisses, "session")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.AssistantMetrics{
		ChatMessages:        int64(messages),
		MessagesByIntent:    toInt64Map(byIntent),
		NLUFallbacks:        int64(fallbacks),
		FallbackRate:        fallbackRate,
		PromptTokens:        int64(promptTokens),
		CompletionTokens:    int64(completionTokens),
		EstimatedCostUsd:    (promptTokens/1000)*promptCostPer1K + (completionTokens/1000)*completionCostPer1K,
		PaymentsByStatus:    toInt64Map(byStatus),
		NotificationsFailed: int64(failed),
		SessionCacheHitRate: hitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// collectByLabel sums every child of cv grouped by the value of label.
func collectByLabel(cv *prometheus.CounterVec, label string) map[string]float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	out := make(map[string]float64)
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil || pb.Counter == nil {
			continue
		}
		for _, lp := range pb.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += pb.Counter.GetValue()
			}
		}
	}
	return out
}

func toInt64Map(in map[string]float64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = int64(v)
	}
	return out
}
