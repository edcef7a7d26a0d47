package nlu

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	chatport "github.com/boddenberg/plan-assistant-go/internal/chat/port"
	"github.com/boddenberg/plan-assistant-go/internal/infra/resilience"
)

// FallbackRecorder conta as chamadas respondidas pelas regras locais.
type FallbackRecorder interface {
	IncrNLUFallback()
}

// ============================================================
// Resilient - remoto com breaker + timeout, fallback local por chamada
// ============================================================

// Resilient embrulha um oráculo remoto. Qualquer falha do remoto (erro,
// timeout, breaker aberto, bulkhead cheio) é respondida pelo local naquela
// chamada. Quando o breaker passa a half-open o remoto volta a ser tentado.
type Resilient struct {
	remote   chatport.Oracle
	local    chatport.Oracle
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	timeout  time.Duration
	metrics  FallbackRecorder
	logger   *zap.Logger
}

// ResilientOptions configura NewResilient.
type ResilientOptions struct {
	Timeout        time.Duration
	Breaker        *gobreaker.CircuitBreaker
	MaxConcurrency int
	Metrics        FallbackRecorder
	Logger         *zap.Logger
}

// NewResilient wraps remote. A nil remote always answers with local.
func NewResilient(remote, local chatport.Oracle, opts ResilientOptions) *Resilient {
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewCircuitBreaker("nlu")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resilient{
		remote:   remote,
		local:    local,
		cb:       opts.Breaker,
		bulkhead: resilience.NewBulkhead(opts.MaxConcurrency),
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

func (r *Resilient) Classify(ctx context.Context, text string, history []domain.HistoryEntry) (*domain.NLUResult, error) {
	if r.remote != nil {
		res, err := call(ctx, r, func(ctx context.Context) (*domain.NLUResult, error) {
			return r.remote.Classify(ctx, text, history)
		})
		if err == nil {
			return res, nil
		}
		r.fallback("classify", err)
	}
	return r.local.Classify(ctx, text, history)
}

func (r *Resilient) Generate(ctx context.Context, prompt string, sc *domain.SessionContext) (string, error) {
	if r.remote != nil {
		out, err := call(ctx, r, func(ctx context.Context) (string, error) {
			return r.remote.Generate(ctx, prompt, sc)
		})
		if err == nil && out != "" {
			return out, nil
		}
		r.fallback("generate", err)
	}
	return r.local.Generate(ctx, prompt, sc)
}

// State exposes the breaker state (readyz, métricas).
func (r *Resilient) State() gobreaker.State { return r.cb.State() }

func call[T any](ctx context.Context, r *Resilient, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.bulkhead.Acquire(ctx); err != nil {
		return zero, resilience.MapBreakerError("nlu", err)
	}
	defer r.bulkhead.Release()

	out, err := r.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, resilience.MapBreakerError("nlu", err)
	}
	return out.(T), nil
}

func (r *Resilient) fallback(op string, err error) {
	r.logger.Warn("nlu remote failed, using local rules",
		zap.String("operation", op),
		zap.Error(err),
	)
	if r.metrics != nil {
		r.metrics.IncrNLUFallback()
	}
}
