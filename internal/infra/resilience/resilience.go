// Package resilience provides fault-tolerance patterns:
// retry with exponential backoff, circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/sony/gobreaker"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	return RetryWithBackoffIf(ctx, cfg, fn, func(error) bool { return true })
}

// RetryWithBackoffIf is RetryWithBackoff that stops as soon as retryable
// reports false for the returned error.
func RetryWithBackoffIf(ctx context.Context, cfg Config, fn func() error, retryable func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// IsBusinessError reports whether err is an expected domain outcome
// (validação, recusa, não encontrado, conflito) rather than an infra failure.
// Business errors are neither retried nor counted against a breaker.
func IsBusinessError(err error) bool {
	var (
		v  *domain.ErrValidation
		nf *domain.ErrNotFound
		sc *domain.ErrStateConflict
		d  *domain.ErrDeclined
	)
	return errors.As(err, &v) || errors.As(err, &nf) || errors.As(err, &sc) || errors.As(err, &d)
}

// BreakerOptions customizes NewCircuitBreakerWith.
type BreakerOptions struct {
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// OnStateChange is called on every transition (metrics, logs).
	OnStateChange func(name string, from, to gobreaker.State)
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return NewCircuitBreakerWith(name, BreakerOptions{})
}

// NewCircuitBreakerWith creates a breaker that ignores business errors.
func NewCircuitBreakerWith(name string, opts BreakerOptions) *gobreaker.CircuitBreaker {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     timeout,          // open -> half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsBusinessError(err)
		},
		OnStateChange: opts.OnStateChange,
	})
}

// MapBreakerError converts breaker rejections into *domain.ErrCircuitOpen
// and wraps other infra failures as *domain.ErrExternalService.
// Business errors pass through untouched.
func MapBreakerError(service string, err error) error {
	if err == nil || IsBusinessError(err) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	var ext *domain.ErrExternalService
	if errors.As(err, &ext) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
