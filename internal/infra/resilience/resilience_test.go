package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/resilience"
	"github.com/sony/gobreaker"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
	}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire should block, test with timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	// Release one slot
	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestRetryWithBackoffIf_StopsOnBusinessError(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	calls := 0
	err := resilience.RetryWithBackoffIf(context.Background(), cfg, func() error {
		calls++
		return &domain.ErrValidation{Code: domain.CodeMissingField, Field: "amount"}
	}, func(err error) bool { return !resilience.IsBusinessError(err) })

	if calls != 1 {
		t.Errorf("business errors must not be retried, got %d calls", calls)
	}
	if domain.ErrorCode(err) != domain.CodeMissingField {
		t.Errorf("expected MISSING_FIELD, got %v", err)
	}
}

func TestRetryWithBackoff_ZeroBackoffDoesNotPanic(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	calls := 0
	_ = resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return errors.New("boom")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestCircuitBreaker_IgnoresBusinessErrors(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test")

	for i := 0; i < 10; i++ {
		_, _ = cb.Execute(func() (any, error) {
			return nil, &domain.ErrDeclined{TransactionID: "tx"}
		})
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("declines must not open the breaker, state=%s", cb.State())
	}

	cb = resilience.NewCircuitBreaker("test-infra")
	for i := 0; i < 10; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, errors.New("upstream down") })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected breaker to open, state=%s", cb.State())
	}

	_, err := cb.Execute(func() (any, error) { return nil, nil })
	mapped := resilience.MapBreakerError("nlu", err)
	if domain.ErrorCode(mapped) != domain.CodeCircuitOpen {
		t.Errorf("expected CIRCUIT_OPEN, got %v", mapped)
	}
}

func TestMapBreakerError(t *testing.T) {
	if got := resilience.MapBreakerError("x", nil); got != nil {
		t.Errorf("nil should stay nil, got %v", got)
	}

	nf := &domain.ErrNotFound{Resource: "transaction", ID: "1"}
	if got := resilience.MapBreakerError("x", nf); got != nf {
		t.Errorf("business error should pass through, got %v", got)
	}

	got := resilience.MapBreakerError("smtp", errors.New("dial tcp: refused"))
	var ext *domain.ErrExternalService
	if !errors.As(got, &ext) || ext.Service != "smtp" {
		t.Errorf("expected ErrExternalService{smtp}, got %v", got)
	}

	got = resilience.MapBreakerError("openai", context.DeadlineExceeded)
	if domain.ErrorCode(got) != domain.CodeTimeout {
		t.Errorf("expected TIMEOUT, got %v", got)
	}
}
