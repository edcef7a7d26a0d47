package gateway

import (
	"context"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/plan-assistant-go/internal/port"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	NameMock        = "mock"
	NameMercadoPago = "mercadopago"
)

// New é a factory de gateways. "mercadopago" delega para o comportamento
// simulado atrás de um circuit breaker; qualquer outro nome usa o mock.
func New(name string, ledger port.TransactionLedger, opts Options) port.PaymentGateway {
	mock := NewMock(ledger, opts)
	switch name {
	case NameMercadoPago:
		return NewMercadoPago(mock, opts.Breaker, opts.Retry)
	case NameMock, "":
		return mock
	default:
		mock.logger.Warn("unknown payment gateway, using mock", zap.String("gateway", name))
		return mock
	}
}

// MercadoPago é o gateway nomeado. Sem integração real: repassa ao mock,
// com o breaker que protegeria a API externa. Consultas de status são
// repetidas com backoff; Process e Refund não (não são idempotentes).
type MercadoPago struct {
	delegate port.PaymentGateway
	cb       *gobreaker.CircuitBreaker
	retry    resilience.Config
}

// NewMercadoPago wraps delegate behind a circuit breaker.
// A nil cb gets the default breaker settings.
func NewMercadoPago(delegate port.PaymentGateway, cb *gobreaker.CircuitBreaker, retry resilience.Config) *MercadoPago {
	if cb == nil {
		cb = resilience.NewCircuitBreaker(NameMercadoPago)
	}
	return &MercadoPago{delegate: delegate, cb: cb, retry: retry}
}

func (g *MercadoPago) Process(ctx context.Context, req *domain.GatewayRequest) (*domain.GatewayResult, error) {
	return g.execute(func() (*domain.GatewayResult, error) { return g.delegate.Process(ctx, req) })
}

func (g *MercadoPago) CheckStatus(ctx context.Context, transactionID string) (*domain.GatewayResult, error) {
	return g.execute(func() (*domain.GatewayResult, error) {
		var res *domain.GatewayResult
		err := resilience.RetryWithBackoffIf(ctx, g.retry, func() error {
			var err error
			res, err = g.delegate.CheckStatus(ctx, transactionID)
			return err
		}, func(err error) bool { return !resilience.IsBusinessError(err) })
		return res, err
	})
}

func (g *MercadoPago) Refund(ctx context.Context, transactionID string, amount float64) (*domain.GatewayResult, error) {
	return g.execute(func() (*domain.GatewayResult, error) { return g.delegate.Refund(ctx, transactionID, amount) })
}

func (g *MercadoPago) execute(fn func() (*domain.GatewayResult, error)) (*domain.GatewayResult, error) {
	result, err := g.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		return nil, resilience.MapBreakerError(NameMercadoPago, err)
	}
	return result.(*domain.GatewayResult), nil
}
