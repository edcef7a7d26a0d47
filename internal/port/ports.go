// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// Catalog is the read-only plan lookup.
type Catalog interface {
	Lookup(code string) (domain.Plan, bool)
	All() []domain.Plan
}

// TransactionLedger stores gateway transactions keyed by id.
// Get returns *domain.ErrNotFound for unknown ids.
type TransactionLedger interface {
	Save(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	Update(ctx context.Context, tx *domain.Transaction) error
}

// PaymentGateway is the (simulated) payment processor.
type PaymentGateway interface {
	Process(ctx context.Context, req *domain.GatewayRequest) (*domain.GatewayResult, error)
	CheckStatus(ctx context.Context, transactionID string) (*domain.GatewayResult, error)
	Refund(ctx context.Context, transactionID string, amount float64) (*domain.GatewayResult, error)
}

// Notifier delivers a message to a single recipient (e-mail, WhatsApp...).
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// HealthChecker is implemented by backends that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
