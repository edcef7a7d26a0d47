// Package port - chat_port.go define as interfaces (ports) de que o
// ChatService depende: oráculo de NLU, store de sessões e pagamentos.
//
// Seguindo a arquitetura hexagonal, o ChatService depende dessas interfaces
// e NÃO das implementações concretas.
package port

import (
	"context"

	chatdomain "github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/domain"
)

// Oracle classifica a intenção e gera texto livre.
// Implementações remotas devem ser embrulhadas por um fallback local.
type Oracle interface {
	Classify(ctx context.Context, text string, history []chatdomain.HistoryEntry) (*chatdomain.NLUResult, error)
	Generate(ctx context.Context, prompt string, sc *chatdomain.SessionContext) (string, error)
}

// SessionStore guarda os contextos de conversa.
// Get devolve *domain.ErrNotFound quando a sessão não existe ou expirou.
type SessionStore interface {
	Get(ctx context.Context, id string) (*chatdomain.SessionContext, error)
	Put(ctx context.Context, sc *chatdomain.SessionContext) error
	Delete(ctx context.Context, id string) error
}

// Payments é a parte do PaymentService usada pelo diálogo.
type Payments interface {
	Process(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResult, error)
	NotifyActivation(ctx context.Context, customer domain.Customer, plan domain.Plan)
}
