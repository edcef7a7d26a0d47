// Package gateway simula o processador de pagamentos: gera códigos PIX e
// boleto, aplica a regra de paridade do cartão, confirma pendências e
// processa estornos sobre um ledger de transações.
package gateway

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/keylock"
	"github.com/boddenberg/plan-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/plan-assistant-go/internal/port"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("infra/gateway")

// Options configura o gateway simulado. Campos nulos recebem defaults.
type Options struct {
	Secret        string
	SimulateError bool
	Coin          Coin
	Now           func() time.Time
	NewID         func() string
	Logger        *zap.Logger

	// Usados só pelo gateway "mercadopago".
	Breaker *gobreaker.CircuitBreaker
	Retry   resilience.Config
}

// Mock implements port.PaymentGateway without any network call.
type Mock struct {
	ledger        port.TransactionLedger
	secret        string
	simulateError bool
	coin          Coin
	now           func() time.Time
	newID         func() string
	locks         *keylock.Locks
	logger        *zap.Logger
}

// NewMock creates the simulated gateway over the given ledger.
func NewMock(ledger port.TransactionLedger, opts Options) *Mock {
	m := &Mock{
		ledger:        ledger,
		secret:        opts.Secret,
		simulateError: opts.SimulateError,
		coin:          opts.Coin,
		now:           opts.Now,
		newID:         opts.NewID,
		locks:         keylock.New(),
		logger:        opts.Logger,
	}
	if m.coin == nil {
		m.coin = NewRandomCoin(time.Now().UnixNano(), 0.5)
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.New().String() }
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// ============================================================
// Process
// ============================================================

// Process valida o pedido, gera a transação e a grava no ledger.
// Falhas são sempre erros tipados; nada é gravado em caso de erro.
func (m *Mock) Process(ctx context.Context, req *domain.GatewayRequest) (*domain.GatewayResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Process")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if m.simulateError {
		return nil, &domain.ErrExternalService{
			Service: "payment-gateway",
			Code:    domain.CodeSimulatedError,
			Err:     errors.New("Erro de processamento simulado"),
		}
	}

	id := m.newID()
	now := m.now()
	span.SetAttributes(
		attribute.String("transaction.id", id),
		attribute.String("payment.method", req.PaymentMethod),
	)

	tx := &domain.Transaction{
		ID:            id,
		PlanID:        req.PlanID,
		Amount:        req.Amount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CustomerEmail: req.CustomerEmail,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch tx.PaymentMethod {
	case domain.MethodPix:
		tx.PixCode = PixCode(id, Checksum(m.secret, id))
		tx.QRCodeURL = QRCodeURL(tx.PixCode)

	case domain.MethodBoleto:
		tx.Barcode = Barcode(req.Amount, now)
		tx.BoletoURL = BoletoURL(id)

	case domain.MethodCreditCard:
		approved, err := cardApproved(req.Card)
		if err != nil {
			return nil, err
		}
		if !approved {
			m.logger.Info("card declined", zap.String("transaction_id", id))
			return nil, &domain.ErrDeclined{TransactionID: id}
		}
		tx.Status = domain.StatusApproved

	default:
		return nil, &domain.ErrValidation{
			Code:    domain.CodeInvalidPaymentMethod,
			Field:   "payment_method",
			Message: "Método de pagamento não suportado",
		}
	}

	if err := m.ledger.Save(ctx, tx); err != nil {
		return nil, &domain.ErrExternalService{Service: "ledger", Err: err}
	}

	m.logger.Info("transaction created",
		zap.String("transaction_id", id),
		zap.String("method", string(tx.PaymentMethod)),
		zap.String("status", string(tx.Status)),
	)

	return &domain.GatewayResult{
		Success:       true,
		TransactionID: id,
		Status:        tx.Status,
		Data:          tx,
	}, nil
}

func validateRequest(req *domain.GatewayRequest) error {
	if req == nil {
		return &domain.ErrValidation{Code: domain.CodeInvalidRequest, Message: "pedido de pagamento vazio"}
	}
	missing := ""
	switch {
	case req.Amount <= 0:
		missing = "amount"
	case strings.TrimSpace(req.PaymentMethod) == "":
		missing = "payment_method"
	case strings.TrimSpace(req.CustomerEmail) == "":
		missing = "customer_email"
	}
	if missing != "" {
		return &domain.ErrValidation{
			Code:    domain.CodeMissingField,
			Field:   missing,
			Message: "Campo obrigatório ausente: " + missing,
		}
	}
	return nil
}

// cardApproved aplica a regra de paridade: último dígito par aprova.
func cardApproved(card *domain.CardData) (bool, error) {
	invalid := &domain.ErrValidation{
		Code:    domain.CodeInvalidCardData,
		Field:   "card_data",
		Message: "Dados do cartão incompletos",
	}
	if !card.Complete() {
		return false, invalid
	}
	number := strings.Join(strings.Fields(card.Number), "")
	last := rune(number[len(number)-1])
	if !unicode.IsDigit(last) {
		return false, invalid
	}
	return (last-'0')%2 == 0, nil
}

// ============================================================
// CheckStatus / Refund
// ============================================================

// CheckStatus devolve o estado atual. PIX e boleto pendentes podem ser
// confirmados nesta chamada, conforme a Coin injetada.
func (m *Mock) CheckStatus(ctx context.Context, transactionID string) (*domain.GatewayResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.CheckStatus")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	unlock := m.locks.Lock(transactionID)
	defer unlock()

	tx, err := m.ledger.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if tx.Status == domain.StatusPending &&
		(tx.PaymentMethod == domain.MethodPix || tx.PaymentMethod == domain.MethodBoleto) &&
		m.coin.Flip() {
		tx.Status = domain.StatusApproved
		tx.UpdatedAt = m.now()
		if err := m.ledger.Update(ctx, tx); err != nil {
			return nil, &domain.ErrExternalService{Service: "ledger", Err: err}
		}
		m.logger.Info("pending transaction confirmed", zap.String("transaction_id", tx.ID))
	}

	return &domain.GatewayResult{
		Success:       true,
		TransactionID: tx.ID,
		Status:        tx.Status,
		Data:          tx,
	}, nil
}

// Refund estorna uma transação aprovada. amount <= 0 estorna o valor total.
// Falhas não alteram a transação.
func (m *Mock) Refund(ctx context.Context, transactionID string, amount float64) (*domain.GatewayResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Refund")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	unlock := m.locks.Lock(transactionID)
	defer unlock()

	tx, err := m.ledger.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if tx.Status != domain.StatusApproved {
		return nil, &domain.ErrStateConflict{
			Code:          domain.CodeInvalidRefundStatus,
			TransactionID: tx.ID,
			Message:       "Apenas transações aprovadas podem ser estornadas",
		}
	}

	refund := amount
	if refund <= 0 {
		refund = tx.Amount
	}
	if toCents(refund) > toCents(tx.Amount) {
		return nil, &domain.ErrStateConflict{
			Code:          domain.CodeInvalidRefundAmount,
			TransactionID: tx.ID,
			Message:       "Valor de estorno maior que o valor da transação",
		}
	}

	tx.Status = domain.StatusRefunded
	tx.RefundedAmount = refund
	tx.UpdatedAt = m.now()
	if err := m.ledger.Update(ctx, tx); err != nil {
		return nil, &domain.ErrExternalService{Service: "ledger", Err: err}
	}

	m.logger.Info("transaction refunded",
		zap.String("transaction_id", tx.ID),
		zap.Float64("refunded_amount", refund),
	)

	return &domain.GatewayResult{
		Success:        true,
		TransactionID:  tx.ID,
		Status:         tx.Status,
		RefundedAmount: refund,
		Data:           tx,
	}, nil
}

func toCents(v float64) int64 { return int64(math.Round(v * 100)) }
