package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/notify"
	"github.com/boddenberg/plan-assistant-go/internal/infra/observability"
	"github.com/boddenberg/plan-assistant-go/internal/infra/qrcode"
	"github.com/boddenberg/plan-assistant-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var payTracer = otel.Tracer("service/payment")

// CustomerNotifier entrega uma mensagem em todos os canais do cliente.
// Nunca falha: notify.Dispatcher só registra os erros.
type CustomerNotifier interface {
	Notify(ctx context.Context, customer domain.Customer, msg notify.Message) int
}

// PaymentService resolve plano e método, chama o gateway e enriquece o
// resultado (QR code, notificações). É usado pelo diálogo e pela API.
type PaymentService struct {
	catalog       port.Catalog
	gateway       port.PaymentGateway
	ledger        port.TransactionLedger
	notifier      CustomerNotifier
	fallbackEmail string
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewPaymentService creates the payment use case.
func NewPaymentService(
	catalog port.Catalog,
	gateway port.PaymentGateway,
	ledger port.TransactionLedger,
	notifier CustomerNotifier,
	fallbackEmail string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		catalog:       catalog,
		gateway:       gateway,
		ledger:        ledger,
		notifier:      notifier,
		fallbackEmail: fallbackEmail,
		metrics:       metrics,
		logger:        logger,
	}
}

// ============================================================
// Process - POST /v1/payments e start-payment-flow do diálogo
// ============================================================

func (s *PaymentService) Process(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResult, error) {
	ctx, span := payTracer.Start(ctx, "PaymentService.Process")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("payment.process", time.Since(start)) }()

	if strings.TrimSpace(req.Method) == "" || strings.TrimSpace(req.PlanID) == "" {
		return nil, &domain.ErrValidation{Code: domain.CodeMissingField, Message: msgMissingMethodOrPlan}
	}

	plan, ok := s.catalog.Lookup(req.PlanID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "plan", ID: req.PlanID}
	}

	// métodos desconhecidos seguem crus: o gateway responde INVALID_PAYMENT_METHOD
	method, _ := domain.ParsePaymentMethod(req.Method)
	span.SetAttributes(
		attribute.String("plan.id", plan.Code),
		attribute.String("payment.method", string(method)),
	)

	email := strings.TrimSpace(req.Customer.Email)
	if email == "" {
		email = s.fallbackEmail
	}

	res, err := s.gateway.Process(ctx, &domain.GatewayRequest{
		Amount:        plan.Amount,
		PaymentMethod: string(method),
		CustomerEmail: email,
		PlanID:        plan.Code,
		Card:          req.Card,
	})
	if err != nil {
		s.metrics.IncrPayment(string(method), failureLabel(err))
		s.logger.Warn("payment failed",
			zap.String("plan", plan.Code),
			zap.String("method", string(method)),
			zap.String("error_code", domain.ErrorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrPayment(string(method), string(res.Status))
	s.logger.Info("payment processed",
		zap.String("transaction_id", res.TransactionID),
		zap.String("plan", plan.Code),
		zap.String("method", string(method)),
		zap.String("status", string(res.Status)),
	)

	out := &domain.PaymentResult{
		Success:       true,
		Message:       successMessage(method),
		TransactionID: res.TransactionID,
		Status:        res.Status,
		Transaction:   res.Data,
	}

	var msg notify.Message
	switch method {
	case domain.MethodPix:
		out.PixCode = res.Data.PixCode
		out.QRCodeURL = res.Data.QRCodeURL
		if png, err := qrcode.Base64PNG(out.PixCode); err != nil {
			s.logger.Warn("qr code render failed", zap.String("transaction_id", res.TransactionID), zap.Error(err))
		} else {
			out.QRCode = png
		}
		msg = pixMessage(plan, out.PixCode)
	case domain.MethodBoleto:
		out.Barcode = res.Data.Barcode
		out.PaymentURL = res.Data.BoletoURL
		msg = boletoMessage(plan, out.Barcode, out.PaymentURL)
	case domain.MethodCreditCard:
		msg = confirmationMessage(plan)
	}
	s.notify(ctx, req.Customer, msg)

	return out, nil
}

// NotifyActivation envia a confirmação de plano ativado (fluxo de cartão do chat).
func (s *PaymentService) NotifyActivation(ctx context.Context, customer domain.Customer, plan domain.Plan) {
	s.notify(ctx, customer, confirmationMessage(plan))
}

func (s *PaymentService) notify(ctx context.Context, customer domain.Customer, msg notify.Message) {
	if s.notifier == nil || msg.Subject == "" {
		return
	}
	if customer.Email == "" && customer.Phone == "" {
		return
	}
	s.notifier.Notify(ctx, customer, msg)
}

func failureLabel(err error) string {
	if domain.ErrorCode(err) == domain.CodeCardDeclined {
		return string(domain.StatusDeclined)
	}
	return "error"
}

// ============================================================
// CheckStatus / Refund
// ============================================================

func (s *PaymentService) CheckStatus(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	ctx, span := payTracer.Start(ctx, "PaymentService.CheckStatus")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	res, err := s.gateway.CheckStatus(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return &domain.PaymentResult{
		Success:       true,
		Message:       msgStatusFound,
		TransactionID: res.TransactionID,
		Status:        res.Status,
		Transaction:   res.Data,
	}, nil
}

// Refund estorna amount (<= 0 estorna o total).
func (s *PaymentService) Refund(ctx context.Context, transactionID string, amount float64) (*domain.PaymentResult, error) {
	ctx, span := payTracer.Start(ctx, "PaymentService.Refund")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	res, err := s.gateway.Refund(ctx, transactionID, amount)
	if err != nil {
		return nil, err
	}
	method := ""
	if res.Data != nil {
		method = string(res.Data.PaymentMethod)
	}
	s.metrics.IncrPayment(method, string(res.Status))
	s.logger.Info("payment refunded",
		zap.String("transaction_id", res.TransactionID),
		zap.Float64("refunded_amount", res.RefundedAmount),
	)
	return &domain.PaymentResult{
		Success:       true,
		Message:       msgRefunded,
		TransactionID: res.TransactionID,
		Status:        res.Status,
		Transaction:   res.Data,
	}, nil
}

// QRCodePNG renderiza o QR do código PIX de uma transação já criada.
// Só lê o ledger: não confirma pagamentos pendentes.
func (s *PaymentService) QRCodePNG(ctx context.Context, transactionID string) ([]byte, error) {
	ctx, span := payTracer.Start(ctx, "PaymentService.QRCodePNG")
	defer span.End()

	tx, err := s.ledger.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.PixCode == "" {
		return nil, &domain.ErrValidation{
			Code:    domain.CodeInvalidPaymentMethod,
			Field:   "payment_method",
			Message: "Transação não é um pagamento PIX",
		}
	}
	return qrcode.PNG(tx.PixCode)
}

// Plans lista o catálogo (GET /v1/plans).
func (s *PaymentService) Plans() []domain.Plan {
	return s.catalog.All()
}

// Plan busca um plano pelo código (GET /v1/plans/{planId}).
func (s *PaymentService) Plan(code string) (domain.Plan, error) {
	plan, ok := s.catalog.Lookup(code)
	if !ok {
		return domain.Plan{}, &domain.ErrNotFound{Resource: "plan", ID: code}
	}
	return plan, nil
}
