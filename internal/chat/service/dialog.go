package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/chat/port"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
	mainport "github.com/boddenberg/plan-assistant-go/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// Dialog - despacho por intenção e start-payment-flow
// ============================================================

// Dialog transforma (intenção, plano, info_type, sessão) em resposta.
// O chamador segura o lock da sessão durante todo o turno.
type Dialog struct {
	catalog     mainport.Catalog
	payments    port.Payments
	oracle      port.Oracle
	strictCards bool
	now         func() time.Time
	loc         *time.Location
	logger      *zap.Logger
}

// DialogOptions configura NewDialog.
type DialogOptions struct {
	// StrictCardValidation liga a checagem de formato no fluxo de cartão.
	StrictCardValidation bool
	Now                  func() time.Time
	// Location é o fuso usado no histórico (padrão: America/Sao_Paulo, se disponível).
	Location *time.Location
}

// NewDialog creates the dispatcher.
func NewDialog(catalog mainport.Catalog, payments port.Payments, oracle port.Oracle, opts DialogOptions, logger *zap.Logger) *Dialog {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = defaultLocation()
	}
	return &Dialog{
		catalog:     catalog,
		payments:    payments,
		oracle:      oracle,
		strictCards: opts.StrictCardValidation,
		now:         opts.Now,
		loc:         opts.Location,
		logger:      logger,
	}
}

func defaultLocation() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.Local
}

// Respond trata um turno classificado pelo oráculo. O turno é gravado no
// histórico antes da resposta ser gerada.
func (d *Dialog) Respond(ctx context.Context, sc *domain.SessionContext, text string, res *domain.NLUResult) (*domain.ChatResponse, error) {
	name := sc.Name()

	// plano citado agora tem precedência; só planos do catálogo ficam na sessão
	plan := res.Plan
	if plan != "" {
		if p, ok := d.catalog.Lookup(plan); ok {
			plan = p.Code
			sc.CurrentPlan = p.Code
		}
	} else {
		plan = sc.CurrentPlan
	}
	justResolved := res.Plan != "" && plan == sc.CurrentPlan

	sc.AppendTurn(d.now(), text, res.Intent, res.Plan, res.InfoType)

	// método escolhido antes do plano: o primeiro plano resolvido retoma o pagamento
	if justResolved && sc.PendingMethod != "" && resumesPendingMethod(res) {
		return d.startPayment(ctx, sc, plan, sc.PendingMethod)
	}

	switch effectiveIntent(res) {
	case domain.IntentGreeting:
		return reply(greetingText(name)), nil

	case domain.IntentPlanInfo, domain.IntentAvailablePlans:
		if res.InfoType == domain.InfoAvailablePlans || plan == "" {
			return reply(availablePlansText(name, d.catalog.All())), nil
		}
		p, ok := d.catalog.Lookup(plan)
		if !ok {
			return reply(unknownPlanText(name)), nil
		}
		return reply(planInfoText(name, p, res.InfoType)), nil

	case domain.IntentPaymentMethod, domain.IntentPaymentPix, domain.IntentPaymentBoleto, domain.IntentPaymentCard:
		return d.startPayment(ctx, sc, plan, d.requestedMethod(sc, res))

	case domain.IntentPayment:
		if plan == "" {
			return reply(askPlanText(name)), nil
		}
		return d.startPayment(ctx, sc, plan, "")

	case domain.IntentCancellation:
		return reply(cancellationText(name)), nil

	case domain.IntentHistory:
		return reply(historyText(name, sc.Payments(), d.loc)), nil

	case domain.IntentUnknown:
		out, err := d.oracle.Generate(ctx, text, sc)
		if err != nil {
			return nil, err
		}
		return reply(out), nil
	}

	// ParseIntent só produz valores do enum; chegar aqui é bug.
	d.logger.Error("unhandled intent", zap.String("intent", string(res.Intent)))
	return reply(ApologyText), nil
}

// resumesPendingMethod diz se o turno que resolveu o plano deve retomar o
// método pendente. Pergunta explícita sobre o plano (preço, benefícios...)
// é respondida primeiro; saudação, cancelamento e histórico também.
func resumesPendingMethod(res *domain.NLUResult) bool {
	switch res.Intent {
	case domain.IntentGreeting, domain.IntentCancellation, domain.IntentHistory:
		return false
	case domain.IntentPlanInfo, domain.IntentAvailablePlans:
		switch res.InfoType {
		case domain.InfoPrice, domain.InfoBenefits, domain.InfoDescription,
			domain.InfoPaymentMethods, domain.InfoAvailablePlans:
			return false
		}
	}
	return true
}

// effectiveIntent aplica a regra de info_type proceed_payment_*: fora de
// saudação e info de plano, ele vale como escolha de método.
func effectiveIntent(res *domain.NLUResult) domain.Intent {
	switch res.Intent {
	case domain.IntentGreeting, domain.IntentPlanInfo, domain.IntentAvailablePlans:
		return res.Intent
	}
	if _, ok := res.InfoType.ProceedMethod(); ok {
		if _, isMethod := res.Intent.Method(); !isMethod {
			return domain.IntentPaymentMethod
		}
	}
	return res.Intent
}

// requestedMethod: intenção → info_type → entidade → método pendente.
func (d *Dialog) requestedMethod(sc *domain.SessionContext, res *domain.NLUResult) maindomain.PaymentMethod {
	if m, ok := res.Intent.Method(); ok {
		return m
	}
	if m, ok := res.InfoType.ProceedMethod(); ok {
		return m
	}
	if raw := res.Entities["payment_method"]; raw != "" {
		if m, ok := maindomain.ParsePaymentMethod(raw); ok {
			return m
		}
	}
	return sc.PendingMethod
}

// startPayment nunca emite ação sem plano e método resolvidos.
func (d *Dialog) startPayment(ctx context.Context, sc *domain.SessionContext, plan string, method maindomain.PaymentMethod) (*domain.ChatResponse, error) {
	name := sc.Name()

	if plan == "" {
		if method != "" {
			sc.PendingMethod = method
		}
		return reply(askPlanText(name)), nil
	}
	p, ok := d.catalog.Lookup(plan)
	if !ok {
		if method != "" {
			sc.PendingMethod = method
		}
		return reply(invalidPlanText(name)), nil
	}
	if method == "" {
		return reply(askMethodText(name, p.Code)), nil
	}

	sc.PendingMethod = ""
	sc.CurrentPlan = p.Code

	switch method {
	case maindomain.MethodCreditCard:
		sc.ResetCardFlow()
		sc.CardStep = domain.AwaitingCardNumber
		return reply(cardStartText(name, p.Code)), nil

	case maindomain.MethodPix, maindomain.MethodBoleto:
		res, err := d.payments.Process(ctx, &maindomain.PaymentRequest{
			Method:   string(method),
			PlanID:   p.Code,
			Customer: sc.Customer(),
		})
		if err != nil {
			return nil, err
		}
		sc.AppendPayment(d.now(), method, p.Code, res.Status, res.TransactionID)

		actions := domain.Actions{
			PaymentRequired: true,
			PlanID:          p.Code,
			PaymentMethod:   string(method),
			TransactionID:   res.TransactionID,
		}
		text := pixText(name, p.Code)
		if method == maindomain.MethodPix {
			actions.PixCode = res.PixCode
			actions.QRCode = res.QRCode
			actions.QRCodeURL = res.QRCodeURL
		} else {
			text = boletoText(name, p.Code)
			actions.Barcode = res.Barcode
			actions.PaymentURL = res.PaymentURL
		}
		return &domain.ChatResponse{ResponseText: text, Actions: actions}, nil
	}

	return reply(askMethodText(name, p.Code)), nil
}

func reply(text string) *domain.ChatResponse {
	return &domain.ChatResponse{ResponseText: text}
}

// ============================================================
// Fluxo de cartão - FSM explícito
// ============================================================

// Card consome uma entrada do fluxo de cartão. O texto cru nunca passa pelo
// oráculo e entra no histórico mascarado.
func (d *Dialog) Card(ctx context.Context, sc *domain.SessionContext, text string) *domain.ChatResponse {
	name := sc.Name()
	step := sc.CardStep
	value := strings.TrimSpace(text)

	sc.AppendTurn(d.now(), domain.MaskValue(value), domain.IntentPaymentCard, sc.CurrentPlan, domain.InfoGeneral)

	if d.strictCards && !validCardInput(step, value) {
		return reply(cardInvalidText(name, step))
	}

	sc.CardData.Set(step, value)
	next := step.Next()
	if next != domain.CardIdle {
		sc.CardStep = next
		return reply(cardPromptText(name, next))
	}

	return d.completeCard(ctx, sc)
}

func (d *Dialog) completeCard(ctx context.Context, sc *domain.SessionContext) *domain.ChatResponse {
	now := d.now()
	plan := sc.CurrentPlan

	sc.AppendPayment(now, maindomain.MethodCreditCard, plan, maindomain.StatusApproved, "")
	sc.ResetCardFlow()
	sc.Subscription = &domain.Subscription{
		Plan:      plan,
		Status:    "active",
		StartedAt: now,
		ExpiresAt: now.Add(domain.SubscriptionPeriod),
	}

	if p, ok := d.catalog.Lookup(plan); ok {
		d.payments.NotifyActivation(ctx, sc.Customer(), p)
	}

	d.logger.Info("card payment approved",
		zap.String("session_id", sc.SessionID),
		zap.String("plan", plan),
	)
	return reply(cardSuccessText(sc.Name(), plan))
}
