// Package nlu implementa o oráculo de linguagem natural do assistente:
// regras locais por palavra-chave, o cliente OpenAI e o wrapper resiliente
// que cai para as regras quando o remoto falha.
package nlu

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/boddenberg/plan-assistant-go/internal/catalog"
	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/textnorm"
)

// SourceRules identifica resultados produzidos pelas regras locais.
const SourceRules = "rules"

// ============================================================
// Vocabulário (texto já normalizado: sem acento, minúsculo)
// ============================================================

var (
	greetingWords     = words("oi", "ola", "hello", "hey", "saudacoes")
	greetingPhrases   = []string{"bom dia", "boa tarde", "boa noite"}
	cancelWords       = words("cancelar", "cancelamento", "cancela", "desistir")
	historyWords      = words("historico", "transacoes", "transacao", "pagamentos", "compras", "extrato")
	paymentWords      = words("pagar", "pagamento", "comprar", "adquirir", "contratar", "assinar")
	planWords         = words("plano", "planos")
	pixWords          = words("pix")
	boletoWords       = words("boleto")
	cardWords         = words("cartao", "credito")
	priceWords        = words("preco", "valor", "custa", "custo", "quanto")
	benefitWords      = words("beneficio", "beneficios", "vantagem", "vantagens", "oferece", "inclui")
	descriptionWords  = words("descricao", "descreva", "detalhes", "informacao", "informacoes", "sobre")
	methodsWords      = words("formas", "forma", "opcoes", "metodos", "metodo", "meios")
	subscriptionWords = words("assinar", "assinatura")
	availableWords    = words("planos", "disponiveis", "disponivel", "existem", "catalogo")
)

func words(ws ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		m[w] = struct{}{}
	}
	return m
}

// ============================================================
// Rules - oráculo local, nunca falha
// ============================================================

// Rules classifica por palavras-chave. É o fallback do oráculo remoto.
type Rules struct{}

// NewRules creates the local keyword oracle.
func NewRules() *Rules { return &Rules{} }

// Classify never returns an error.
func (Rules) Classify(_ context.Context, text string, _ []domain.HistoryEntry) (*domain.NLUResult, error) {
	return classify(text), nil
}

// Generate devolve o texto de ajuda com o nome do usuário.
func (Rules) Generate(_ context.Context, _ string, sc *domain.SessionContext) (string, error) {
	name := domain.DefaultUserName
	if sc != nil {
		name = sc.Name()
	}
	return fmt.Sprintf("%s, desculpe, não entendi completamente. Posso ajudar com informações sobre os planos Básico e Premium, pagamentos via PIX, boleto ou cartão de crédito e o histórico das suas transações.", name), nil
}

type tokens struct {
	list []string
	set  map[string]struct{}
	text string
}

func (t tokens) any(vocab map[string]struct{}) bool {
	for _, w := range t.list {
		if _, ok := vocab[w]; ok {
			return true
		}
	}
	return false
}

func (t tokens) phrase(phrases []string) bool {
	padded := " " + t.text + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// Normalize remove acentos, passa para minúsculo e separa em palavras.
func Normalize(text string) []string {
	return strings.FieldsFunc(textnorm.Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenize(text string) tokens {
	list := Normalize(text)
	return tokens{list: list, set: words(list...), text: strings.Join(list, " ")}
}

func classify(text string) *domain.NLUResult {
	t := tokenize(text)
	res := &domain.NLUResult{
		Plan:     detectPlan(t),
		InfoType: detectInfo(t),
		Source:   SourceRules,
	}
	if m, ok := detectMethod(t); ok {
		res.Entities = map[string]string{"payment_method": string(m)}
	}
	res.Intent = detectIntent(t, res)
	return res
}

func detectPlan(t tokens) string {
	switch {
	case t.any(words("basico")):
		return catalog.PlanBasico
	case t.any(words("premium")):
		return catalog.PlanPremium
	}
	return ""
}

func detectMethod(t tokens) (maindomain.PaymentMethod, bool) {
	switch {
	case t.any(pixWords):
		return maindomain.MethodPix, true
	case t.any(boletoWords):
		return maindomain.MethodBoleto, true
	case t.any(cardWords):
		return maindomain.MethodCreditCard, true
	}
	return "", false
}

// detectInfo segue a precedência price → benefits → description →
// payment_methods → proceed_payment_* → available_plans.
func detectInfo(t tokens) domain.InfoType {
	switch {
	case t.any(priceWords):
		return domain.InfoPrice
	case t.any(benefitWords):
		return domain.InfoBenefits
	case t.any(descriptionWords):
		return domain.InfoDescription
	case t.any(methodsWords):
		return domain.InfoPaymentMethods
	case t.any(pixWords):
		return domain.InfoProceedPaymentPix
	case t.any(boletoWords):
		return domain.InfoProceedPaymentBoleto
	case t.any(cardWords):
		return domain.InfoProceedPaymentCard
	case t.any(subscriptionWords):
		return domain.InfoSubscription
	case t.any(cancelWords):
		return domain.InfoCancellation
	case t.any(availableWords):
		return domain.InfoAvailablePlans
	}
	return domain.InfoGeneral
}

func explicitInfo(info domain.InfoType) bool {
	switch info {
	case domain.InfoPrice, domain.InfoBenefits, domain.InfoDescription, domain.InfoPaymentMethods:
		return true
	}
	return false
}

// detectIntent: greeting → cancellation → history → payment_method_* →
// plan_info (com palavra de info explícita) → payment → plan_info → unknown.
func detectIntent(t tokens, res *domain.NLUResult) domain.Intent {
	switch {
	case t.any(greetingWords) || t.phrase(greetingPhrases):
		return domain.IntentGreeting
	case t.any(cancelWords):
		return domain.IntentCancellation
	case t.any(historyWords):
		return domain.IntentHistory
	case t.any(pixWords):
		return domain.IntentPaymentPix
	case t.any(boletoWords):
		return domain.IntentPaymentBoleto
	case t.any(cardWords):
		return domain.IntentPaymentCard
	case explicitInfo(res.InfoType):
		return domain.IntentPlanInfo
	case t.any(paymentWords):
		return domain.IntentPayment
	case res.InfoType == domain.InfoAvailablePlans && res.Plan == "":
		return domain.IntentAvailablePlans
	case t.any(planWords) || res.Plan != "":
		return domain.IntentPlanInfo
	}
	return domain.IntentUnknown
}
