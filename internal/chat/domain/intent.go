package domain

import (
	"strings"

	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
)

// ============================================================
// Intenções - enum fechado consumido pelo dispatcher do diálogo
// ============================================================

// Intent é a intenção classificada pelo oráculo de NLU.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentPlanInfo       Intent = "plan_info"
	IntentAvailablePlans Intent = "available_plans"
	IntentPayment        Intent = "payment"
	IntentPaymentMethod  Intent = "payment_method"
	IntentPaymentPix     Intent = "payment_method_pix"
	IntentPaymentBoleto  Intent = "payment_method_boleto"
	IntentPaymentCard    Intent = "payment_method_card"
	IntentCancellation   Intent = "cancellation"
	IntentHistory        Intent = "history"
	IntentUnknown        Intent = "unknown"
)

var intentAliases = map[string]Intent{
	"saudacao":                   IntentGreeting,
	"info_plano":                 IntentPlanInfo,
	"planos_disponiveis":         IntentAvailablePlans,
	"pagamento":                  IntentPayment,
	"metodo_pagamento":           IntentPaymentMethod,
	"metodo_pagamento_pix":       IntentPaymentPix,
	"metodo_pagamento_boleto":    IntentPaymentBoleto,
	"metodo_pagamento_cartao":    IntentPaymentCard,
	"payment_method_credit_card": IntentPaymentCard,
	"historico":                  IntentHistory,
	"cancelamento":               IntentCancellation,
	"desconhecido":               IntentUnknown,
}

// ParseIntent normaliza a intenção vinda de um oráculo remoto.
// Aceita os nomes em português; qualquer valor fora do enum vira IntentUnknown.
func ParseIntent(s string) Intent {
	key := strings.ToLower(strings.TrimSpace(s))
	switch i := Intent(key); i {
	case IntentGreeting, IntentPlanInfo, IntentAvailablePlans, IntentPayment,
		IntentPaymentMethod, IntentPaymentPix, IntentPaymentBoleto, IntentPaymentCard,
		IntentCancellation, IntentHistory, IntentUnknown:
		return i
	}
	if i, ok := intentAliases[key]; ok {
		return i
	}
	return IntentUnknown
}

// Method devolve o método embutido em payment_method_*.
func (i Intent) Method() (maindomain.PaymentMethod, bool) {
	switch i {
	case IntentPaymentPix:
		return maindomain.MethodPix, true
	case IntentPaymentBoleto:
		return maindomain.MethodBoleto, true
	case IntentPaymentCard:
		return maindomain.MethodCreditCard, true
	}
	return "", false
}

// ============================================================
// InfoType - qual informação do plano o usuário pediu
// ============================================================

type InfoType string

const (
	InfoGeneral              InfoType = ""
	InfoPrice                InfoType = "price"
	InfoBenefits             InfoType = "benefits"
	InfoDescription          InfoType = "description"
	InfoPaymentMethods       InfoType = "payment_methods"
	InfoProceedPaymentPix    InfoType = "proceed_payment_pix"
	InfoProceedPaymentBoleto InfoType = "proceed_payment_boleto"
	InfoProceedPaymentCard   InfoType = "proceed_payment_card"
	InfoSubscription         InfoType = "subscription"
	InfoCancellation         InfoType = "cancellation"
	InfoAvailablePlans       InfoType = "available_plans"
)

var infoAliases = map[string]InfoType{
	"preco":                       InfoPrice,
	"preço":                       InfoPrice,
	"beneficios":                  InfoBenefits,
	"benefícios":                  InfoBenefits,
	"descricao":                   InfoDescription,
	"descrição":                   InfoDescription,
	"pagamento":                   InfoPaymentMethods,
	"prosseguir_pagamento_pix":    InfoProceedPaymentPix,
	"prosseguir_pagamento_boleto": InfoProceedPaymentBoleto,
	"prosseguir_pagamento_cartao": InfoProceedPaymentCard,
	"proceed_payment_credit_card": InfoProceedPaymentCard,
	"assinatura":                  InfoSubscription,
	"cancelamento":                InfoCancellation,
	"planos_disponiveis":          InfoAvailablePlans,
}

// ParseInfoType normaliza o info_type; valores desconhecidos viram InfoGeneral.
func ParseInfoType(s string) InfoType {
	key := strings.ToLower(strings.TrimSpace(s))
	switch t := InfoType(key); t {
	case InfoGeneral, InfoPrice, InfoBenefits, InfoDescription, InfoPaymentMethods,
		InfoProceedPaymentPix, InfoProceedPaymentBoleto, InfoProceedPaymentCard,
		InfoSubscription, InfoCancellation, InfoAvailablePlans:
		return t
	}
	if t, ok := infoAliases[key]; ok {
		return t
	}
	return InfoGeneral
}

// ProceedMethod devolve o método de um info_type proceed_payment_*.
func (t InfoType) ProceedMethod() (maindomain.PaymentMethod, bool) {
	switch t {
	case InfoProceedPaymentPix:
		return maindomain.MethodPix, true
	case InfoProceedPaymentBoleto:
		return maindomain.MethodBoleto, true
	case InfoProceedPaymentCard:
		return maindomain.MethodCreditCard, true
	}
	return "", false
}

// ============================================================
// NLUResult - saída estruturada do oráculo
// ============================================================

// NLUResult é o resultado de Oracle.Classify.
// Entities pode carregar "payment_method" quando o oráculo o extrai à parte.
type NLUResult struct {
	Intent   Intent            `json:"intent"`
	Plan     string            `json:"plan,omitempty"`
	InfoType InfoType          `json:"info_type,omitempty"`
	Entities map[string]string `json:"entities,omitempty"`
	Source   string            `json:"source,omitempty"` // "rules" | "openai"
}
