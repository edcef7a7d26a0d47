package domain

import "strings"

// ============================================================
// Planos - catálogo estático
// ============================================================

// Plan é um item imutável do catálogo de assinaturas.
type Plan struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Price          string   `json:"price"`  // exibição, ex: "R$29,99"
	Amount         float64  `json:"amount"` // valor cobrado em BRL
	Description    string   `json:"description"`
	Benefits       []string `json:"benefits"`
	PaymentMethods []string `json:"payment_methods"`
}

// Title devolve o código capitalizado ("basico" → "Basico"), forma usada
// nas mensagens do assistente.
func (p Plan) Title() string {
	return TitleCode(p.Code)
}

// TitleCode capitaliza a primeira letra de um código de plano.
func TitleCode(code string) string {
	if code == "" {
		return ""
	}
	return strings.ToUpper(code[:1]) + strings.ToLower(code[1:])
}
