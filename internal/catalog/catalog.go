// Package catalog é o catálogo estático de planos de assinatura.
// Os dados são imutáveis: toda leitura devolve cópias.
package catalog

import (
	"strings"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/textnorm"
)

const (
	PlanBasico  = "basico"
	PlanPremium = "premium"
)

var defaultMethods = []string{"PIX", "Boleto", "Cartão de Crédito"}

// plans em ordem de exibição.
var plans = []domain.Plan{
	{
		Code:   PlanBasico,
		Name:   "Básico",
		Price:  "R$29,99",
		Amount: 29.99,
		Benefits: []string{
			"15GB de internet",
			"Apps com internet ilimitada",
			"Serviços ilimitados: Ligação, SMS",
		},
		Description:    "Ideal para quem não usa muitos dados móveis e não requer para uso profissional.",
		PaymentMethods: defaultMethods,
	},
	{
		Code:   PlanPremium,
		Name:   "Premium",
		Price:  "R$59,90",
		Amount: 59.90,
		Benefits: []string{
			"35GB de internet",
			"Apps com internet ilimitada",
			"Serviços ilimitados: Ligação, SMS",
		},
		Description:    "Para quem necessita de dados móveis para uso diário intenso ou profissional.",
		PaymentMethods: defaultMethods,
	},
}

// Catalog implements port.Catalog over the static plan list.
type Catalog struct{}

// New returns the static catalog.
func New() *Catalog { return &Catalog{} }

// Lookup resolves a plan code. Accents and case are ignored ("Básico" → basico).
func (Catalog) Lookup(code string) (domain.Plan, bool) {
	key := normalizeCode(code)
	for _, p := range plans {
		if p.Code == key {
			return clonePlan(p), true
		}
	}
	return domain.Plan{}, false
}

// All returns every plan in catalog order.
func (Catalog) All() []domain.Plan {
	out := make([]domain.Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, clonePlan(p))
	}
	return out
}

func clonePlan(p domain.Plan) domain.Plan {
	p.Benefits = append([]string(nil), p.Benefits...)
	p.PaymentMethods = append([]string(nil), p.PaymentMethods...)
	return p
}

func normalizeCode(code string) string {
	return textnorm.Fold(strings.TrimSpace(code))
}
