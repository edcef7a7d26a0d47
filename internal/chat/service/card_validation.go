package service

import (
	"strings"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"

	"github.com/go-playground/validator/v10"
)

// cardValidate só é usado com STRICT_CARD_VALIDATION=true.
var cardValidate = newCardValidator()

// regras por passo do fluxo de cartão
var cardRules = map[domain.CardStep]string{
	domain.AwaitingCardNumber: "required,number,min=13,max=19",
	domain.AwaitingExpiry:     "required,card_expiry",
	domain.AwaitingCVV:        "required,number,min=3,max=4",
	domain.AwaitingHolderName: "required,holder_name",
	domain.AwaitingDocument:   "required,number,len=11",
}

func newCardValidator() *validator.Validate {
	v := validator.New()
	// MM/AA
	v.RegisterValidation("card_expiry", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 5 || s[2] != '/' {
			return false
		}
		if v.Var(s[:2], "number") != nil || v.Var(s[3:], "number") != nil {
			return false
		}
		month := int(s[0]-'0')*10 + int(s[1]-'0')
		return month >= 1 && month <= 12
	})
	// nome não pode ser só dígitos
	v.RegisterValidation("holder_name", func(fl validator.FieldLevel) bool {
		s := strings.ReplaceAll(fl.Field().String(), " ", "")
		return s != "" && v.Var(s, "number") != nil
	})
	return v
}

func validCardInput(step domain.CardStep, value string) bool {
	rule, ok := cardRules[step]
	if !ok {
		return false
	}
	return cardValidate.Var(normalizeCardInput(step, value), rule) == nil
}

// normalizeCardInput remove os separadores que o usuário costuma digitar.
func normalizeCardInput(step domain.CardStep, value string) string {
	switch step {
	case domain.AwaitingCardNumber:
		return strings.NewReplacer(" ", "", "-", "").Replace(value)
	case domain.AwaitingDocument:
		return strings.NewReplacer(".", "", "-", "", " ", "").Replace(value)
	}
	return strings.TrimSpace(value)
}
