package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
)

// ============================================================
// Textos do assistente
// ============================================================

// ApologyText é devolvido quando o turno falha por qualquer motivo inesperado.
const ApologyText = "Desculpe, ocorreu um erro ao processar sua mensagem. Por favor, tente novamente."

// InvalidJSONText é devolvido quando o body do chat não é JSON válido.
const InvalidJSONText = "Erro ao processar a mensagem. Formato JSON inválido."

func greetingText(name string) string {
	return fmt.Sprintf("Olá, %s! Como posso ajudar você hoje? Posso fornecer informações sobre nossos planos ou ajudar com pagamentos.", name)
}

func availablePlansText(name string, plans []maindomain.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, estes são os planos disponíveis:\n\n", name)
	for _, p := range plans {
		fmt.Fprintf(&b, "Plano %s:\n  - Preço: %s\n  - Descrição: %s\n\n", p.Title(), p.Price, p.Description)
	}
	return b.String()
}

func planInfoText(name string, p maindomain.Plan, info domain.InfoType) string {
	switch info {
	case domain.InfoPrice:
		return fmt.Sprintf("%s, o plano %s custa %s.", name, p.Title(), p.Price)
	case domain.InfoBenefits:
		return fmt.Sprintf("%s, o plano %s oferece os seguintes benefícios: \n- %s", name, p.Title(), strings.Join(p.Benefits, "\n- "))
	case domain.InfoDescription:
		return fmt.Sprintf("%s, %s", name, p.Description)
	case domain.InfoPaymentMethods:
		return fmt.Sprintf("%s, as opções de pagamento para o plano %s são: %s.", name, p.Title(), strings.Join(p.PaymentMethods, ", "))
	}
	return fmt.Sprintf("%s, o plano %s custa %s. %s", name, p.Title(), p.Price, p.Description)
}

func unknownPlanText(name string) string {
	return fmt.Sprintf("%s, por favor, especifique o plano (Básico ou Premium).", name)
}

func askPlanText(name string) string {
	return fmt.Sprintf("%s, qual plano você gostaria de contratar? Temos o Básico (R$29,99) e o Premium (R$59,90).", name)
}

func invalidPlanText(name string) string {
	return fmt.Sprintf("%s, por favor, escolha entre os planos Básico ou Premium.", name)
}

func askMethodText(name, plan string) string {
	return fmt.Sprintf("%s, como você prefere pagar o plano %s? Aceitamos PIX, boleto ou cartão de crédito.", name, maindomain.TitleCode(plan))
}

func pixText(name, plan string) string {
	return fmt.Sprintf("%s, vamos processar seu pagamento do plano %s via PIX. Aqui está o código:", name, maindomain.TitleCode(plan))
}

func boletoText(name, plan string) string {
	return fmt.Sprintf("%s, vamos processar seu pagamento do plano %s via boleto. Aqui está o código de barras:", name, maindomain.TitleCode(plan))
}

func cardStartText(name, plan string) string {
	return fmt.Sprintf("%s, vamos processar seu pagamento do plano %s via cartão de crédito. Por favor, insira o número do cartão.", name, maindomain.TitleCode(plan))
}

func cancellationText(name string) string {
	return fmt.Sprintf("%s, para cancelar um plano ou assinatura, precisamos verificar alguns detalhes. Por favor, confirme seu e-mail e o plano que deseja cancelar.", name)
}

func historyText(name string, payments []domain.HistoryEntry, loc *time.Location) string {
	if len(payments) == 0 {
		return fmt.Sprintf("%s, você ainda não realizou nenhuma transação.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s, aqui está seu histórico de transações:\n\n", name)
	for i, p := range payments {
		plan := maindomain.TitleCode(p.Plan)
		if plan == "" {
			plan = "Desconhecido"
		}
		fmt.Fprintf(&b, "%d. %s - Plano %s - %s - %s\n",
			i+1, p.Timestamp.In(loc).Format("02/01/2006 15:04"), plan, p.Method.Label(), p.Status.Label())
	}
	return b.String()
}

// ============================================================
// Fluxo de cartão
// ============================================================

func cardPromptText(name string, step domain.CardStep) string {
	switch step {
	case domain.AwaitingCardNumber:
		return fmt.Sprintf("%s, por favor, insira o número do cartão.", name)
	case domain.AwaitingExpiry:
		return fmt.Sprintf("%s, agora, informe a validade (MM/AA).", name)
	case domain.AwaitingCVV:
		return fmt.Sprintf("%s, insira o CVV do cartão.", name)
	case domain.AwaitingHolderName:
		return fmt.Sprintf("%s, informe o nome que está no cartão.", name)
	case domain.AwaitingDocument:
		return fmt.Sprintf("%s, por fim, informe o CPF.", name)
	}
	return ""
}

func cardInvalidText(name string, step domain.CardStep) string {
	return fmt.Sprintf("%s, o valor informado não parece válido. ", name) + cardPromptText(name, step)
}

func cardSuccessText(name, plan string) string {
	title := maindomain.TitleCode(plan)
	if title == "" {
		title = "Desconhecido"
	}
	return fmt.Sprintf("Pagamento realizado com sucesso, %s! Seu plano %s foi ativado. Posso ajudar com mais alguma coisa?", name, title)
}
