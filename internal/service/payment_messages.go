package service

import (
	"fmt"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/notify"
)

// Textos exibidos ao cliente pelo PaymentService.
const (
	msgMissingMethodOrPlan = "Método de pagamento e plano são obrigatórios"
	msgPixStarted          = "Pagamento PIX iniciado com sucesso"
	msgBoletoCreated       = "Boleto gerado com sucesso"
	msgCardApproved        = "Pagamento com cartão aprovado"
	msgStatusFound         = "Status da transação consultado com sucesso"
	msgRefunded            = "Estorno realizado com sucesso"

	signature = "Atenciosamente,\nEquipe do Assistente Virtual de Pagamentos"
)

func successMessage(m domain.PaymentMethod) string {
	switch m {
	case domain.MethodPix:
		return msgPixStarted
	case domain.MethodBoleto:
		return msgBoletoCreated
	case domain.MethodCreditCard:
		return msgCardApproved
	}
	return ""
}

// ============================================================
// Notificações por método
// ============================================================

func pixMessage(plan domain.Plan, pixCode string) notify.Message {
	return notify.Message{
		Subject: fmt.Sprintf("Seu Pagamento via PIX - Plano %s", plan.Name),
		Body: fmt.Sprintf("Olá!\n\nAqui está o código PIX para pagamento do seu Plano %s (%s):\n\n%s\n\n"+
			"Basta copiar e colar este código no aplicativo do seu banco para concluir o pagamento.\n\n"+
			"Após a confirmação do pagamento, seu plano será ativado automaticamente.\n\n%s",
			plan.Name, plan.Price, pixCode, signature),
	}
}

func boletoMessage(plan domain.Plan, barcode, url string) notify.Message {
	return notify.Message{
		Subject: fmt.Sprintf("Seu Boleto de Pagamento - Plano %s", plan.Name),
		Body: fmt.Sprintf("Olá!\n\nAqui está o código de barras do boleto para pagamento do seu Plano %s (%s):\n\n%s\n\n"+
			"Você também pode acessar o boleto completo através do link:\n%s\n\n"+
			"Após a confirmação do pagamento, seu plano será ativado automaticamente.\n\n%s",
			plan.Name, plan.Price, barcode, url, signature),
	}
}

func confirmationMessage(plan domain.Plan) notify.Message {
	return notify.Message{
		Subject: fmt.Sprintf("Confirmação de Pagamento - Plano %s", plan.Name),
		Body: fmt.Sprintf("Olá!\n\nO pagamento do seu Plano %s foi realizado com sucesso!\n\n"+
			"Seu plano já está ativo e você pode começar a aproveitar todos os benefícios imediatamente.\n\n"+
			"Agradecemos pela confiança!\n\n%s",
			plan.Name, signature),
	}
}
