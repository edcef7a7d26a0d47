package domain

import (
	"strings"
	"time"
)

// ============================================================
// Pagamentos - tipos compartilhados entre gateway, ledger e service
// ============================================================

// PaymentMethod é o meio de pagamento aceito pelo gateway.
type PaymentMethod string

const (
	MethodPix        PaymentMethod = "pix"
	MethodBoleto     PaymentMethod = "boleto"
	MethodCreditCard PaymentMethod = "credit_card"
)

// ParsePaymentMethod normaliza apelidos vindos do chat ou da API
// ("cartao", "cartão", "card", "PIX"). Retorna false para métodos desconhecidos.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pix":
		return MethodPix, true
	case "boleto":
		return MethodBoleto, true
	case "credit_card", "cartao", "cartão", "card", "cartao_credito", "cartão de crédito":
		return MethodCreditCard, true
	}
	return PaymentMethod(s), false
}

// Label é o nome exibido no histórico ("PIX", "BOLETO", "CARTAO").
func (m PaymentMethod) Label() string {
	if m == MethodCreditCard {
		return "CARTAO"
	}
	return strings.ToUpper(string(m))
}

// TransactionStatus é o estado de uma transação no gateway simulado.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusDeclined TransactionStatus = "declined"
	StatusRefunded TransactionStatus = "refunded"
)

// Label traduz o status para exibição ao usuário.
func (s TransactionStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pendente"
	case StatusApproved:
		return "Aprovado"
	case StatusDeclined:
		return "Recusado"
	case StatusRefunded:
		return "Estornado"
	}
	return string(s)
}

// Transaction é o registro mantido pelo ledger do gateway.
// Somente o gateway altera uma transação.
type Transaction struct {
	ID             string            `json:"id"`
	PlanID         string            `json:"plan_id,omitempty"`
	Amount         float64           `json:"amount"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	CustomerEmail  string            `json:"customer_email"`
	Status         TransactionStatus `json:"status"`
	PixCode        string            `json:"pix_code,omitempty"`
	QRCodeURL      string            `json:"qr_code_url,omitempty"`
	Barcode        string            `json:"barcode,omitempty"`
	BoletoURL      string            `json:"boleto_url,omitempty"`
	RefundedAmount float64           `json:"refunded_amount,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CardData são os dados de cartão enviados ao gateway.
type CardData struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holder_name"`
	DocumentID string `json:"document_id,omitempty"`
}

// Complete reports whether the fields the gateway requires are all present.
func (c *CardData) Complete() bool {
	return c != nil &&
		strings.TrimSpace(c.Number) != "" &&
		strings.TrimSpace(c.Expiry) != "" &&
		strings.TrimSpace(c.CVV) != "" &&
		strings.TrimSpace(c.HolderName) != ""
}

// GatewayRequest é o payload aceito por PaymentGateway.Process.
type GatewayRequest struct {
	Amount        float64
	PaymentMethod string
	CustomerEmail string
	PlanID        string
	Card          *CardData
}

// GatewayResult é o resultado de sucesso de uma operação do gateway.
// Falhas são sempre devolvidas como erros tipados.
type GatewayResult struct {
	Success        bool              `json:"success"`
	TransactionID  string            `json:"transaction_id"`
	Status         TransactionStatus `json:"status"`
	RefundedAmount float64           `json:"refunded_amount,omitempty"`
	Data           *Transaction      `json:"data"`
}

// Customer identifica quem está pagando (vem da sessão ou do request).
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PaymentRequest é a entrada do PaymentService.
type PaymentRequest struct {
	Method   string
	PlanID   string
	Customer Customer
	Card     *CardData
}

// PaymentResult é a saída do PaymentService, já enriquecida com QR code.
type PaymentResult struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	TransactionID string            `json:"transaction_id"`
	Status        TransactionStatus `json:"status"`
	PixCode       string            `json:"pix_code,omitempty"`
	QRCode        string            `json:"qr_code,omitempty"` // PNG em base64
	QRCodeURL     string            `json:"qr_code_url,omitempty"`
	Barcode       string            `json:"barcode,omitempty"`
	PaymentURL    string            `json:"payment_url,omitempty"`
	Transaction   *Transaction      `json:"transaction,omitempty"`
}
