// Package domain - chat.go define os tipos da rota POST /v1/chat.
//
// O fluxo completo:
//  1. Usuário manda {"message": "..."} → handler resolve a sessão
//  2. ChatService trava a sessão e decide: fluxo de cartão ou NLU
//  3. Dialog despacha pela intenção e, se preciso, inicia o pagamento
//  4. Devolve {"response_text": "...", "actions": {...}}
package domain

// ============================================================
// Chat - Request/Response entre o chamador e o assistente
// ============================================================

// ChatRequest é o body do POST /v1/chat.
// "mensagem" é aceito como apelido de "message".
type ChatRequest struct {
	Message  string `json:"message"`
	Mensagem string `json:"mensagem,omitempty"`
}

// Text devolve a mensagem do usuário, qualquer que seja o campo usado.
func (r *ChatRequest) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Mensagem
}

// Actions é o objeto de ações devolvido junto com o texto.
// Nunca é emitido com payment_required sem plano e método resolvidos.
type Actions struct {
	PaymentRequired bool   `json:"payment_required,omitempty"`
	PlanID          string `json:"plan_id,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	PixCode         string `json:"pix_code,omitempty"`
	QRCode          string `json:"qr_code,omitempty"`
	QRCodeURL       string `json:"qr_code_url,omitempty"`
	Barcode         string `json:"barcode,omitempty"`
	PaymentURL      string `json:"payment_url,omitempty"`
	TransactionID   string `json:"transaction_id,omitempty"`
}

// ChatResponse é o que o assistente devolve para cada mensagem.
type ChatResponse struct {
	ResponseText string  `json:"response_text"`
	Actions      Actions `json:"actions"`
	SessionID    string  `json:"session_id,omitempty"`
}

// ============================================================
// Sessões - POST /v1/sessions
// ============================================================

// SessionRequest abre uma sessão identificada (formulário de usuário).
type SessionRequest struct {
	Name     string `json:"name,omitempty"`
	Nome     string `json:"nome,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Telefone string `json:"telefone,omitempty"`
}

// DisplayName resolve o nome informado, aceitando o apelido em português.
func (r *SessionRequest) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Nome
}

// PhoneNumber resolve o telefone informado.
func (r *SessionRequest) PhoneNumber() string {
	if r.Phone != "" {
		return r.Phone
	}
	return r.Telefone
}

// SessionToken é a resposta do POST /v1/sessions.
type SessionToken struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	Name      string `json:"name"`
	ExpiresAt string `json:"expires_at"`
}
