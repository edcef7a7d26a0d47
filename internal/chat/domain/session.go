package domain

import (
	"encoding/json"
	"fmt"
	"time"

	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
)

// DefaultUserName é usado quando a sessão não tem nome informado.
const DefaultUserName = "Usuário"

// SubscriptionPeriod é a duração de um plano ativado pelo fluxo de cartão.
const SubscriptionPeriod = 30 * 24 * time.Hour

// ============================================================
// CardStep - máquina de estados do fluxo de cartão
// ============================================================

// CardStep é a etapa do fluxo de coleta de cartão.
// Serializado como inteiro 0–5; 0 (CardIdle) significa fora do fluxo.
type CardStep int

const (
	CardIdle CardStep = iota
	AwaitingCardNumber
	AwaitingExpiry
	AwaitingCVV
	AwaitingHolderName
	AwaitingDocument
)

// Active reports whether inputs must be routed to the card sub-flow.
func (s CardStep) Active() bool { return s != CardIdle }

// Next avança uma etapa. AwaitingDocument volta para CardIdle.
func (s CardStep) Next() CardStep {
	if s >= AwaitingDocument || s < CardIdle {
		return CardIdle
	}
	return s + 1
}

func (s CardStep) String() string {
	switch s {
	case CardIdle:
		return "idle"
	case AwaitingCardNumber:
		return "awaiting_card_number"
	case AwaitingExpiry:
		return "awaiting_expiry"
	case AwaitingCVV:
		return "awaiting_cvv"
	case AwaitingHolderName:
		return "awaiting_holder_name"
	case AwaitingDocument:
		return "awaiting_document"
	}
	return fmt.Sprintf("CardStep(%d)", int(s))
}

// UnmarshalJSON rejeita etapas fora de 0–5 vindas de um store externo.
func (s *CardStep) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n < int(CardIdle) || n > int(AwaitingDocument) {
		return fmt.Errorf("invalid card step %d", n)
	}
	*s = CardStep(n)
	return nil
}

// CardFields acumula o que o fluxo de cartão coletou. A sessão vai para o
// store (Redis inclusive), então só guarda valores mascarados; o CVV nunca
// é guardado.
type CardFields struct {
	CardNumber string `json:"card_number,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// Set grava, mascarado, o value coletado pela etapa step.
func (c *CardFields) Set(step CardStep, value string) {
	switch step {
	case AwaitingCardNumber:
		c.CardNumber = MaskValue(value)
	case AwaitingExpiry:
		c.Expiry = MaskValue(value)
	case AwaitingHolderName:
		c.HolderName = value
	case AwaitingDocument:
		c.DocumentID = MaskValue(value)
	}
}

// Masked devolve uma cópia segura para exibição.
func (c CardFields) Masked() CardFields {
	return CardFields{
		CardNumber: MaskValue(c.CardNumber),
		Expiry:     MaskValue(c.Expiry),
		HolderName: c.HolderName,
		DocumentID: MaskValue(c.DocumentID),
	}
}

// MaskValue mantém só os 4 últimos caracteres ("****1234").
func MaskValue(v string) string {
	if v == "" {
		return ""
	}
	r := []rune(v)
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}

// ============================================================
// Histórico - turnos e eventos de pagamento
// ============================================================

type EntryKind string

const (
	EntryTurn    EntryKind = "turn"
	EntryPayment EntryKind = "payment"
)

// HistoryEntry é um item do histórico append-only da sessão.
// Turnos preenchem UserText/Intent/InfoType; eventos de pagamento
// preenchem Method/Status/TransactionID.
type HistoryEntry struct {
	Kind          EntryKind                    `json:"kind"`
	Timestamp     time.Time                    `json:"timestamp"`
	UserText      string                       `json:"user_text,omitempty"`
	Intent        Intent                       `json:"intent,omitempty"`
	Plan          string                       `json:"plan,omitempty"`
	InfoType      InfoType                     `json:"info_type,omitempty"`
	Method        maindomain.PaymentMethod     `json:"method,omitempty"`
	Status        maindomain.TransactionStatus `json:"status,omitempty"`
	TransactionID string                       `json:"transaction_id,omitempty"`
}

// Subscription é o plano ativado ao concluir o fluxo de cartão.
type Subscription struct {
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ============================================================
// SessionContext - estado de uma conversa
// ============================================================

// SessionContext é o estado de uma conversa. Só o dialog o altera,
// sempre com o lock da sessão.
type SessionContext struct {
	SessionID     string                   `json:"session_id"`
	UserName      string                   `json:"user_name"`
	UserEmail     string                   `json:"user_email,omitempty"`
	UserPhone     string                   `json:"user_phone,omitempty"`
	CurrentPlan   string                   `json:"current_plan,omitempty"`
	PendingMethod maindomain.PaymentMethod `json:"pending_method,omitempty"`
	CardStep      CardStep                 `json:"card_step"`
	CardData      CardFields               `json:"card_data"`
	History       []HistoryEntry           `json:"history"`
	Subscription  *Subscription            `json:"subscription,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// NewSession cria um contexto vazio com o nome padrão.
func NewSession(id string, now time.Time) *SessionContext {
	return &SessionContext{
		SessionID: id,
		UserName:  DefaultUserName,
		History:   []HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Name devolve o nome de exibição, com fallback para "Usuário".
func (s *SessionContext) Name() string {
	if s.UserName == "" {
		return DefaultUserName
	}
	return s.UserName
}

// Customer monta o pagador a partir dos dados da sessão.
func (s *SessionContext) Customer() maindomain.Customer {
	return maindomain.Customer{Name: s.Name(), Email: s.UserEmail, Phone: s.UserPhone}
}

// AppendTurn registra um turno do usuário.
func (s *SessionContext) AppendTurn(at time.Time, text string, intent Intent, plan string, info InfoType) {
	s.History = append(s.History, HistoryEntry{
		Kind:      EntryTurn,
		Timestamp: at,
		UserText:  text,
		Intent:    intent,
		Plan:      plan,
		InfoType:  info,
	})
}

// AppendPayment registra um evento de pagamento.
func (s *SessionContext) AppendPayment(at time.Time, method maindomain.PaymentMethod, plan string, status maindomain.TransactionStatus, txID string) {
	s.History = append(s.History, HistoryEntry{
		Kind:          EntryPayment,
		Timestamp:     at,
		Method:        method,
		Plan:          plan,
		Status:        status,
		TransactionID: txID,
	})
}

// Payments filtra os eventos de pagamento, em ordem.
func (s *SessionContext) Payments() []HistoryEntry {
	var out []HistoryEntry
	for _, h := range s.History {
		if h.Kind == EntryPayment {
			out = append(out, h)
		}
	}
	return out
}

// ResetCardFlow volta o FSM para CardIdle e descarta os dados coletados.
func (s *SessionContext) ResetCardFlow() {
	s.CardStep = CardIdle
	s.CardData = CardFields{}
}

// Snapshot é a visão pública da sessão (dados de cartão mascarados).
func (s *SessionContext) Snapshot() *SessionContext {
	cp := s.Clone()
	cp.CardData = s.CardData.Masked()
	return cp
}

// Clone devolve uma cópia profunda (sem mascarar), usada pelos stores.
func (s *SessionContext) Clone() *SessionContext {
	cp := *s
	cp.History = append(make([]HistoryEntry, 0, len(s.History)), s.History...)
	if s.Subscription != nil {
		sub := *s.Subscription
		cp.Subscription = &sub
	}
	return &cp
}
