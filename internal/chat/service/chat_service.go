// Package service - chat_service.go implementa o ChatService, orquestrador
// da rota POST /v1/chat.
//
// Fluxo de um turno:
//  1. Trava a sessão (lock por session_id) até o fim do turno
//  2. Carrega o SessionContext, criando-o na primeira mensagem
//  3. Fluxo de cartão ativo? → FSM de cartão, sem chamar o oráculo
//  4. Caso contrário → Oracle.Classify e Dialog.Respond
//  5. Persiste a sessão e devolve {response_text, actions, session_id}
//
// Qualquer falha inesperada vira o texto de desculpas: o chat nunca
// devolve erro cru ao usuário.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/chat/port"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/keylock"
	"github.com/boddenberg/plan-assistant-go/internal/infra/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// chatTracer é o tracer OpenTelemetry para o módulo de chat.
var chatTracer = otel.Tracer("chat/service")

// ChatService é o serviço principal da rota de chat.
type ChatService struct {
	store   port.SessionStore
	locks   *keylock.Locks
	oracle  port.Oracle
	dialog  *Dialog
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewChatService cria o ChatService com as dependências injetadas.
// locks deve ser compartilhado com o SessionService.
func NewChatService(
	store port.SessionStore,
	locks *keylock.Locks,
	oracle port.Oracle,
	dialog *Dialog,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		store:   store,
		locks:   locks,
		oracle:  oracle,
		dialog:  dialog,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessMessage é o ponto de entrada do chat. sessionID vazio abre uma
// sessão nova. Só devolve erro para mensagem vazia.
func (s *ChatService) ProcessMessage(ctx context.Context, sessionID string, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.ProcessMessage")
	defer span.End()
	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("chat.message", time.Since(start)) }()

	text := strings.TrimSpace(req.Text())
	if text == "" {
		return nil, &maindomain.ErrValidation{
			Code:    maindomain.CodeMissingField,
			Field:   "message",
			Message: "Mensagem é obrigatória",
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sc, err := s.load(ctx, sessionID)
	if err != nil {
		return s.apology(sessionID, "load session", err), nil
	}

	var resp *domain.ChatResponse
	intent := domain.IntentPaymentCard
	if sc.CardStep.Active() {
		resp = s.dialog.Card(ctx, sc, text)
	} else {
		res, err := s.oracle.Classify(ctx, text, sc.History)
		if err != nil {
			return s.apology(sessionID, "classify", err), nil
		}
		intent = res.Intent
		resp, err = s.dialog.Respond(ctx, sc, text, res)
		if err != nil {
			// o turno já está no histórico; a sessão é salva mesmo assim
			if saveErr := s.save(ctx, sc); saveErr != nil {
				err = errors.Join(err, saveErr)
			}
			return s.apology(sessionID, "dialog", err), nil
		}
	}

	s.metrics.IncrChatMessage(string(intent))
	if err := s.save(ctx, sc); err != nil {
		return s.apology(sessionID, "save session", err), nil
	}

	s.logger.Info("chat message processed",
		zap.String("session_id", sessionID),
		zap.String("intent", string(intent)),
		zap.Int("card_step", int(sc.CardStep)),
		zap.Bool("payment_required", resp.Actions.PaymentRequired),
	)

	resp.SessionID = sessionID
	return resp, nil
}

func (s *ChatService) load(ctx context.Context, id string) (*domain.SessionContext, error) {
	sc, err := s.store.Get(ctx, id)
	if err == nil {
		s.metrics.IncrCacheHit("session")
		return sc, nil
	}
	var nf *maindomain.ErrNotFound
	if !errors.As(err, &nf) {
		return nil, err
	}
	s.metrics.IncrCacheMiss("session")
	return domain.NewSession(id, s.now()), nil
}

func (s *ChatService) save(ctx context.Context, sc *domain.SessionContext) error {
	sc.UpdatedAt = s.now()
	if err := s.store.Put(ctx, sc); err != nil {
		s.logger.Error("session save failed", zap.String("session_id", sc.SessionID), zap.Error(err))
		return err
	}
	return nil
}

func (s *ChatService) apology(sessionID, stage string, err error) *domain.ChatResponse {
	s.logger.Error("chat turn failed",
		zap.String("session_id", sessionID),
		zap.String("stage", stage),
		zap.String("error_code", maindomain.ErrorCode(err)),
		zap.Error(err),
	)
	return &domain.ChatResponse{ResponseText: ApologyText, SessionID: sessionID}
}
