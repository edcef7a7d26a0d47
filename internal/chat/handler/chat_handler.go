// Package handler - chat_handler.go implementa as rotas do chat:
// POST /v1/chat e o ciclo de vida das sessões (/v1/sessions).
//
// A sessão de cada requisição é resolvida por SessionMiddleware:
//
//	Authorization: Bearer <token>  →  claim "sid" do JWT de POST /v1/sessions
//	X-Session-ID: <id>             →  sessão anônima criada por uma resposta anterior
//	(nenhum)                       →  o ChatService abre uma sessão nova
//
// O chat nunca devolve 5xx: qualquer falha vira o texto de desculpas com 200.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/chat/service"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// tracer é o tracer OpenTelemetry para o módulo chat/handler.
var tracer = otel.Tracer("chat/handler")

// SessionHeader carrega o id de uma sessão anônima.
const SessionHeader = "X-Session-ID"

// ============================================================
// ChatHandler - POST /v1/chat
// ============================================================

// ChatHandler retorna o http.HandlerFunc da rota POST /v1/chat.
//
// Request:
//
//	{"message": "quanto custa o plano básico?"}
//
// Response (200 OK):
//
//	{"response_text": "...", "actions": {...}, "session_id": "..."}
//
// O session_id também volta no header X-Session-ID para o cliente reenviar.
func ChatHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		sessionID := SessionIDFromContext(ctx)
		span.SetAttributes(attribute.String("session.id", sessionID))

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("chat: invalid json body", zap.Error(err))
			writeJSON(w, http.StatusOK, domain.ChatResponse{
				ResponseText: service.InvalidJSONText,
				SessionID:    sessionID,
			})
			return
		}

		resp, err := chatSvc.ProcessMessage(ctx, sessionID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if resp.SessionID != "" {
			w.Header().Set(SessionHeader, resp.SessionID)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Helpers - funções utilitárias do chat handler
// ============================================================

// writeJSON serializa data como JSON e escreve na response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError escreve uma resposta de erro padronizada.
func writeError(w http.ResponseWriter, status int, msg, code string) {
	body := map[string]string{"error": msg}
	if code != "" {
		body["error_code"] = code
	}
	writeJSON(w, status, body)
}

// handleServiceError mapeia erros de domínio para HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	code := maindomain.ErrorCode(err)
	switch e := err.(type) {
	case *maindomain.ErrValidation:
		writeError(w, http.StatusBadRequest, e.Message, code)
	case *maindomain.ErrNotFound:
		writeError(w, http.StatusNotFound, "Sessão não encontrada", code)
	case *maindomain.ErrUnauthorized:
		writeError(w, http.StatusUnauthorized, e.Error(), code)
	case *maindomain.ErrExternalService:
		logger.Error("external service error", zap.String("service", e.Service), zap.Error(e.Err))
		writeError(w, http.StatusBadGateway, "external service unavailable: "+e.Service, code)
	default:
		logger.Error("unexpected error in chat handler", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error", maindomain.CodeInternal)
	}
}
