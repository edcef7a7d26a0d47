package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/chat/service"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// TokenValidator resolve o session_id de um token de sessão.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// SessionMiddleware injeta o session_id resolvido no contexto.
// Um Bearer inválido é rejeitado com 401; sem credencial a requisição
// segue anônima.
func SessionMiddleware(tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					logger.Warn("session: invalid token format",
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", r.RemoteAddr),
					)
					writeError(w, http.StatusUnauthorized, "Formato de token inválido", maindomain.CodeUnauthorized)
					return
				}

				sid, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
				if err != nil {
					logger.Warn("session: invalid or expired token",
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", r.RemoteAddr),
					)
					writeError(w, http.StatusUnauthorized, err.Error(), maindomain.CodeUnauthorized)
					return
				}
				sessionID = sid
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext extracts the resolved session id ("" for anonymous).
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// ============================================================
// Sessões - POST/GET/DELETE /v1/sessions
// ============================================================

func CreateSessionHandler(sessions *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sessions")
		defer span.End()

		// body vazio abre uma sessão com o nome padrão
		var req domain.SessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body", maindomain.CodeInvalidRequest)
			return
		}

		tok, err := sessions.Create(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("session.id", tok.SessionID))
		writeJSON(w, http.StatusCreated, tok)
	}
}

// ownSession garante que a sessão da URL é a do chamador.
func ownSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionId")
	if caller := SessionIDFromContext(r.Context()); caller == "" || caller != id {
		writeError(w, http.StatusUnauthorized, "Sessão não pertence ao chamador", maindomain.CodeUnauthorized)
		return "", false
	}
	return id, true
}

func GetSessionHandler(sessions *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sessions/{sessionId}")
		defer span.End()

		id, ok := ownSession(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("session.id", id))

		snap, err := sessions.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func DeleteSessionHandler(sessions *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/sessions/{sessionId}")
		defer span.End()

		id, ok := ownSession(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("session.id", id))

		if err := sessions.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
