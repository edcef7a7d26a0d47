package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/chat/port"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/keylock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "plan-assistant"

// SessionClaims são as claims do token de sessão (HS256).
type SessionClaims struct {
	SID  string `json:"sid"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionService abre, lê e encerra sessões e assina seus tokens.
type SessionService struct {
	store     port.SessionStore
	locks     *keylock.Locks
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService creates the session use case.
func NewSessionService(store port.SessionStore, locks *keylock.Locks, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:     store,
		locks:     locks,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// ============================================================
// Create - POST /v1/sessions
// ============================================================

func (s *SessionService) Create(ctx context.Context, req *domain.SessionRequest) (*domain.SessionToken, error) {
	ctx, span := chatTracer.Start(ctx, "SessionService.Create")
	defer span.End()

	now := s.now()
	sc := domain.NewSession(uuid.NewString(), now)
	if name := strings.TrimSpace(req.DisplayName()); name != "" {
		sc.UserName = name
	}
	sc.UserEmail = strings.TrimSpace(req.Email)
	sc.UserPhone = strings.TrimSpace(req.PhoneNumber())

	if err := s.store.Put(ctx, sc); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	expiresAt := now.Add(s.tokenTTL)
	token, err := s.signToken(sc, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Info("session created",
		zap.String("session_id", sc.SessionID),
		zap.Bool("has_email", sc.UserEmail != ""),
		zap.Bool("has_phone", sc.UserPhone != ""),
	)

	return &domain.SessionToken{
		SessionID: sc.SessionID,
		Token:     token,
		Name:      sc.UserName,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Get devolve a visão pública (cartão mascarado).
func (s *SessionService) Get(ctx context.Context, id string) (*domain.SessionContext, error) {
	ctx, span := chatTracer.Start(ctx, "SessionService.Get")
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	sc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sc.Snapshot(), nil
}

func (s *SessionService) Delete(ctx context.Context, id string) error {
	ctx, span := chatTracer.Start(ctx, "SessionService.Delete")
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// ============================================================
// Tokens
// ============================================================

// ValidateToken devolve o session_id (claim sid) de um token válido.
func (s *SessionService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", &maindomain.ErrUnauthorized{Message: "Token de sessão inválido ou expirado"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return "", &maindomain.ErrUnauthorized{Message: "Token de sessão inválido"}
	}
	return claims.SID, nil
}

func (s *SessionService) signToken(sc *domain.SessionContext, now, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		SID:  sc.SessionID,
		Name: sc.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
