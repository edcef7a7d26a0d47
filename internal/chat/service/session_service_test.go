package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	chatservice "github.com/boddenberg/plan-assistant-go/internal/chat/service"
	maindomain "github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/keylock"
	"github.com/boddenberg/plan-assistant-go/internal/infra/session"

	"go.uber.org/zap"
)

func newSessionService(t *testing.T, secret string, ttl time.Duration) (*chatservice.SessionService, *session.Memory) {
	t.Helper()
	store := session.NewMemory(time.Minute)
	t.Cleanup(func() { store.Close() })
	return chatservice.NewSessionService(store, keylock.New(), secret, ttl, zap.NewNop()), store
}

func TestSessionService_CreateAndValidate(t *testing.T) {
	svc, store := newSessionService(t, "s3cret", time.Hour)

	tok, err := svc.Create(context.Background(), &domain.SessionRequest{Nome: "Bruno", Email: "b@example.com", Telefone: "+5511"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tok.Name != "Bruno" || tok.Token == "" || tok.SessionID == "" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	sid, err := svc.ValidateToken(tok.Token)
	if err != nil || sid != tok.SessionID {
		t.Fatalf("expected sid %q, got %q (%v)", tok.SessionID, sid, err)
	}

	sc, err := store.Get(context.Background(), tok.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sc.UserEmail != "b@example.com" || sc.UserPhone != "+5511" {
		t.Errorf("contact data not stored: %+v", sc)
	}
}

func TestSessionService_DefaultName(t *testing.T) {
	svc, _ := newSessionService(t, "x", time.Hour)
	tok, _ := svc.Create(context.Background(), &domain.SessionRequest{})
	if tok.Name != domain.DefaultUserName {
		t.Errorf("expected default name, got %q", tok.Name)
	}
}

func TestSessionService_RejectsForeignAndExpiredTokens(t *testing.T) {
	issuer, _ := newSessionService(t, "secret-a", time.Hour)
	other, _ := newSessionService(t, "secret-b", time.Hour)
	tok, _ := issuer.Create(context.Background(), &domain.SessionRequest{})

	var unauth *maindomain.ErrUnauthorized
	if _, err := other.ValidateToken(tok.Token); !errors.As(err, &unauth) {
		t.Errorf("expected ErrUnauthorized for foreign secret, got %v", err)
	}

	expired, _ := newSessionService(t, "secret-a", -time.Minute)
	old, _ := expired.Create(context.Background(), &domain.SessionRequest{})
	if _, err := issuer.ValidateToken(old.Token); !errors.As(err, &unauth) {
		t.Errorf("expected ErrUnauthorized for expired token, got %v", err)
	}

	if _, err := issuer.ValidateToken("not-a-jwt"); !errors.As(err, &unauth) {
		t.Errorf("expected ErrUnauthorized for garbage, got %v", err)
	}
}

func TestSessionService_SnapshotMasksCard(t *testing.T) {
	svc, store := newSessionService(t, "x", time.Hour)
	tok, _ := svc.Create(context.Background(), &domain.SessionRequest{Name: "Ana"})

	sc, _ := store.Get(context.Background(), tok.SessionID)
	sc.CardStep = domain.AwaitingCVV
	sc.CardData = domain.CardFields{CardNumber: "4111111111111112", Expiry: "12/30"}
	store.Put(context.Background(), sc)

	snap, err := svc.Get(context.Background(), tok.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.CardData.CardNumber != "****1112" {
		t.Errorf("expected masked number, got %q", snap.CardData.CardNumber)
	}

	if err := svc.Delete(context.Background(), tok.SessionID); err != nil {
		t.Fatal(err)
	}
	var nf *maindomain.ErrNotFound
	if _, err := svc.Get(context.Background(), tok.SessionID); !errors.As(err, &nf) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
