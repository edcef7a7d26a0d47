package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/catalog"
	"github.com/boddenberg/plan-assistant-go/internal/chat/infra/nlu"
	chatservice "github.com/boddenberg/plan-assistant-go/internal/chat/service"
	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/handler"
	"github.com/boddenberg/plan-assistant-go/internal/infra/gateway"
	"github.com/boddenberg/plan-assistant-go/internal/infra/keylock"
	"github.com/boddenberg/plan-assistant-go/internal/infra/ledger"
	"github.com/boddenberg/plan-assistant-go/internal/infra/observability"
	"github.com/boddenberg/plan-assistant-go/internal/infra/session"
	"github.com/boddenberg/plan-assistant-go/internal/port"
	"github.com/boddenberg/plan-assistant-go/internal/service"

	"go.uber.org/zap"
)

// --- Fixture ---

type failingPing struct{}

func (failingPing) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(t *testing.T, mutate func(*handler.Deps)) http.Handler {
	t.Helper()
	store := session.NewMemory(time.Minute)
	t.Cleanup(func() { store.Close() })

	cat := catalog.New()
	l := ledger.NewMemory()
	gw := gateway.NewMock(l, gateway.Options{Coin: gateway.FixedCoin(true)})
	metrics := observability.NewMetrics()
	payments := service.NewPaymentService(cat, gw, l, nil, "cliente@assistentepagamentos.com", metrics, zap.NewNop())

	rules := nlu.NewRules()
	dialog := chatservice.NewDialog(cat, payments, rules, chatservice.DialogOptions{Location: time.UTC}, zap.NewNop())
	locks := keylock.New()

	deps := handler.Deps{
		Chat:         chatservice.NewChatService(store, locks, rules, dialog, metrics, zap.NewNop()),
		Sessions:     chatservice.NewSessionService(store, locks, "test-secret", time.Hour, zap.NewNop()),
		Payments:     payments,
		Metrics:      metrics,
		HealthChecks: map[string]port.HealthChecker{"ledger": l, "sessions": store},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return handler.NewRouter(deps, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

// --- Operational ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["status"]; got != "healthy" {
		t.Errorf("expected healthy, got %v", got)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t, nil)

	if rec := do(t, router, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz_DependencyDown(t *testing.T) {
	router := newTestRouter(t, func(d *handler.Deps) {
		d.HealthChecks["redis"] = failingPing{}
	})

	if rec := do(t, router, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	rec := do(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "degraded" {
		t.Errorf("healthz should stay 200 and report degraded, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	if rec := do(t, router, http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	rec := do(t, router, http.MethodGet, "/v1/metrics/assistant", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestPing(t *testing.T) {
	router := newTestRouter(t, nil)

	if rec := do(t, router, http.MethodGet, "/ping", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestOperationalRoutes_WithoutServices(t *testing.T) {
	router := handler.NewRouter(handler.Deps{Metrics: observability.NewMetrics()}, zap.NewNop())

	if rec := do(t, router, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/v1/chat", map[string]string{"message": "oi"}); rec.Code != http.StatusNotFound {
		t.Errorf("chat route should be disabled, got %d", rec.Code)
	}
}

// --- Chat & sessões ---

func TestChat_AnonymousSession(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/chat", map[string]string{"message": "quanto custa o plano básico"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if !strings.Contains(body["response_text"].(string), "R$29,99") {
		t.Errorf("expected price in response, got %v", body["response_text"])
	}
	sid := rec.Header().Get("X-Session-ID")
	if sid == "" || body["session_id"] != sid {
		t.Fatalf("session id should be echoed in header and body: %q %v", sid, body["session_id"])
	}

	// mesma sessão via header: o plano pendente continua no contexto
	rec = do(t, router, http.MethodPost, "/v1/chat", map[string]string{"mensagem": "quero pagar com pix"}, "X-Session-ID", sid)
	actions := decode(t, rec)["actions"].(map[string]any)
	if actions["payment_required"] != true || actions["plan_id"] != "basico" || actions["pix_code"] == "" {
		t.Errorf("expected pix action for basico, got %v", actions)
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/chat", "{not json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["response_text"]; got != chatservice.InvalidJSONText {
		t.Errorf("unexpected response: %v", got)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/chat", map[string]string{"message": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChat_RateLimited(t *testing.T) {
	router := newTestRouter(t, func(d *handler.Deps) {
		d.ChatRateLimit = 0.001
		d.ChatRateBurst = 2
	})

	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, router, http.MethodPost, "/v1/chat", map[string]string{"message": "oi"}).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 200,200,429 got %v", codes)
	}
	// outras rotas não são limitadas
	if rec := do(t, router, http.MethodGet, "/v1/plans", nil); rec.Code != http.StatusOK {
		t.Errorf("plans should not be rate limited, got %d", rec.Code)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/sessions", map[string]string{"nome": "Ana", "email": "ana@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	tok := decode(t, rec)
	sid, token := tok["session_id"].(string), tok["token"].(string)
	if tok["name"] != "Ana" || token == "" {
		t.Fatalf("unexpected token response: %v", tok)
	}
	auth := "Bearer " + token

	rec = do(t, router, http.MethodPost, "/v1/chat", map[string]string{"message": "olá"}, "Authorization", auth)
	body := decode(t, rec)
	if body["session_id"] != sid || !strings.Contains(body["response_text"].(string), "Ana") {
		t.Errorf("chat should use the token session: %v", body)
	}

	rec = do(t, router, http.MethodGet, "/v1/sessions/"+sid, nil, "Authorization", auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if hist := decode(t, rec)["history"].([]any); len(hist) != 1 {
		t.Errorf("expected one turn in history, got %d", len(hist))
	}

	if rec := do(t, router, http.MethodGet, "/v1/sessions/other", nil, "Authorization", auth); rec.Code != http.StatusUnauthorized {
		t.Errorf("foreign session should be rejected, got %d", rec.Code)
	}

	if rec := do(t, router, http.MethodDelete, "/v1/sessions/"+sid, nil, "Authorization", auth); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/sessions/"+sid, nil, "Authorization", auth); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSessions_InvalidToken(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/chat", map[string]string{"message": "oi"}, "Authorization", "Bearer garbage")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	rec = do(t, router, http.MethodPost, "/v1/chat", map[string]string{"message": "oi"}, "Authorization", "Basic abc")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for non-bearer scheme, got %d", rec.Code)
	}
}

// --- Pagamentos ---

func TestPayments_PixLifecycle(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/payments", map[string]string{
		"metodo": "pix", "plano_id": "premium", "email": "a@b.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	id := body["transaction_id"].(string)
	if body["success"] != true || body["status"] != "pending" || id == "" {
		t.Fatalf("unexpected payment response: %v", body)
	}
	if data := body["data"].(map[string]any); data["pix_code"] == "" || data["qr_code"] == "" {
		t.Errorf("pix payment should carry code and qr: %v", data)
	}

	rec = do(t, router, http.MethodGet, "/v1/payments/"+id+"/qrcode.png", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("expected png, got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	rec = do(t, router, http.MethodGet, "/v1/payments/"+id+"/status", nil)
	if body := decode(t, rec); body["status"] != string(domain.StatusApproved) {
		t.Errorf("fixed coin should approve, got %v", body)
	}

	rec = do(t, router, http.MethodPost, "/v1/payments/"+id+"/refund", map[string]float64{"amount": 100})
	if rec.Code != http.StatusUnprocessableEntity || decode(t, rec)["error_code"] != domain.CodeInvalidRefundAmount {
		t.Errorf("over-amount refund: expected 422, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/payments/"+id+"/refund", nil)
	body = decode(t, rec)
	if rec.Code != http.StatusOK || body["status"] != string(domain.StatusRefunded) || body["refunded_amount"] != 59.9 {
		t.Errorf("full refund expected, got %d %v", rec.Code, body)
	}

	rec = do(t, router, http.MethodPost, "/v1/payments/"+id+"/refund", nil)
	if rec.Code != http.StatusConflict || decode(t, rec)["error_code"] != domain.CodeInvalidRefundStatus {
		t.Errorf("second refund: expected 409, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPayments_CardParity(t *testing.T) {
	router := newTestRouter(t, nil)
	card := func(number string) map[string]any {
		return map[string]any{
			"method": "credit_card", "plan_id": "basico",
			"payment_data": map[string]string{
				"number": number, "expiry": "12/30", "cvv": "123", "holder_name": "ANA",
			},
		}
	}

	rec := do(t, router, http.MethodPost, "/v1/payments", card("4111111111111112"))
	if body := decode(t, rec); rec.Code != http.StatusOK || body["status"] != "approved" {
		t.Errorf("even card should be approved: %d %v", rec.Code, body)
	}

	rec = do(t, router, http.MethodPost, "/v1/payments", card("4111111111111111"))
	body := decode(t, rec)
	if rec.Code != http.StatusPaymentRequired || body["success"] != false || body["error_code"] != domain.CodeCardDeclined {
		t.Errorf("odd card should be declined: %d %v", rec.Code, body)
	}
	if body["transaction_id"] == nil || body["transaction_id"] == "" {
		t.Error("declined response should carry the transaction id")
	}
}

func TestPayments_Errors(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing method", map[string]string{"plan_id": "basico"}, http.StatusBadRequest, domain.CodeMissingField},
		{"unknown plan", map[string]string{"method": "pix", "plan_id": "ouro"}, http.StatusNotFound, domain.CodePlanNotFound},
		{"unknown method", map[string]string{"method": "cheque", "plan_id": "basico"}, http.StatusBadRequest, domain.CodeInvalidPaymentMethod},
		{"card without data", map[string]string{"method": "cartao", "plan_id": "basico"}, http.StatusBadRequest, domain.CodeInvalidCardData},
		{"invalid json", "{", http.StatusBadRequest, domain.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/payments", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body["success"] != false || body["error_code"] != tt.code || body["message"] == "" {
				t.Errorf("unexpected error body: %v", body)
			}
		})
	}
}

func TestPayments_StatusNotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/v1/payments/nope/status", nil)
	if rec.Code != http.StatusNotFound || decode(t, rec)["error_code"] != domain.CodeTransactionNotFound {
		t.Errorf("expected TRANSACTION_NOT_FOUND, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPlans(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/v1/plans", nil)
	if plans := decode(t, rec)["plans"].([]any); len(plans) != 2 {
		t.Errorf("expected 2 plans, got %d", len(plans))
	}

	rec = do(t, router, http.MethodGet, "/v1/plans/Premium", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["price"] != "R$59,90" {
		t.Errorf("unexpected plan: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, router, http.MethodGet, "/v1/plans/ouro", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
