package gateway_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/gateway"
	"github.com/boddenberg/plan-assistant-go/internal/infra/ledger"
	"github.com/boddenberg/plan-assistant-go/internal/infra/resilience"
)

var fixedNow = time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

func newMock(coin gateway.Coin) (*gateway.Mock, *ledger.Memory) {
	l := ledger.NewMemory()
	seq := 0
	g := gateway.NewMock(l, gateway.Options{
		Coin: coin,
		Now:  func() time.Time { return fixedNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("tx-%d", seq)
		},
	})
	return g, l
}

func card(number string) *domain.CardData {
	return &domain.CardData{Number: number, Expiry: "12/30", CVV: "123", HolderName: "ANA SILVA"}
}

func TestProcess_Pix(t *testing.T) {
	g, _ := newMock(gateway.FixedCoin(false))

	res, err := g.Process(context.Background(), &domain.GatewayRequest{
		Amount: 59.90, PaymentMethod: "pix", CustomerEmail: "ana@example.com", PlanID: "premium",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Status != domain.StatusPending || res.TransactionID != "tx-1" {
		t.Fatalf("unexpected result: %+v", res)
	}

	want := "00020101021226880014br.gov.bcb.pix2566qrcodes-pix.example.com/v2/cobv/tx-1" +
		"5204000053039865802BR5925ASSISTENTE VIRTUAL DE PAG6009SAO PAULO62070503***6304" +
		gateway.Checksum("", "tx-1")
	if res.Data.PixCode != want {
		t.Errorf("unexpected pix code:\n got %s\nwant %s", res.Data.PixCode, want)
	}

	u, err := url.Parse(res.Data.QRCodeURL)
	if err != nil {
		t.Fatalf("qr url should parse: %v", err)
	}
	if u.Query().Get("data") != res.Data.PixCode || u.Query().Get("size") != "200x200" {
		t.Errorf("qr url must embed the pix code, got %s", res.Data.QRCodeURL)
	}
}

func TestProcess_Boleto(t *testing.T) {
	g, _ := newMock(gateway.FixedCoin(false))

	res, err := g.Process(context.Background(), &domain.GatewayRequest{
		Amount: 29.99, PaymentMethod: "boleto", CustomerEmail: "ana@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := fmt.Sprintf("341910000002999%s%d", "01043510047910201500089", fixedNow.Unix()%10000)
	if res.Data.Barcode != want {
		t.Errorf("unexpected barcode: got %s want %s", res.Data.Barcode, want)
	}
	if res.Data.BoletoURL != "https://exemplo.com/boleto/tx-1" {
		t.Errorf("unexpected boleto url: %s", res.Data.BoletoURL)
	}
	if res.Status != domain.StatusPending {
		t.Errorf("boleto must start pending, got %s", res.Status)
	}
}

func TestProcess_CardParityIsDeterministic(t *testing.T) {
	g, l := newMock(gateway.FixedCoin(false))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := g.Process(ctx, &domain.GatewayRequest{
			Amount: 29.99, PaymentMethod: "credit_card", CustomerEmail: "a@b.com", Card: card("4111 1111 1111 1112"),
		})
		if err != nil {
			t.Fatalf("even card should be approved, got %v", err)
		}
		if res.Status != domain.StatusApproved {
			t.Errorf("expected approved, got %s", res.Status)
		}
	}

	for i := 0; i < 3; i++ {
		_, err := g.Process(ctx, &domain.GatewayRequest{
			Amount: 29.99, PaymentMethod: "credit_card", CustomerEmail: "a@b.com", Card: card("4111111111111111"),
		})
		var declined *domain.ErrDeclined
		if !errors.As(err, &declined) {
			t.Fatalf("odd card should be declined, got %v", err)
		}
		if declined.ErrorCode() != domain.CodeCardDeclined || declined.TransactionID == "" {
			t.Errorf("decline must carry CARD_DECLINED and a transaction id, got %+v", declined)
		}
		if _, err := l.Get(ctx, declined.TransactionID); err == nil {
			t.Error("declined transactions must not be stored")
		}
	}
}

func TestProcess_Validation(t *testing.T) {
	g, _ := newMock(gateway.FixedCoin(false))
	ctx := context.Background()

	tests := []struct {
		name string
		req  *domain.GatewayRequest
		code string
	}{
		{"missing amount", &domain.GatewayRequest{PaymentMethod: "pix", CustomerEmail: "a@b.com"}, domain.CodeMissingField},
		{"missing method", &domain.GatewayRequest{Amount: 10, CustomerEmail: "a@b.com"}, domain.CodeMissingField},
		{"missing email", &domain.GatewayRequest{Amount: 10, PaymentMethod: "pix"}, domain.CodeMissingField},
		{"incomplete card", &domain.GatewayRequest{Amount: 10, PaymentMethod: "credit_card", CustomerEmail: "a@b.com",
			Card: &domain.CardData{Number: "4111"}}, domain.CodeInvalidCardData},
		{"no card", &domain.GatewayRequest{Amount: 10, PaymentMethod: "credit_card", CustomerEmail: "a@b.com"}, domain.CodeInvalidCardData},
		{"non digit card", &domain.GatewayRequest{Amount: 10, PaymentMethod: "credit_card", CustomerEmail: "a@b.com",
			Card: card("4111-111X")}, domain.CodeInvalidCardData},
		{"unsupported method", &domain.GatewayRequest{Amount: 10, PaymentMethod: "bitcoin", CustomerEmail: "a@b.com"}, domain.CodeInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Process(ctx, tt.req)
			if got := domain.ErrorCode(err); got != tt.code {
				t.Errorf("expected %s, got %s (%v)", tt.code, got, err)
			}
		})
	}
}

func TestProcess_MissingFieldMessage(t *testing.T) {
	g, _ := newMock(nil)
	_, err := g.Process(context.Background(), &domain.GatewayRequest{Amount: 10, PaymentMethod: "pix"})

	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Message != "Campo obrigatório ausente: customer_email" {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestProcess_SimulatedError(t *testing.T) {
	g := gateway.NewMock(ledger.NewMemory(), gateway.Options{SimulateError: true})

	_, err := g.Process(context.Background(), &domain.GatewayRequest{
		Amount: 10, PaymentMethod: "pix", CustomerEmail: "a@b.com",
	})
	if domain.ErrorCode(err) != domain.CodeSimulatedError {
		t.Errorf("expected SIMULATED_ERROR, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		g, _ := newMock(gateway.FixedCoin(true))
		_, err := g.CheckStatus(ctx, "does-not-exist")
		if domain.ErrorCode(err) != domain.CodeTransactionNotFound {
			t.Errorf("expected TRANSACTION_NOT_FOUND, got %v", err)
		}
	})

	t.Run("coin tails keeps pending", func(t *testing.T) {
		g, _ := newMock(gateway.FixedCoin(false))
		res, _ := g.Process(ctx, &domain.GatewayRequest{Amount: 10, PaymentMethod: "pix", CustomerEmail: "a@b.com"})
		st, err := g.CheckStatus(ctx, res.TransactionID)
		if err != nil || st.Status != domain.StatusPending {
			t.Errorf("expected pending, got %+v %v", st, err)
		}
	})

	t.Run("coin heads approves and persists", func(t *testing.T) {
		g, l := newMock(gateway.FixedCoin(true))
		res, _ := g.Process(ctx, &domain.GatewayRequest{Amount: 10, PaymentMethod: "boleto", CustomerEmail: "a@b.com"})
		st, err := g.CheckStatus(ctx, res.TransactionID)
		if err != nil || st.Status != domain.StatusApproved {
			t.Fatalf("expected approved, got %+v %v", st, err)
		}
		stored, _ := l.Get(ctx, res.TransactionID)
		if stored.Status != domain.StatusApproved {
			t.Errorf("approval must be persisted, got %s", stored.Status)
		}
	})
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		g, _ := newMock(nil)
		_, err := g.Refund(ctx, "nope", 0)
		if domain.ErrorCode(err) != domain.CodeTransactionNotFound {
			t.Errorf("expected TRANSACTION_NOT_FOUND, got %v", err)
		}
	})

	t.Run("non approved never mutates", func(t *testing.T) {
		g, l := newMock(gateway.FixedCoin(false))
		res, _ := g.Process(ctx, &domain.GatewayRequest{Amount: 10, PaymentMethod: "pix", CustomerEmail: "a@b.com"})
		before, _ := l.Get(ctx, res.TransactionID)

		for i := 0; i < 2; i++ {
			_, err := g.Refund(ctx, res.TransactionID, 0)
			if domain.ErrorCode(err) != domain.CodeInvalidRefundStatus {
				t.Fatalf("expected INVALID_REFUND_STATUS, got %v", err)
			}
		}

		after, _ := l.Get(ctx, res.TransactionID)
		if *after != *before {
			t.Errorf("transaction mutated by failed refund:\nbefore %+v\nafter  %+v", before, after)
		}
	})

	t.Run("over amount keeps status", func(t *testing.T) {
		g, l := newMock(nil)
		res, _ := g.Process(ctx, &domain.GatewayRequest{
			Amount: 29.99, PaymentMethod: "credit_card", CustomerEmail: "a@b.com", Card: card("4000000000000002"),
		})

		_, err := g.Refund(ctx, res.TransactionID, 30.00)
		if domain.ErrorCode(err) != domain.CodeInvalidRefundAmount {
			t.Fatalf("expected INVALID_REFUND_AMOUNT, got %v", err)
		}
		stored, _ := l.Get(ctx, res.TransactionID)
		if stored.Status != domain.StatusApproved || stored.RefundedAmount != 0 {
			t.Errorf("status must stay approved, got %+v", stored)
		}
	})

	t.Run("full and partial", func(t *testing.T) {
		g, _ := newMock(nil)
		full, _ := g.Process(ctx, &domain.GatewayRequest{
			Amount: 29.99, PaymentMethod: "credit_card", CustomerEmail: "a@b.com", Card: card("4000000000000002"),
		})
		res, err := g.Refund(ctx, full.TransactionID, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != domain.StatusRefunded || res.RefundedAmount != 29.99 {
			t.Errorf("expected full refund, got %+v", res)
		}

		partial, _ := g.Process(ctx, &domain.GatewayRequest{
			Amount: 59.90, PaymentMethod: "credit_card", CustomerEmail: "a@b.com", Card: card("4000000000000004"),
		})
		res, err = g.Refund(ctx, partial.TransactionID, 10)
		if err != nil || res.RefundedAmount != 10 || res.Data.RefundedAmount != 10 {
			t.Errorf("expected partial refund of 10, got %+v %v", res, err)
		}

		_, err = g.Refund(ctx, partial.TransactionID, 0)
		if domain.ErrorCode(err) != domain.CodeInvalidRefundStatus {
			t.Errorf("second refund must fail with INVALID_REFUND_STATUS, got %v", err)
		}
	})
}

func TestChecksum(t *testing.T) {
	a := gateway.Checksum("", "tx-1")
	if len(a) != 4 {
		t.Fatalf("checksum must have 4 chars, got %q", a)
	}
	if a != gateway.Checksum(gateway.DefaultSecret, "tx-1") {
		t.Error("empty secret must fall back to the default secret")
	}
	if a == gateway.Checksum("other", "tx-1") {
		t.Error("checksum should depend on the secret")
	}
}

func TestBarcode_RoundsCents(t *testing.T) {
	code := gateway.Barcode(59.90, time.Unix(1_700_000_123, 0))
	if !strings.HasPrefix(code, "341910000005990") {
		t.Errorf("unexpected barcode prefix: %s", code)
	}
	if !strings.HasSuffix(code, "0123") && !strings.HasSuffix(code, "123") {
		t.Errorf("unexpected barcode suffix: %s", code)
	}
}

func TestFactory(t *testing.T) {
	l := ledger.NewMemory()

	if _, ok := gateway.New("mock", l, gateway.Options{}).(*gateway.Mock); !ok {
		t.Error("mock name should build the mock gateway")
	}
	if _, ok := gateway.New("unknown", l, gateway.Options{}).(*gateway.Mock); !ok {
		t.Error("unknown names fall back to the mock gateway")
	}

	mp := gateway.New("mercadopago", l, gateway.Options{Coin: gateway.FixedCoin(true)})
	if _, ok := mp.(*gateway.MercadoPago); !ok {
		t.Fatal("mercadopago name should build the named gateway")
	}

	res, err := mp.Process(context.Background(), &domain.GatewayRequest{
		Amount: 29.99, PaymentMethod: "pix", CustomerEmail: "a@b.com",
	})
	if err != nil {
		t.Fatalf("mercadopago should delegate to the mock: %v", err)
	}
	st, err := mp.CheckStatus(context.Background(), res.TransactionID)
	if err != nil || st.Status != domain.StatusApproved {
		t.Errorf("expected approved through delegate, got %+v %v", st, err)
	}

	_, err = mp.Refund(context.Background(), "missing", 0)
	if domain.ErrorCode(err) != domain.CodeTransactionNotFound {
		t.Errorf("business errors must pass through the breaker, got %v", err)
	}
}

func TestRandomCoin_Seeded(t *testing.T) {
	a := gateway.NewRandomCoin(42, 0.5)
	b := gateway.NewRandomCoin(42, 0.5)
	for i := 0; i < 20; i++ {
		if a.Flip() != b.Flip() {
			t.Fatal("coins with the same seed must produce the same sequence")
		}
	}

	never := gateway.NewRandomCoin(1, 0)
	always := gateway.NewRandomCoin(1, 2)
	for i := 0; i < 20; i++ {
		if never.Flip() || !always.Flip() {
			t.Fatal("rate must be clamped to [0,1]")
		}
	}
}

type flakyGateway struct {
	failures int
	calls    int
}

func (f *flakyGateway) Process(context.Context, *domain.GatewayRequest) (*domain.GatewayResult, error) {
	f.calls++
	return nil, errors.New("connection reset")
}

func (f *flakyGateway) CheckStatus(_ context.Context, id string) (*domain.GatewayResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return &domain.GatewayResult{Success: true, TransactionID: id, Status: domain.StatusApproved}, nil
}

func (f *flakyGateway) Refund(context.Context, string, float64) (*domain.GatewayResult, error) {
	f.calls++
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: "x"}
}

func TestMercadoPago_RetriesStatusOnly(t *testing.T) {
	retry := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

	flaky := &flakyGateway{failures: 2}
	mp := gateway.NewMercadoPago(flaky, nil, retry)
	st, err := mp.CheckStatus(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("status should succeed after retries: %v", err)
	}
	if st.Status != domain.StatusApproved || flaky.calls != 3 {
		t.Errorf("expected approved after 3 calls, got %s after %d", st.Status, flaky.calls)
	}

	flaky = &flakyGateway{}
	mp = gateway.NewMercadoPago(flaky, nil, retry)
	_, err = mp.Process(context.Background(), &domain.GatewayRequest{PaymentMethod: "pix"})
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if flaky.calls != 1 {
		t.Errorf("process must not be retried, got %d calls", flaky.calls)
	}

	flaky = &flakyGateway{}
	mp = gateway.NewMercadoPago(flaky, nil, retry)
	if _, err := mp.Refund(context.Background(), "x", 0); domain.ErrorCode(err) != domain.CodeTransactionNotFound {
		t.Errorf("business error should pass through, got %v", err)
	}
}
