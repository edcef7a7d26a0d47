package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/gateway"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPayStatusRefund_SharedLedger(t *testing.T) {
	t.Setenv("STATUS_APPROVAL_RATE", "1")
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, "--db", db, "--json", "pay", "--method", "pix", "--plan", "basico", "--email", "ana@example.com")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	var res domain.PaymentResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("pay output is not json: %v\n%s", err, out)
	}
	if res.Status != domain.StatusPending || res.PixCode == "" {
		t.Fatalf("expected pending pix, got %+v", res)
	}

	out, err = run(t, "--db", db, "status", res.TransactionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Aprovado") {
		t.Errorf("approval rate 1 should approve, got:\n%s", out)
	}

	out, err = run(t, "--db", db, "refund", res.TransactionID, "--amount", "10")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if !strings.Contains(out, "Estornado") || !strings.Contains(out, "R$10.00") {
		t.Errorf("unexpected refund output:\n%s", out)
	}
}

func TestPay_PixChecksumSecret(t *testing.T) {
	pay := func(t *testing.T) domain.PaymentResult {
		t.Helper()
		db := filepath.Join(t.TempDir(), "ledger.db")
		out, err := run(t, "--db", db, "--json", "pay", "-m", "pix", "-p", "basico", "--no-qr")
		if err != nil {
			t.Fatalf("pay: %v", err)
		}
		var res domain.PaymentResult
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("pay output is not json: %v\n%s", err, out)
		}
		return res
	}

	t.Run("unset uses default secret", func(t *testing.T) {
		t.Setenv("PAYMENT_API_SECRET", "")
		res := pay(t)
		want := gateway.Checksum(gateway.DefaultSecret, res.TransactionID)
		if !strings.HasSuffix(res.PixCode, "6304"+want) {
			t.Errorf("expected checksum %q, got %q", want, res.PixCode)
		}
	})

	t.Run("configured secret", func(t *testing.T) {
		t.Setenv("PAYMENT_API_SECRET", "outro_segredo")
		res := pay(t)
		want := gateway.Checksum("outro_segredo", res.TransactionID)
		if !strings.HasSuffix(res.PixCode, "6304"+want) {
			t.Errorf("expected checksum %q, got %q", want, res.PixCode)
		}
	})
}

func TestPay_PixDrawsQRCode(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, "--db", db, "pay", "-m", "pix", "-p", "premium")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !strings.Contains(out, "PIX:") || len(strings.Split(out, "\n")) < 20 {
		t.Errorf("expected pix code and terminal qr, got:\n%s", out)
	}
}

func TestPay_DeclinedCard(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, "--db", db, "pay", "-m", "credit_card", "-p", "basico",
		"--card-number", "4111111111111111", "--card-expiry", "12/30",
		"--card-cvv", "123", "--card-holder", "ANA")
	if err == nil || !strings.Contains(err.Error(), domain.CodeCardDeclined) {
		t.Errorf("expected CARD_DECLINED, got %v", err)
	}
}

func TestStatus_UnknownTransaction(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, "--db", db, "status", "nope")
	if err == nil || !strings.Contains(err.Error(), domain.CodeTransactionNotFound) {
		t.Errorf("expected TRANSACTION_NOT_FOUND, got %v", err)
	}
}

func TestPlans(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, "--db", db, "plans")
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	if !strings.Contains(out, "R$29,99") || !strings.Contains(out, "R$59,90") {
		t.Errorf("unexpected plans output:\n%s", out)
	}
}
