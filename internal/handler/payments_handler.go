package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Pagamentos - /v1/payments
// ============================================================

// paymentDataBody aceita os nomes em inglês e os do formulário antigo.
type paymentDataBody struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holder_name"`
	DocumentID string `json:"document_id"`

	NumeroCartao string `json:"numero_cartao"`
	Validade     string `json:"validade"`
	NomeCartao   string `json:"nome_cartao"`
	CPF          string `json:"cpf"`
}

func (d *paymentDataBody) toCardData() *domain.CardData {
	if d == nil {
		return nil
	}
	c := &domain.CardData{
		Number:     firstNonEmpty(d.Number, d.NumeroCartao),
		Expiry:     firstNonEmpty(d.Expiry, d.Validade),
		CVV:        d.CVV,
		HolderName: firstNonEmpty(d.HolderName, d.NomeCartao),
		DocumentID: firstNonEmpty(d.DocumentID, d.CPF),
	}
	if *c == (domain.CardData{}) {
		return nil
	}
	return c
}

// createPaymentBody é o body do POST /v1/payments.
type createPaymentBody struct {
	Method      string           `json:"method"`
	PlanID      string           `json:"plan_id"`
	PaymentData *paymentDataBody `json:"payment_data"`
	Email       string           `json:"email"`
	Name        string           `json:"name"`
	Phone       string           `json:"phone"`

	Metodo         string           `json:"metodo"`
	PlanoID        string           `json:"plano_id"`
	DadosPagamento *paymentDataBody `json:"dados_pagamento"`
	Nome           string           `json:"nome"`
	Telefone       string           `json:"telefone"`
}

func (b *createPaymentBody) toRequest() *domain.PaymentRequest {
	data := b.PaymentData
	if data == nil {
		data = b.DadosPagamento
	}
	name := firstNonEmpty(b.Name, b.Nome)
	if name == "" {
		name = "Usuário"
	}
	return &domain.PaymentRequest{
		Method: firstNonEmpty(b.Method, b.Metodo),
		PlanID: firstNonEmpty(b.PlanID, b.PlanoID),
		Customer: domain.Customer{
			Name:  name,
			Email: strings.TrimSpace(b.Email),
			Phone: firstNonEmpty(b.Phone, b.Telefone),
		},
		Card: data.toCardData(),
	}
}

func createPaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments")
		defer span.End()

		var body createPaymentBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writePaymentError(w, &domain.ErrValidation{
				Code:    domain.CodeInvalidRequest,
				Message: "Erro ao processar a requisição. Formato JSON inválido.",
			}, logger)
			return
		}
		req := body.toRequest()
		span.SetAttributes(
			attribute.String("plan.id", req.PlanID),
			attribute.String("payment.method", req.Method),
		)

		res, err := svc.Process(ctx, req)
		if err != nil {
			writePaymentError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, paymentResponse{
			Success:       true,
			Message:       res.Message,
			TransactionID: res.TransactionID,
			Status:        res.Status,
			Data:          res,
		})
	}
}

func paymentStatusHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments/{transactionId}/status")
		defer span.End()

		id := chi.URLParam(r, "transactionId")
		span.SetAttributes(attribute.String("transaction.id", id))

		res, err := svc.CheckStatus(ctx, id)
		if err != nil {
			writePaymentError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, paymentResponse{
			Success:       true,
			Message:       res.Message,
			TransactionID: res.TransactionID,
			Status:        res.Status,
			Data:          res.Transaction,
		})
	}
}

type refundBody struct {
	Amount float64 `json:"amount"`
	Valor  float64 `json:"valor"`
}

func refundHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments/{transactionId}/refund")
		defer span.End()

		id := chi.URLParam(r, "transactionId")
		span.SetAttributes(attribute.String("transaction.id", id))

		// body vazio = estorno total
		var body refundBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writePaymentError(w, &domain.ErrValidation{
				Code:    domain.CodeInvalidRequest,
				Message: "Erro ao processar a requisição. Formato JSON inválido.",
			}, logger)
			return
		}
		amount := body.Amount
		if amount == 0 {
			amount = body.Valor
		}

		res, err := svc.Refund(ctx, id, amount)
		if err != nil {
			writePaymentError(w, err, logger)
			return
		}
		var refunded float64
		if res.Transaction != nil {
			refunded = res.Transaction.RefundedAmount
		}
		writeJSON(w, http.StatusOK, paymentResponse{
			Success:        true,
			Message:        res.Message,
			TransactionID:  res.TransactionID,
			Status:         res.Status,
			RefundedAmount: &refunded,
			Data:           res.Transaction,
		})
	}
}

func qrCodeHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments/{transactionId}/qrcode.png")
		defer span.End()

		id := chi.URLParam(r, "transactionId")
		png, err := svc.QRCodePNG(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}

// ============================================================
// Planos - /v1/plans
// ============================================================

func listPlansHandler(svc *service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"plans": svc.Plans()})
	}
}

func getPlanHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "planId")
		plan, err := svc.Plan(code)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
