package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/plan-assistant-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
}

// paymentResponse é o envelope de todas as rotas /v1/payments.
type paymentResponse struct {
	Success        bool                     `json:"success"`
	Message        string                   `json:"message"`
	TransactionID  string                   `json:"transaction_id,omitempty"`
	Status         domain.TransactionStatus `json:"status,omitempty"`
	RefundedAmount *float64                 `json:"refunded_amount,omitempty"`
	Data           any                      `json:"data"`
	ErrorCode      string                   `json:"error_code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	var (
		validation   *domain.ErrValidation
		notFound     *domain.ErrNotFound
		conflict     *domain.ErrStateConflict
		declined     *domain.ErrDeclined
		unauthorized *domain.ErrUnauthorized
		circuitOpen  *domain.ErrCircuitOpen
		timeout      *domain.ErrTimeout
		external     *domain.ErrExternalService
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		if conflict.Code == domain.CodeInvalidRefundAmount {
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	case errors.As(err, &declined):
		return http.StatusPaymentRequired
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &circuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &external):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func logServiceError(logger *zap.Logger, status int, err error) {
	switch {
	case status >= 500:
		logger.Error("service error", zap.Int("status", status), zap.Error(err))
	case status == http.StatusUnauthorized || status == http.StatusPaymentRequired:
		logger.Warn("request rejected", zap.Int("status", status), zap.String("error", err.Error()))
	default:
		logger.Debug("request error", zap.Int("status", status), zap.String("error", err.Error()))
	}
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := statusForError(err)
	logServiceError(logger, status, err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, ErrorCode: domain.ErrorCode(err)})
}

// writePaymentError escreve {success:false, message, error_code}.
// Recusas de cartão carregam o transaction_id gerado.
func writePaymentError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := statusForError(err)
	logServiceError(logger, status, err)

	resp := paymentResponse{
		Success:   false,
		Message:   paymentErrorMessage(status, err),
		Data:      struct{}{},
		ErrorCode: domain.ErrorCode(err),
	}
	var declined *domain.ErrDeclined
	if errors.As(err, &declined) {
		resp.TransactionID = declined.TransactionID
		resp.Status = domain.StatusDeclined
	}
	writeJSON(w, status, resp)
}

func paymentErrorMessage(status int, err error) string {
	var validation *domain.ErrValidation
	if errors.As(err, &validation) && validation.Message != "" {
		return validation.Message
	}
	switch status {
	case http.StatusInternalServerError:
		return "Erro ao processar pagamento"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "Serviço de pagamento indisponível no momento"
	}
	return err.Error()
}
