package handler

import (
	"net/http"

	chathandler "github.com/boddenberg/plan-assistant-go/internal/chat/handler"
	chatservice "github.com/boddenberg/plan-assistant-go/internal/chat/service"
	"github.com/boddenberg/plan-assistant-go/internal/infra/observability"
	"github.com/boddenberg/plan-assistant-go/internal/port"
	"github.com/boddenberg/plan-assistant-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps agrupa tudo que o router precisa. Serviços nulos desligam as rotas
// correspondentes (útil nos testes dos endpoints operacionais).
type Deps struct {
	Chat     *chatservice.ChatService
	Sessions *chatservice.SessionService
	Payments *service.PaymentService
	Metrics  *observability.Metrics

	// HealthChecks são pingados por /healthz e /readyz.
	HealthChecks map[string]port.HealthChecker

	// ChatRateLimit em req/s por IP; <= 0 desliga o limite.
	ChatRateLimit float64
	ChatRateBurst int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.HealthChecks, logger))
	r.Get("/readyz", readyzHandler(deps.HealthChecks))
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 💬 Chat & Sessões
		// POST /v1/chat
		// POST|GET|DELETE /v1/sessions
		// =============================================
		if deps.Chat != nil && deps.Sessions != nil {
			r.Group(func(r chi.Router) {
				r.Use(chathandler.SessionMiddleware(deps.Sessions, logger))

				r.With(RateLimitMiddleware(deps.ChatRateLimit, deps.ChatRateBurst, logger)).
					Post("/chat", chathandler.ChatHandler(deps.Chat, logger))

				r.Post("/sessions", chathandler.CreateSessionHandler(deps.Sessions, logger))
				r.Get("/sessions/{sessionId}", chathandler.GetSessionHandler(deps.Sessions, logger))
				r.Delete("/sessions/{sessionId}", chathandler.DeleteSessionHandler(deps.Sessions, logger))
			})
		}

		// =============================================
		// 2. 💳 Pagamentos & Planos
		// =============================================
		if deps.Payments != nil {
			r.Post("/payments", createPaymentHandler(deps.Payments, logger))
			r.Get("/payments/{transactionId}/status", paymentStatusHandler(deps.Payments, logger))
			r.Post("/payments/{transactionId}/refund", refundHandler(deps.Payments, logger))
			r.Get("/payments/{transactionId}/qrcode.png", qrCodeHandler(deps.Payments, logger))

			r.Get("/plans", listPlansHandler(deps.Payments))
			r.Get("/plans/{planId}", getPlanHandler(deps.Payments, logger))
		}

		// =============================================
		// 3. 📊 Métricas
		// GET /v1/metrics/assistant
		// =============================================
		if deps.Metrics != nil {
			r.Get("/metrics/assistant", assistantMetricsHandler(deps.Metrics))
		}
	})

	return r
}
