package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/catalog"
	"github.com/boddenberg/plan-assistant-go/internal/chat/infra/nlu"
	chatport "github.com/boddenberg/plan-assistant-go/internal/chat/port"
	chatservice "github.com/boddenberg/plan-assistant-go/internal/chat/service"
	"github.com/boddenberg/plan-assistant-go/internal/config"
	"github.com/boddenberg/plan-assistant-go/internal/handler"
	"github.com/boddenberg/plan-assistant-go/internal/infra/gateway"
	"github.com/boddenberg/plan-assistant-go/internal/infra/keylock"
	"github.com/boddenberg/plan-assistant-go/internal/infra/ledger"
	"github.com/boddenberg/plan-assistant-go/internal/infra/notify"
	"github.com/boddenberg/plan-assistant-go/internal/infra/observability"
	"github.com/boddenberg/plan-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/plan-assistant-go/internal/infra/session"
	"github.com/boddenberg/plan-assistant-go/internal/port"
	"github.com/boddenberg/plan-assistant-go/internal/service"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const serviceName = "plan-assistant"

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, serviceName)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.String("ledger_backend", cfg.LedgerBackend),
		zap.String("payment_gateway", cfg.PaymentGateway),
		zap.Bool("payment_simulate_error", cfg.PaymentSimulateError),
		zap.Bool("openai_enabled", cfg.OpenAIAPIKey != ""),
		zap.Duration("nlu_timeout", cfg.NLUTimeout),
		zap.Bool("strict_card_validation", cfg.StrictCardValidation),
	)

	// --- Tracing ---
	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, serviceName)
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()
	breakerOpts := resilience.BreakerOptions{
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, from, to)
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	healthChecks := map[string]port.HealthChecker{}

	// --- Ledger ---
	var txLedger port.TransactionLedger
	switch cfg.LedgerBackend {
	case "sqlite":
		sqliteLedger, err := ledger.NewSQLite(cfg.SQLiteDSN)
		if err != nil {
			logger.Fatal("failed to open sqlite ledger", zap.String("dsn", cfg.SQLiteDSN), zap.Error(err))
		}
		defer sqliteLedger.Close()
		txLedger = sqliteLedger
		healthChecks["ledger"] = sqliteLedger
		logger.Info("using SQLite transaction ledger", zap.String("dsn", cfg.SQLiteDSN))
	default:
		memLedger := ledger.NewMemory()
		txLedger = memLedger
		healthChecks["ledger"] = memLedger
	}

	// --- Session store ---
	var sessions chatport.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		redisStore := session.NewRedis(session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.SessionTTL)
		defer redisStore.Close()
		sessions = redisStore
		healthChecks["sessions"] = redisStore
		logger.Info("using Redis session store", zap.String("addr", cfg.RedisAddr))
	default:
		memStore := session.NewMemory(cfg.SessionTTL)
		defer memStore.Close()
		sessions = memStore
		healthChecks["sessions"] = memStore
	}

	// --- Payment gateway ---
	gw := gateway.New(cfg.PaymentGateway, txLedger, gateway.Options{
		Secret:        cfg.PaymentAPISecret,
		SimulateError: cfg.PaymentSimulateError,
		Coin:          gateway.NewRandomCoin(time.Now().UnixNano(), cfg.StatusApprovalRate),
		Logger:        logger.Named("gateway"),
		Breaker:       resilience.NewCircuitBreakerWith(gateway.NameMercadoPago, breakerOpts),
		Retry:         resilienceCfg,
	})

	// --- Notifiers ---
	var email port.Notifier = notify.NewLogNotifier(notify.ChannelEmail, logger)
	if cfg.SMTPHost != "" {
		email = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		logger.Info("smtp notifier enabled", zap.String("host", cfg.SMTPHost))
	}
	var whatsapp port.Notifier = notify.NewLogNotifier(notify.ChannelWhatsApp, logger)
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioWhatsAppFrom != "" {
		client := notify.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
		whatsapp = notify.NewWhatsAppNotifier(client.Api, cfg.TwilioWhatsAppFrom,
			resilience.NewCircuitBreakerWith("twilio", breakerOpts))
		logger.Info("twilio whatsapp notifier enabled")
	}
	dispatcher := notify.NewDispatcher(email, whatsapp, cfg.NotifyTimeout, metrics, logger.Named("notify"))

	// --- NLU ---
	cat := catalog.New()
	var remote chatport.Oracle
	if cfg.OpenAIAPIKey != "" {
		remote = nlu.NewOpenAI(nlu.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, cat, metrics)
	} else {
		logger.Warn("OPENAI_API_KEY not set, using local rules only")
	}
	oracle := nlu.NewResilient(remote, nlu.NewRules(), nlu.ResilientOptions{
		Timeout: cfg.NLUTimeout,
		Breaker: resilience.NewCircuitBreakerWith("nlu", resilience.BreakerOptions{
			Timeout:       cfg.NLUBreakerTimeout,
			OnStateChange: breakerOpts.OnStateChange,
		}),
		MaxConcurrency: cfg.MaxConcurrency,
		Metrics:        metrics,
		Logger:         logger.Named("nlu"),
	})

	// --- Services ---
	payments := service.NewPaymentService(cat, gw, txLedger, dispatcher, cfg.PaymentFallbackEmail, metrics, logger)
	dialog := chatservice.NewDialog(cat, payments, oracle, chatservice.DialogOptions{
		StrictCardValidation: cfg.StrictCardValidation,
	}, logger)
	locks := keylock.New()
	chatSvc := chatservice.NewChatService(sessions, locks, oracle, dialog, metrics, logger)
	sessionSvc := chatservice.NewSessionService(sessions, locks, cfg.JWTSecret, cfg.SessionTokenTTL, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Chat:          chatSvc,
		Sessions:      sessionSvc,
		Payments:      payments,
		Metrics:       metrics,
		HealthChecks:  healthChecks,
		ChatRateLimit: cfg.ChatRateLimit,
		ChatRateBurst: cfg.ChatRateBurst,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
