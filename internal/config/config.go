package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool

	// Sessions
	SessionBackend  string // "memory" | "redis"
	SessionTTL      time.Duration
	SessionTokenTTL time.Duration
	JWTSecret       string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Ledger de transações
	LedgerBackend string // "memory" | "sqlite"
	SQLiteDSN     string

	// Gateway de pagamento (simulado)
	PaymentGateway       string // "mock" | "mercadopago"
	PaymentAPISecret     string // checksum PIX; vazio usa gateway.DefaultSecret
	PaymentSimulateError bool
	PaymentFallbackEmail string
	StatusApprovalRate   float64
	StrictCardValidation bool

	// NLU
	OpenAIAPIKey      string
	OpenAIModel       string
	NLUTimeout        time.Duration
	NLUBreakerTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Notificações
	NotifyTimeout      time.Duration
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	MailFrom           string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	// Rate limit do chat (req/s por IP)
	ChatRateLimit float64
	ChatRateBurst int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),

		SessionBackend:  strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionTTL:      getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionTokenTTL: getEnvDuration("SESSION_TOKEN_TTL", 24*time.Hour),
		JWTSecret:       getEnv("JWT_SECRET", "plan-assistant-dev-secret-change-me"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", "memory")),
		SQLiteDSN:     getEnv("SQLITE_DSN", "data/ledger.db"),

		PaymentGateway:       strings.ToLower(getEnv("PAYMENT_GATEWAY", "mock")),
		PaymentAPISecret:     getEnv("PAYMENT_API_SECRET", ""),
		PaymentSimulateError: getEnvBool("PAYMENT_SIMULATE_ERROR", false),
		PaymentFallbackEmail: getEnv("PAYMENT_FALLBACK_EMAIL", "cliente@assistentepagamentos.com"),
		StatusApprovalRate:   getEnvFloat("STATUS_APPROVAL_RATE", 0.5),
		StrictCardValidation: getEnvBool("STRICT_CARD_VALIDATION", false),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		NLUTimeout:        getEnvDuration("NLU_TIMEOUT", 8*time.Second),
		NLUBreakerTimeout: getEnvDuration("NLU_BREAKER_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		NotifyTimeout:      getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		MailFrom:           getEnv("MAIL_FROM", "contato@assistentepagamentos.com"),
		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom: getEnv("TWILIO_WHATSAPP_FROM", ""),

		ChatRateLimit: getEnvFloat("CHAT_RATE_LIMIT", 5),
		ChatRateBurst: getEnvInt("CHAT_RATE_BURST", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
