package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// AssistantMetrics is returned by GET /v1/metrics/assistant.
type AssistantMetrics struct {
	ChatMessages        int64            `json:"chatMessages"`
	MessagesByIntent    map[string]int64 `json:"messagesByIntent"`
	NLUFallbacks        int64            `json:"nluFallbacks"`
	FallbackRate        float64          `json:"fallbackRate"`
	PromptTokens        int64            `json:"promptTokens"`
	CompletionTokens    int64            `json:"completionTokens"`
	EstimatedCostUsd    float64          `json:"estimatedCostUsd"`
	PaymentsByStatus    map[string]int64 `json:"paymentsByStatus"`
	NotificationsFailed int64            `json:"notificationsFailed"`
	SessionCacheHitRate float64          `json:"sessionCacheHitRate"`
	Period              string           `json:"period"`
}
