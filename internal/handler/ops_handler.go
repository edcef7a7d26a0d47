package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/observability"
	"github.com/boddenberg/plan-assistant-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Métricas & Health
// ============================================================

const healthCheckTimeout = 2 * time.Second

// checkDependencies pinga cada backend em paralelo.
func checkDependencies(ctx context.Context, checks map[string]port.HealthChecker) []domain.ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.ServiceHealth, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			start := time.Now()
			err := checks[name].Ping(ctx)
			h := domain.ServiceHealth{
				Name:        name,
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: time.Now().Format(time.RFC3339),
			}
			if err != nil {
				h.Status = "unhealthy"
				h.Error = err.Error()
			}
			out[i] = h
			return nil
		})
	}
	g.Wait()
	return out
}

func overallStatus(services []domain.ServiceHealth) string {
	status := "healthy"
	for _, s := range services {
		if s.Status == "unhealthy" {
			return "unhealthy"
		}
		if s.Status == "degraded" {
			status = "degraded"
		}
	}
	return status
}

// healthzHandler é o liveness: sempre 200, com o estado das dependências.
func healthzHandler(checks map[string]port.HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := append([]domain.ServiceHealth{{
			Name:        "plan-assistant",
			Status:      "healthy",
			LastChecked: time.Now().Format(time.RFC3339),
		}}, checkDependencies(r.Context(), checks)...)

		status := overallStatus(services)
		if status != "healthy" {
			status = "degraded"
			logger.Warn("dependency unhealthy", zap.Any("services", services))
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: status, Services: services})
	}
}

// readyzHandler responde 503 enquanto algum backend não responder.
func readyzHandler(checks map[string]port.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := checkDependencies(r.Context(), checks)
		status := overallStatus(services)
		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{Status: status, Services: services})
	}
}

func assistantMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAssistantSnapshot())
	}
}
