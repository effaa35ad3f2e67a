package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/mstgnz/cardgate/infra/config"
	"github.com/mstgnz/cardgate/infra/response"
)

const serviceVersion = "1.0.0"

// ProviderLister reports which gateways are ready to take traffic.
type ProviderLister interface {
	ProviderNames() []string
}

// HealthHandler handles health check requests
type HealthHandler struct {
	paymentService ProviderLister
	auditEnabled   bool
	startTime      time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string        `json:"status"`
	Version     string        `json:"version"`
	Timestamp   time.Time     `json:"timestamp"`
	Uptime      string        `json:"uptime"`
	Environment string        `json:"environment"`
	Providers   []string      `json:"providers"`
	Audit       bool          `json:"auditEnabled"`
	System      *SystemHealth `json:"system"`
}

// SystemHealth represents process resource usage
type SystemHealth struct {
	Alloc      string `json:"alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
	GoRoutines int    `json:"goroutines"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(paymentService ProviderLister, auditEnabled bool) *HealthHandler {
	return &HealthHandler{
		paymentService: paymentService,
		auditEnabled:   auditEnabled,
		startTime:      time.Now(),
	}
}

// CheckHealth reports "healthy" when at least one provider is configured and
// "degraded" otherwise. Both answer 200 so load balancers keep routing card
// tool requests, which need no gateway.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:      "healthy",
		Version:     serviceVersion,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: config.GetAppConfig().Environment,
		Providers:   []string{},
		Audit:       h.auditEnabled,
		System:      checkSystemHealth(),
	}

	if h.paymentService != nil {
		health.Providers = h.paymentService.ProviderNames()
	}
	if len(health.Providers) == 0 {
		health.Status = "degraded"
	}

	response.Success(w, http.StatusOK, fmt.Sprintf("Service is %s", health.Status), health)
}

func checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Alloc:      formatBytes(memStats.Alloc),
		Sys:        formatBytes(memStats.Sys),
		GCRuns:     memStats.NumGC,
		GoRoutines: runtime.NumGoroutine(),
	}
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
