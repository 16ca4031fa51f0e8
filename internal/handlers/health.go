package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"autogallery/internal/startup"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Sweeping       bool   `json:"sweeping"`
	SweepScheduled bool   `json:"sweepScheduled"`
	Remaining      int64  `json:"remaining"`
	LastSweep      string `json:"lastSweep,omitempty"`
	Degraded       bool   `json:"degraded"`
	Ledger         bool   `json:"ledger"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports readiness plus sweep state. A pass that lost cache
// writes reports "degraded" but stays 200: listings still work.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.scheduler.Status(h.root)
	ready := h.ready()

	response := HealthResponse{
		Status:         statusHealthy,
		Ready:          ready,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Sweeping:       status.Running,
		SweepScheduled: status.Scheduled,
		Remaining:      status.Remaining,
		Degraded:       status.Degraded,
		Ledger:         h.db != nil,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}
	if status.Last != nil {
		response.LastSweep = status.Last.FinishedAt.Format(time.RFC3339)
	}

	code := http.StatusOK
	switch {
	case !ready:
		response.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
	case status.Degraded:
		response.Status = statusDegraded
	}
	writeJSONStatus(w, code, response)
}

// LivenessCheck is a simple liveness check (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 once both trees are reachable.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready() {
		writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func (h *Handlers) ready() bool {
	for _, dir := range []string{h.root.Source, h.root.Cache} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}
