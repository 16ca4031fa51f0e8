package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"autogallery/internal/database"
	"autogallery/internal/logging"
	"autogallery/internal/sweep"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// GetProgress returns the number of entries left in the current pass as
// plain text, the same value the progress file holds.
func (h *Handlers) GetProgress(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, "%d\n", h.scheduler.Remaining(h.root))
}

// GetSweepStatus returns the scheduler's view of the root.
func (h *Handlers) GetSweepStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatus(w, http.StatusOK, h.scheduler.Status(h.root))
}

// TriggerSweep starts a pass now. It answers 409 while one is running and
// 503 once the scheduler has stopped.
func (h *Handlers) TriggerSweep(w http.ResponseWriter, _ *http.Request) {
	err := h.scheduler.Trigger(h.root)
	if errors.Is(err, sweep.ErrAlreadyRunning) {
		writeJSONStatus(w, http.StatusConflict, map[string]string{"status": "running"})
		return
	}
	if errors.Is(err, sweep.ErrStopped) {
		writeJSONError(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		logging.Error("failed to trigger sweep: %v", err)
		writeJSONError(w, "Failed to trigger sweep", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HistoryResponse is the recent sweep history.
type HistoryResponse struct {
	Runs     []database.SweepRun `json:"runs"`
	Failures int64               `json:"failures"`
}

// GetSweepHistory returns recorded passes, newest first, and how many
// images are in the failure ledger.
func (h *Handlers) GetSweepHistory(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSONError(w, "Sweep history unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.db.RecentSweeps(r.Context(), limit)
	if err != nil {
		logging.Error("failed to load sweep history: %v", err)
		writeJSONError(w, "Failed to load sweep history", http.StatusInternalServerError)
		return
	}
	failures, err := h.db.FailureCount(r.Context())
	if err != nil {
		logging.Warn("failed to count thumbnail failures: %v", err)
	}

	if runs == nil {
		runs = []database.SweepRun{}
	}
	writeJSONStatus(w, http.StatusOK, HistoryResponse{Runs: runs, Failures: failures})
}
