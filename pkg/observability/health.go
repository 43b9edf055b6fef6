package observability

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// HealthChecker reports on a watch session: alive once started, ready once
// the first full lint pass has finished.
type HealthChecker struct {
	mu       sync.RWMutex
	started  time.Time
	lastRun  time.Time
	files    int
	lastErr  error
	runCount int
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	LastRun   time.Time `json:"last_run,omitempty"`
	Runs      int       `json:"runs"`
	Files     int       `json:"files"`
	Message   string    `json:"message,omitempty"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{started: time.Now()}
}

// RecordRun notes a finished lint pass over files
func (h *HealthChecker) RecordRun(files int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun = time.Now()
	h.files = files
	h.lastErr = err
	h.runCount++
}

// Check returns the current status
func (h *HealthChecker) Check() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		LastRun:   h.lastRun,
		Runs:      h.runCount,
		Files:     h.files,
	}

	switch {
	case h.runCount == 0:
		status.Status = StatusUnhealthy
		status.Message = "initial lint pass has not finished"
	case h.lastErr != nil:
		status.Status = StatusDegraded
		status.Message = h.lastErr.Error()
	}

	return status
}

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns 503 until the first lint pass completes
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(router *mux.Router, checker *HealthChecker) {
	router.HandleFunc("/health", checker.Readiness).Methods("GET")
	router.HandleFunc("/health/live", checker.Liveness).Methods("GET")
	router.HandleFunc("/health/ready", checker.Readiness).Methods("GET")
}
