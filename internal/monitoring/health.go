package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

type HealthChecker struct {
	mu             sync.RWMutex
	lastTrade      time.Time
	tradingEnabled bool
	shutdownReason string
	errors         []string
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastTrade      time.Time `json:"last_trade"`
	TradingEnabled bool      `json:"trading_enabled"`
	ShutdownReason string    `json:"shutdown_reason,omitempty"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		tradingEnabled: true,
		errors:         make([]string, 0),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.tradingEnabled {
		status = "halted"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastTrade:      h.lastTrade,
		TradingEnabled: h.tradingEnabled,
		ShutdownReason: h.shutdownReason,
		Uptime:         time.Since(startTime).String(),
		Errors:         h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// UpdateTrade records the latest processed trade time
func (h *HealthChecker) UpdateTrade(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTrade = at
}

// SetTradingState reflects the kill-switch state in health reporting
func (h *HealthChecker) SetTradingState(enabled bool, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tradingEnabled = enabled
	h.shutdownReason = reason
}

// RecordError appends an error to the health report
func (h *HealthChecker) RecordError(err string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.errors = append(h.errors, err)
	if len(h.errors) > 10 {
		h.errors = h.errors[1:]
	}
}

// ClearErrors resets the health error list
func (h *HealthChecker) ClearErrors() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = h.errors[:0]
}
