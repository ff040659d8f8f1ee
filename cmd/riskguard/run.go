package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfx-labs/riskguard/internal/config"
	"github.com/openfx-labs/riskguard/internal/control"
	"github.com/openfx-labs/riskguard/internal/journal"
	"github.com/openfx-labs/riskguard/internal/logger"
	"github.com/openfx-labs/riskguard/internal/monitoring"
	"github.com/openfx-labs/riskguard/internal/notifications"
	"github.com/openfx-labs/riskguard/internal/state"
	"github.com/openfx-labs/riskguard/pkg/reporting"
	"github.com/openfx-labs/riskguard/pkg/types"
)

var apiPort int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the risk control plane",
	Long: `Starts the control plane with its ingestion API, health endpoint,
and Prometheus metrics. Trade-closure events and trade intents arrive
over HTTP from the execution collaborator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runPlane(cfg)
	},
}

func init() {
	runCmd.Flags().IntVar(&apiPort, "api-port", 8090, "ingestion API port")
}

func runPlane(cfg *config.Config) error {
	log, err := logger.NewLogger(cfg.Account)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Close()

	opts := []control.Option{control.WithLogger(log)}

	if cfg.Journal.Enabled {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, control.WithJournal(j))
	}

	persist := state.NewPersistence(cfg.StateDir, cfg.Account)
	if err := persist.Initialize(); err != nil {
		return err
	}
	opts = append(opts, control.WithPersistence(persist))

	health := monitoring.NewHealthChecker()
	opts = append(opts, control.WithHealthChecker(health))

	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		opts = append(opts, control.WithNotifier(
			notifications.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)))
	}

	plane, err := control.NewPlane(cfg, opts...)
	if err != nil {
		return err
	}

	if persist.Exists() {
		if err := plane.Restore(); err != nil {
			log.Warning("snapshot restore failed, starting fresh: %v", err)
		}
	}

	healthSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Monitoring.HealthPort),
		Handler: health,
	}
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler: monitoring.NewMetricsHandler(),
	}
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", apiPort),
		Handler: newAPIHandler(plane),
	}

	for name, srv := range map[string]*http.Server{
		"health": healthSrv, "metrics": metricsSrv, "api": apiSrv,
	} {
		go func(name string, srv *http.Server) {
			log.Info("%s server listening on %s", name, srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("%s server failed: %v", name, err)
			}
		}(name, srv)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{apiSrv, healthSrv, metricsSrv} {
		_ = srv.Shutdown(ctx)
	}

	if err := plane.Checkpoint(); err != nil {
		log.Error("final checkpoint failed: %v", err)
	}

	console := reporting.NewConsoleReporter()
	console.PrintPortfolioSummary(plane.PortfolioSummary())
	console.PrintMonitorMetrics(plane.MonitorMetrics())
	console.PrintRegimeStats(plane.RegimeStats())
	return nil
}

type apiHandler struct {
	plane *control.Plane
	mux   *http.ServeMux
}

func newAPIHandler(plane *control.Plane) *apiHandler {
	h := &apiHandler{plane: plane, mux: http.NewServeMux()}
	h.mux.HandleFunc("/v1/trades", h.handleTrade)
	h.mux.HandleFunc("/v1/intents", h.handleIntent)
	h.mux.HandleFunc("/v1/candles", h.handleCandle)
	h.mux.HandleFunc("/v1/summary", h.handleSummary)
	h.mux.HandleFunc("/v1/override", h.handleOverride)
	h.mux.HandleFunc("/v1/resume", h.handleResume)
	return h
}

func (h *apiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleTrade ingests a trade-closure event.
func (h *apiHandler) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var trade types.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.plane.OnTradeClosed(trade); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, h.plane.MonitorMetrics())
}

// handleIntent runs a proposed entry through admission.
func (h *apiHandler) handleIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var intent struct {
		Strategy      string  `json:"strategy"`
		StrategyType  string  `json:"strategy_type"`
		Pair          string  `json:"pair"`
		RiskAmount    float64 `json:"risk_amount"`
		PositionValue float64 `json:"position_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	decision := h.plane.Admit(control.TradeIntent{
		Strategy:      intent.Strategy,
		StrategyType:  types.StrategyType(intent.StrategyType),
		Pair:          intent.Pair,
		RiskAmount:    intent.RiskAmount,
		PositionValue: intent.PositionValue,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"approved":        decision.Approved,
		"reason":          decision.Reason,
		"size_multiplier": decision.SizeMultiplier,
	})
}

// handleCandle feeds a market bar to the pair's regime classifier.
func (h *apiHandler) handleCandle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Pair   string      `json:"pair"`
		Candle types.OHLCV `json:"candle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sample := h.plane.OnCandle(payload.Pair, payload.Candle)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"regime":  sample.Regime.String(),
		"adx":     sample.ADX,
		"atr_pct": sample.ATRPct,
	})
}

// handleSummary returns the full control-plane snapshot.
func (h *apiHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": h.plane.PortfolioSummary(),
		"monitor":   h.plane.MonitorMetrics(),
		"capital":   h.plane.CapitalSummary(),
		"regimes":   h.plane.RegimeStats(),
	})
}

// handleOverride toggles the manual kill-switch bypass.
func (h *apiHandler) handleOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if payload.Enabled {
		h.plane.EnableManualOverride()
	} else {
		h.plane.DisableManualOverride()
	}
	writeJSON(w, http.StatusOK, h.plane.MonitorMetrics())
}

// handleResume force-resumes trading after a halt.
func (h *apiHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.plane.ForceResume() {
		http.Error(w, "manual override not active", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, h.plane.MonitorMetrics())
}
