package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trade flow metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskguard_trades_total",
			Help: "Total number of closed trades processed",
		},
		[]string{"strategy", "outcome"},
	)

	tradeProfit = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskguard_trade_profit",
			Help:    "Distribution of per-trade profit",
			Buckets: []float64{-50, -20, -10, -5, 0, 5, 10, 20, 50, 100},
		},
		[]string{"strategy"},
	)

	// Admission metrics
	admissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskguard_admissions_total",
			Help: "Trade intent admission decisions",
		},
		[]string{"strategy", "decision"},
	)

	// Portfolio metrics
	totalCapital = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskguard_total_capital",
			Help: "Current portfolio capital",
		},
	)

	drawdownPct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskguard_drawdown_pct",
			Help: "Current drawdown from peak balance, percent",
		},
	)

	sharpeRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskguard_sharpe_ratio",
			Help: "Annualized Sharpe ratio over the trailing daily PnL window",
		},
	)

	tradingEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskguard_trading_enabled",
			Help: "1 while the kill switch permits trading, 0 after a halt",
		},
	)

	// Alert metrics
	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskguard_alerts_total",
			Help: "Alerts raised by the monitor",
		},
		[]string{"level"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeProfit)
	prometheus.MustRegister(admissionsTotal)
	prometheus.MustRegister(totalCapital)
	prometheus.MustRegister(drawdownPct)
	prometheus.MustRegister(sharpeRatio)
	prometheus.MustRegister(tradingEnabled)
	prometheus.MustRegister(alertsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records a closed trade
func RecordTrade(strategy, outcome string, profit float64) {
	tradesTotal.WithLabelValues(strategy, outcome).Inc()
	tradeProfit.WithLabelValues(strategy).Observe(profit)
}

// RecordAdmission records an admission decision ("approved"/"denied")
func RecordAdmission(strategy, decision string) {
	admissionsTotal.WithLabelValues(strategy, decision).Inc()
}

// UpdateCapital updates the portfolio capital gauge
func UpdateCapital(capital float64) {
	totalCapital.Set(capital)
}

// UpdateDrawdown updates the drawdown gauge
func UpdateDrawdown(pct float64) {
	drawdownPct.Set(pct)
}

// UpdateSharpe updates the Sharpe ratio gauge
func UpdateSharpe(sharpe float64) {
	sharpeRatio.Set(sharpe)
}

// SetTradingEnabled reflects the kill-switch state
func SetTradingEnabled(enabled bool) {
	if enabled {
		tradingEnabled.Set(1)
	} else {
		tradingEnabled.Set(0)
	}
}

// RecordAlert counts a raised alert by level
func RecordAlert(level string) {
	alertsTotal.WithLabelValues(level).Inc()
}
