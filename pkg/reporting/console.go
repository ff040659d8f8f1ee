package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/openfx-labs/riskguard/internal/capital"
	"github.com/openfx-labs/riskguard/internal/monitor"
	"github.com/openfx-labs/riskguard/internal/portfolio"
	"github.com/openfx-labs/riskguard/internal/regime"
)

// ConsoleReporter renders control-plane snapshots as terminal tables.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a reporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// PrintPortfolioSummary renders the portfolio snapshot.
func (r *ConsoleReporter) PrintPortfolioSummary(s portfolio.Summary) {
	t := r.newTable("PORTFOLIO SUMMARY")
	t.AppendRows([]table.Row{
		{"Total Capital", fmt.Sprintf("$%.2f", s.TotalCapital)},
		{"Initial Capital", fmt.Sprintf("$%.2f", s.InitialCapital)},
		{"Peak Capital", fmt.Sprintf("$%.2f", s.PeakCapital)},
		{"Total Trades", s.Metrics.TotalTrades},
		{"Win Rate", fmt.Sprintf("%.2f%%", s.Metrics.WinRate)},
		{"Profit Factor", fmt.Sprintf("%.3f", s.Metrics.ProfitFactor)},
		{"Return", fmt.Sprintf("%.2f%%", s.Metrics.ReturnPct)},
		{"Current Drawdown", fmt.Sprintf("$%.2f", s.Metrics.CurrentDrawdown)},
		{"Risk Used", fmt.Sprintf("%.1f%% of capital", s.RiskStatus.TotalRiskPct*100)},
		{"EUR Exposure", fmt.Sprintf("%.1f%% of capital", s.RiskStatus.EURExposurePct*100)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 22, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Fprintln(r.out)

	r.printStrategies(s)
}

func (r *ConsoleReporter) printStrategies(s portfolio.Summary) {
	names := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	t := r.newTable("STRATEGIES")
	t.AppendHeader(table.Row{"Strategy", "Balance", "Profit", "Trades", "Win Rate", "Drawdown", "Active"})
	for _, name := range names {
		strat := s.Strategies[name]
		t.AppendRow(table.Row{
			name,
			fmt.Sprintf("$%.2f", strat.CurrentBalance),
			fmt.Sprintf("$%.2f", strat.Profit),
			strat.TotalTrades,
			fmt.Sprintf("%.1f%%", strat.WinRate()),
			fmt.Sprintf("$%.2f", strat.Drawdown),
			strat.Active,
		})
	}
	t.Render()
	fmt.Fprintln(r.out)
}

// PrintMonitorMetrics renders the kill-switch snapshot.
func (r *ConsoleReporter) PrintMonitorMetrics(m monitor.Metrics) {
	status := "ENABLED"
	if !m.TradingEnabled {
		status = "HALTED: " + m.ShutdownReason
	}

	t := r.newTable("MONITOR")
	t.AppendRows([]table.Row{
		{"Trading", status},
		{"Manual Override", m.ManualOverride},
		{"Consecutive Loss Days", m.ConsecutiveLossDays},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"Win Rate", fmt.Sprintf("%.1f%%", m.WinRate)},
		{"Profit Factor", fmt.Sprintf("%.2f", m.ProfitFactor)},
		{"Drawdown", fmt.Sprintf("$%.2f (%.1f%%)", m.Drawdown, m.DrawdownPct)},
		{"Today PnL", fmt.Sprintf("$%.2f", m.TodayPnL)},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

// PrintCapitalSummary renders the capital management snapshot.
func (r *ConsoleReporter) PrintCapitalSummary(s capital.Summary) {
	t := r.newTable("CAPITAL MANAGEMENT")
	t.AppendRows([]table.Row{
		{"Current Capital", fmt.Sprintf("$%.2f", s.CurrentCapital)},
		{"Peak Capital", fmt.Sprintf("$%.2f", s.PeakCapital)},
		{"Total Withdrawn", fmt.Sprintf("$%.2f", s.TotalWithdrawn)},
		{"Total Added", fmt.Sprintf("$%.2f", s.TotalAdded)},
		{"Total Value", fmt.Sprintf("$%.2f", s.TotalValue)},
		{"Capital ROI", fmt.Sprintf("%.2f%%", s.CapitalROIPct)},
		{"Total Value ROI", fmt.Sprintf("%.2f%%", s.TotalValueROIPct)},
		{"Size Multiplier", fmt.Sprintf("%.2fx", s.PositionSizeMultiplier)},
		{"Months Tracked", s.MonthsTracked},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

// PrintRegimeStats renders per-pair regime distribution.
func (r *ConsoleReporter) PrintRegimeStats(stats map[string]regime.Stats) {
	pairs := make([]string, 0, len(stats))
	for pair := range stats {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	t := r.newTable("REGIME DISTRIBUTION")
	t.AppendHeader(table.Row{"Pair", "Bars", "Trending", "Ranging", "Choppy", "Unknown"})
	for _, pair := range pairs {
		s := stats[pair]
		t.AppendRow(table.Row{
			pair,
			s.TotalBars,
			fmt.Sprintf("%.1f%%", s.TrendingPct),
			fmt.Sprintf("%.1f%%", s.RangingPct),
			fmt.Sprintf("%.1f%%", s.ChoppyPct),
			fmt.Sprintf("%.1f%%", s.UnknownPct),
		})
	}
	t.Render()
	fmt.Fprintln(r.out)
}

// PrintAlerts renders the most recent alerts, newest last.
func (r *ConsoleReporter) PrintAlerts(alerts []monitor.Alert, limit int) {
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}

	t := r.newTable("ALERTS")
	t.AppendHeader(table.Row{"Time", "Level", "Message", "Balance"})
	for _, a := range alerts {
		t.AppendRow(table.Row{
			a.Timestamp.Format("2006-01-02 15:04"),
			string(a.Level),
			a.Message,
			fmt.Sprintf("$%.2f", a.Balance),
		})
	}
	t.Render()
	fmt.Fprintln(r.out)
}
