package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfx-labs/riskguard/internal/capital"
	"github.com/openfx-labs/riskguard/internal/config"
	"github.com/openfx-labs/riskguard/internal/journal"
	"github.com/openfx-labs/riskguard/internal/monitor"
	"github.com/openfx-labs/riskguard/internal/portfolio"
	"github.com/openfx-labs/riskguard/internal/state"
	"github.com/openfx-labs/riskguard/pkg/reporting"
	"github.com/openfx-labs/riskguard/pkg/types"
)

var xlsxPath string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the latest persisted snapshot",
	Long: `Loads the most recent state snapshot and the trade journal and
renders portfolio, monitor, and capital summaries as console tables.
With --xlsx the full report is also written as a workbook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runReport(cfg)
	},
}

func init() {
	reportCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the report to this xlsx path")
}

func runReport(cfg *config.Config) error {
	persist := state.NewPersistence(cfg.StateDir, cfg.Account)
	if !persist.Exists() {
		return fmt.Errorf("no snapshot found in %s for account %s", cfg.StateDir, cfg.Account)
	}

	snap, err := persist.Load()
	if err != nil {
		return err
	}

	coordinator, err := portfolio.NewCoordinator(portfolio.Config{
		TotalCapital:           cfg.Portfolio.TotalCapital,
		AllocationWeights:      cfg.Portfolio.AllocationWeights,
		MaxPortfolioRiskPct:    cfg.Portfolio.MaxPortfolioRiskPct,
		MaxCorrelationExposure: cfg.Portfolio.MaxCorrelationExposure,
		GBPCorrelationWeight:   cfg.Portfolio.GBPCorrelationWeight,
	})
	if err != nil {
		return fmt.Errorf("portfolio: %w", err)
	}
	coordinator.Restore(snap.Portfolio)

	killSwitch := monitor.NewKillSwitch(monitor.Config{
		MaxConsecutiveLossDays: cfg.Monitor.MaxConsecutiveLossDays,
		MaxDrawdownPct:         cfg.Monitor.MaxDrawdownPct,
		MinSharpeRatio:         cfg.Monitor.MinSharpeRatio,
		MinWinRatePct:          cfg.Monitor.MinWinRatePct,
		AlertThresholds:        cfg.Monitor.AlertThresholds,
	})
	killSwitch.Restore(snap.Monitor)

	scaler := capital.NewScaler(capital.Config{
		InitialCapital: cfg.Portfolio.TotalCapital,
		WithdrawalPct:  cfg.Capital.WithdrawalPct,
		MinSharpeToAdd: cfg.Capital.MinSharpeToAdd,
		MinMonthsToAdd: cfg.Capital.MinMonthsToAdd,
	})
	scaler.Restore(snap.Capital)

	summary := coordinator.Summary()
	console := reporting.NewConsoleReporter()
	console.PrintPortfolioSummary(summary)
	console.PrintMonitorMetrics(killSwitch.Metrics())
	console.PrintCapitalSummary(scaler.Summary())

	if len(snap.Monitor.Alerts) > 0 {
		console.PrintAlerts(snap.Monitor.Alerts, 10)
	}

	if xlsxPath == "" {
		return nil
	}

	var trades []types.Trade
	if cfg.Journal.Enabled {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer j.Close()

		for name := range snap.Portfolio.Strategies {
			strategyTrades, err := j.ListTradesByStrategy(name)
			if err != nil {
				return err
			}
			trades = append(trades, strategyTrades...)
		}
	} else {
		trades = snap.Portfolio.Trades
	}

	err = reporting.NewExcelReporter().WriteReport(summary, trades, snap.Capital.WithdrawalHistory, xlsxPath)
	if err != nil {
		return err
	}
	fmt.Printf("report written to %s\n", xlsxPath)
	return nil
}
