package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/openfx-labs/riskguard/internal/capital"
	"github.com/openfx-labs/riskguard/internal/portfolio"
	"github.com/openfx-labs/riskguard/pkg/types"
)

// ExcelReporter writes portfolio and capital reports as workbooks.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
}

// WriteReport writes the trade ledger, strategy breakdown, and
// withdrawal history to an xlsx workbook at path.
func (r *ExcelReporter) WriteReport(summary portfolio.Summary, trades []types.Trade,
	withdrawals []capital.WithdrawalRecord, path string) error {

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const strategiesSheet = "Strategies"
	const withdrawalsSheet = "Withdrawals"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(strategiesSheet)
	fx.NewSheet(withdrawalsSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, trades, styles); err != nil {
		return err
	}
	if err := r.writeStrategiesSheet(fx, strategiesSheet, summary, styles); err != nil {
		return err
	}
	if err := r.writeWithdrawalsSheet(fx, withdrawalsSheet, withdrawals, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []types.Trade, styles excelStyles) error {
	headers := []string{"ID", "Strategy", "Pair", "Side", "Entry Time", "Exit Time",
		"Entry Price", "Exit Price", "Profit", "Outcome", "Risk"}
	if err := r.writeHeader(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, t := range trades {
		row := i + 2
		values := []interface{}{
			t.ID, t.StrategyID, t.Pair, string(t.Side),
			t.EntryTime.Format("2006-01-02 15:04"), t.ExitTime.Format("2006-01-02 15:04"),
			t.EntryPrice, t.ExitPrice, t.Profit, string(t.Outcome), t.RiskAmount,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		profitCell, _ := excelize.CoordinatesToCellName(9, row)
		_ = fx.SetCellStyle(sheet, profitCell, profitCell, styles.currency)
	}
	return nil
}

func (r *ExcelReporter) writeStrategiesSheet(fx *excelize.File, sheet string, summary portfolio.Summary, styles excelStyles) error {
	headers := []string{"Strategy", "Allocated", "Balance", "Profit", "Trades", "Wins", "Losses", "Win Rate %", "Drawdown", "Active"}
	if err := r.writeHeader(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	row := 2
	for name, strat := range summary.Strategies {
		values := []interface{}{
			name, strat.AllocatedCapital, strat.CurrentBalance, strat.Profit,
			strat.TotalTrades, strat.Wins, strat.Losses, strat.WinRate(),
			strat.Drawdown, strat.Active,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		row++
	}
	return nil
}

func (r *ExcelReporter) writeWithdrawalsSheet(fx *excelize.File, sheet string, withdrawals []capital.WithdrawalRecord, styles excelStyles) error {
	headers := []string{"Time", "Profit", "Withdrawn", "Reinvested", "Total Withdrawn"}
	if err := r.writeHeader(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, w := range withdrawals {
		row := i + 2
		values := []interface{}{
			w.Timestamp.Format("2006-01-02"), w.Profit, w.Withdrawn, w.Reinvested, w.TotalWithdrawn,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
