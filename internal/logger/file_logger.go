package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a file logger for risk-control activity
type Logger struct {
	account string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logDir  string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelAlert   LogLevel = "ALERT"
)

// NewLogger creates a new file logger for the specified account
func NewLogger(account string) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", account, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		account: account,
		logFile: file,
		logger:  log.New(file, "", 0),
		logDir:  logDir,
	}

	l.writeSessionHeader()

	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
RISK CONTROL SESSION STARTED
================================================================================
Account: %s
Started: %s
Log File: %s_%s.log
================================================================================
`, l.account, time.Now().Format("2006-01-02 15:04:05"),
		l.account, time.Now().Format("2006-01-02"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs trade flow events
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Alert logs monitor alerts
func (l *Logger) Alert(format string, args ...interface{}) {
	l.Log(LogLevelAlert, format, args...)
}

// LogTradeClosure logs a closed trade with its portfolio effect
func (l *Logger) LogTradeClosure(strategy, pair, side string, profit, balance float64, outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	tradeLog := fmt.Sprintf(`
[%s] [TRADE] ==================== TRADE CLOSED ====================
Strategy: %s | Pair: %s | Side: %s
Profit: $%.2f | Outcome: %s
Portfolio Balance: $%.2f
==========================================================`,
		timestamp, strategy, pair, side, profit, outcome, balance)

	l.logger.Println(tradeLog)
}

// LogShutdown logs a kill-switch halt
func (l *Logger) LogShutdown(reason string, balance float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	haltLog := fmt.Sprintf(`
[%s] [ALERT] ==================== KILL SWITCH ACTIVATED ====================
Reason: %s
Balance: $%.2f
Trading halted. Manual intervention required to resume.
================================================================`,
		timestamp, reason, balance)

	l.logger.Println(haltLog)
}

// LogMonthEnd logs the month-end capital management pass
func (l *Logger) LogMonthEnd(profit, withdrawn, reinvested, newCapital float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	monthLog := fmt.Sprintf(`
[%s] [INFO] ==================== MONTHLY CAPITAL MANAGEMENT ====================
Monthly Profit: $%.2f
Withdrawn: $%.2f | Reinvested: $%.2f
New Capital: $%.2f
====================================================================`,
		timestamp, profit, withdrawn, reinvested, newCapital)

	l.logger.Println(monthLog)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logger.Println(fmt.Sprintf("[%s] [INFO] Session ended", time.Now().Format("2006-01-02 15:04:05")))
		return l.logFile.Close()
	}
	return nil
}

// LogPath returns the directory log files are written to
func (l *Logger) LogPath() string {
	return l.logDir
}
