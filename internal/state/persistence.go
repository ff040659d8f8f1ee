package state

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openfx-labs/riskguard/internal/capital"
	"github.com/openfx-labs/riskguard/internal/monitor"
	"github.com/openfx-labs/riskguard/internal/portfolio"
)

const stateVersion = "1.0"

// SystemState is the complete recoverable state of the control plane.
type SystemState struct {
	Version     string    `json:"version"`
	Account     string    `json:"account"`
	LastUpdated time.Time `json:"last_updated"`

	Portfolio portfolio.State `json:"portfolio"`
	Monitor   monitor.State   `json:"monitor"`
	Capital   capital.State   `json:"capital"`
}

// Persistence saves and restores control-plane snapshots as JSON.
// Writes go to a temp file first and are renamed into place; the
// previous snapshot is kept as a backup.
type Persistence struct {
	mu       sync.Mutex
	stateDir string
	account  string
}

// NewPersistence creates a persistence manager rooted at stateDir.
func NewPersistence(stateDir, account string) *Persistence {
	return &Persistence{stateDir: stateDir, account: account}
}

// Initialize creates the state directory.
func (p *Persistence) Initialize() error {
	if err := os.MkdirAll(p.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

func (p *Persistence) stateFile() string {
	return filepath.Join(p.stateDir, fmt.Sprintf("%s_state.json", p.account))
}

func (p *Persistence) backupFile() string {
	return filepath.Join(p.stateDir, fmt.Sprintf("%s_state_backup.json", p.account))
}

// Save writes a snapshot atomically, backing up the previous one.
func (p *Persistence) Save(state SystemState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state.Version = stateVersion
	state.Account = p.account
	state.LastUpdated = time.Now().UTC()

	stateFile := p.stateFile()

	if _, err := os.Stat(stateFile); err == nil {
		// Backup failures are tolerated; the fresh snapshot still lands.
		_ = copyFile(stateFile, p.backupFile())
	}

	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tempFile, stateFile); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}

	return nil
}

// Load reads the latest snapshot. A missing file returns os.ErrNotExist
// so callers can distinguish a fresh start from corruption.
func (p *Persistence) Load() (SystemState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var state SystemState

	data, err := os.ReadFile(p.stateFile())
	if err != nil {
		return state, err
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to parse state file: %w", err)
	}

	if err := validate(&state); err != nil {
		return state, fmt.Errorf("invalid state file: %w", err)
	}

	return state, nil
}

// Exists reports whether a snapshot is present.
func (p *Persistence) Exists() bool {
	_, err := os.Stat(p.stateFile())
	return err == nil
}

func validate(state *SystemState) error {
	if state.Version == "" {
		return fmt.Errorf("missing version")
	}
	if state.Portfolio.InitialCapital <= 0 {
		return fmt.Errorf("non-positive initial capital: %.2f", state.Portfolio.InitialCapital)
	}
	if state.Capital.InitialCapital <= 0 {
		return fmt.Errorf("non-positive scaler initial capital: %.2f", state.Capital.InitialCapital)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
