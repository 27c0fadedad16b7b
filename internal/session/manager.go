package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quorumhq/quorum/internal/logging"
)

// Manager owns the on-disk layout of one session:
//
//	{baseDir}/.quorum/sessions/{id}/
//	    session.json
//	    debug.log
//	    result.json                  (written at promotion)
//	    attempts/attempt-{n}/
//	        events.jsonl
//	        tally.json
//	        workspaces/{workerID}/
//	        snapshots/{label}/
//	        views/{workerID}/
//
// Prior attempts are retained read-only across restarts; the promoted
// attempt's result is mirrored to the session root.
type Manager struct {
	baseDir    string
	sessionDir string
	state      *State
	logger     *logging.Logger
}

// Config holds options for creating a Manager.
type Config struct {
	BaseDir string
	ID      string
	Task    string
	Timeout time.Duration
	Logger  *logging.Logger
}

// NewManager creates a Manager and initializes the session directory and
// session.json for a fresh session.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("session: ID is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	sessionDir := filepath.Join(cfg.BaseDir, ".quorum", "sessions", cfg.ID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	now := time.Now()
	m := &Manager{
		baseDir:    cfg.BaseDir,
		sessionDir: sessionDir,
		logger:     logger.WithSession(cfg.ID),
		state: &State{
			ID:            cfg.ID,
			Task:          cfg.Task,
			FormatVersion: FormatVersion,
			Attempt:       0,
			Phase:         PhaseCoordinating,
			StartedAt:     now,
			Deadline:      now.Add(cfg.Timeout),
		},
	}
	if err := m.Save(); err != nil {
		return nil, err
	}
	return m, nil
}

// State returns the current session state.
func (m *Manager) State() *State { return m.state }

// SessionDir returns the session's root directory.
func (m *Manager) SessionDir() string { return m.sessionDir }

// AttemptDir returns the directory for a given attempt, creating it and
// its standard subdirectories on first use.
func (m *Manager) AttemptDir(attempt int) (string, error) {
	dir := filepath.Join(m.sessionDir, "attempts", fmt.Sprintf("attempt-%d", attempt))
	for _, sub := range []string{"workspaces", "snapshots", "views"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return "", fmt.Errorf("failed to create attempt directory: %w", err)
		}
	}
	return dir, nil
}

// EventLogPath returns the path of an attempt's ordered event log.
func (m *Manager) EventLogPath(attempt int) string {
	return filepath.Join(m.sessionDir, "attempts", fmt.Sprintf("attempt-%d", attempt), "events.jsonl")
}

// BeginAttempt advances to the next attempt, resets the phase, and
// prepares its directory.
func (m *Manager) BeginAttempt() (int, string, error) {
	m.state.Attempt++
	m.state.Phase = PhaseCoordinating
	m.state.WinnerLabel = ""
	dir, err := m.AttemptDir(m.state.Attempt)
	if err != nil {
		return 0, "", err
	}
	if err := m.Save(); err != nil {
		return 0, "", err
	}
	m.logger.Info("attempt started", "attempt", m.state.Attempt)
	return m.state.Attempt, dir, nil
}

// Transition moves the session phase forward, rejecting any backward or
// skipped transition.
func (m *Manager) Transition(next Phase) error {
	if !m.state.Phase.CanTransitionTo(next) {
		return fmt.Errorf("session: illegal phase transition %s -> %s", m.state.Phase, next)
	}
	prev := m.state.Phase
	m.state.Phase = next
	if err := m.Save(); err != nil {
		return err
	}
	m.logger.Info("phase transition", "from", prev.String(), "to", next.String())
	return nil
}

// WriteTally persists an attempt's final vote tally.
func (m *Manager) WriteTally(attempt int, tally map[string]int) error {
	dir, err := m.AttemptDir(attempt)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tally, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tally: %w", err)
	}
	path := filepath.Join(dir, "tally.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tally: %w", err)
	}
	return nil
}

// Promote records an attempt's result as the session's canonical outcome.
// Only one attempt is ever promoted.
func (m *Manager) Promote(result Result) error {
	if m.state.PromotedAttempt != 0 {
		return fmt.Errorf("session: attempt %d already promoted", m.state.PromotedAttempt)
	}

	result.FinishedAt = time.Now()
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.sessionDir, "result.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	m.state.PromotedAttempt = result.Attempt
	m.state.WinnerLabel = result.WinnerLabel
	if err := m.Save(); err != nil {
		return err
	}
	m.logger.Info("attempt promoted",
		"attempt", result.Attempt,
		"outcome", string(result.Outcome),
		"winner", result.WinnerLabel)
	return nil
}

// Save persists session.json.
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	path := filepath.Join(m.sessionDir, "session.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}

// Load reads an existing session's state from disk.
func Load(baseDir, id string) (*State, error) {
	path := filepath.Join(baseDir, ".quorum", "sessions", id, "session.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}
	return &state, nil
}
