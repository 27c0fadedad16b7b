package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/errors"
	"github.com/quorumhq/quorum/internal/logging"
	"github.com/quorumhq/quorum/internal/orchestrator"
	"github.com/quorumhq/quorum/internal/session"
	"github.com/quorumhq/quorum/internal/telemetry"
	"github.com/quorumhq/quorum/internal/worker"
	"github.com/quorumhq/quorum/internal/workspace"
)

var runSessionID string

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run one coordination session",
	Long: `Run a coordination session: all configured workers receive the task,
race to propose answers, observe each other anonymously, and converge
by voting. The process exits zero only if the session completes with a
winner inside the deadline.

Examples:
  # Ask a question with the configured worker set
  quorum run "What is the best retry strategy for this API client?"

  # Resume-friendly explicit session ID
  quorum run --session-id my-session "Summarize the failure modes"`,
	Args:          cobra.ExactArgs(1),
	RunE:          runRun,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	runCmd.Flags().StringVar(&runSessionID, "session-id", "", "explicit session ID (default: random)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	task := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.Workers) == 0 {
		return fmt.Errorf("no workers configured (run `quorum init` and edit the workers section)")
	}

	sessionID := runSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  "quorum",
			OTLPEndpoint: cfg.Telemetry.Endpoint,
			Insecure:     cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	sessions, err := session.NewManager(session.Config{
		BaseDir: cfg.Workspace.BaseDir,
		ID:      sessionID,
		Task:    task,
		Timeout: cfg.Coordination.Timeout(),
	})
	if err != nil {
		return err
	}

	var logger *logging.Logger
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(sessions.SessionDir(), cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Close()
	}

	workers := make([]worker.Worker, 0, len(cfg.Workers))
	for _, wc := range cfg.Workers {
		w, err := worker.NewFromSpec(worker.Spec{
			Name:    wc.Name,
			Backend: wc.Backend,
			Capabilities: worker.Capabilities{
				Filesystem:   wc.Filesystem,
				ContextPaths: wc.ContextPaths,
			},
		})
		if err != nil {
			return err
		}
		workers = append(workers, w)
	}

	paths := make([]workspace.ContextPath, 0, len(cfg.Workspace.ContextPaths))
	for _, cp := range cfg.Workspace.ContextPaths {
		paths = append(paths, workspace.ContextPath{
			Path:              cp.Path,
			Permission:        workspace.Permission(cp.Permission),
			ProtectedSubpaths: cp.Protected,
		})
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Task:         task,
		Workers:      workers,
		Coordination: cfg.Coordination,
		ContextPaths: paths,
		Sessions:     sessions,
		Logger:       logger,
		Observe:      cfg.Workspace.Observe,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Session %s: %d workers coordinating\n", sessionID, len(workers))
	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case session.OutcomeSucceeded:
		fmt.Printf("\nWinner: %s (attempt %d)\n\n", result.WinnerLabel, result.Attempt)
		fmt.Println(result.Content)
	default:
		if result.WinnerLabel != "" {
			fmt.Printf("\nTimed out; degraded winner: %s\n\n", result.WinnerLabel)
			fmt.Println(result.Content)
		}
	}
	return exitError(result, sessions.State().Phase, sessionID, cfg.Coordination.Timeout())
}

// exitError maps a finished session onto the process exit signal. A
// timed-out session fails with the timeout error chain so callers can
// distinguish it from other failures.
func exitError(result session.Result, phase session.Phase, sessionID string, timeout time.Duration) error {
	if result.Outcome == session.OutcomeSucceeded {
		return nil
	}
	if phase == session.PhaseTimedOut {
		return errors.NewTimeoutError("coordination session "+sessionID, timeout)
	}
	return fmt.Errorf("session %s failed", sessionID)
}
