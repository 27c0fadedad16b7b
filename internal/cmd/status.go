package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's phase and winner",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	state, err := session.Load(cfg.Workspace.BaseDir, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Session:  %s\n", state.ID)
	fmt.Printf("Phase:    %s\n", state.Phase)
	fmt.Printf("Attempt:  %d\n", state.Attempt)
	fmt.Printf("Started:  %s\n", state.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Deadline: %s\n", state.Deadline.Format("2006-01-02 15:04:05"))
	if state.WinnerLabel != "" {
		fmt.Printf("Winner:   %s (attempt %d)\n", state.WinnerLabel, state.PromotedAttempt)
	}
	return nil
}
