package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/event"
)

var eventsAttempt int

var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print a session attempt's ordered event log",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().IntVar(&eventsAttempt, "attempt", 1, "attempt number")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.Workspace.BaseDir, ".quorum", "sessions", args[0],
		"attempts", "attempt-"+strconv.Itoa(eventsAttempt), "events.jsonl")
	records, err := event.ReadLog(path)
	if err != nil {
		return err
	}

	for _, r := range records {
		line := fmt.Sprintf("%4d  %s  %s", r.Seq, r.Timestamp.Format("15:04:05.000"), r.Type)
		switch r.Type {
		case event.TypeNewAnswer:
			line += fmt.Sprintf("  %s by %s (%s)", r.Label, r.WorkerID, r.Tag)
		case event.TypeVote:
			line += fmt.Sprintf("  %s -> %s", r.WorkerID, r.Target)
		case event.TypeFinalAnswer:
			line += fmt.Sprintf("  winner %s (%d votes)", r.Label, r.Votes)
		case event.TypePhaseChange:
			line += fmt.Sprintf("  %s -> %s", r.From, r.To)
		case event.TypeRestart:
			line += fmt.Sprintf("  %s", r.Reason)
		}
		fmt.Println(line)
	}
	return nil
}
