package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quorumhq/quorum/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter configuration to the user config directory
(default $HOME/.config/quorum/config.yaml). Workers must be filled in
before a session can run; the backend names must match registered
worker adapters.`,
	RunE: runInitCmd,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

// configTemplate mirrors config.Config with yaml tags for init output.
type configTemplate struct {
	Coordination coordinationTemplate `yaml:"coordination"`
	Workers      []workerTemplate     `yaml:"workers"`
	Workspace    workspaceTemplate    `yaml:"workspace"`
	Logging      loggingTemplate      `yaml:"logging"`
	Telemetry    telemetryTemplate    `yaml:"telemetry"`
}

type coordinationTemplate struct {
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	NoveltyPolicy       string `yaml:"novelty_policy"`
	MaxAnswersPerWorker int    `yaml:"max_answers_per_worker"`
	TimeoutWinner       string `yaml:"timeout_winner"`
	MaxRestarts         int    `yaml:"max_restarts"`
	VoteStandings       bool   `yaml:"vote_standings"`
}

type workerTemplate struct {
	Name         string `yaml:"name"`
	Backend      string `yaml:"backend"`
	Filesystem   bool   `yaml:"filesystem"`
	ContextPaths bool   `yaml:"context_paths"`
}

type workspaceTemplate struct {
	BaseDir string `yaml:"base_dir"`
	Observe bool   `yaml:"observe"`
}

type loggingTemplate struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

type telemetryTemplate struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	path := config.ConfigFile()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	defaults := config.Default()
	template := configTemplate{
		Coordination: coordinationTemplate{
			TimeoutSeconds:      defaults.Coordination.TimeoutSeconds,
			NoveltyPolicy:       defaults.Coordination.NoveltyPolicy,
			MaxAnswersPerWorker: defaults.Coordination.MaxAnswersPerWorker,
			TimeoutWinner:       defaults.Coordination.TimeoutWinner,
			MaxRestarts:         defaults.Coordination.MaxRestarts,
			VoteStandings:       defaults.Coordination.VoteStandings,
		},
		Workers: []workerTemplate{
			{Name: "worker-1", Backend: "example", Filesystem: true},
			{Name: "worker-2", Backend: "example", Filesystem: true},
			{Name: "worker-3", Backend: "example"},
		},
		Workspace: workspaceTemplate{
			BaseDir: defaults.Workspace.BaseDir,
			Observe: defaults.Workspace.Observe,
		},
		Logging: loggingTemplate{
			Enabled: defaults.Logging.Enabled,
			Level:   defaults.Logging.Level,
		},
		Telemetry: telemetryTemplate{
			Enabled:  defaults.Telemetry.Enabled,
			Endpoint: defaults.Telemetry.Endpoint,
			Insecure: defaults.Telemetry.Insecure,
		},
	}

	data, err := yaml.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Edit the workers section before running a session.")
	return nil
}
