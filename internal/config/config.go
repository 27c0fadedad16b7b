// Package config defines the Quorum configuration, its defaults, loading
// through viper, and validation.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Quorum configuration.
type Config struct {
	Coordination CoordinationConfig `mapstructure:"coordination"`
	Workers      []WorkerConfig     `mapstructure:"workers"`
	Workspace    WorkspaceConfig    `mapstructure:"workspace"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// CoordinationConfig controls the round/turn protocol.
type CoordinationConfig struct {
	// TimeoutSeconds is the wall-clock budget for one attempt.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// NoveltyPolicy controls near-duplicate rejection.
	// Options: "lenient", "balanced", "strict"
	NoveltyPolicy string `mapstructure:"novelty_policy"`
	// MaxAnswersPerWorker caps proposals per worker per attempt (0 = unlimited).
	MaxAnswersPerWorker int `mapstructure:"max_answers_per_worker"`
	// TimeoutWinner is the degraded-winner policy applied on timeout.
	// Options: "leader" (current vote leader, falling back to the earliest
	// answer when no votes exist), "none" (report no winner)
	TimeoutWinner string `mapstructure:"timeout_winner"`
	// MaxRestarts bounds how many attempts a session may make.
	MaxRestarts int `mapstructure:"max_restarts"`
	// VoteStandings includes anonymous vote counts in worker context views.
	VoteStandings bool `mapstructure:"vote_standings"`
}

// Timeout returns the attempt budget as a time.Duration.
func (c *CoordinationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WorkerConfig declares one participant.
type WorkerConfig struct {
	// Name is the stable internal worker ID.
	Name string `mapstructure:"name"`
	// Backend names the adapter that implements this worker.
	Backend string `mapstructure:"backend"`
	// Filesystem grants the worker a private workspace; its answers then
	// carry workspace snapshots.
	Filesystem bool `mapstructure:"filesystem"`
	// ContextPaths grants access to the shared external-project paths.
	ContextPaths bool `mapstructure:"context_paths"`
}

// WorkspaceConfig controls workspace isolation and shared paths.
type WorkspaceConfig struct {
	// BaseDir is the directory sessions are created under.
	BaseDir string `mapstructure:"base_dir"`
	// Observe enables the fsnotify side-effect observer on worker
	// workspaces.
	Observe bool `mapstructure:"observe"`
	// ContextPaths are external paths shared with all workers.
	ContextPaths []ContextPathConfig `mapstructure:"context_paths"`
}

// ContextPathConfig declares one shared external path.
type ContextPathConfig struct {
	Path string `mapstructure:"path"`
	// Permission is "read" or "write". Writes apply only to the
	// presenting-phase winner.
	Permission string `mapstructure:"permission"`
	// Protected are glob patterns that are never writable by anyone.
	Protected []string `mapstructure:"protected"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Coordination: CoordinationConfig{
			TimeoutSeconds:      1800,
			NoveltyPolicy:       "balanced",
			MaxAnswersPerWorker: 3,
			TimeoutWinner:       "leader",
			MaxRestarts:         2,
			VoteStandings:       false,
		},
		Workspace: WorkspaceConfig{
			BaseDir:      ".",
			Observe:      true,
			ContextPaths: []ContextPathConfig{},
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "http://127.0.0.1:4318",
			Insecure: true,
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("coordination.timeout_seconds", defaults.Coordination.TimeoutSeconds)
	viper.SetDefault("coordination.novelty_policy", defaults.Coordination.NoveltyPolicy)
	viper.SetDefault("coordination.max_answers_per_worker", defaults.Coordination.MaxAnswersPerWorker)
	viper.SetDefault("coordination.timeout_winner", defaults.Coordination.TimeoutWinner)
	viper.SetDefault("coordination.max_restarts", defaults.Coordination.MaxRestarts)
	viper.SetDefault("coordination.vote_standings", defaults.Coordination.VoteStandings)

	viper.SetDefault("workspace.base_dir", defaults.Workspace.BaseDir)
	viper.SetDefault("workspace.observe", defaults.Workspace.Observe)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	viper.SetDefault("telemetry.enabled", defaults.Telemetry.Enabled)
	viper.SetDefault("telemetry.endpoint", defaults.Telemetry.Endpoint)
	viper.SetDefault("telemetry.insecure", defaults.Telemetry.Insecure)
}

// Load reads the configuration from viper and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quorum"
	}
	return filepath.Join(home, ".config", "quorum")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
