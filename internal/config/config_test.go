package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.Workers = []WorkerConfig{{Name: "w1", Backend: "example"}}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() fails validation: %v", ValidationErrors(errs))
	}
	if got := cfg.Coordination.Timeout(); got != 30*time.Minute {
		t.Errorf("Timeout() = %v, want 30m", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Workers = []WorkerConfig{
			{Name: "w1", Backend: "example"},
			{Name: "w2", Backend: "example"},
		}
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "zero timeout",
			mutate:    func(c *Config) { c.Coordination.TimeoutSeconds = 0 },
			wantField: "coordination.timeout_seconds",
		},
		{
			name:      "unknown novelty policy",
			mutate:    func(c *Config) { c.Coordination.NoveltyPolicy = "aggressive" },
			wantField: "coordination.novelty_policy",
		},
		{
			name:      "negative answer budget",
			mutate:    func(c *Config) { c.Coordination.MaxAnswersPerWorker = -1 },
			wantField: "coordination.max_answers_per_worker",
		},
		{
			name:      "unknown timeout winner policy",
			mutate:    func(c *Config) { c.Coordination.TimeoutWinner = "coinflip" },
			wantField: "coordination.timeout_winner",
		},
		{
			name:      "negative restarts",
			mutate:    func(c *Config) { c.Coordination.MaxRestarts = -1 },
			wantField: "coordination.max_restarts",
		},
		{
			name:      "empty worker name",
			mutate:    func(c *Config) { c.Workers[0].Name = "" },
			wantField: "workers[0].name",
		},
		{
			name:      "duplicate worker name",
			mutate:    func(c *Config) { c.Workers[1].Name = "w1" },
			wantField: "workers[1].name",
		},
		{
			name:      "empty backend",
			mutate:    func(c *Config) { c.Workers[1].Backend = "" },
			wantField: "workers[1].backend",
		},
		{
			name: "bad context path permission",
			mutate: func(c *Config) {
				c.Workspace.ContextPaths = []ContextPathConfig{{Path: "/p", Permission: "execute"}}
			},
			wantField: "workspace.context_paths[0].permission",
		},
		{
			name: "empty context path",
			mutate: func(c *Config) {
				c.Workspace.ContextPaths = []ContextPathConfig{{Path: "", Permission: "read"}}
			},
			wantField: "workspace.context_paths[0].path",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("Validate() = no errors, want at least one")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q, got %v", tt.wantField, ValidationErrors(errs))
			}
		})
	}
}

func TestValidationErrorsFormatting(t *testing.T) {
	single := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if single.Error() != "a: bad (got: 1)" {
		t.Errorf("single error = %q", single.Error())
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: "x", Message: "worse"},
	}
	got := multi.Error()
	if got == "" || got == single.Error() {
		t.Errorf("multi error = %q", got)
	}
}
