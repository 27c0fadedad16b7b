package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "coordination.novelty_policy")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidNoveltyPolicies returns the list of valid novelty policies.
func ValidNoveltyPolicies() []string {
	return []string{"lenient", "balanced", "strict"}
}

// ValidTimeoutWinnerPolicies returns the list of valid degraded-winner
// policies.
func ValidTimeoutWinnerPolicies() []string {
	return []string{"leader", "none"}
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidPermissions returns the list of valid context-path permissions.
func ValidPermissions() []string {
	return []string{"read", "write"}
}

// Validate checks the Config and returns all validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCoordination()...)
	errors = append(errors, c.validateWorkers()...)
	errors = append(errors, c.validateWorkspace()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateCoordination() []ValidationError {
	var errors []ValidationError

	if c.Coordination.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "coordination.timeout_seconds",
			Value:   c.Coordination.TimeoutSeconds,
			Message: "must be positive",
		})
	}
	if !slices.Contains(ValidNoveltyPolicies(), c.Coordination.NoveltyPolicy) {
		errors = append(errors, ValidationError{
			Field:   "coordination.novelty_policy",
			Value:   c.Coordination.NoveltyPolicy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidNoveltyPolicies(), ", ")),
		})
	}
	if c.Coordination.MaxAnswersPerWorker < 0 {
		errors = append(errors, ValidationError{
			Field:   "coordination.max_answers_per_worker",
			Value:   c.Coordination.MaxAnswersPerWorker,
			Message: "must be zero (unlimited) or positive",
		})
	}
	if !slices.Contains(ValidTimeoutWinnerPolicies(), c.Coordination.TimeoutWinner) {
		errors = append(errors, ValidationError{
			Field:   "coordination.timeout_winner",
			Value:   c.Coordination.TimeoutWinner,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTimeoutWinnerPolicies(), ", ")),
		})
	}
	if c.Coordination.MaxRestarts < 0 {
		errors = append(errors, ValidationError{
			Field:   "coordination.max_restarts",
			Value:   c.Coordination.MaxRestarts,
			Message: "must be zero or positive",
		})
	}

	return errors
}

func (c *Config) validateWorkers() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool, len(c.Workers))
	for i, w := range c.Workers {
		field := fmt.Sprintf("workers[%d]", i)
		if w.Name == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Value:   w.Name,
				Message: "must not be empty",
			})
			continue
		}
		if seen[w.Name] {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Value:   w.Name,
				Message: "duplicate worker name",
			})
		}
		seen[w.Name] = true
		if w.Backend == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".backend",
				Value:   w.Backend,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateWorkspace() []ValidationError {
	var errors []ValidationError

	for i, cp := range c.Workspace.ContextPaths {
		field := fmt.Sprintf("workspace.context_paths[%d]", i)
		if cp.Path == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".path",
				Value:   cp.Path,
				Message: "must not be empty",
			})
		}
		if !slices.Contains(ValidPermissions(), cp.Permission) {
			errors = append(errors, ValidationError{
				Field:   field + ".permission",
				Value:   cp.Permission,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidPermissions(), ", ")),
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
