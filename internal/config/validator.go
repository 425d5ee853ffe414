package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "adversarial_probability")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
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

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidObserveDepths returns the list of valid observe depths
func ValidObserveDepths() []string {
	return []string{"shallow", "deep", "auto"}
}

// ValidCodeOutputs returns the list of valid code output modes
func ValidCodeOutputs() []string {
	return []string{"commit", "pr"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found. It runs before any cycle starts so a bad setting can never
// abort a run midway.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCore()...)
	errors = append(errors, c.validateTurns()...)
	errors = append(errors, c.validateObserve()...)
	errors = append(errors, c.validateWeights()...)
	errors = append(errors, c.validatePolicies()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateCore() []ValidationError {
	var errors []ValidationError

	if c.AdversarialProbability < 0 || c.AdversarialProbability > 1 {
		errors = append(errors, ValidationError{
			Field:   "adversarial_probability",
			Value:   c.AdversarialProbability,
			Message: "must be between 0 and 1",
		})
	}
	if c.MaxCycles <= 0 {
		errors = append(errors, ValidationError{
			Field:   "max_cycles",
			Value:   c.MaxCycles,
			Message: "must be positive",
		})
	}
	if !slices.Contains(ValidCodeOutputs(), c.CodeOutput) {
		errors = append(errors, ValidationError{
			Field:   "code_output",
			Value:   c.CodeOutput,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidCodeOutputs(), ", ")),
		})
	}
	if !slices.Contains(ValidObserveDepths(), c.ObserveDepth) {
		errors = append(errors, ValidationError{
			Field:   "observe_depth",
			Value:   c.ObserveDepth,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidObserveDepths(), ", ")),
		})
	}
	if c.Level != "" && !c.KnownLevel(c.Level) {
		errors = append(errors, ValidationError{
			Field:   "level",
			Value:   c.Level,
			Message: "unknown level",
		})
	}
	if c.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "model",
			Value:   c.Model,
			Message: "must not be empty",
		})
	}
	if c.Agent.Command == "" {
		errors = append(errors, ValidationError{
			Field:   "agent.command",
			Value:   c.Agent.Command,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateTurns() []ValidationError {
	var errors []ValidationError

	budgets := []struct {
		field string
		value int
	}{
		{"turns.observe", c.Turns.Observe},
		{"turns.plan", c.Turns.Plan},
		{"turns.execute", c.Turns.Execute},
		{"turns.meta", c.Turns.Meta},
		{"turns.scout", c.Turns.Scout},
	}
	for _, b := range budgets {
		if b.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   b.field,
				Value:   b.value,
				Message: "turn budget must be positive",
			})
		}
	}

	return errors
}

func (c *Config) validateObserve() []ValidationError {
	var errors []ValidationError

	if c.Observe.ShallowRatio <= 0 || c.Observe.DeepRatio <= 0 {
		errors = append(errors, ValidationError{
			Field:   "observe",
			Value:   fmt.Sprintf("shallow_ratio=%v deep_ratio=%v", c.Observe.ShallowRatio, c.Observe.DeepRatio),
			Message: "budget ratios must be positive",
		})
	}
	if c.Observe.ShallowFloor <= 0 || c.Observe.DeepFloor <= 0 {
		errors = append(errors, ValidationError{
			Field:   "observe",
			Value:   fmt.Sprintf("shallow_floor=%d deep_floor=%d", c.Observe.ShallowFloor, c.Observe.DeepFloor),
			Message: "budget floors must be positive",
		})
	}
	if c.Observe.DeepCycleInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "observe.deep_cycle_interval",
			Value:   c.Observe.DeepCycleInterval,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateWeights() []ValidationError {
	var errors []ValidationError

	if c.Weights.Min <= 0 {
		errors = append(errors, ValidationError{
			Field:   "weights.min",
			Value:   c.Weights.Min,
			Message: "must be positive",
		})
	}
	if c.Weights.Max < c.Weights.Min {
		errors = append(errors, ValidationError{
			Field:   "weights.max",
			Value:   c.Weights.Max,
			Message: "must not be below weights.min",
		})
	}
	if c.Weights.RecencyThreshold <= 0 {
		errors = append(errors, ValidationError{
			Field:   "weights.recency_threshold",
			Value:   c.Weights.RecencyThreshold,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validatePolicies() []ValidationError {
	var errors []ValidationError

	if c.Backlog.MaxAttempts <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backlog.max_attempts",
			Value:   c.Backlog.MaxAttempts,
			Message: "must be positive",
		})
	}
	if c.Backlog.PruneAge <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backlog.prune_age",
			Value:   c.Backlog.PruneAge,
			Message: "must be positive",
		})
	}
	if c.Backlog.ContextLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backlog.context_limit",
			Value:   c.Backlog.ContextLimit,
			Message: "must be positive",
		})
	}
	if c.Meta.CycleInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "meta.cycle_interval",
			Value:   c.Meta.CycleInterval,
			Message: "must not be negative (0 disables)",
		})
	}
	if c.Meta.DynamicTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "meta.dynamic_ttl",
			Value:   c.Meta.DynamicTTL,
			Message: "must be positive",
		})
	}
	if c.Scout.CycleInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scout.cycle_interval",
			Value:   c.Scout.CycleInterval,
			Message: "must be positive",
		})
	}
	if c.Scout.MinRelevance < 0 || c.Scout.MinRelevance > 1 {
		errors = append(errors, ValidationError{
			Field:   "scout.min_relevance",
			Value:   c.Scout.MinRelevance,
			Message: "must be between 0 and 1",
		})
	}
	if c.Verify.TimeoutMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "verify.timeout_minutes",
			Value:   c.Verify.TimeoutMinutes,
			Message: "must be positive",
		})
	}
	if c.Agent.TimeoutMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "agent.timeout_minutes",
			Value:   c.Agent.TimeoutMinutes,
			Message: "must be positive",
		})
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
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must not be negative",
		})
	}

	return errors
}
