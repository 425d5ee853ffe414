// Package config defines the Kaizen configuration and its four-tier
// resolution: built-in defaults < level preset < project config file <
// runtime overrides. The project file is JSON with // comments permitted.
package config

import (
	"time"
)

// Config represents the complete Kaizen configuration for one project.
type Config struct {
	// Model is the model identifier passed to the agent (e.g. "sonnet").
	Model string `mapstructure:"model"`
	// Level selects a named preset bundle (model + observe depth + turns).
	Level string `mapstructure:"level"`
	// ObserveDepth is "shallow", "deep", or "auto".
	ObserveDepth string `mapstructure:"observe_depth"`
	// MaxCycles is the number of cycles a single evolve run attempts.
	MaxCycles int `mapstructure:"max_cycles"`
	// AdversarialProbability is the chance [0,1] that a cycle layers an
	// adversarial challenge on top of the persona.
	AdversarialProbability float64 `mapstructure:"adversarial_probability"`
	// CodeOutput is "commit" (direct commit) or "pr" (branch + review request,
	// falling back to a direct commit if the PR path fails).
	CodeOutput string `mapstructure:"code_output"`
	// ActiveGroup optionally restricts persona selection to one group tag.
	ActiveGroup string `mapstructure:"active_group"`
	// Cautious pauses each cycle after Plan until an explicit resume.
	Cautious bool `mapstructure:"cautious"`

	// Personas toggles persona ids on or off. Absent ids default to enabled.
	Personas map[string]bool `mapstructure:"personas"`
	// Adversarials toggles adversarial ids on or off.
	Adversarials map[string]bool `mapstructure:"adversarials"`

	Turns   TurnsConfig   `mapstructure:"turns"`
	Observe ObserveConfig `mapstructure:"observe"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Weights WeightsConfig `mapstructure:"weights"`
	Backlog BacklogConfig `mapstructure:"backlog"`
	Meta    MetaConfig    `mapstructure:"meta"`
	Scout   ScoutConfig   `mapstructure:"scout"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Levels holds the named presets selectable via Level.
	Levels map[string]LevelPreset `mapstructure:"levels"`
}

// TurnsConfig holds the per-phase agent turn budgets.
type TurnsConfig struct {
	// Observe is a fallback budget when the source-file count is unknown;
	// the effective observe budget is computed per run (see ObserveConfig).
	Observe int `mapstructure:"observe"`
	Plan    int `mapstructure:"plan"`
	Execute int `mapstructure:"execute"`
	Meta    int `mapstructure:"meta"`
	Scout   int `mapstructure:"scout"`
}

// ObserveConfig controls the computed observe turn budget. The budget scales
// with the tracked source-file count, with minimum floors per depth.
type ObserveConfig struct {
	// ShallowRatio is turns per tracked source file for shallow observes.
	ShallowRatio float64 `mapstructure:"shallow_ratio"`
	// DeepRatio is turns per tracked source file for deep observes.
	DeepRatio float64 `mapstructure:"deep_ratio"`
	// ShallowFloor is the minimum shallow budget.
	ShallowFloor int `mapstructure:"shallow_floor"`
	// DeepFloor is the minimum deep budget.
	DeepFloor int `mapstructure:"deep_floor"`
	// DeepCycleInterval makes every Nth cycle deep when ObserveDepth is "auto".
	DeepCycleInterval int `mapstructure:"deep_cycle_interval"`
}

// VerifyConfig holds the optional build/test verification commands.
// An empty command means that check automatically passes.
type VerifyConfig struct {
	BuildCommand string `mapstructure:"build_command"`
	TestCommand  string `mapstructure:"test_command"`
	// TimeoutMinutes bounds each verification command independently.
	TimeoutMinutes int `mapstructure:"timeout_minutes"`
}

// AgentConfig controls how the external coding agent is invoked.
type AgentConfig struct {
	// Command is the agent binary (default "claude").
	Command string `mapstructure:"command"`
	// TimeoutMinutes is the hard wall-clock limit per invocation.
	TimeoutMinutes int `mapstructure:"timeout_minutes"`
	// RateLimitBackoffSeconds is the fixed sleep before the single
	// rate-limit retry.
	RateLimitBackoffSeconds int `mapstructure:"rate_limit_backoff_seconds"`
}

// WeightsConfig names the mutation-weight formula constants. The defaults
// are load-bearing for behavioral parity; change them only deliberately.
type WeightsConfig struct {
	SuccessCoefficient float64 `mapstructure:"success_coefficient"`
	FailureCoefficient float64 `mapstructure:"failure_coefficient"`
	RecencyBonus       float64 `mapstructure:"recency_bonus"`
	// RecencyThreshold is the cycle gap at which the recency bonus applies.
	RecencyThreshold int     `mapstructure:"recency_threshold"`
	Min              float64 `mapstructure:"min"`
	Max              float64 `mapstructure:"max"`
}

// BacklogConfig controls backlog lifecycle policies.
type BacklogConfig struct {
	// MaxAttempts is the failed re-attempt count at which an item goes stale.
	MaxAttempts int `mapstructure:"max_attempts"`
	// PruneAge is how many cycles a completed/stale item survives pruning.
	PruneAge int `mapstructure:"prune_age"`
	// ContextLimit is how many pending items feed the Observe prompt.
	ContextLimit int `mapstructure:"context_limit"`
}

// MetaConfig controls the periodic self-reflective mutation generation.
type MetaConfig struct {
	// CycleInterval runs the meta observer every N cycles (0 disables it).
	CycleInterval int `mapstructure:"cycle_interval"`
	// DynamicTTL is the cycle lifetime granted to generated mutations.
	DynamicTTL int `mapstructure:"dynamic_ttl"`
	// MaxDynamicPersonas caps the dynamic persona pool.
	MaxDynamicPersonas int `mapstructure:"max_dynamic_personas"`
	// MaxDynamicAdversarials caps the dynamic adversarial pool.
	MaxDynamicAdversarials int `mapstructure:"max_dynamic_adversarials"`
}

// ScoutConfig controls periodic external-trend injection.
type ScoutConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// CycleInterval runs the scout every N cycles.
	CycleInterval int `mapstructure:"cycle_interval"`
	// MinRelevance is the [0,1] threshold below which findings are cached
	// but not injected as stimuli.
	MinRelevance float64 `mapstructure:"min_relevance"`
}

// LoggingConfig controls the append-only orchestrator log.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LevelPreset is a named bundle applied between defaults and the project
// file: only its non-zero fields take effect.
type LevelPreset struct {
	Model        string      `mapstructure:"model"`
	ObserveDepth string      `mapstructure:"observe_depth"`
	Turns        TurnsConfig `mapstructure:"turns"`
}

// AgentTimeout returns the per-invocation wall-clock limit.
func (a *AgentConfig) AgentTimeout() time.Duration {
	return time.Duration(a.TimeoutMinutes) * time.Minute
}

// RateLimitBackoff returns the fixed sleep before the single retry.
func (a *AgentConfig) RateLimitBackoff() time.Duration {
	return time.Duration(a.RateLimitBackoffSeconds) * time.Second
}

// Timeout returns the per-command verification limit.
func (v *VerifyConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutMinutes) * time.Minute
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model:                  "sonnet",
		Level:                  "standard",
		ObserveDepth:           "auto",
		MaxCycles:              10,
		AdversarialProbability: 0.3,
		CodeOutput:             "commit",
		ActiveGroup:            "",
		Cautious:               false,
		Personas:               map[string]bool{},
		Adversarials:           map[string]bool{},
		Turns: TurnsConfig{
			Observe: 15,
			Plan:    10,
			Execute: 40,
			Meta:    12,
			Scout:   12,
		},
		Observe: ObserveConfig{
			ShallowRatio:      0.05,
			DeepRatio:         0.15,
			ShallowFloor:      10,
			DeepFloor:         25,
			DeepCycleInterval: 5,
		},
		Verify: VerifyConfig{
			BuildCommand:   "",
			TestCommand:    "",
			TimeoutMinutes: 10,
		},
		Agent: AgentConfig{
			Command:                 "claude",
			TimeoutMinutes:          30,
			RateLimitBackoffSeconds: 60,
		},
		Weights: WeightsConfig{
			SuccessCoefficient: 0.5,
			FailureCoefficient: 0.3,
			RecencyBonus:       0.3,
			RecencyThreshold:   3,
			Min:                0.2,
			Max:                3.0,
		},
		Backlog: BacklogConfig{
			MaxAttempts:  3,
			PruneAge:     20,
			ContextLimit: 5,
		},
		Meta: MetaConfig{
			CycleInterval:          10,
			DynamicTTL:             30,
			MaxDynamicPersonas:     5,
			MaxDynamicAdversarials: 3,
		},
		Scout: ScoutConfig{
			Enabled:       false,
			CycleInterval: 15,
			MinRelevance:  0.6,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Levels: DefaultLevels(),
	}
}
