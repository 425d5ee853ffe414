package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Resolver loads and resolves configuration for one project. Each Resolver
// owns its own viper instance so orchestration contexts stay independent;
// nothing here touches process-wide state.
type Resolver struct {
	v    *viper.Viper
	path string
	cfg  *Config
}

// NewResolver creates a Resolver for the project config file at path
// (normally <project>/.kaizen/config.json). The file may be absent.
func NewResolver(path string) *Resolver {
	return &Resolver{path: path}
}

// Load resolves the configuration: built-in defaults, then the active level
// preset, then every field present in the project file, then the explicit
// runtime overrides. Legacy disabled-id lists in the project file are
// migrated into the toggle maps. The result is validated before return.
func (r *Resolver) Load(overrides map[string]string) (*Config, error) {
	r.v = viper.New()
	r.v.SetEnvPrefix("KAIZEN")
	r.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	r.v.AutomaticEnv()
	setDefaults(r.v, Default())

	raw, err := readProjectFile(r.path)
	if err != nil {
		return nil, err
	}
	migrateLegacyToggles(raw)

	// The preset is a baseline between defaults and the file, so it is
	// registered as a (later, winning) default rather than a Set.
	level := activeLevel(raw, overrides)
	if preset, ok := lookupPreset(raw, level); ok {
		applyPreset(r.v, preset)
	}

	if len(raw) > 0 {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode project config: %w", err)
		}
		r.v.SetConfigType("json")
		if err := r.v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to read project config: %w", err)
		}
	}

	for key, value := range overrides {
		if err := r.setValue(key, value); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := r.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// Project-declared presets extend the built-in set rather than replace it.
	if cfg.Levels == nil {
		cfg.Levels = map[string]LevelPreset{}
	}
	for name, preset := range DefaultLevels() {
		if _, ok := cfg.Levels[name]; !ok {
			cfg.Levels[name] = preset
		}
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	r.cfg = &cfg
	return &cfg, nil
}

// Config returns the most recently loaded configuration, or nil.
func (r *Resolver) Config() *Config {
	return r.cfg
}

// Get returns the resolved value for a dot-separated key.
func (r *Resolver) Get(key string) (any, error) {
	if r.v == nil {
		if _, err := r.Load(nil); err != nil {
			return nil, err
		}
	}
	value := r.v.Get(key)
	if value == nil {
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}
	return value, nil
}

// Set applies a runtime value for a dot-separated key, coercing the string
// to the type of the existing field. `personas.<id>` and `adversarials.<id>`
// toggle entries are accepted even when the id has never been seen.
func (r *Resolver) Set(key, value string) error {
	if r.v == nil {
		if _, err := r.Load(nil); err != nil {
			return err
		}
	}
	return r.setValue(key, value)
}

// setValue coerces and stores one key. Runtime Sets win over every other tier.
func (r *Resolver) setValue(key, value string) error {
	coerced, err := r.coerce(key, value)
	if err != nil {
		return err
	}
	r.v.Set(key, coerced)
	return nil
}

// coerce infers the target type from the existing field's value.
func (r *Resolver) coerce(key, value string) (any, error) {
	current := r.v.Get(key)
	if current == nil {
		// Toggle entries are boolean and may name brand-new ids.
		if strings.HasPrefix(key, "personas.") || strings.HasPrefix(key, "adversarials.") {
			return coerceBool(key, value)
		}
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}

	switch current.(type) {
	case bool:
		return coerceBool(key, value)
	case int, int32, int64:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s: expected integer, got %q", key, value)
		}
		return n, nil
	case float32, float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: expected number, got %q", key, value)
		}
		return f, nil
	case string:
		return value, nil
	default:
		return nil, fmt.Errorf("%s: cannot set values of type %T", key, current)
	}
}

func coerceBool(key, value string) (any, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("%s: expected true or false, got %q", key, value)
	}
	return b, nil
}

// Save persists one key into the project config file so it survives future
// runs. The file is rewritten as plain JSON; comments are not preserved.
func (r *Resolver) Save(key, value string) error {
	if err := r.Set(key, value); err != nil {
		return err
	}

	raw, err := readProjectFile(r.path)
	if err != nil {
		return err
	}
	migrateLegacyToggles(raw)

	coerced, err := r.coerce(key, value)
	if err != nil {
		return err
	}
	setNested(raw, strings.Split(key, "."), coerced)

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// setNested walks a dot path through nested maps, creating levels as needed.
func setNested(m map[string]any, path []string, value any) {
	for i := 0; i < len(path)-1; i++ {
		child, ok := m[path[i]].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[path[i]] = child
		}
		m = child
	}
	m[path[len(path)-1]] = value
}

// readProjectFile parses the project config file into a raw map, stripping
// // line comments first. A missing file yields an empty map.
func readProjectFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	stripped := StripComments(data)
	raw := map[string]any{}
	if len(bytes.TrimSpace(stripped)) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(stripped, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse project config %s: %w", path, err)
	}
	return raw, nil
}

// StripComments removes // line comments from JSON text. Comment markers
// inside string literals are preserved.
func StripComments(data []byte) []byte {
	var out bytes.Buffer
	inString := false
	escaped := false

	for i := 0; i < len(data); i++ {
		c := data[i]

		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}

		if c == '/' && i+1 < len(data) && data[i+1] == '/' {
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out.WriteByte('\n')
			}
			continue
		}

		out.WriteByte(c)
	}
	return out.Bytes()
}

// migrateLegacyToggles converts the old list-based disabled-id config
// (disabled_personas / disabled_adversarials) into the toggle-map form.
// Explicit toggle entries win over the legacy lists.
func migrateLegacyToggles(raw map[string]any) {
	migrateList(raw, "disabled_personas", "personas")
	migrateList(raw, "disabled_adversarials", "adversarials")
}

func migrateList(raw map[string]any, legacyKey, mapKey string) {
	list, ok := raw[legacyKey].([]any)
	if !ok {
		delete(raw, legacyKey)
		return
	}

	toggles, ok := raw[mapKey].(map[string]any)
	if !ok {
		toggles = map[string]any{}
	}
	for _, entry := range list {
		id, ok := entry.(string)
		if !ok || id == "" {
			continue
		}
		if _, exists := toggles[id]; !exists {
			toggles[id] = false
		}
	}
	if len(toggles) > 0 {
		raw[mapKey] = toggles
	}
	delete(raw, legacyKey)
}

// activeLevel returns the level name that should select the preset baseline:
// a runtime override wins, then the project file, then the default.
func activeLevel(raw map[string]any, overrides map[string]string) string {
	if level, ok := overrides["level"]; ok && level != "" {
		return level
	}
	if level, ok := raw["level"].(string); ok && level != "" {
		return level
	}
	return Default().Level
}

// lookupPreset finds the preset for a level name, preferring a project-file
// declared preset over the built-in one.
func lookupPreset(raw map[string]any, level string) (LevelPreset, bool) {
	if levels, ok := raw["levels"].(map[string]any); ok {
		if entry, ok := levels[level].(map[string]any); ok {
			var preset LevelPreset
			data, err := json.Marshal(entry)
			if err == nil && json.Unmarshal(data, &preset) == nil {
				return preset, true
			}
		}
	}
	preset, ok := DefaultLevels()[level]
	return preset, ok
}

// applyPreset registers a preset's non-zero fields as defaults. Because this
// happens after setDefaults, the preset wins over plain defaults while still
// losing to the project file and runtime overrides.
func applyPreset(v *viper.Viper, preset LevelPreset) {
	if preset.Model != "" {
		v.SetDefault("model", preset.Model)
	}
	if preset.ObserveDepth != "" {
		v.SetDefault("observe_depth", preset.ObserveDepth)
	}
	if preset.Turns.Observe > 0 {
		v.SetDefault("turns.observe", preset.Turns.Observe)
	}
	if preset.Turns.Plan > 0 {
		v.SetDefault("turns.plan", preset.Turns.Plan)
	}
	if preset.Turns.Execute > 0 {
		v.SetDefault("turns.execute", preset.Turns.Execute)
	}
	if preset.Turns.Meta > 0 {
		v.SetDefault("turns.meta", preset.Turns.Meta)
	}
	if preset.Turns.Scout > 0 {
		v.SetDefault("turns.scout", preset.Turns.Scout)
	}
}

// setDefaults registers every default with the viper instance.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("model", defaults.Model)
	v.SetDefault("level", defaults.Level)
	v.SetDefault("observe_depth", defaults.ObserveDepth)
	v.SetDefault("max_cycles", defaults.MaxCycles)
	v.SetDefault("adversarial_probability", defaults.AdversarialProbability)
	v.SetDefault("code_output", defaults.CodeOutput)
	v.SetDefault("active_group", defaults.ActiveGroup)
	v.SetDefault("cautious", defaults.Cautious)
	v.SetDefault("personas", defaults.Personas)
	v.SetDefault("adversarials", defaults.Adversarials)

	v.SetDefault("turns.observe", defaults.Turns.Observe)
	v.SetDefault("turns.plan", defaults.Turns.Plan)
	v.SetDefault("turns.execute", defaults.Turns.Execute)
	v.SetDefault("turns.meta", defaults.Turns.Meta)
	v.SetDefault("turns.scout", defaults.Turns.Scout)

	v.SetDefault("observe.shallow_ratio", defaults.Observe.ShallowRatio)
	v.SetDefault("observe.deep_ratio", defaults.Observe.DeepRatio)
	v.SetDefault("observe.shallow_floor", defaults.Observe.ShallowFloor)
	v.SetDefault("observe.deep_floor", defaults.Observe.DeepFloor)
	v.SetDefault("observe.deep_cycle_interval", defaults.Observe.DeepCycleInterval)

	v.SetDefault("verify.build_command", defaults.Verify.BuildCommand)
	v.SetDefault("verify.test_command", defaults.Verify.TestCommand)
	v.SetDefault("verify.timeout_minutes", defaults.Verify.TimeoutMinutes)

	v.SetDefault("agent.command", defaults.Agent.Command)
	v.SetDefault("agent.timeout_minutes", defaults.Agent.TimeoutMinutes)
	v.SetDefault("agent.rate_limit_backoff_seconds", defaults.Agent.RateLimitBackoffSeconds)

	v.SetDefault("weights.success_coefficient", defaults.Weights.SuccessCoefficient)
	v.SetDefault("weights.failure_coefficient", defaults.Weights.FailureCoefficient)
	v.SetDefault("weights.recency_bonus", defaults.Weights.RecencyBonus)
	v.SetDefault("weights.recency_threshold", defaults.Weights.RecencyThreshold)
	v.SetDefault("weights.min", defaults.Weights.Min)
	v.SetDefault("weights.max", defaults.Weights.Max)

	v.SetDefault("backlog.max_attempts", defaults.Backlog.MaxAttempts)
	v.SetDefault("backlog.prune_age", defaults.Backlog.PruneAge)
	v.SetDefault("backlog.context_limit", defaults.Backlog.ContextLimit)

	v.SetDefault("meta.cycle_interval", defaults.Meta.CycleInterval)
	v.SetDefault("meta.dynamic_ttl", defaults.Meta.DynamicTTL)
	v.SetDefault("meta.max_dynamic_personas", defaults.Meta.MaxDynamicPersonas)
	v.SetDefault("meta.max_dynamic_adversarials", defaults.Meta.MaxDynamicAdversarials)

	v.SetDefault("scout.enabled", defaults.Scout.Enabled)
	v.SetDefault("scout.cycle_interval", defaults.Scout.CycleInterval)
	v.SetDefault("scout.min_relevance", defaults.Scout.MinRelevance)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}
