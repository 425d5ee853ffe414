package config

// DefaultLevels returns the built-in level presets. A preset is applied as a
// baseline on top of the defaults; fields present in the project config file
// still win over it.
func DefaultLevels() map[string]LevelPreset {
	return map[string]LevelPreset{
		"light": {
			Model:        "haiku",
			ObserveDepth: "shallow",
			Turns: TurnsConfig{
				Observe: 8,
				Plan:    6,
				Execute: 20,
				Meta:    8,
				Scout:   8,
			},
		},
		"standard": {
			Model:        "sonnet",
			ObserveDepth: "auto",
			Turns: TurnsConfig{
				Observe: 15,
				Plan:    10,
				Execute: 40,
				Meta:    12,
				Scout:   12,
			},
		},
		"thorough": {
			Model:        "opus",
			ObserveDepth: "deep",
			Turns: TurnsConfig{
				Observe: 30,
				Plan:    15,
				Execute: 60,
				Meta:    15,
				Scout:   15,
			},
		},
	}
}

// KnownLevel reports whether name is a built-in or user-declared preset.
func (c *Config) KnownLevel(name string) bool {
	if name == "" {
		return false
	}
	_, ok := c.Levels[name]
	return ok
}
