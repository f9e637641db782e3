// Package config handles settings and layer store loading.
package config

// Config holds all engine settings.
type Config struct {
	Effect     EffectConfig     `yaml:"effect"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// EffectConfig holds the global effect settings.
type EffectConfig struct {
	Enabled          bool    `yaml:"enabled"`
	StrengthBase     float64 `yaml:"strength_base"`
	LengthMult       float64 `yaml:"length_mult"`
	DisableParticles bool    `yaml:"disable_particles"`
	DisableBowshock  bool    `yaml:"disable_bowshock"`
	HDROverride      bool    `yaml:"hdr_override"`
	DebugMode        bool    `yaml:"debug_mode"` // Publish the wireframe overlay

	// Debounce windows, in simulation steps.
	LoadDelaySteps    int `yaml:"load_delay_steps"`
	RebuildDelaySteps int `yaml:"rebuild_delay_steps"`
}

// SimulationConfig holds the scenario runner settings.
type SimulationConfig struct {
	LayersPath   string  `yaml:"layers_path"`   // Layer store YAML
	ScenarioPath string  `yaml:"scenario_path"` // Scenario YAML
	Steps        int     `yaml:"steps"`         // 0 runs the whole scenario
	StepDt       float64 `yaml:"step_dt"`       // Fixed step length in seconds
	EventBuffer  int     `yaml:"event_buffer"`  // Manager event channel capacity
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// TelemetryConfig holds metrics settings.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Effect: EffectConfig{
			Enabled:           true,
			StrengthBase:      2800,
			LengthMult:        1,
			DisableParticles:  false,
			DisableBowshock:   false,
			HDROverride:       false,
			DebugMode:         false,
			LoadDelaySteps:    20,
			RebuildDelaySteps: 1,
		},
		Simulation: SimulationConfig{
			LayersPath:  "layers.yaml",
			Steps:       0,
			StepDt:      0.02,
			EventBuffer: 64,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}
