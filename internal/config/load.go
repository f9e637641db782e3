package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding a config path. The
// --config flag takes precedence over it.
const EnvConfig = "ENTRYFX_CONFIG"

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Flags win over the file
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if math.IsNaN(c.Effect.StrengthBase) || math.IsInf(c.Effect.StrengthBase, 0) {
		errs = append(errs, fmt.Errorf("effect.strength_base must be finite"))
	}
	if c.Effect.LengthMult < 0 {
		errs = append(errs, fmt.Errorf("effect.length_mult must not be negative, got %v", c.Effect.LengthMult))
	}
	if c.Effect.LoadDelaySteps < 0 || c.Effect.RebuildDelaySteps < 0 {
		errs = append(errs, fmt.Errorf("effect delays must not be negative"))
	}
	if c.Simulation.StepDt <= 0 {
		errs = append(errs, fmt.Errorf("simulation.step_dt must be positive, got %v", c.Simulation.StepDt))
	}
	if c.Simulation.Steps < 0 {
		errs = append(errs, fmt.Errorf("simulation.steps must not be negative, got %d", c.Simulation.Steps))
	}
	if c.Simulation.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("simulation.event_buffer must be at least 1, got %d", c.Simulation.EventBuffer))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./entryfx.yaml",
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "EntryFX")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "EntryFX")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "entryfx")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "entryfx")
	}
}

// loadFromFile merges a YAML file into cfg. Unknown keys are rejected.
// Relative layer and scenario paths set by the file are resolved against the
// file's directory.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	layers, scenario := cfg.Simulation.LayersPath, cfg.Simulation.ScenarioPath

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	dir := filepath.Dir(path)
	if cfg.Simulation.LayersPath != layers {
		cfg.Simulation.LayersPath = relativeTo(dir, cfg.Simulation.LayersPath)
	}
	if cfg.Simulation.ScenarioPath != scenario {
		cfg.Simulation.ScenarioPath = relativeTo(dir, cfg.Simulation.ScenarioPath)
	}
	return nil
}

func relativeTo(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
