package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagLayers   = flag.String("layers", "", "Path to the layer store")
	flagScenario = flag.String("scenario", "", "Path to the scenario file")
	flagSteps    = flag.Int("steps", 0, "Number of simulation steps to run")

	flagExportBody = flag.String("export-body", "", "Write the resolved config of a body and exit")
	flagExportPath = flag.String("export", "", "Output path for -export-body (default <body>.yaml)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// ExportBody returns the body requested with --export-body and the file to
// write it to. name is empty when no export was requested.
func ExportBody() (name, path string) {
	name = *flagExportBody
	if name == "" {
		return "", ""
	}
	path = *flagExportPath
	if path == "" {
		path = name + ".yaml"
	}
	return name, path
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLayers != "" {
		cfg.Simulation.LayersPath = *flagLayers
	}
	if *flagScenario != "" {
		cfg.Simulation.ScenarioPath = *flagScenario
	}
	if *flagSteps > 0 {
		cfg.Simulation.Steps = *flagSteps
	}
}
