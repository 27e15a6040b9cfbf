package main

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/phetsims/gene-expression-basics/internal/genex"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr          string
	DefaultSimID  string
	ParamsFile    string
	SnapshotDir   string
	EventFlushMs  int
	SnapshotEvery int
	LogLevel      string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment variables.
// Uses a resolver pattern to make it easy to add new configuration options.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	// Define all configuration resolvers
	// To add a new option, just add a new resolver here
	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "GENEX_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "sim-id",
			envVarName:  "GENEX_SIM_ID",
			defaultVal:  "default",
			description: "default simulation ID created at startup",
			setter:      func(c *ServerConfig, v string) { c.DefaultSimID = v },
		},
		{
			flagName:    "params-file",
			envVarName:  "GENEX_PARAMS_FILE",
			defaultVal:  "",
			description: "optional path to a JSON parameters file for the default simulation",
			setter:      func(c *ServerConfig, v string) { c.ParamsFile = v },
		},
		{
			flagName:    "snapshot-dir",
			envVarName:  "GENEX_SNAPSHOT_DIR",
			defaultVal:  "./data",
			description: "Directory where simulation snapshots are stored",
			setter:      func(c *ServerConfig, v string) { c.SnapshotDir = v },
		},
		{
			flagName:    "event-flush-ms",
			envVarName:  "GENEX_EVENT_FLUSH_MS",
			defaultVal:  "100",
			description: "How often the server drains simulation events to notifiers (milliseconds)",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil && val > 0 {
					c.EventFlushMs = val
				} else {
					log.Printf("Invalid value for event-flush-ms: %s, using default 100", v)
					c.EventFlushMs = 100
				}
			},
		},
		{
			flagName:    "snapshot-every-ms",
			envVarName:  "GENEX_SNAPSHOT_EVERY_MS",
			defaultVal:  "0",
			description: "How often snapshots of every simulation are written to disk (milliseconds, 0 disables)",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil && val >= 0 {
					c.SnapshotEvery = val
				} else {
					log.Printf("Invalid value for snapshot-every-ms: %s, disabling periodic snapshots", v)
					c.SnapshotEvery = 0
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "GENEX_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	// Register string flags first
	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	// Parse flags once
	flag.Parse()

	// Resolve values for each resolver
	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}

// loadParametersFromFile loads a simulation parameter set from a JSON file.
func loadParametersFromFile(path string) (*genex.Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return genex.ParseParameters(data)
}

// createDefaultSimulation creates the startup simulation, reading parameters
// from the configured file when one is given and falling back to defaults.
func createDefaultSimulation(manager *genex.SimulationManager, paramsFile string, simID genex.SimulationID) error {
	params := genex.DefaultParameters()
	if paramsFile != "" {
		loaded, err := loadParametersFromFile(paramsFile)
		if err != nil {
			return err
		}
		params = loaded
	}
	return manager.CreateSimulation(simID, params)
}
