package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// NativeLibraryConfig describes where the engine's native runtime comes from.
// An empty Source means the engine is pure Go and nothing has to be loaded.
type NativeLibraryConfig struct {
	Source     string `yaml:"source"`      // Path to the shared object to stage
	InitSymbol string `yaml:"init_symbol"` // Exported func() error called to validate the load
	StagingDir string `yaml:"staging_dir"` // Overrides the task temp directory as staging root
}

// StateBackendConfig is the serializable part of the state backend
// definition. It is shipped to every worker; the in-process options factory
// is supplied separately wherever the backend runs.
type StateBackendConfig struct {
	CheckpointDataURI     string              `yaml:"checkpoint_data_uri"`
	CheckpointCompression string              `yaml:"checkpoint_compression"`
	StoragePaths          []string            `yaml:"storage_paths"`      // Omitted means "use the task spilling directories"; [] is rejected
	PredefinedOptions     string              `yaml:"predefined_options"` // DEFAULT, SPINNING_DISK_OPTIMIZED, ...
	Options               map[string]string   `yaml:"options"`            // Overrides applied on top of the profile
	NativeLibrary         NativeLibraryConfig `yaml:"native_library"`
	// MinFreeDisk rejects provisioning when no configured storage path has
	// this much free space, e.g. "10GB". Empty disables the check.
	MinFreeDisk string `yaml:"min_free_disk"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Output string `yaml:"output"` // e.g., "stdout", "file", "none"
	File   string `yaml:"file"`   // Path to the log file, used if output is "file"
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // e.g., "localhost:4317" for gRPC OTLP collector
	Protocol string `yaml:"protocol"` // "grpc" or "http"
}

// Config is the top-level configuration struct.
type Config struct {
	StateBackend StateBackendConfig `yaml:"state_backend"`
	Logging      LoggingConfig      `yaml:"logging"`
	Tracing      TracingConfig      `yaml:"tracing"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		StateBackend: StateBackendConfig{
			CheckpointDataURI:     "file:///tmp/nexusstate/checkpoints",
			CheckpointCompression: "snappy",
			StoragePaths:          nil,
			PredefinedOptions:     "DEFAULT",
			NativeLibrary: NativeLibraryConfig{
				InitSymbol: "EngineInit",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
			File:   "nexusstate.log",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
	}
}

// Load reads configuration from an io.Reader, overlaying it on Default.
// A nil or empty reader yields the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
