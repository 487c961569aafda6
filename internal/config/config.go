package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Ingest  IngestConfig  `yaml:"ingest" envconfig:"INGEST"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains request rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// IngestConfig bounds dataset uploads and aggregation output.
type IngestConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	MaxDatasets    int   `yaml:"max_datasets" envconfig:"MAX_DATASETS" default:"16"`
	TopMakes       int   `yaml:"top_makes" envconfig:"TOP_MAKES" default:"12"`
}

// PathsConfig contains file system paths configuration.
type PathsConfig struct {
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values,
// which take precedence over the built-in defaults.
func Load() (*Config, error) {
	var envCfg Config

	if err := envconfig.Process("PRICEDASH", &envCfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg := envCfg
	if configFile := findConfigFile(); configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = merge(*fileCfg, envCfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file. The file is
// unmarshaled over the defaults, so keys absent from the file keep
// their default values.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := *Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// merge overlays env config onto file config. envconfig fills unset
// variables from the default tags, so an env field counts as set only
// when it differs from the defaults; exporting a variable with its
// default value is indistinguishable from leaving it unset.
func merge(fileCfg, envCfg Config) Config {
	def := Default()
	out := fileCfg

	if envCfg.Server.Port != def.Server.Port {
		out.Server.Port = envCfg.Server.Port
	}
	if envCfg.Server.ReadTimeout != def.Server.ReadTimeout {
		out.Server.ReadTimeout = envCfg.Server.ReadTimeout
	}
	if envCfg.Server.WriteTimeout != def.Server.WriteTimeout {
		out.Server.WriteTimeout = envCfg.Server.WriteTimeout
	}
	if envCfg.Server.IdleTimeout != def.Server.IdleTimeout {
		out.Server.IdleTimeout = envCfg.Server.IdleTimeout
	}
	if envCfg.Server.ShutdownTimeout != def.Server.ShutdownTimeout {
		out.Server.ShutdownTimeout = envCfg.Server.ShutdownTimeout
	}
	if envCfg.Server.RateLimit.Enabled != def.Server.RateLimit.Enabled {
		out.Server.RateLimit.Enabled = envCfg.Server.RateLimit.Enabled
	}
	if envCfg.Server.RateLimit.RPS != def.Server.RateLimit.RPS {
		out.Server.RateLimit.RPS = envCfg.Server.RateLimit.RPS
	}
	if envCfg.Server.RateLimit.Burst != def.Server.RateLimit.Burst {
		out.Server.RateLimit.Burst = envCfg.Server.RateLimit.Burst
	}
	if envCfg.Logging.Level != def.Logging.Level {
		out.Logging.Level = envCfg.Logging.Level
	}
	if envCfg.Logging.Output != def.Logging.Output {
		out.Logging.Output = envCfg.Logging.Output
	}
	if envCfg.Logging.FilePath != def.Logging.FilePath {
		out.Logging.FilePath = envCfg.Logging.FilePath
	}
	if envCfg.Ingest.MaxUploadBytes != def.Ingest.MaxUploadBytes {
		out.Ingest.MaxUploadBytes = envCfg.Ingest.MaxUploadBytes
	}
	if envCfg.Ingest.MaxDatasets != def.Ingest.MaxDatasets {
		out.Ingest.MaxDatasets = envCfg.Ingest.MaxDatasets
	}
	if envCfg.Ingest.TopMakes != def.Ingest.TopMakes {
		out.Ingest.TopMakes = envCfg.Ingest.TopMakes
	}
	if envCfg.Paths.ReportsDir != def.Paths.ReportsDir {
		out.Paths.ReportsDir = envCfg.Paths.ReportsDir
	}
	if envCfg.Paths.LogsDir != def.Paths.LogsDir {
		out.Paths.LogsDir = envCfg.Paths.LogsDir
	}

	return out
}

// validate checks the configuration and normalizes fallback values.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Ingest.MaxDatasets <= 0 {
		return fmt.Errorf("max datasets must be positive")
	}

	if c.Ingest.TopMakes <= 0 {
		c.Ingest.TopMakes = 12
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// findConfigFile returns the path to the config file, if one exists.
// PRICEDASH_CONFIG_FILE overrides the search locations.
func findConfigFile() string {
	if path := os.Getenv("PRICEDASH_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Ingest: IngestConfig{
			MaxUploadBytes: 32 << 20,
			MaxDatasets:    16,
			TopMakes:       12,
		},
		Paths: PathsConfig{
			ReportsDir: "reports",
			LogsDir:    "logs",
		},
	}
}
