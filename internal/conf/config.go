// Package conf loads sigpull configuration from an optional YAML file, the
// environment (SIGPULL_ prefix) and finally command-line overrides, in that
// order of precedence.
package conf

import (
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sigpull/sigpull/internal/device"
)

// Config holds everything the CLI needs to reach a device.
type Config struct {
	Address    string        `env:"ADDRESS"`
	Username   string        `env:"USERNAME"`
	Password   string        `env:"PASSWORD"`
	OutputDir  string        `env:"OUTPUT_DIR"`
	MaxResults int           `env:"MAX_RESULTS"`
	Timeout    time.Duration `env:"TIMEOUT"`
	LogLevel   string        `env:"LOG_LEVEL"`
	LogFile    string        `env:"LOG_FILE"`
}

// yamlConfig mirrors Config for file loading; the timeout is a string so the
// file can say "5m" rather than nanoseconds.
type yamlConfig struct {
	Address    string `yaml:"address"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	OutputDir  string `yaml:"output_dir"`
	MaxResults int    `yaml:"max_results"`
	Timeout    string `yaml:"timeout"`
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Username:   device.DefaultUsername,
		OutputDir:  "./media",
		MaxResults: device.DefaultMaxResults,
		Timeout:    device.DefaultTimeout,
		LogLevel:   "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if path is non-empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config file")
		}
		var yc yamlConfig
		if err := yaml.Unmarshal(data, &yc); err != nil {
			return cfg, errors.Wrap(err, "parse config file")
		}
		if err := cfg.apply(yc); err != nil {
			return cfg, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SIGPULL_"}); err != nil {
		return cfg, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}

func (c *Config) apply(yc yamlConfig) error {
	if yc.Address != "" {
		c.Address = yc.Address
	}
	if yc.Username != "" {
		c.Username = yc.Username
	}
	if yc.Password != "" {
		c.Password = yc.Password
	}
	if yc.OutputDir != "" {
		c.OutputDir = yc.OutputDir
	}
	if yc.MaxResults != 0 {
		c.MaxResults = yc.MaxResults
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return errors.Wrap(err, "parse timeout")
		}
		c.Timeout = d
	}
	if yc.LogLevel != "" {
		c.LogLevel = yc.LogLevel
	}
	if yc.LogFile != "" {
		c.LogFile = yc.LogFile
	}
	return nil
}

// Validate checks the configuration before any network use.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("conf: device address is required")
	}
	if c.MaxResults <= 0 {
		return errors.New("conf: max results must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("conf: timeout must be positive")
	}
	return nil
}
