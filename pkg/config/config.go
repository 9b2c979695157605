// Package config handles autoassist configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/motormind/autoassist/pkg/errors"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/autoassist/config.yaml, /etc/autoassist/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "autoassist", "config.yaml"))
	}

	paths = append(paths, "/etc/autoassist/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists,
// or empty if nothing was found (the config file is optional).
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.ConfigurationError(fmt.Sprintf("config file not found: %s", explicit))
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

// OpenAIConfig defines chat-completion API settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ServerConfig defines how the MCP server child process is spawned.
type ServerConfig struct {
	// Command is the server executable plus arguments, e.g.
	// ["autoassist-server"]. The first element is the binary.
	Command []string `yaml:"command"`
	// CloseTimeoutSec is how long Close waits for a clean exit before
	// killing the child (default 2).
	CloseTimeoutSec int `yaml:"close_timeout_sec"`
}

// TracingConfig defines OTLP trace export settings. Export is off unless an
// endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	Environment string `yaml:"environment"`
}

// Config holds all autoassist configuration.
type Config struct {
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Server   ServerConfig  `yaml:"server"`
	Tracing  TracingConfig `yaml:"tracing"`
	LogLevel string        `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Server: ServerConfig{
			Command:         []string{"autoassist-server"},
			CloseTimeoutSec: 2,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from a YAML file on top of Default, then applies
// environment overrides. An empty path skips the file and uses defaults plus
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapConfig(err, fmt.Sprintf("read config %s", path))
		}

		// Expand environment variables
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.WrapConfig(err, fmt.Sprintf("parse config %s", path))
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets well-known environment variables override file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("AUTOASSIST_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
}

// Validate checks the loaded configuration for values that cannot work.
// The API key is not required here; only commands that talk to the model
// need it, and they report its absence themselves.
func (c *Config) Validate() error {
	if len(c.Server.Command) == 0 || strings.TrimSpace(c.Server.Command[0]) == "" {
		return errors.ConfigurationError("server.command must name an executable")
	}
	if c.Server.CloseTimeoutSec < 0 {
		return errors.ConfigurationError("server.close_timeout_sec must not be negative")
	}
	if strings.TrimSpace(c.OpenAI.Model) == "" {
		return errors.ConfigurationError("openai.model must not be empty")
	}
	return nil
}

// CloseTimeout returns the configured child shutdown grace period.
func (c *Config) CloseTimeout() time.Duration {
	return time.Duration(c.Server.CloseTimeoutSec) * time.Second
}
