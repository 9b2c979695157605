package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motormind/autoassist/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// scrubEnv blanks the override variables so values leaking in from the test
// host cannot change what Load returns. applyEnv ignores empty values.
func scrubEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"AUTOASSIST_LOG_LEVEL",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, []string{"autoassist-server"}, cfg.Server.Command)
	assert.Equal(t, 2*time.Second, cfg.CloseTimeout())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	scrubEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	scrubEnv(t)
	path := writeConfig(t, `
openai:
  model: gpt-4o
server:
  command: ["./bin/autoassist-server", "-log-level", "debug"]
  close_timeout_sec: 5
log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, []string{"./bin/autoassist-server", "-log-level", "debug"}, cfg.Server.Command)
	assert.Equal(t, 5*time.Second, cfg.CloseTimeout())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	scrubEnv(t)
	t.Setenv("TEST_AUTOASSIST_KEY", "sk-from-env")
	path := writeConfig(t, `
openai:
  api_key: ${TEST_AUTOASSIST_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4.1")
	t.Setenv("OPENAI_API_KEY", "sk-winner")
	path := writeConfig(t, `
openai:
  model: gpt-4o
  api_key: sk-file
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.OpenAI.Model)
	assert.Equal(t, "sk-winner", cfg.OpenAI.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "openai: [not: a: mapping")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "empty server command",
			mutate:  func(c *Config) { c.Server.Command = nil },
			wantErr: "server.command",
		},
		{
			name:    "blank executable",
			mutate:  func(c *Config) { c.Server.Command = []string{"  "} },
			wantErr: "server.command",
		},
		{
			name:    "negative close timeout",
			mutate:  func(c *Config) { c.Server.CloseTimeoutSec = -1 },
			wantErr: "close_timeout_sec",
		},
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.OpenAI.Model = "" },
			wantErr: "openai.model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestFindConfigExplicitExisting(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")
	found, err := FindConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}
