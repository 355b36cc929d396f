package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	assert.Equal(t, "gemini-2.5-flash", cfg.GenAI.LanguageModel)
	assert.Equal(t, "gemini-2.5-flash-image-preview", cfg.GenAI.ImageModel)
	assert.Equal(t, 2000, cfg.GenAI.DefineMaxTokens)
	assert.Equal(t, 5000, cfg.GenAI.ExecuteMaxTokens)
	assert.Equal(t, 20, cfg.GenAI.MaxSteps)

	assert.Equal(t, time.Hour, cfg.Session.TTL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  host: "127.0.0.1"
  port: 8888
  read_timeout: 60s
  api_key: "hunter2"
  cors_origins:
    - "https://studio.example.com"

metrics:
  enabled: false

genai:
  api_key: "file-key"
  language_model: "gemini-2.5-pro"
  define_max_tokens: 3000
  max_steps: 10

session:
  ttl: 30m

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "hunter2", cfg.Server.APIKey)
	assert.Equal(t, []string{"https://studio.example.com"}, cfg.Server.CORSOrigins)

	assert.False(t, cfg.Metrics.Enabled)
	// Untouched fields keep their defaults.
	assert.Equal(t, 9090, cfg.Metrics.Port)

	assert.Equal(t, "file-key", cfg.GenAI.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.GenAI.LanguageModel)
	assert.Equal(t, 3000, cfg.GenAI.DefineMaxTokens)
	assert.Equal(t, 10, cfg.GenAI.MaxSteps)
	assert.Equal(t, "gemini-2.5-flash-image-preview", cfg.GenAI.ImageModel)

	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("IMAGEFLOW_SERVER_PORT", "7777")
	t.Setenv("IMAGEFLOW_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("IMAGEFLOW_GENAI_LANGUAGE_MODEL", "gemini-env")
	t.Setenv("IMAGEFLOW_GENAI_USE_VERTEX", "true")
	t.Setenv("IMAGEFLOW_GENAI_PROJECT", "env-project")
	t.Setenv("IMAGEFLOW_GENAI_MAX_STEPS", "5")
	t.Setenv("IMAGEFLOW_GENAI_TIMEOUT", "90s")
	t.Setenv("IMAGEFLOW_SESSION_TTL", "45m")
	t.Setenv("IMAGEFLOW_RATE_LIMIT_RPS", "2.5")
	t.Setenv("IMAGEFLOW_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "gemini-env", cfg.GenAI.LanguageModel)
	assert.True(t, cfg.GenAI.UseVertex)
	assert.Equal(t, "env-project", cfg.GenAI.Project)
	assert.Equal(t, 5, cfg.GenAI.MaxSteps)
	assert.Equal(t, 90*time.Second, cfg.GenAI.Timeout)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8888
genai:
  language_model: "yaml-model"
  image_model: "yaml-image-model"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	t.Setenv("IMAGEFLOW_SERVER_PORT", "9999")
	t.Setenv("IMAGEFLOW_GENAI_LANGUAGE_MODEL", "env-model")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// Environment wins over YAML.
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "env-model", cfg.GenAI.LanguageModel)
	// YAML values without an env override survive.
	assert.Equal(t, "yaml-image-model", cfg.GenAI.ImageModel)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_PORT", "6666")
	t.Setenv("MYAPP_GENAI_IMAGE_MODEL", "custom-prefix-model")

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 6666, cfg.Server.Port)
	assert.Equal(t, "custom-prefix-model", cfg.GenAI.ImageModel)
}

func TestLoader_EnvAliases(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "alias-key")
	t.Setenv("LANGUAGE_MODEL", "alias-language-model")
	t.Setenv("IMAGE_MODEL", "alias-image-model")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "alias-project")
	t.Setenv("GOOGLE_CLOUD_LOCATION", "us-central1")
	t.Setenv("GOOGLE_GENAI_USE_VERTEXAI", "True")
	t.Setenv("LOGGING_LEVEL", "DEBUG")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "alias-key", cfg.GenAI.APIKey)
	assert.Equal(t, "alias-language-model", cfg.GenAI.LanguageModel)
	assert.Equal(t, "alias-image-model", cfg.GenAI.ImageModel)
	assert.Equal(t, "alias-project", cfg.GenAI.Project)
	assert.Equal(t, "us-central1", cfg.GenAI.Location)
	assert.True(t, cfg.GenAI.UseVertex)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_AliasYieldsToPrefixed(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "alias-key")
	t.Setenv("IMAGEFLOW_GENAI_API_KEY", "canonical-key")
	t.Setenv("LOGGING_LEVEL", "ERROR")
	t.Setenv("IMAGEFLOW_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "canonical-key", cfg.GenAI.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"True", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{"False", false},
		{"0", false},
		{"yes", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, isTruthy(tt.value))
		})
	}
}

func TestLoader_WithValidator(t *testing.T) {
	validator := func(cfg *Config) error {
		if cfg.Server.Port < 1024 {
			return assert.AnError
		}
		return nil
	}

	t.Setenv("IMAGEFLOW_SERVER_PORT", "80")

	_, err := NewLoader().
		WithValidator(validator).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
server:
  port: [invalid
  this is not valid yaml
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	// Defaults plus an API key, the minimum a running server needs.
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.GenAI.APIKey = "test-key"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid with api key",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "valid vertex mode without api key",
			modify: func(c *Config) {
				c.GenAI.APIKey = ""
				c.GenAI.UseVertex = true
				c.GenAI.Project = "demo-project"
			},
			wantErr: false,
		},
		{
			name: "missing api key",
			modify: func(c *Config) {
				c.GenAI.APIKey = ""
			},
			wantErr: true,
		},
		{
			name: "vertex mode without project",
			modify: func(c *Config) {
				c.GenAI.UseVertex = true
				c.GenAI.Project = ""
			},
			wantErr: true,
		},
		{
			name: "invalid server port (negative)",
			modify: func(c *Config) {
				c.Server.Port = -1
			},
			wantErr: true,
		},
		{
			name: "invalid server port (too large)",
			modify: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "metrics port collides with server port",
			modify: func(c *Config) {
				c.Metrics.Port = c.Server.Port
			},
			wantErr: true,
		},
		{
			name: "zero define token ceiling",
			modify: func(c *Config) {
				c.GenAI.DefineMaxTokens = 0
			},
			wantErr: true,
		},
		{
			name: "negative max steps",
			modify: func(c *Config) {
				c.GenAI.MaxSteps = -1
			},
			wantErr: true,
		},
		{
			name: "zero session ttl",
			modify: func(c *Config) {
				c.Session.TTL = 0
			},
			wantErr: true,
		},
		{
			name: "unknown log level",
			modify: func(c *Config) {
				c.Log.Level = "verbose"
			},
			wantErr: true,
		},
		{
			name: "unknown log format",
			modify: func(c *Config) {
				c.Log.Format = "xml"
			},
			wantErr: true,
		},
		{
			name: "rate limiting enabled without rps",
			modify: func(c *Config) {
				c.RateLimit.RPS = 0
			},
			wantErr: true,
		},
		{
			name: "rate limiting disabled skips limit checks",
			modify: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.RPS = 0
				c.RateLimit.Burst = 0
			},
			wantErr: false,
		},
		{
			name: "sample rate above one",
			modify: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SampleRate = 1.5
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GenAI.APIKey = "test-key"
	cfg.Server.Port = -1
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", s.Addr())

	m := MetricsConfig{Port: 9090}
	assert.Equal(t, ":9090", m.Addr())
}

func TestMustLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8080
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, 8080, cfg.Server.Port)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: [yaml"), 0644)
	require.NoError(t, err)

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	t.Setenv("IMAGEFLOW_GENAI_IMAGE_MODEL", "env-only-model")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-only-model", cfg.GenAI.ImageModel)
}
