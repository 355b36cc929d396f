package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ImageFlow configuration.
type Config struct {
	// Server configures the public HTTP listener.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Metrics configures the Prometheus listener.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// GenAI configures the Gemini model client.
	GenAI GenAIConfig `yaml:"genai" env:"GENAI"`

	// Session configures per-user session lifetime.
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// RateLimit configures per-client request throttling.
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures OpenTelemetry tracing.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Bind host
	Host string `yaml:"host" env:"HOST"`
	// HTTP port
	Port int `yaml:"port" env:"PORT"`
	// Read timeout
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout. Zero means unlimited; execution streams stay open
	// longer than any sane fixed deadline.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Idle connection timeout
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// API key required on /v1 routes. Empty disables authentication.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Allowed CORS origins
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MetricsConfig holds the metrics endpoint settings.
type MetricsConfig struct {
	// Whether to expose Prometheus metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Port for the metrics listener
	Port int `yaml:"port" env:"PORT"`
}

// Addr returns the metrics listen address.
func (m MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", m.Port)
}

// GenAIConfig holds the Gemini client settings.
type GenAIConfig struct {
	// API key for the Gemini API
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Base URL override (optional)
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Google Cloud project, required in Vertex mode
	Project string `yaml:"project" env:"PROJECT"`
	// Google Cloud location
	Location string `yaml:"location" env:"LOCATION"`
	// Whether to call Vertex AI instead of the Gemini API
	UseVertex bool `yaml:"use_vertex" env:"USE_VERTEX"`
	// Model used to compile workflow definitions
	LanguageModel string `yaml:"language_model" env:"LANGUAGE_MODEL"`
	// Model used to edit images
	ImageModel string `yaml:"image_model" env:"IMAGE_MODEL"`
	// Output token ceiling for definition calls
	DefineMaxTokens int `yaml:"define_max_tokens" env:"DEFINE_MAX_TOKENS"`
	// Output token ceiling for per-step execution calls
	ExecuteMaxTokens int `yaml:"execute_max_tokens" env:"EXECUTE_MAX_TOKENS"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Upper bound on steps per workflow. Zero disables the check.
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	// Idle TTL before a session is evicted
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// Interval between eviction sweeps
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// RateLimitConfig holds request throttling settings.
type RateLimitConfig struct {
	// Whether to throttle requests
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Sustained requests per second per client
	RPS float64 `yaml:"rps" env:"RPS"`
	// Burst allowance per client
	Burst int `yaml:"burst" env:"BURST"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Log level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Output format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Whether to record the calling site
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// Whether to record stacktraces on error
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	// Whether to export traces
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP collector endpoint
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Reported service name
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Trace sampling ratio in [0, 1]
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader assembles a Config from defaults, an optional YAML file, and
// environment variables, in that order.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader returns a Loader with the standard IMAGEFLOW env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "IMAGEFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file to load.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load builds the configuration.
// Precedence: defaults, then YAML file, then environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := l.applyEnvAliases(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env aliases: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile merges a YAML file into cfg. A missing file is not an error.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv applies IMAGEFLOW_-prefixed environment overrides.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks the struct and overrides tagged fields.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// envAlias maps an environment name used by the original deployment onto
// its canonical field. The prefixed variable always wins over the alias.
type envAlias struct {
	alias     string
	canonical string
	apply     func(*Config, string)
}

func envAliases() []envAlias {
	return []envAlias{
		{"GEMINI_API_KEY", "GENAI_API_KEY", func(c *Config, v string) { c.GenAI.APIKey = v }},
		{"LANGUAGE_MODEL", "GENAI_LANGUAGE_MODEL", func(c *Config, v string) { c.GenAI.LanguageModel = v }},
		{"IMAGE_MODEL", "GENAI_IMAGE_MODEL", func(c *Config, v string) { c.GenAI.ImageModel = v }},
		{"GOOGLE_CLOUD_PROJECT", "GENAI_PROJECT", func(c *Config, v string) { c.GenAI.Project = v }},
		{"GOOGLE_CLOUD_LOCATION", "GENAI_LOCATION", func(c *Config, v string) { c.GenAI.Location = v }},
		{"GOOGLE_GENAI_USE_VERTEXAI", "GENAI_USE_VERTEX", func(c *Config, v string) { c.GenAI.UseVertex = isTruthy(v) }},
		{"LOGGING_LEVEL", "LOG_LEVEL", func(c *Config, v string) { c.Log.Level = strings.ToLower(v) }},
	}
}

// applyEnvAliases honors the unprefixed environment names the original
// deployment used, without letting them shadow explicit prefixed settings.
func (l *Loader) applyEnvAliases(cfg *Config) error {
	for _, a := range envAliases() {
		value := os.Getenv(a.alias)
		if value == "" {
			continue
		}
		if os.Getenv(l.envPrefix+"_"+a.canonical) != "" {
			continue
		}
		a.apply(cfg, value)
	}
	return nil
}

// isTruthy matches the original deployment's boolean parsing: "true" and
// "1", case-insensitive.
func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1":
		return true
	default:
		return false
	}
}

// setFieldValue parses value into the field according to its kind.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration from path and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads the configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate checks the configuration for values the server cannot run with.
// All problems are reported at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "invalid server port")
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errs = append(errs, "invalid metrics port")
		} else if c.Metrics.Port == c.Server.Port {
			errs = append(errs, "metrics port must differ from server port")
		}
	}

	if c.GenAI.LanguageModel == "" {
		errs = append(errs, "genai language model is required")
	}
	if c.GenAI.ImageModel == "" {
		errs = append(errs, "genai image model is required")
	}
	if c.GenAI.UseVertex && c.GenAI.Project == "" {
		errs = append(errs, "genai project is required when use_vertex is set")
	}
	if !c.GenAI.UseVertex && c.GenAI.APIKey == "" {
		errs = append(errs, "genai api key is required")
	}
	if c.GenAI.DefineMaxTokens <= 0 {
		errs = append(errs, "define_max_tokens must be positive")
	}
	if c.GenAI.ExecuteMaxTokens <= 0 {
		errs = append(errs, "execute_max_tokens must be positive")
	}
	if c.GenAI.MaxSteps < 0 {
		errs = append(errs, "max_steps must not be negative")
	}
	if c.GenAI.Timeout <= 0 {
		errs = append(errs, "genai timeout must be positive")
	}

	if c.Session.TTL <= 0 {
		errs = append(errs, "session ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, "session sweep interval must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			errs = append(errs, "rate limit rps must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			errs = append(errs, "rate limit burst must be positive")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "invalid log level")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, "invalid log format")
	}

	if c.Telemetry.Enabled && (c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1) {
		errs = append(errs, "telemetry sample rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
