package config

import "time"

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Metrics:   DefaultMetricsConfig(),
		GenAI:     DefaultGenAIConfig(),
		Session:   DefaultSessionConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default HTTP server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		APIKey:          "",
		CORSOrigins:     []string{"*"},
	}
}

// DefaultMetricsConfig returns the default metrics settings.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: true,
		Port:    9090,
	}
}

// DefaultGenAIConfig returns the default Gemini client settings.
func DefaultGenAIConfig() GenAIConfig {
	return GenAIConfig{
		APIKey:           "",
		BaseURL:          "",
		Project:          "",
		Location:         "global",
		UseVertex:        false,
		LanguageModel:    "gemini-2.5-flash",
		ImageModel:       "gemini-2.5-flash-image-preview",
		DefineMaxTokens:  2000,
		ExecuteMaxTokens: 5000,
		Timeout:          2 * time.Minute,
		MaxSteps:         20,
	}
}

// DefaultSessionConfig returns the default session lifetime settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:           time.Hour,
		SweepInterval: 5 * time.Minute,
	}
}

// DefaultRateLimitConfig returns the default throttling settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: true,
		RPS:     100,
		Burst:   200,
	}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default tracing settings.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "imageflow",
		SampleRate:   0.1,
	}
}
