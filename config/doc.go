// Package config provides configuration management for ImageFlow.
//
// A Config is assembled from defaults, an optional YAML file, and
// environment variable overrides, in that order. Variables carry the
// IMAGEFLOW_ prefix with underscores between nesting levels, e.g.
// IMAGEFLOW_GENAI_API_KEY. The environment names the original deployment
// used (GEMINI_API_KEY, GOOGLE_CLOUD_PROJECT, LOGGING_LEVEL, ...) are
// honored as aliases when the prefixed form is unset.
package config
