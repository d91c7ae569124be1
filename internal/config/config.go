package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for chorus.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Model      ModelConfig      `mapstructure:"model"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Export     ExportConfig     `mapstructure:"export"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // auto, text, json
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	EnableCORS      bool          `mapstructure:"enable_cors"`
}

// ModelConfig configures the model backend.
type ModelConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, scripted
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// CheckpointConfig configures session persistence.
type CheckpointConfig struct {
	Backend string `mapstructure:"backend"` // memory, file, sqlite
	Path    string `mapstructure:"path"`
}

// ExportConfig configures report artifact export.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// WorkflowConfig configures the report-generation workflow.
type WorkflowConfig struct {
	DefaultMaxAnalysts int `mapstructure:"default_max_analysts"`
	MaxAnalystsLimit   int `mapstructure:"max_analysts_limit"`

	// AffirmativeTerms is the configurable feedback classification:
	// feedback matching one of these (or empty feedback) approves the
	// roster; anything else is treated as substantive.
	AffirmativeTerms []string `mapstructure:"affirmative_terms"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level: invalid level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: invalid format %q", c.Log.Format))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: out of range: %d", c.Server.Port))
	}

	switch c.Model.Provider {
	case "openai", "scripted":
	default:
		errs = append(errs, fmt.Sprintf("model.provider: unknown provider %q", c.Model.Provider))
	}
	if c.Model.Provider == "openai" && c.Model.Model == "" {
		errs = append(errs, "model.model: required for the openai provider")
	}
	if c.Model.MaxRetries < 1 {
		errs = append(errs, "model.max_retries: must be at least 1")
	}

	switch c.Checkpoint.Backend {
	case "memory":
	case "file", "sqlite":
		if c.Checkpoint.Path == "" {
			errs = append(errs, fmt.Sprintf("checkpoint.path: required for the %s backend", c.Checkpoint.Backend))
		}
	default:
		errs = append(errs, fmt.Sprintf("checkpoint.backend: unknown backend %q", c.Checkpoint.Backend))
	}

	if c.Export.Dir == "" {
		errs = append(errs, "export.dir: cannot be empty")
	}

	if c.Workflow.DefaultMaxAnalysts < 1 {
		errs = append(errs, "workflow.default_max_analysts: must be positive")
	}
	if c.Workflow.MaxAnalystsLimit < c.Workflow.DefaultMaxAnalysts {
		errs = append(errs, "workflow.max_analysts_limit: must be >= default_max_analysts")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
