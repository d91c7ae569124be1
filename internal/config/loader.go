package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "CHORUS",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "CHORUS",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFileUsed returns the resolved config file path, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (CHORUS_*)
// 3. Project config (.chorus.yaml in current directory)
// 4. User config (~/.config/chorus/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".chorus")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "chorus"))
		}
	}

	// A missing config file is fine; defaults and env cover it.
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("server.host", "localhost")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.read_timeout", "15s")
	l.v.SetDefault("server.write_timeout", "10m")
	l.v.SetDefault("server.idle_timeout", "60s")
	l.v.SetDefault("server.shutdown_timeout", "10s")
	l.v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	l.v.SetDefault("server.enable_cors", true)

	l.v.SetDefault("model.provider", "openai")
	l.v.SetDefault("model.base_url", "https://api.openai.com/v1")
	l.v.SetDefault("model.model", "gpt-4o-mini")
	l.v.SetDefault("model.temperature", 0.7)
	l.v.SetDefault("model.max_tokens", 4096)
	l.v.SetDefault("model.timeout", "2m")
	l.v.SetDefault("model.max_retries", 3)

	l.v.SetDefault("checkpoint.backend", "sqlite")
	l.v.SetDefault("checkpoint.path", ".chorus/sessions.db")

	l.v.SetDefault("export.dir", "generated_report")

	l.v.SetDefault("workflow.default_max_analysts", 3)
	l.v.SetDefault("workflow.max_analysts_limit", 8)
	l.v.SetDefault("workflow.affirmative_terms", []string{
		"ok", "okay", "yes", "approve", "approved", "lgtm",
		"looks good", "proceed", "continue", "go ahead", "no changes",
	})
}
