package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (TRAVELBUDDY_LOG_LEVEL, ...).
const EnvPrefix = "TRAVELBUDDY"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	projectDir string
	homeDir    string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	l := &Loader{
		v:          v,
		envPrefix:  EnvPrefix,
		projectDir: ProjectDir,
	}
	if home, err := os.UserHomeDir(); err == nil {
		l.homeDir = home
	}
	return l
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithSearchDirs overrides the project and user directories searched for
// config.yaml. An empty value disables that location.
func (l *Loader) WithSearchDirs(projectDir, homeDir string) *Loader {
	l.projectDir = projectDir
	l.homeDir = homeDir
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (TRAVELBUDDY_*)
// 3. Project config (.travelbuddy/config.yaml)
// 4. User config (~/.config/travelbuddy/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")

		// First found wins, so the project directory goes first.
		if l.projectDir != "" {
			l.v.AddConfigPath(l.projectDir)
		}
		if l.homeDir != "" {
			l.v.AddConfigPath(filepath.Join(l.homeDir, ".config", "travelbuddy"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Generation.Provider = strings.ToLower(strings.TrimSpace(cfg.Generation.Provider))
	if cfg.Generation.Model == "" && cfg.Generation.Provider == DefaultProvider {
		cfg.Generation.Model = DefaultModel
	}

	return &cfg, nil
}

func (l *Loader) setDefaults() {
	d := Default()

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("log.format", d.Log.Format)

	l.v.SetDefault("generation.provider", d.Generation.Provider)
	// Left empty so a non-default provider picks its own model.
	l.v.SetDefault("generation.model", "")
	l.v.SetDefault("generation.temperature", d.Generation.Temperature)
	l.v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	l.v.SetDefault("generation.api_key", "")
	l.v.SetDefault("generation.base_url", "")
	l.v.SetDefault("generation.timeout", d.Generation.Timeout)
	l.v.SetDefault("generation.requests_per_minute", d.Generation.RequestsPerMinute)

	l.v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	l.v.SetDefault("retry.initial_delay", d.Retry.InitialDelay)
	l.v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	l.v.SetDefault("retry.backoff_multiplier", d.Retry.BackoffMultiplier)

	l.v.SetDefault("workflow.history_window", d.Workflow.HistoryWindow)
	l.v.SetDefault("store.path", d.Store.Path)
	l.v.SetDefault("server.addr", d.Server.Addr)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}
