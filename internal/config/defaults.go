package config

import (
	"bytes"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/fsutil"
)

// ProjectDir holds per-project state: config.yaml and the chat database.
const ProjectDir = ".travelbuddy"

const (
	DefaultProvider = "gemini"
	DefaultModel    = "gemini-2.0-flash-lite"
)

const defaultHeader = `# Travel Buddy configuration
#
# Every key can be overridden with TRAVELBUDDY_<SECTION>_<KEY>, for example
# TRAVELBUDDY_GENERATION_PROVIDER=anthropic. When generation.api_key is empty
# the key is read from GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY.

`

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "auto"},
		Generation: GenerationConfig{
			Provider:    DefaultProvider,
			Model:       DefaultModel,
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     "2m",
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialDelay:      "2s",
			MaxDelay:          "60s",
			BackoffMultiplier: 2.0,
		},
		Workflow: WorkflowConfig{HistoryWindow: 5},
		Store:    StoreConfig{Path: filepath.Join(ProjectDir, "chat.db")},
		Server:   ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// DefaultYAML renders the default configuration file.
func DefaultYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DefaultConfigPath returns the project config file location under dir.
func DefaultConfigPath(dir string) string {
	return filepath.Join(dir, ProjectDir, "config.yaml")
}

// WriteDefault writes the default configuration to path. An existing file is
// left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fsutil.Exists(path) {
		return fmt.Errorf("config already exists: %s", path)
	}
	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
