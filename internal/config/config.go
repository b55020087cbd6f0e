package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Retry      RetryConfig      `mapstructure:"retry" yaml:"retry"`
	Workflow   WorkflowConfig   `mapstructure:"workflow" yaml:"workflow"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// GenerationConfig selects and tunes the text generation provider.
type GenerationConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	Model             string  `mapstructure:"model" yaml:"model"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout           string  `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// TimeoutDuration parses Timeout. Zero means no per-attempt timeout.
func (g GenerationConfig) TimeoutDuration() (time.Duration, error) {
	return parseOptionalDuration(g.Timeout)
}

// RetryConfig configures the resilient call wrapper.
type RetryConfig struct {
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay      string  `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay          string  `mapstructure:"max_delay" yaml:"max_delay"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier"`
}

// Delays parses InitialDelay and MaxDelay.
func (r RetryConfig) Delays() (initial, maxDelay time.Duration, err error) {
	if initial, err = time.ParseDuration(r.InitialDelay); err != nil {
		return 0, 0, fmt.Errorf("retry.initial_delay: %w", err)
	}
	if maxDelay, err = time.ParseDuration(r.MaxDelay); err != nil {
		return 0, 0, fmt.Errorf("retry.max_delay: %w", err)
	}
	return initial, maxDelay, nil
}

// WorkflowConfig configures pipeline execution.
type WorkflowConfig struct {
	HistoryWindow int `mapstructure:"history_window" yaml:"history_window"`
}

// StoreConfig configures conversation persistence.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
