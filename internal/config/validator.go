package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Providers lists the supported generation providers.
var Providers = []string{"gemini", "openai", "anthropic"}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateGeneration(&cfg.Generation)
	v.validateRetry(&cfg.Retry)
	v.validateWorkflow(&cfg.Workflow)
	v.validateStore(&cfg.Store)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateGeneration(cfg *GenerationConfig) {
	known := false
	for _, p := range Providers {
		if cfg.Provider == p {
			known = true
			break
		}
	}
	if !known {
		v.addError("generation.provider", cfg.Provider, "must be one of: "+strings.Join(Providers, ", "))
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		v.addError("generation.temperature", cfg.Temperature, "must be between 0 and 2")
	}
	if cfg.MaxTokens <= 0 {
		v.addError("generation.max_tokens", cfg.MaxTokens, "must be positive")
	}
	if d, err := cfg.TimeoutDuration(); err != nil {
		v.addError("generation.timeout", cfg.Timeout, "invalid duration format")
	} else if d < 0 {
		v.addError("generation.timeout", cfg.Timeout, "must be non-negative")
	}
	if cfg.RequestsPerMinute < 0 {
		v.addError("generation.requests_per_minute", cfg.RequestsPerMinute, "must be non-negative")
	}
}

func (v *Validator) validateRetry(cfg *RetryConfig) {
	if cfg.MaxRetries < 0 {
		v.addError("retry.max_retries", cfg.MaxRetries, "must be non-negative")
	}

	initial, errInitial := time.ParseDuration(cfg.InitialDelay)
	if errInitial != nil {
		v.addError("retry.initial_delay", cfg.InitialDelay, "invalid duration format")
	} else if initial <= 0 {
		v.addError("retry.initial_delay", cfg.InitialDelay, "must be positive")
	}

	maxDelay, errMax := time.ParseDuration(cfg.MaxDelay)
	if errMax != nil {
		v.addError("retry.max_delay", cfg.MaxDelay, "invalid duration format")
	} else if errInitial == nil && maxDelay < initial {
		v.addError("retry.max_delay", cfg.MaxDelay, "must be at least retry.initial_delay")
	}

	if cfg.BackoffMultiplier < 1 {
		v.addError("retry.backoff_multiplier", cfg.BackoffMultiplier, "must be at least 1")
	}
}

func (v *Validator) validateWorkflow(cfg *WorkflowConfig) {
	if cfg.HistoryWindow < 0 {
		v.addError("workflow.history_window", cfg.HistoryWindow, "must be non-negative")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	if strings.TrimSpace(cfg.Path) == "" {
		v.addError("store.path", cfg.Path, "path required")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if !strings.Contains(cfg.Addr, ":") {
		v.addError("server.addr", cfg.Addr, "must be host:port")
	}
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
