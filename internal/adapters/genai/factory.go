package genai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// Factory builds a generator from configuration.
type Factory func(cfg Config) (core.Generator, error)

var factories = map[string]Factory{
	ProviderGemini: func(cfg Config) (core.Generator, error) {
		return newOpenAIFromConfig(ProviderGemini, cfg)
	},
	ProviderOpenAI: func(cfg Config) (core.Generator, error) {
		return newOpenAIFromConfig(ProviderOpenAI, cfg)
	},
	ProviderAnthropic: func(cfg Config) (core.Generator, error) {
		return newAnthropicFromConfig(cfg)
	},
}

// New builds the generator for cfg.Provider.
func New(cfg Config) (core.Generator, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	factory, ok := factories[name]
	if !ok {
		known := make([]string, 0, len(factories))
		for k := range factories {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("unknown generation provider %q (want one of %s)", cfg.Provider, strings.Join(known, ", ")))
	}
	gen, err := factory(cfg)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, err.Error()).WithCause(err)
	}
	return gen, nil
}
