package providers

import (
	"fmt"
)

// Both backends satisfy the full client surface.
var (
	_ Client    = (*AnthropicClient)(nil)
	_ Client    = (*OpenAIClient)(nil)
	_ Validator = (*AnthropicClient)(nil)
	_ Validator = (*OpenAIClient)(nil)
)

// Config selects and configures the completion backend.
type Config struct {
	// DefaultProvider picks the backend: "anthropic" or "openai".
	DefaultProvider string `yaml:"default_provider"`

	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
}

// DefaultProvidersConfig returns the default provider selection.
func DefaultProvidersConfig() Config {
	return Config{
		DefaultProvider: string(ProviderTypeAnthropic),
		Anthropic:       DefaultAnthropicConfig(),
		OpenAI:          DefaultOpenAIConfig(),
	}
}

// NewClient constructs the configured completion client.
func NewClient(cfg Config) (Client, error) {
	switch ProviderType(cfg.DefaultProvider) {
	case ProviderTypeAnthropic, "":
		return NewAnthropicClient(cfg.Anthropic)
	case ProviderTypeOpenAI:
		return NewOpenAIClient(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.DefaultProvider)
	}
}
