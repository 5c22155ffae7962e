package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/sanhita/internal/model"
)

// ErrNoProvider is returned when no completion provider is configured
var ErrNoProvider = errors.New("no completion provider configured")

// NewProvider builds the completion provider named by config.Provider.
// An empty name returns ErrNoProvider; the delegated strategy is then unavailable.
func NewProvider(config Config) (Provider, error) {
	switch name := strings.ToLower(strings.TrimSpace(config.Provider)); name {
	case "":
		return nil, ErrNoProvider
	case "openai":
		return built(NewOpenAIProvider(config))
	case "anthropic", "claude":
		return built(NewAnthropicProvider(config))
	case "ollama":
		return built(NewOllamaProvider(config))
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// built keeps a failed constructor's typed nil out of the Provider interface
func built[P Provider](p P, err error) (Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConfigFromModel maps the llm section of the runtime config onto a provider config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		HTTPProxy:   c.HTTPProxy,
		HTTPSProxy:  c.HTTPSProxy,
	}
}
