package llm

import (
	"context"
	"fmt"

	"github.com/airadev/newsroom/config"
)

// Options controls a single generation call.
type Options struct {
	MaxTokens   int
	Temperature float64
	// JSONMode asks the backend to constrain output to JSON where supported.
	// Backends without such a mode ignore it.
	JSONMode bool
}

// Provider is the uniform interface over text-generation backends. Transient
// failures are retried inside the implementation; callers see the final result.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// NewProvider creates an LLM client from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	httpc := NewHTTPClient(cfg.Timeout, cfg.MaxRetries, 0)
	switch cfg.Provider {
	case "openai":
		return &OpenAIClient{cfg: cfg, http: httpc}, nil
	case "anthropic":
		return &AnthropicClient{cfg: cfg, http: httpc}, nil
	case "ollama":
		return &OllamaClient{cfg: cfg, http: httpc}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
