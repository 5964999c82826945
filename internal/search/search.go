package search

import (
	"context"
	"fmt"

	"github.com/airadev/newsroom/config"
)

// Result is one ranked snippet from a search backend.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher is the uniform interface over web-search backends.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// NewSearcher creates a search client from configuration. It returns nil when
// the provider is "none": callers treat a nil Searcher as search disabled.
func NewSearcher(cfg config.SearchConfig) (Searcher, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "brave":
		if cfg.BraveAPIKey == "" {
			return nil, fmt.Errorf("search.brave_api_key not set")
		}
		return &Brave{APIKey: cfg.BraveAPIKey, Timeout: cfg.Timeout}, nil
	case "serper":
		if cfg.SerperAPIKey == "" {
			return nil, fmt.Errorf("search.serper_api_key not set")
		}
		return &Serper{APIKey: cfg.SerperAPIKey, Timeout: cfg.Timeout}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}
