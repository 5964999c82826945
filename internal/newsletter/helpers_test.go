package newsletter

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/llm"
	"github.com/airadev/newsroom/internal/search"
)

type fakeProvider struct {
	generate func(ctx context.Context, prompt string, opts llm.Options) (string, error)
	calls    int
	prompts  []string
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.generate(ctx, prompt, opts)
}

type fakeSearcher struct {
	search func(ctx context.Context, query string, maxResults int) ([]search.Result, error)
	calls  []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	f.calls = append(f.calls, query)
	return f.search(ctx, query, maxResults)
}

func testConfig() *config.Config {
	return &config.Config{
		Newsletter: config.NewsletterConfig{
			SectionsCount:   3,
			TargetWordCount: 450,
			MinWordCount:    400,
			MaxWordCount:    450,
			ReadingSpeed:    200,
			DefaultTone:     "direct",
		},
		Tones: config.DefaultTones(),
		LLM: config.LLMConfig{
			Provider:    "openai",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Search: config.SearchConfig{
			MaxResults: 5,
			QueryDelay: time.Millisecond,
		},
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
