package llm

import (
	"context"
	"fmt"

	"github.com/airadev/newsroom/config"
)

// OllamaClient implements Provider against a local Ollama instance.
type OllamaClient struct {
	cfg  config.LLMConfig
	http *HTTPClient
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	options := map[string]interface{}{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	body := map[string]interface{}{
		"model":   c.model(),
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}
	if opts.JSONMode {
		body["format"] = "json"
	}

	base := c.cfg.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := c.http.DoJSON(ctx, "POST", base+"/api/generate", nil, body, &resp); err != nil {
		return "", fmt.Errorf("ollama request failed (is ollama running?): %w", err)
	}
	if resp.Response == "" {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return resp.Response, nil
}

func (c *OllamaClient) model() string {
	if c.cfg.Model != "" {
		return c.cfg.Model
	}
	return "llama3.1:8b"
}
