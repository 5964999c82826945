package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/airadev/newsroom/config"
)

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicClient implements Provider using Anthropic's messages API.
type AnthropicClient struct {
	cfg  config.LLMConfig
	http *HTTPClient
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	body := map[string]interface{}{
		"model":      c.model(),
		"max_tokens": maxTokens,
		"messages":   []chatMessage{{Role: "user", Content: prompt}},
	}
	if opts.Temperature > 0 {
		body["temperature"] = opts.Temperature
	}

	url := anthropicAPIURL
	if c.cfg.BaseURL != "" {
		url = c.cfg.BaseURL + "/v1/messages"
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if err := c.http.DoJSON(ctx, "POST", url, headers, body, &resp); err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic response had no text content")
	}
	return sb.String(), nil
}

func (c *AnthropicClient) model() string {
	if c.cfg.Model != "" {
		return c.cfg.Model
	}
	return "claude-sonnet-4-5"
}
