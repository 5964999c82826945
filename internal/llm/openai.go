package llm

import (
	"context"
	"fmt"

	"github.com/airadev/newsroom/config"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements Provider using OpenAI's chat completions API.
type OpenAIClient struct {
	cfg  config.LLMConfig
	http *HTTPClient
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	body := map[string]interface{}{
		"model":    c.model(),
		"messages": []chatMessage{{Role: "user", Content: prompt}},
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		body["temperature"] = opts.Temperature
	}
	if opts.JSONMode {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	url := openaiAPIURL
	if c.cfg.BaseURL != "" {
		url = c.cfg.BaseURL + "/v1/chat/completions"
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	if err := c.http.DoJSON(ctx, "POST", url, headers, body, &resp); err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response had no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) model() string {
	if c.cfg.Model != "" {
		return c.cfg.Model
	}
	return "gpt-4o-mini"
}
