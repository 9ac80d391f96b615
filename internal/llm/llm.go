package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o"

var ErrMissingAPIKey = errors.New("llm: OPENAI_API_KEY not configured")

// Client 封装 OpenAI 兼容的 chat completions 调用
type Client struct {
	api   *openai.Client
	model string
}

// New 创建客户端；apiKey 为空时返回的 Client 每次调用都返回 ErrMissingAPIKey
func New(apiKey, baseURL, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{model: model}
	if apiKey == "" {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

type completion struct {
	prompt      string
	temperature float32
	maxTokens   int
	json        bool
}

func (c *Client) complete(ctx context.Context, req completion) (string, error) {
	if c == nil || c.api == nil {
		return "", ErrMissingAPIKey
	}

	r := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.prompt},
		},
		Temperature: req.temperature,
		MaxTokens:   req.maxTokens,
	}
	if req.json {
		r.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.api.CreateChatCompletion(ctx, r)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("llm: empty response")
	}
	return content, nil
}

// decodeJSONObject 解析模型返回的 JSON，兼容 ```json 代码块包裹
func decodeJSONObject(content string, v any) error {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), v); err != nil {
		return fmt.Errorf("llm: decode json: %w", err)
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
