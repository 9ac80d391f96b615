package llm

import (
	"context"
	"fmt"
)

const judgePrompt = `You're an editorial assistant for a rebellious Gen Z aviation brand.

Analyze this news article and give 3 scores (0-100):

1. **Relevance** - Is it useful, timely, and impactful for the aviation community?
2. **Vibe** - Does it match our *Loud Hawk* tone (sarcastic, rebellious, punchy)?
3. **Virality** - Could it spread on social, spark strong reactions, or memes?

Respond in JSON like:
{
  "score_relevance": 0-100,
  "score_vibe": 0-100,
  "score_viral": 0-100
}

Article:
Title: %s
Body: %s
`

// Judge 让模型给文章打分，返回模型输出的原始 JSON 对象，由调用方负责取值与校验
func (c *Client) Judge(ctx context.Context, title, excerpt string) (map[string]any, error) {
	if title == "" {
		title = "No title"
	}
	if excerpt == "" {
		excerpt = "No content"
	}
	content, err := c.complete(ctx, completion{
		prompt:      fmt.Sprintf(judgePrompt, title, excerpt),
		temperature: 0.3,
		maxTokens:   150,
		json:        true,
	})
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := decodeJSONObject(content, &out); err != nil {
		return nil, err
	}
	return out, nil
}
