package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const rewritePrompt = "Rewrite the following news article for a general audience. Keep it concise, informative, and engaging. \n\nTitle: %s\n\nArticle: %s"

// Rewrite 用模型改写正文，失败直接返回错误，由调用方决定是否保留原文
func (c *Client) Rewrite(ctx context.Context, title, body string) (string, error) {
	return c.complete(ctx, completion{
		prompt:      fmt.Sprintf(rewritePrompt, title, body),
		temperature: 0.7,
	})
}

const remixPrompt = `You're a rebellious Gen Z aviation editor with a sharp, sarcastic voice.

Original headline: "%s"
Context: %s...

Create 3 bold, punchy, sarcastic or emotional headline variations in Loud Hawk style.
Make them:
- Attention-grabbing and impactful
- Slightly rebellious or ironic when appropriate
- Professional but with attitude
- No more than 80 characters each

Return exactly 3 headlines, one per line, no numbering or bullets.`

const remixCount = 3

// RemixHeadlines 总是返回 3 个标题；模型不可用时退回带 emoji 前缀的原标题
func (c *Client) RemixHeadlines(ctx context.Context, title, body string) []string {
	content, err := c.complete(ctx, completion{
		prompt:      fmt.Sprintf(remixPrompt, title, truncateRunes(body, 500)),
		temperature: 0.8,
		maxTokens:   150,
	})
	if err != nil {
		log.Printf("remix headline %q error: %v", title, err)
		return []string{"🔥 " + title, "💥 " + title, "⚡ " + title}
	}

	out := make([]string, 0, remixCount)
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
		if len(out) == remixCount {
			break
		}
	}
	for len(out) < remixCount {
		out = append(out, fmt.Sprintf("Remix %d: %s", len(out)+1, title))
	}
	return out
}

const tonePrompt = `You're analyzing an article for Loud Hawk, a Gen Z aviation media brand.

Analyze this article's tone and style:

Title: %s
Content: %s...

Rate from 0-100 how well it matches Loud Hawk's style:
- Rebellious, sarcastic, Gen Z voice
- Calls out corporate BS
- Celebrates pilot culture
- Has attitude and edge

Also identify:
1. Primary tone (corporate, neutral, rebellious, dramatic, etc.)
2. Key themes that could be emphasized
3. Potential angles for Loud Hawk treatment

Respond in JSON:
{
  "style_match": 0-100,
  "tone": "string",
  "themes": ["theme1", "theme2"],
  "loud_hawk_angle": "suggested angle for Loud Hawk treatment"
}`

type ToneAnalysis struct {
	StyleMatch int      `json:"style_match"`
	Tone       string   `json:"tone"`
	Themes     []string `json:"themes"`
	Angle      string   `json:"loud_hawk_angle"`
}

func neutralTone() ToneAnalysis {
	return ToneAnalysis{StyleMatch: 50, Tone: "neutral", Themes: []string{}}
}

// AnalyzeTone 分析文章与品牌调性的匹配度；任何失败都返回中性结果
func (c *Client) AnalyzeTone(ctx context.Context, title, body string) ToneAnalysis {
	content, err := c.complete(ctx, completion{
		prompt:      fmt.Sprintf(tonePrompt, title, truncateRunes(body, 600)),
		temperature: 0.4,
		maxTokens:   200,
		json:        true,
	})
	if err != nil {
		log.Printf("analyze tone %q error: %v", title, err)
		return neutralTone()
	}

	var out ToneAnalysis
	if err := decodeJSONObject(content, &out); err != nil {
		log.Printf("analyze tone %q: %v", title, err)
		return neutralTone()
	}
	if out.StyleMatch < 0 || out.StyleMatch > 100 {
		out.StyleMatch = 50
	}
	if out.Themes == nil {
		out.Themes = []string{}
	}
	return out
}
