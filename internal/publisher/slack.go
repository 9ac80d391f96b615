package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/LJTian/LoudCurator/internal/scoring"
)

var ErrNoWebhook = errors.New("publisher: slack webhook url not configured")

const (
	postTimeout     = 15 * time.Second
	headerMaxRunes  = 150
	sectionMaxRunes = 3000
	noContent       = "No content available."
)

// Slack 通过 Incoming Webhook 发送 Block Kit 消息。
// designURL 可选，文章分发到 design 渠道时额外推送一份。
type Slack struct {
	webhookURL    string
	designURL     string
	designChannel string
	client        *http.Client
}

func NewSlack(webhookURL, designURL, designChannel string) *Slack {
	return &Slack{
		webhookURL:    webhookURL,
		designURL:     designURL,
		designChannel: designChannel,
		client:        &http.Client{Timeout: postTimeout},
	}
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type     string       `json:"type"`
	Text     *textObject  `json:"text,omitempty"`
	Elements []textObject `json:"elements,omitempty"`
}

type Message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

// BuildMessage header 用展示标题，context 带来源、原文链接和三项评分描述
func BuildMessage(a collector.Article) Message {
	title := a.DisplayTitle()
	body := a.Body
	if body == "" {
		body = noContent
	}

	elements := []textObject{{
		Type: "mrkdwn",
		Text: fmt.Sprintf("Source: *%s* | <%s|Read Original>", a.Source, a.Link),
	}}
	if a.Scores != nil {
		for _, d := range scoring.DescribeAll(*a.Scores) {
			elements = append(elements, textObject{Type: "mrkdwn", Text: d})
		}
	}

	return Message{
		Text: title,
		Blocks: []block{
			{Type: "header", Text: &textObject{Type: "plain_text", Text: truncate(":newspaper: "+title, headerMaxRunes)}},
			{Type: "section", Text: &textObject{Type: "mrkdwn", Text: truncate(body, sectionMaxRunes)}},
			{Type: "context", Elements: elements},
		},
	}
}

// Post 发送到主 webhook；命中 design 渠道且配置了 designURL 时再发一份，副本失败只记日志
func (s *Slack) Post(ctx context.Context, a collector.Article) error {
	if s == nil || s.webhookURL == "" {
		return ErrNoWebhook
	}
	msg := BuildMessage(a)
	if err := s.send(ctx, s.webhookURL, msg); err != nil {
		return err
	}

	if s.designURL != "" && targets(a, s.designChannel) {
		if err := s.send(ctx, s.designURL, msg); err != nil {
			log.Printf("warn: post %s to design webhook: %v", a.ID, err)
		}
	}
	return nil
}

func (s *Slack) send(ctx context.Context, url string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("publisher: encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("publisher: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("publisher: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("publisher: webhook status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

func targets(a collector.Article, channel string) bool {
	if a.Routing == nil || channel == "" {
		return false
	}
	for _, c := range a.Routing.TargetChannels {
		if c == channel {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit-1]) + "…"
}
