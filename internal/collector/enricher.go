package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	enrichConcurrency = 3
	enrichTimeout     = 25 * time.Second
	enrichMaxChars    = 4000
)

// BodyEnricher 对正文为空的文章调用 browser-scraper 的 /extract 补全正文。
// 失败时保持原样，不影响入库。
type BodyEnricher struct {
	endpoint string
	client   *http.Client
}

func NewBodyEnricher(serviceURL string) *BodyEnricher {
	if serviceURL == "" {
		return nil
	}
	return &BodyEnricher{
		endpoint: strings.TrimRight(serviceURL, "/") + "/extract",
		client:   &http.Client{Timeout: enrichTimeout},
	}
}

type extractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type extractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Enrich 就地修改 articles 中正文为空的条目，返回成功补全的数量
func (b *BodyEnricher) Enrich(ctx context.Context, articles []Article) int {
	if b == nil {
		return 0
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		sem    = make(chan struct{}, enrichConcurrency)
		filled int
	)
	for i := range articles {
		if articles[i].Body != "" {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := b.extract(ctx, articles[idx].Link)
			if err != nil {
				log.Printf("enrich %s error: %v", articles[idx].Link, err)
				return
			}
			articles[idx].Body = CleanText(text)
			mu.Lock()
			filled++
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return filled
}

func (b *BodyEnricher) extract(ctx context.Context, link string) (string, error) {
	payload, err := json.Marshal(extractRequest{URL: link, MaxChars: enrichMaxChars})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out extractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode extract response: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("extract failed: %s", out.Error)
	}
	return out.Text, nil
}
