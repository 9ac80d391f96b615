package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	newsDataBaseURL          = "https://newsdata.io/api/1/news"
	newsDataGeneralSize      = 10
	newsDataPerDomainSize    = 5
	newsDataDomainConcurrent = 4
)

// NewsData 查询变体
const (
	NewsDataGeneral       = "general"
	NewsDataInstitutional = "institutional"
)

// DefaultInstitutionalDomains 机构媒体域名，逐个按 domain 过滤查询
var DefaultInstitutionalDomains = []string{
	"reuters", "ap", "bloomberg", "cnbc", "wsj", "ft",
	"bbc", "cnn", "nbc", "abc", "cbs", "fox", "npr",
}

// NewsDataFetcher 通过 NewsData.io 搜索航空新闻
type NewsDataFetcher struct {
	apiKey  string
	baseURL string
	variant string
	domains []string
	client  *http.Client
	now     func() time.Time
}

func NewNewsDataFetcher(apiKey, variant string, domains []string) (*NewsDataFetcher, error) {
	switch variant {
	case NewsDataGeneral:
	case NewsDataInstitutional:
		if len(domains) == 0 {
			domains = DefaultInstitutionalDomains
		}
	default:
		return nil, fmt.Errorf("newsdata: unknown variant %q", variant)
	}
	return &NewsDataFetcher{
		apiKey:  apiKey,
		baseURL: newsDataBaseURL,
		variant: variant,
		domains: domains,
		client:  &http.Client{},
		now:     time.Now,
	}, nil
}

// WithBaseURL 替换 API 地址，测试时指向本地服务
func (n *NewsDataFetcher) WithBaseURL(u string) *NewsDataFetcher {
	n.baseURL = u
	return n
}

func (n *NewsDataFetcher) Name() string {
	return "newsdata_" + n.variant
}

type newsDataResp struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		PubDate     string `json:"pubDate"`
		SourceID    string `json:"source_id"`
	} `json:"results"`
}

func (n *NewsDataFetcher) Fetch(ctx context.Context) ([]Article, error) {
	if n.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if n.variant == NewsDataGeneral {
		return n.query(ctx, url.Values{"q": {"aviation"}}, newsDataGeneralSize, "")
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, newsDataDomainConcurrent)
		out []Article
	)
	for _, d := range n.domains {
		domain := d
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			params := url.Values{
				"q":      {"aviation OR airline OR aircraft"},
				"domain": {domain},
			}
			items, err := n.query(ctx, params, newsDataPerDomainSize, " (Institutional)")
			if err != nil {
				log.Printf("newsdata: domain %s error: %v", domain, err)
				return
			}
			mu.Lock()
			out = append(out, items...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out, nil
}

func (n *NewsDataFetcher) query(ctx context.Context, params url.Values, size int, suffix string) ([]Article, error) {
	params.Set("apikey", n.apiKey)
	params.Set("language", "en")
	params.Set("size", strconv.Itoa(size))

	var data newsDataResp
	if err := getJSON(ctx, n.client, n.baseURL+"?"+params.Encode(), nil, &data); err != nil {
		return nil, fmt.Errorf("newsdata: %w", err)
	}
	if data.Status != "success" {
		return nil, fmt.Errorf("newsdata: api status %q", data.Status)
	}

	now := n.now()
	results := data.Results
	if len(results) > size {
		results = results[:size]
	}
	out := make([]Article, 0, len(results))
	for _, it := range results {
		source := it.SourceID
		if source == "" {
			source = "Newsdata.io"
		}
		a, ok := newArticle(it.Title, it.Description, it.Link, source+suffix, parseDate(it.PubDate, now))
		if !ok {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
