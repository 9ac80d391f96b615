package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const groundNewsBaseURL = "https://api.ground.news"

// Ground News 查询变体
const (
	GroundNewsSearch   = "search"
	GroundNewsTrending = "trending"
	GroundNewsBalanced = "balanced"
)

var aviationKeywords = []string{"aviation", "airline", "aircraft", "airplane", "airport", "pilot", "flight"}

type groundNewsVariant struct {
	path   string
	size   int
	suffix string
	params url.Values
	filter bool
}

var groundNewsVariants = map[string]groundNewsVariant{
	GroundNewsSearch: {
		path:   "/search",
		size:   20,
		params: url.Values{"query": {"aviation OR airline OR aircraft"}, "sortBy": {"date"}},
	},
	// trending 接口不支持关键词，只能按分类取再做航空关键词过滤
	GroundNewsTrending: {
		path:   "/trending",
		size:   15,
		suffix: " (Trending)",
		params: url.Values{"category": {"business"}},
		filter: true,
	},
	GroundNewsBalanced: {
		path:   "/balanced",
		size:   10,
		suffix: " (Balanced)",
		params: url.Values{"query": {"aviation OR airline OR aircraft"}},
	},
}

// GroundNewsFetcher 每个变体独立构造、独立调用
type GroundNewsFetcher struct {
	apiKey  string
	baseURL string
	variant string
	client  *http.Client
	now     func() time.Time
}

func NewGroundNewsFetcher(apiKey, variant string) (*GroundNewsFetcher, error) {
	if _, ok := groundNewsVariants[variant]; !ok {
		return nil, fmt.Errorf("groundnews: unknown variant %q", variant)
	}
	return &GroundNewsFetcher{
		apiKey:  apiKey,
		baseURL: groundNewsBaseURL,
		variant: variant,
		client:  &http.Client{},
		now:     time.Now,
	}, nil
}

func (g *GroundNewsFetcher) WithBaseURL(u string) *GroundNewsFetcher {
	g.baseURL = strings.TrimRight(u, "/")
	return g
}

func (g *GroundNewsFetcher) Name() string {
	return "groundnews_" + g.variant
}

type groundNewsResp struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
		Bias        string `json:"bias"`
		Factuality  string `json:"factuality"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (g *GroundNewsFetcher) Fetch(ctx context.Context) ([]Article, error) {
	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	v := groundNewsVariants[g.variant]

	params := url.Values{}
	for k, vals := range v.params {
		params[k] = vals
	}
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(v.size))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+g.apiKey)

	var data groundNewsResp
	if err := getJSON(ctx, g.client, g.baseURL+v.path+"?"+params.Encode(), header, &data); err != nil {
		return nil, fmt.Errorf("groundnews %s: %w", g.variant, err)
	}
	if data.Status != "success" {
		return nil, fmt.Errorf("groundnews %s: api status %q", g.variant, data.Status)
	}

	now := g.now()
	items := data.Articles
	if len(items) > v.size {
		items = items[:v.size]
	}
	out := make([]Article, 0, len(items))
	for _, it := range items {
		if v.filter && !mentionsAviation(it.Title, it.Description) {
			continue
		}
		source := it.Source.Name
		if source == "" {
			source = "Ground News"
		}
		a, ok := newArticle(it.Title, it.Description, it.URL, source+v.suffix, parseDate(it.PublishedAt, now))
		if !ok {
			continue
		}
		a.Extra = map[string]any{
			"bias":       valueOr(it.Bias, "unknown"),
			"factuality": valueOr(it.Factuality, "unknown"),
		}
		out = append(out, a)
	}
	return out, nil
}

func mentionsAviation(texts ...string) bool {
	for _, t := range texts {
		t = strings.ToLower(t)
		for _, kw := range aviationKeywords {
			if strings.Contains(t, kw) {
				return true
			}
		}
	}
	return false
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
