package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

const rssMaxEntries = 20

// Feed 一个 RSS/Atom 订阅源，Name 作为文章的 source 标签
type Feed struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// DefaultFeeds 航空类默认订阅
var DefaultFeeds = []Feed{
	{Name: "Aviation Week", URL: "https://aviationweek.com/rss.xml"},
	{Name: "Flight Global", URL: "https://www.flightglobal.com/rss"},
	{Name: "AIN Online", URL: "https://www.ainonline.com/rss.xml"},
	{Name: "Simple Flying", URL: "https://simpleflying.com/feed/"},
}

// RSSFetcher 并发拉取多个订阅源，单个源失败只记录日志，不影响其它源
type RSSFetcher struct {
	feeds   []Feed
	timeout time.Duration
	client  *http.Client
	now     func() time.Time
}

func NewRSSFetcher(feeds []Feed) (*RSSFetcher, error) {
	if len(feeds) == 0 {
		return nil, fmt.Errorf("rss: no feeds configured")
	}
	for _, f := range feeds {
		u, err := url.Parse(f.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("rss: feed %q has invalid url %q", f.Name, f.URL)
		}
	}
	return &RSSFetcher{
		feeds:   feeds,
		timeout: requestTimeout,
		client:  &http.Client{},
		now:     time.Now,
	}, nil
}

func (r *RSSFetcher) Name() string {
	return "rss"
}

func (r *RSSFetcher) Fetch(ctx context.Context) ([]Article, error) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make([]Article, 0, len(r.feeds)*rssMaxEntries)
	)

	for _, f := range r.feeds {
		feed := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := r.fetchOne(ctx, feed)
			if err != nil {
				log.Printf("rss: fetch %s (%s) error: %v", feed.Name, feed.URL, err)
				return
			}
			mu.Lock()
			out = append(out, items...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	log.Printf("rss: fetched %d articles from %d feeds", len(out), len(r.feeds))
	return out, nil
}

func (r *RSSFetcher) fetchOne(ctx context.Context, feed Feed) ([]Article, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = r.client
	parsed, err := fp.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	entries := parsed.Items
	if len(entries) > rssMaxEntries {
		entries = entries[:rssMaxEntries]
	}

	out := make([]Article, 0, len(entries))
	for _, it := range entries {
		a, ok := newArticle(it.Title, entryContent(it), it.Link, feed.Name, entryDate(it, now))
		if !ok {
			continue
		}
		a.Extra = map[string]any{"feed_url": feed.URL}
		if it.Author != nil && it.Author.Name != "" {
			a.Extra["author"] = it.Author.Name
		}
		out = append(out, a)
	}
	return out, nil
}

func entryContent(it *gofeed.Item) string {
	if it.Content != "" {
		return it.Content
	}
	return it.Description
}

func entryDate(it *gofeed.Item, now time.Time) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return now
}
