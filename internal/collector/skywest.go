package collector

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	skyWestURL      = "https://inc.skywest.com/news-and-events/press-releases/"
	skyWestSource   = "SkyWest, Inc."
	skyWestMaxItems = 15
)

// SkyWestFetcher 抓取 SkyWest 新闻稿列表页
type SkyWestFetcher struct {
	pageURL string
	now     func() time.Time
}

func NewSkyWestFetcher(pageURL string) (*SkyWestFetcher, error) {
	if pageURL == "" {
		pageURL = skyWestURL
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("skywest: invalid page url %q", pageURL)
	}
	return &SkyWestFetcher{pageURL: pageURL, now: time.Now}, nil
}

func (s *SkyWestFetcher) Name() string {
	return "skywest"
}

func (s *SkyWestFetcher) Fetch(ctx context.Context) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(requestTimeout)

	results := make([]Article, 0, skyWestMaxItems)
	now := s.now()

	// 页面结构可能调整：选择器匹配不到时返回空列表，而不是报错
	c.OnHTML("div.news-release-item", func(e *colly.HTMLElement) {
		if len(results) >= skyWestMaxItems {
			return
		}
		a, ok := parseReleaseItem(e.DOM, e.Request.AbsoluteURL, now)
		if !ok {
			return
		}
		results = append(results, a)
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("skywest: status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(s.pageURL); err != nil {
		if visitErr != nil {
			return nil, visitErr
		}
		return nil, fmt.Errorf("skywest: visit: %w", err)
	}
	if visitErr != nil {
		return nil, visitErr
	}

	if len(results) == 0 {
		log.Printf("skywest: got 0 items, page layout may have changed")
	}
	return results, nil
}

// parseReleaseItem 解析单条新闻稿；缺少链接或日期元素的条目跳过
func parseReleaseItem(item *goquery.Selection, resolve func(string) string, now time.Time) (Article, bool) {
	anchor := item.Find("h4 > a").First()
	dateEl := item.Find("div.news-release-date").First()
	if anchor.Length() == 0 || dateEl.Length() == 0 {
		return Article{}, false
	}
	href, _ := anchor.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return Article{}, false
	}
	date := parseDate(strings.TrimSpace(dateEl.Text()), now, "01/02/2006")
	return newArticle(anchor.Text(), "", resolve(href), skyWestSource, date)
}
