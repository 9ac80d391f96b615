package collector

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// CleanText 去掉 HTML 标签（script/style 内容整段丢弃），并把连续空白压成一个空格
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTextTag(string(name)) {
				skip++
			}
			// 块级标签之间补一个空格，避免 "<p>a</p><p>b</p>" 粘成 "ab"
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTextTag(string(name)) && skip > 0 {
				skip--
			}
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "blockquote": true, "section": true, "article": true,
}

func isRawTextTag(name string) bool {
	return name == "script" || name == "style"
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate 依次尝试常见格式；都失败时返回 fallback，不报错
func parseDate(value string, fallback time.Time, layouts ...string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if len(layouts) == 0 {
		layouts = dateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}

// newArticle 按统一规则生成候选文章；标题或链接为空时返回 false
func newArticle(title, body, link, source string, date time.Time) (Article, bool) {
	title = CleanText(title)
	link = strings.TrimSpace(link)
	if title == "" || link == "" {
		return Article{}, false
	}
	return Article{
		ID:     uuid.NewString(),
		Title:  title,
		Body:   CleanText(body),
		Link:   link,
		Source: source,
		Date:   date,
		Status: StatusNew,
	}, true
}
