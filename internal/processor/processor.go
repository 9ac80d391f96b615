package processor

import (
	"strings"

	"github.com/LJTian/LoudCurator/internal/collector"
)

// DefaultThreshold 标题相似度达到该值即视为重复（含边界）
const DefaultThreshold = 0.8

// Deduplicator 按链接精确匹配 + 标题词集合 Jaccard 相似度去重
type Deduplicator struct {
	Threshold float64
}

func NewDeduplicator(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{Threshold: threshold}
}

// Dedupe 返回 candidates 中与 corpus 及批内先出现条目都不重复的部分，保持原有顺序。
// 批内两条近似重复时，先出现的保留。
func (d *Deduplicator) Dedupe(candidates, corpus []collector.Article) []collector.Article {
	if len(candidates) == 0 {
		return nil
	}

	seenLinks := make(map[string]struct{}, len(corpus)+len(candidates))
	seenTitles := make([]map[string]struct{}, 0, len(corpus)+len(candidates))
	titleIndex := make(map[string]struct{}, len(corpus)+len(candidates))

	remember := func(a collector.Article) {
		if link := strings.TrimSpace(a.Link); link != "" {
			seenLinks[link] = struct{}{}
		}
		title := normalizeTitle(a.Title)
		if _, ok := titleIndex[title]; !ok {
			titleIndex[title] = struct{}{}
			seenTitles = append(seenTitles, wordSet(title))
		}
	}
	for _, a := range corpus {
		remember(a)
	}

	out := make([]collector.Article, 0, len(candidates))
	for _, a := range candidates {
		if _, ok := seenLinks[strings.TrimSpace(a.Link)]; ok {
			continue
		}
		if d.similarToAny(normalizeTitle(a.Title), seenTitles) {
			continue
		}
		out = append(out, a)
		remember(a)
	}
	return out
}

func (d *Deduplicator) similarToAny(title string, seen []map[string]struct{}) bool {
	words := wordSet(title)
	if len(words) == 0 {
		return false
	}
	for _, t := range seen {
		if jaccard(words, t) >= d.Threshold {
			return true
		}
	}
	return false
}

// TitleSimilarity 两个标题词集合的 Jaccard 相似度，大小写不敏感；任一为空时为 0
func TitleSimilarity(a, b string) float64 {
	return jaccard(wordSet(normalizeTitle(a)), wordSet(normalizeTitle(b)))
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
