package scoring

import (
	"context"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/LoudCurator/internal/collector"
)

const (
	neutralScore        = 50
	DefaultExcerptRunes = 800
	DefaultTimeout      = 30 * time.Second
)

// Judge 外部评分函数（通常是 LLM），返回原始 JSON 对象
type Judge interface {
	Judge(ctx context.Context, title, excerpt string) (map[string]any, error)
}

// 模型返回的字段名，以及可接受的别名
var (
	relevanceKeys = []string{"score_relevance", "relevance"}
	vibeKeys      = []string{"score_vibe", "vibe"}
	viralityKeys  = []string{"score_viral", "virality", "score_virality"}
)

type Scorer struct {
	judge        Judge
	excerptRunes int
	timeout      time.Duration
	thresholds   Thresholds
	channels     Channels
}

type Option func(*Scorer)

func WithExcerptRunes(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.excerptRunes = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithThresholds(t Thresholds) Option {
	return func(s *Scorer) { s.thresholds = t }
}

func WithChannels(c Channels) Option {
	return func(s *Scorer) { s.channels = c }
}

// NewScorer judge 可以为 nil，此时所有文章都拿到中性分
func NewScorer(judge Judge, opts ...Option) *Scorer {
	s := &Scorer{
		judge:        judge,
		excerptRunes: DefaultExcerptRunes,
		timeout:      DefaultTimeout,
		thresholds:   DefaultThresholds(),
		channels:     DefaultChannels(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score 调用 judge 并把结果规整到 [0,100]；任何失败都退回 50/50/50，不向上传播
func (s *Scorer) Score(ctx context.Context, a collector.Article) collector.Scores {
	if s.judge == nil {
		return Neutral()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.judge.Judge(ctx, a.Title, excerpt(a.Body, s.excerptRunes))
	if err != nil {
		log.Printf("score %q error: %v, using neutral scores", a.Title, err)
		return Neutral()
	}
	return Normalize(raw)
}

// ScoreAndRoute 打分并按阈值推导分发决策
func (s *Scorer) ScoreAndRoute(ctx context.Context, a collector.Article) (collector.Scores, collector.Routing) {
	scores := s.Score(ctx, a)
	return scores, Route(scores, s.thresholds, s.channels)
}

// Route 使用该 Scorer 的阈值与渠道配置
func (s *Scorer) Route(scores collector.Scores) collector.Routing {
	return Route(scores, s.thresholds, s.channels)
}

func Neutral() collector.Scores {
	return collector.Scores{Relevance: neutralScore, Vibe: neutralScore, Virality: neutralScore}
}

// Normalize 从原始判定中取出三个分数：缺失或非数值记 50，数值截断为整数后夹到 [0,100]
func Normalize(raw map[string]any) collector.Scores {
	return collector.Scores{
		Relevance: pick(raw, relevanceKeys),
		Vibe:      pick(raw, vibeKeys),
		Virality:  pick(raw, viralityKeys),
	}
}

func pick(raw map[string]any, keys []string) int {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		n, ok := toNumber(v)
		if !ok {
			return neutralScore
		}
		return clamp(int(n))
	}
	return neutralScore
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	// 先在浮点域夹住，避免超大值转 int 溢出
	return math.Max(-1, math.Min(101, f)), true
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func excerpt(body string, limit int) string {
	rs := []rune(body)
	if len(rs) <= limit {
		return body
	}
	return string(rs[:limit])
}
