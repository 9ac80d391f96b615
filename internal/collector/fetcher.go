package collector

import (
	"context"
	"errors"
	"time"
)

// Status 文章在编辑流程中的状态
type Status string

const (
	StatusNew          Status = "new"
	StatusSelected     Status = "selected"
	StatusEdited       Status = "edited"
	StatusPosted       Status = "posted"
	StatusManualReview Status = "manual_review"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Scores 三个维度的评分，取值范围 [0,100]
type Scores struct {
	Relevance int `json:"relevance"`
	Vibe      int `json:"vibe"`
	Virality  int `json:"virality"`
}

// Routing 由评分推导出的分发决策，可随时根据 Scores 重新计算
type Routing struct {
	TargetChannels []string `json:"targetChannels"`
	Priority       Priority `json:"priority"`
	AutoPost       bool     `json:"autoPost"`
}

// Article 采集后统一的文章结构，所有数据源都归一到这里
type Article struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	CustomTitle string         `json:"customTitle,omitempty"`
	Body        string         `json:"body"`
	Link        string         `json:"link"`
	Source      string         `json:"source"`
	Date        time.Time      `json:"date"`
	Status      Status         `json:"status"`
	Scores      *Scores        `json:"scores,omitempty"`
	Routing     *Routing       `json:"routing,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// DisplayTitle 优先使用编辑设置的标题
func (a Article) DisplayTitle() string {
	if a.CustomTitle != "" {
		return a.CustomTitle
	}
	return a.Title
}

// Fetcher 抽象每一个数据源。配置（feed 地址、API key 等）在构造时绑定。
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]Article, error)
}

// ErrMissingAPIKey 数据源需要的凭证未配置，本轮贡献 0 条
var ErrMissingAPIKey = errors.New("collector: api key not configured")

const (
	userAgent      = "LoudCurator/1.0"
	requestTimeout = 15 * time.Second
	maxBodyBytes   = 2 << 20 // 2MB
)
