package editorial

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/LJTian/LoudCurator/internal/llm"
)

var (
	ErrInvalidTransition = errors.New("editorial: invalid status transition")
	ErrEmptyRewrite      = errors.New("editorial: model returned empty content")
)

const pendingLimit = 100

// 允许的状态迁移；posted 与 manual_review 为终态
var transitions = map[collector.Status][]collector.Status{
	collector.StatusNew:      {collector.StatusSelected, collector.StatusManualReview},
	collector.StatusSelected: {collector.StatusSelected, collector.StatusEdited, collector.StatusManualReview},
	collector.StatusEdited:   {collector.StatusEdited, collector.StatusPosted, collector.StatusManualReview},
}

func CanTransition(from, to collector.Status) bool {
	if from == "" {
		from = collector.StatusNew
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Store interface {
	FindByID(ctx context.Context, id string) (collector.Article, error)
	SaveAll(ctx context.Context, articles []collector.Article) error
	ListArticles(ctx context.Context, status string, limit int) ([]collector.Article, error)
}

type Editor interface {
	Rewrite(ctx context.Context, title, body string) (string, error)
	RemixHeadlines(ctx context.Context, title, body string) []string
	AnalyzeTone(ctx context.Context, title, body string) llm.ToneAnalysis
}

type Poster interface {
	Post(ctx context.Context, a collector.Article) error
}

// Service 编辑台操作：选稿、AI 改写、标题重混、调性分析、人工复核与发布
type Service struct {
	store  Store
	editor Editor
	poster Poster
}

func New(store Store, editor Editor, poster Poster) *Service {
	return &Service{store: store, editor: editor, poster: poster}
}

func (s *Service) Get(ctx context.Context, id string) (collector.Article, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) Select(ctx context.Context, id string) (collector.Article, error) {
	return s.move(ctx, id, collector.StatusSelected, nil)
}

// Edit 用模型改写正文，仅 selected / edited 状态可用
func (s *Service) Edit(ctx context.Context, id string) (collector.Article, error) {
	return s.move(ctx, id, collector.StatusEdited, func(a *collector.Article) error {
		body, err := s.editor.Rewrite(ctx, a.Title, a.Body)
		if err != nil {
			return fmt.Errorf("editorial: rewrite %s: %w", a.ID, err)
		}
		body = strings.TrimSpace(body)
		if body == "" {
			return ErrEmptyRewrite
		}
		a.Body = body
		return nil
	})
}

// Post 发送到 Slack 后置为 posted；发送失败时状态不变
func (s *Service) Post(ctx context.Context, id string) (collector.Article, error) {
	return s.move(ctx, id, collector.StatusPosted, func(a *collector.Article) error {
		return s.poster.Post(ctx, *a)
	})
}

func (s *Service) MarkForReview(ctx context.Context, id string) (collector.Article, error) {
	return s.move(ctx, id, collector.StatusManualReview, nil)
}

func (s *Service) Remix(ctx context.Context, id string) ([]string, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.editor.RemixHeadlines(ctx, a.Title, a.Body), nil
}

// SetCustomTitle 设置发布用标题，传空串则恢复原标题
func (s *Service) SetCustomTitle(ctx context.Context, id, title string) (collector.Article, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return collector.Article{}, err
	}
	a.CustomTitle = strings.TrimSpace(title)
	if err := s.store.SaveAll(ctx, []collector.Article{a}); err != nil {
		return collector.Article{}, fmt.Errorf("editorial: save %s: %w", id, err)
	}
	return a, nil
}

func (s *Service) AnalyzeTone(ctx context.Context, id string) (llm.ToneAnalysis, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return llm.ToneAnalysis{}, err
	}
	return s.editor.AnalyzeTone(ctx, a.DisplayTitle(), a.Body), nil
}

// PostPending 发布所有已编辑且 AutoPost 的文章，单篇失败只记日志，返回成功数量
func (s *Service) PostPending(ctx context.Context) (int, error) {
	pending, err := s.store.ListArticles(ctx, string(collector.StatusEdited), pendingLimit)
	if err != nil {
		return 0, fmt.Errorf("editorial: list pending: %w", err)
	}

	posted := 0
	for _, a := range pending {
		if a.Routing == nil || !a.Routing.AutoPost {
			continue
		}
		if ctx.Err() != nil {
			return posted, ctx.Err()
		}
		if _, err := s.Post(ctx, a.ID); err != nil {
			log.Printf("auto post %s error: %v", a.ID, err)
			continue
		}
		posted++
	}
	if posted > 0 {
		log.Printf("auto posted %d articles", posted)
	}
	return posted, nil
}

func (s *Service) move(ctx context.Context, id string, to collector.Status, apply func(*collector.Article) error) (collector.Article, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return collector.Article{}, err
	}
	if !CanTransition(a.Status, to) {
		return collector.Article{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	if apply != nil {
		if err := apply(&a); err != nil {
			return collector.Article{}, err
		}
	}
	a.Status = to
	if err := s.store.SaveAll(ctx, []collector.Article{a}); err != nil {
		return collector.Article{}, fmt.Errorf("editorial: save %s: %w", id, err)
	}
	log.Printf("article %s moved to %s", id, to)
	return a, nil
}
