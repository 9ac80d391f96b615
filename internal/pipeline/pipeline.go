package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/LJTian/LoudCurator/internal/logging"
)

const (
	DefaultRunTimeout       = 5 * time.Minute
	DefaultScoreConcurrency = 5

	lockKey = "ingest:lock"
	lockTTL = 15 * time.Minute
)

// ErrAlreadyRunning 已有一次采集在进行中
var ErrAlreadyRunning = errors.New("pipeline: ingestion already running")

// Corpus 持久化层中采集流程需要的部分
type Corpus interface {
	GetAll(ctx context.Context) ([]collector.Article, error)
	SaveAll(ctx context.Context, articles []collector.Article) error
	FindByID(ctx context.Context, id string) (collector.Article, error)
}

type Deduper interface {
	Dedupe(candidates, corpus []collector.Article) []collector.Article
}

type Scorer interface {
	ScoreAndRoute(ctx context.Context, a collector.Article) (collector.Scores, collector.Routing)
}

type Enricher interface {
	Enrich(ctx context.Context, articles []collector.Article) int
}

// Locker 跨进程互斥，可选
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Deps struct {
	Fetchers         []collector.Fetcher
	Store            Corpus
	Deduper          Deduper
	Scorer           Scorer
	Enricher         Enricher
	Locker           Locker
	RunTimeout       time.Duration
	ScoreConcurrency int
}

type SourceStat struct {
	Source  string        `json:"source"`
	Count   int           `json:"count"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

type Result struct {
	ArticlesIngested int          `json:"articlesIngested"`
	Fetched          int          `json:"fetched"`
	Duplicates       int          `json:"duplicates"`
	Sources          []SourceStat `json:"sources"`
}

type Service struct {
	deps    Deps
	running atomic.Bool
}

func New(deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if deps.Deduper == nil {
		return nil, errors.New("pipeline: deduper is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("pipeline: scorer is required")
	}
	if deps.RunTimeout <= 0 {
		deps.RunTimeout = DefaultRunTimeout
	}
	if deps.ScoreConcurrency <= 0 {
		deps.ScoreConcurrency = DefaultScoreConcurrency
	}
	return &Service{deps: deps}, nil
}

// Running 当前进程内是否有采集在进行
func (s *Service) Running() bool {
	return s.running.Load()
}

// RunIngestion 抓取、去重、补全正文、打分并一次性写入。
// 所有数据源都失败时返回 0 条而不是错误；持久化错误向上返回。
func (s *Service) RunIngestion(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if s.deps.Locker != nil {
		ok, err := s.deps.Locker.TryLock(ctx, lockKey, lockTTL)
		if err != nil {
			log.Printf("warn: acquire ingest lock: %v, continuing without it", err)
		} else if !ok {
			return Result{}, ErrAlreadyRunning
		} else {
			defer func() {
				if err := s.deps.Locker.Unlock(context.Background(), lockKey); err != nil {
					log.Printf("warn: release ingest lock: %v", err)
				}
			}()
		}
	}

	start := time.Now()
	log.Printf("ingestion started with %d sources", len(s.deps.Fetchers))

	fetchCtx, cancel := context.WithTimeout(ctx, s.deps.RunTimeout)
	results := collector.RunAll(fetchCtx, s.deps.Fetchers)
	cancel()

	var res Result
	for _, r := range results {
		st := SourceStat{Source: r.Source, Count: len(r.Articles), Elapsed: r.Elapsed}
		if r.Err != nil {
			st.Error = r.Err.Error()
		}
		res.Sources = append(res.Sources, st)
	}
	candidates := collector.Merge(results)
	res.Fetched = len(candidates)

	corpus, err := s.deps.Store.GetAll(ctx)
	if err != nil {
		return res, fmt.Errorf("pipeline: load corpus: %w", err)
	}

	unique := s.deps.Deduper.Dedupe(candidates, corpus)
	res.Duplicates = len(candidates) - len(unique)
	if len(unique) == 0 {
		log.Printf("ingestion done: fetched %d, nothing new (%s)", res.Fetched, time.Since(start).Round(time.Millisecond))
		return res, nil
	}

	if s.deps.Enricher != nil {
		if n := s.deps.Enricher.Enrich(ctx, unique); n > 0 {
			log.Printf("enriched %d article bodies", n)
		}
	}

	s.scoreAll(ctx, unique)

	if err := s.deps.Store.SaveAll(ctx, unique); err != nil {
		return res, fmt.Errorf("pipeline: save %d articles: %w", len(unique), err)
	}

	res.ArticlesIngested = len(unique)
	log.Printf("ingestion done: fetched %d, duplicates %d, ingested %d (%s)",
		res.Fetched, res.Duplicates, res.ArticlesIngested, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// scoreAll 并发打分，每个 goroutine 只写自己的下标
func (s *Service) scoreAll(ctx context.Context, articles []collector.Article) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.deps.ScoreConcurrency)

	for i := range articles {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			scores, routing := s.deps.Scorer.ScoreAndRoute(ctx, articles[idx])
			articles[idx].Scores = &scores
			articles[idx].Routing = &routing
			if articles[idx].Status == "" {
				articles[idx].Status = collector.StatusNew
			}
			logging.Debugf("scored %q r=%d v=%d vir=%d -> %v", articles[idx].Title,
				scores.Relevance, scores.Vibe, scores.Virality, routing.TargetChannels)
		}(i)
	}
	wg.Wait()
}
