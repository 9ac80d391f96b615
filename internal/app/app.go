package app

import (
	"fmt"
	"log"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/LJTian/LoudCurator/internal/config"
	"github.com/LJTian/LoudCurator/internal/llm"
	"github.com/LJTian/LoudCurator/internal/pipeline"
	"github.com/LJTian/LoudCurator/internal/processor"
	"github.com/LJTian/LoudCurator/internal/scoring"
	"github.com/LJTian/LoudCurator/internal/storage"
)

// Core cmd/api 与 cmd/collect 共用的组件
type Core struct {
	Store    *storage.Store
	LLM      *llm.Client
	Pipeline *pipeline.Service
}

func Build(cfg *config.Config) (*Core, error) {
	store, err := storage.NewStore(cfg.DatabaseURL, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}

	fetchers, err := Fetchers(cfg)
	if err != nil {
		return nil, err
	}

	client := llm.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	var judge scoring.Judge
	if cfg.OpenAIKey != "" {
		judge = client
	} else {
		log.Printf("warn: OPENAI_API_KEY not set, all articles get neutral scores")
	}
	scorer := scoring.NewScorer(judge,
		scoring.WithTimeout(cfg.ScoreTimeout),
		scoring.WithThresholds(cfg.Thresholds),
		scoring.WithChannels(cfg.Channels),
	)

	deps := pipeline.Deps{
		Fetchers:         fetchers,
		Store:            store,
		Deduper:          processor.NewDeduplicator(cfg.DedupThreshold),
		Scorer:           scorer,
		Locker:           store,
		RunTimeout:       cfg.RunTimeout,
		ScoreConcurrency: cfg.ScoreConcurrency,
	}
	// nil *BodyEnricher 放进接口会变成非 nil 接口值，这里显式判断
	if enricher := collector.NewBodyEnricher(cfg.BrowserScraperURL); enricher != nil {
		deps.Enricher = enricher
	}

	svc, err := pipeline.New(deps)
	if err != nil {
		return nil, err
	}
	return &Core{Store: store, LLM: client, Pipeline: svc}, nil
}

// Fetchers 按配置注册数据源；需要 API key 的数据源只在配置了 key 时注册
func Fetchers(cfg *config.Config) ([]collector.Fetcher, error) {
	var fetchers []collector.Fetcher

	rss, err := collector.NewRSSFetcher(cfg.Feeds)
	if err != nil {
		return nil, fmt.Errorf("rss fetcher: %w", err)
	}
	fetchers = append(fetchers, rss)

	if cfg.NewsDataKey != "" {
		for _, variant := range []string{collector.NewsDataGeneral, collector.NewsDataInstitutional} {
			f, err := collector.NewNewsDataFetcher(cfg.NewsDataKey, variant, cfg.InstitutionalDomains)
			if err != nil {
				return nil, fmt.Errorf("newsdata fetcher: %w", err)
			}
			fetchers = append(fetchers, f)
		}
	} else {
		log.Printf("warn: NEWSDATA_API_KEY not set, skip newsdata sources")
	}

	if cfg.GroundNewsKey != "" {
		for _, variant := range []string{collector.GroundNewsSearch, collector.GroundNewsTrending, collector.GroundNewsBalanced} {
			f, err := collector.NewGroundNewsFetcher(cfg.GroundNewsKey, variant)
			if err != nil {
				return nil, fmt.Errorf("groundnews fetcher: %w", err)
			}
			fetchers = append(fetchers, f)
		}
	} else {
		log.Printf("warn: GROUNDNEWS_API_KEY not set, skip ground news sources")
	}

	skywest, err := collector.NewSkyWestFetcher(cfg.SkyWestURL)
	if err != nil {
		return nil, fmt.Errorf("skywest fetcher: %w", err)
	}
	fetchers = append(fetchers, skywest)

	return fetchers, nil
}
