package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("storage: article not found")

// News 文章表，分数字段沿用 score_relevance / score_vibe / score_viral
type News struct {
	ID             string                      `gorm:"primaryKey;size:40" json:"id"`
	Title          string                      `gorm:"size:512" json:"title"`
	CustomTitle    string                      `gorm:"size:512" json:"customTitle"`
	Body           string                      `gorm:"type:text" json:"body"`
	Link           string                      `gorm:"size:1024;uniqueIndex" json:"link"`
	Source         string                      `gorm:"size:128;index" json:"source"`
	PublishedAt    time.Time                   `gorm:"index" json:"publishedAt"`
	Status         string                      `gorm:"size:32;index" json:"status"`
	Scored         bool                        `json:"scored"`
	ScoreRelevance int                         `json:"scoreRelevance"`
	ScoreVibe      int                         `json:"scoreVibe"`
	ScoreViral     int                         `json:"scoreViral"`
	TargetChannels datatypes.JSONSlice[string] `json:"targetChannels"`
	Priority       string                      `gorm:"size:16;index" json:"priority"`
	AutoPost       bool                        `gorm:"index" json:"autoPost"`
	ExtraData      datatypes.JSONMap           `json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (News) TableName() string {
	return "articles"
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStore 根据 DSN 选择驱动：sqlite://、file: 或 .db 结尾走 SQLite，其它走 PostgreSQL。
// redisAddr 为空时不使用缓存与分布式锁。
func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(dialector(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	if err := db.AutoMigrate(&News{}, &Setting{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	s := &Store{DB: db}
	if redisAddr == "" {
		return s, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}
	s.Redis = rdb
	return s, nil
}

func dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		// 兼容 sqlite:///./news.db 这种写法
		return sqlite.Open(strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "/"))
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"):
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

func toModel(a collector.Article) News {
	n := News{
		ID:          a.ID,
		Title:       toValidUTF8(a.Title),
		CustomTitle: toValidUTF8(a.CustomTitle),
		Body:        toValidUTF8(a.Body),
		Link:        strings.TrimSpace(a.Link),
		Source:      a.Source,
		PublishedAt: a.Date,
		Status:      string(a.Status),
		ExtraData:   datatypes.JSONMap(a.Extra),
	}
	if n.Status == "" {
		n.Status = string(collector.StatusNew)
	}
	if a.Scores != nil {
		n.Scored = true
		n.ScoreRelevance = a.Scores.Relevance
		n.ScoreVibe = a.Scores.Vibe
		n.ScoreViral = a.Scores.Virality
	}
	if a.Routing != nil {
		n.TargetChannels = datatypes.JSONSlice[string](a.Routing.TargetChannels)
		n.Priority = string(a.Routing.Priority)
		n.AutoPost = a.Routing.AutoPost
	}
	return n
}

func (n News) toArticle() collector.Article {
	a := collector.Article{
		ID:          n.ID,
		Title:       n.Title,
		CustomTitle: n.CustomTitle,
		Body:        n.Body,
		Link:        n.Link,
		Source:      n.Source,
		Date:        n.PublishedAt,
		Status:      collector.Status(n.Status),
		Extra:       map[string]any(n.ExtraData),
	}
	if n.Scored {
		a.Scores = &collector.Scores{Relevance: n.ScoreRelevance, Vibe: n.ScoreVibe, Virality: n.ScoreViral}
		channels := []string(n.TargetChannels)
		if channels == nil {
			channels = []string{}
		}
		a.Routing = &collector.Routing{
			TargetChannels: channels,
			Priority:       collector.Priority(n.Priority),
			AutoPost:       n.AutoPost,
		}
	}
	return a
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// GetAll 返回全部文章快照，用于去重
func (s *Store) GetAll(ctx context.Context) ([]collector.Article, error) {
	var rows []News
	if err := s.DB.WithContext(ctx).Order("published_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: get all: %w", err)
	}
	out := make([]collector.Article, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toArticle())
	}
	return out, nil
}

// FindByID 未找到时返回 ErrNotFound
func (s *Store) FindByID(ctx context.Context, id string) (collector.Article, error) {
	var n News
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return collector.Article{}, ErrNotFound
	}
	if err != nil {
		return collector.Article{}, fmt.Errorf("storage: find %s: %w", id, err)
	}
	return n.toArticle(), nil
}

// SaveAll 在一个事务内批量写入：按 id 或 link 命中已有记录则更新，否则插入
func (s *Store) SaveAll(ctx context.Context, articles []collector.Article) error {
	if len(articles) == 0 {
		return nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range articles {
			n := toModel(a)

			var existing News
			err := tx.Where("id = ? OR link = ?", n.ID, n.Link).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&n).Error; err != nil {
					return fmt.Errorf("insert %s: %w", n.Link, err)
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("lookup %s: %w", n.Link, err)
			}

			// 主键以库内为准；map 更新保证 false/0/空串 也会写入
			if err := tx.Model(&existing).Updates(map[string]any{
				"title":           n.Title,
				"custom_title":    n.CustomTitle,
				"body":            n.Body,
				"link":            n.Link,
				"source":          n.Source,
				"published_at":    n.PublishedAt,
				"status":          n.Status,
				"scored":          n.Scored,
				"score_relevance": n.ScoreRelevance,
				"score_vibe":      n.ScoreVibe,
				"score_viral":     n.ScoreViral,
				"target_channels": n.TargetChannels,
				"priority":        n.Priority,
				"auto_post":       n.AutoPost,
				"extra_data":      n.ExtraData,
			}).Error; err != nil {
				return fmt.Errorf("update %s: %w", existing.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: save all: %w", err)
	}

	s.bumpListGeneration(ctx)
	return nil
}

const (
	listGenKey   = "articles:list:gen"
	listCacheTTL = 5 * time.Minute
)

// ListArticles 按发布时间倒序返回文章，可按状态过滤，并使用 Redis 做简单缓存。
// 缓存 key 带上写入代数，写入后旧缓存自然失效。
func (s *Store) ListArticles(ctx context.Context, status string, limit int) ([]collector.Article, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	cacheKey := ""
	if s.Redis != nil {
		gen, _ := s.Redis.Get(ctx, listGenKey).Int64()
		cacheKey = fmt.Sprintf("articles:list:%d:%s:%d", gen, status, limit)
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []collector.Article
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []News
	db := s.DB.WithContext(ctx).Model(&News{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Order("published_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}

	list := make([]collector.Article, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.toArticle())
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, nil
}

func (s *Store) bumpListGeneration(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Incr(ctx, listGenKey).Err(); err != nil {
		log.Printf("warn: bump list cache generation: %v", err)
	}
}

// TryLock 基于 Redis SETNX 的跨进程互斥；未配置 Redis 时总是成功
func (s *Store) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.Redis == nil {
		return true, nil
	}
	ok, err := s.Redis.SetNX(ctx, key, time.Now().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("storage: lock %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) Unlock(ctx context.Context, key string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, key).Err()
}
