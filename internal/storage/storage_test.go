package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/LJTian/LoudCurator/internal/collector"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := NewStore(dsn, "")
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	return s
}

func TestDialectorSelection(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"sqlite:///./news.db", "sqlite"},
		{"file::memory:", "sqlite"},
		{"data/curator.db", "sqlite"},
		{"host=localhost user=curator dbname=curator sslmode=disable", "postgres"},
		{"postgres://curator@localhost/curator", "postgres"},
	}
	for _, c := range cases {
		if got := dialector(c.dsn).Name(); got != c.want {
			t.Fatalf("dialector(%q) = %s, want %s", c.dsn, got, c.want)
		}
	}
}

func TestSaveAllInsertsAndRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	articles := []collector.Article{
		{
			ID: "a1", Title: "Pilot shortage worsens", Link: "https://x/2", Source: "rss",
			Date: date, Status: collector.StatusNew,
			Scores:  &collector.Scores{Relevance: 90, Vibe: 90, Virality: 90},
			Routing: &collector.Routing{TargetChannels: []string{"slack", "figma"}, Priority: collector.PriorityHigh, AutoPost: true},
			Extra:   map[string]any{"bias": "center"},
		},
		{ID: "a2", Title: "Unscored", Link: "https://x/3", Date: date.Add(-time.Hour)},
	}
	if err := s.SaveAll(ctx, articles); err != nil {
		t.Fatalf("SaveAll error: %v", err)
	}

	got, err := s.FindByID(ctx, "a1")
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.Scores == nil || got.Scores.Relevance != 90 || got.Routing == nil || !got.Routing.AutoPost {
		t.Fatalf("scores/routing not persisted: %+v", got)
	}
	if len(got.Routing.TargetChannels) != 2 || got.Routing.TargetChannels[1] != "figma" {
		t.Fatalf("target channels = %v", got.Routing.TargetChannels)
	}
	if got.Extra["bias"] != "center" {
		t.Fatalf("extra = %+v", got.Extra)
	}

	unscored, err := s.FindByID(ctx, "a2")
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if unscored.Scores != nil || unscored.Routing != nil || unscored.Status != collector.StatusNew {
		t.Fatalf("unscored article should have nil scores and default status: %+v", unscored)
	}

	all, err := s.GetAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("GetAll = %d, %v", len(all), err)
	}
	if all[0].ID != "a1" {
		t.Fatalf("GetAll should be newest first, got %s", all[0].ID)
	}
}

func TestSaveAllUpsertsByIDOrLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveAll(ctx, []collector.Article{{ID: "a1", Title: "Old", Link: "https://x/1", Status: collector.StatusNew}}); err != nil {
		t.Fatalf("SaveAll error: %v", err)
	}

	// 同 id：更新状态
	if err := s.SaveAll(ctx, []collector.Article{{ID: "a1", Title: "Old", Link: "https://x/1", Status: collector.StatusSelected}}); err != nil {
		t.Fatalf("SaveAll by id error: %v", err)
	}
	// 同 link 不同 id：更新已有记录，不新增
	if err := s.SaveAll(ctx, []collector.Article{{ID: "other", Title: "New title", Link: "https://x/1", Status: collector.StatusSelected}}); err != nil {
		t.Fatalf("SaveAll by link error: %v", err)
	}

	all, _ := s.GetAll(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1", len(all))
	}
	if all[0].ID != "a1" || all[0].Title != "New title" || all[0].Status != collector.StatusSelected {
		t.Fatalf("unexpected row after upsert: %+v", all[0])
	}
}

func TestFindByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FindByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListArticlesFiltersByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	_ = s.SaveAll(ctx, []collector.Article{
		{ID: "1", Title: "a", Link: "https://x/1", Status: collector.StatusNew, Date: now},
		{ID: "2", Title: "b", Link: "https://x/2", Status: collector.StatusEdited, Date: now.Add(time.Minute)},
		{ID: "3", Title: "c", Link: "https://x/3", Status: collector.StatusEdited, Date: now.Add(2 * time.Minute)},
	})

	list, err := s.ListArticles(ctx, string(collector.StatusEdited), 10)
	if err != nil {
		t.Fatalf("ListArticles error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "3" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestSettingsAndLockWithoutRedis(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetSetting(ctx, "schedules"); ok || err != nil {
		t.Fatalf("GetSetting on empty table = %v, %v", ok, err)
	}
	if err := s.PutSetting(ctx, "schedules", `{"a":1}`); err != nil {
		t.Fatalf("PutSetting error: %v", err)
	}
	if err := s.PutSetting(ctx, "schedules", `{"a":2}`); err != nil {
		t.Fatalf("PutSetting overwrite error: %v", err)
	}
	v, ok, err := s.GetSetting(ctx, "schedules")
	if err != nil || !ok || v != `{"a":2}` {
		t.Fatalf("GetSetting = %q, %v, %v", v, ok, err)
	}

	ok, err = s.TryLock(ctx, "ingest", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock without redis = %v, %v; want true", ok, err)
	}
	if err := s.Unlock(ctx, "ingest"); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}
}
