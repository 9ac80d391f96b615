package collector

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubFetcher struct {
	name  string
	items []Article
	err   error
	panic bool
	delay time.Duration
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context) ([]Article, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.panic {
		panic("adapter exploded")
	}
	return s.items, s.err
}

func threeArticles() []Article {
	return []Article{
		{ID: "1", Title: "one", Link: "https://b/1"},
		{ID: "2", Title: "two", Link: "https://b/2"},
		{ID: "3", Title: "three", Link: "https://b/3"},
	}
}

func TestRunAllIsolatesFailingAdapters(t *testing.T) {
	fetchers := []Fetcher{
		&stubFetcher{name: "a", err: errors.New("network down")},
		&stubFetcher{name: "b", items: threeArticles()},
		&stubFetcher{name: "c", panic: true},
	}

	results := RunAll(context.Background(), fetchers)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err == nil || results[2].Err == nil {
		t.Fatalf("expected errors for a and c: %+v", results)
	}
	if results[1].Err != nil || results[1].Source != "b" {
		t.Fatalf("unexpected result for b: %+v", results[1])
	}

	merged := Merge(results)
	if len(merged) != 3 {
		t.Fatalf("merged %d articles, want exactly b's 3", len(merged))
	}
}

func TestRunAllKeepsPartialResultsOnDeadline(t *testing.T) {
	fetchers := []Fetcher{
		&stubFetcher{name: "fast", items: threeArticles()},
		&stubFetcher{name: "slow", items: threeArticles(), delay: 5 * time.Second},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	results := RunAll(ctx, fetchers)
	if time.Since(start) > 2*time.Second {
		t.Fatalf("RunAll did not honor the deadline")
	}
	if len(results[0].Articles) != 3 {
		t.Fatalf("fast adapter results lost: %+v", results[0])
	}
	if !errors.Is(results[1].Err, context.DeadlineExceeded) {
		t.Fatalf("slow adapter err = %v, want deadline exceeded", results[1].Err)
	}
	if got := len(Merge(results)); got != 3 {
		t.Fatalf("merged %d, want 3", got)
	}
}

func TestRunAllWithNoFetchers(t *testing.T) {
	if got := RunAll(context.Background(), nil); len(got) != 0 {
		t.Fatalf("got %d results, want 0", len(got))
	}
}
