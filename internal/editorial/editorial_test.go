package editorial

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/LJTian/LoudCurator/internal/llm"
)

var errNotFound = errors.New("not found")

type memStore struct {
	mu   sync.Mutex
	rows map[string]collector.Article
}

func newMemStore(articles ...collector.Article) *memStore {
	m := &memStore{rows: map[string]collector.Article{}}
	for _, a := range articles {
		m.rows[a.ID] = a
	}
	return m
}

func (m *memStore) FindByID(ctx context.Context, id string) (collector.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return collector.Article{}, errNotFound
	}
	return a, nil
}

func (m *memStore) SaveAll(ctx context.Context, articles []collector.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range articles {
		m.rows[a.ID] = a
	}
	return nil
}

func (m *memStore) ListArticles(ctx context.Context, status string, limit int) ([]collector.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []collector.Article
	for _, a := range m.rows {
		if status == "" || string(a.Status) == status {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeEditor struct {
	rewrite string
	err     error
}

func (f fakeEditor) Rewrite(ctx context.Context, title, body string) (string, error) {
	return f.rewrite, f.err
}

func (f fakeEditor) RemixHeadlines(ctx context.Context, title, body string) []string {
	return []string{"a " + title, "b " + title, "c " + title}
}

func (f fakeEditor) AnalyzeTone(ctx context.Context, title, body string) llm.ToneAnalysis {
	return llm.ToneAnalysis{StyleMatch: 70, Tone: "dramatic", Themes: []string{title}}
}

type fakePoster struct {
	mu    sync.Mutex
	posts []collector.Article
	err   error
}

func (p *fakePoster) Post(ctx context.Context, a collector.Article) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.posts = append(p.posts, a)
	return nil
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to collector.Status
		want     bool
	}{
		{collector.StatusNew, collector.StatusSelected, true},
		{"", collector.StatusSelected, true},
		{collector.StatusNew, collector.StatusEdited, false},
		{collector.StatusNew, collector.StatusPosted, false},
		{collector.StatusSelected, collector.StatusSelected, true},
		{collector.StatusSelected, collector.StatusEdited, true},
		{collector.StatusSelected, collector.StatusPosted, false},
		{collector.StatusEdited, collector.StatusEdited, true},
		{collector.StatusEdited, collector.StatusPosted, true},
		{collector.StatusEdited, collector.StatusSelected, false},
		{collector.StatusPosted, collector.StatusEdited, false},
		{collector.StatusPosted, collector.StatusManualReview, false},
		{collector.StatusNew, collector.StatusManualReview, true},
		{collector.StatusEdited, collector.StatusManualReview, true},
		{collector.StatusManualReview, collector.StatusSelected, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestEditorialFlow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(collector.Article{ID: "a", Title: "Pilot shortage", Body: "raw", Status: collector.StatusNew})
	poster := &fakePoster{}
	svc := New(store, fakeEditor{rewrite: "  polished  "}, poster)

	if _, err := svc.Edit(ctx, "a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("edit before select err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Select(ctx, "a"); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	a, err := svc.Edit(ctx, "a")
	if err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if a.Body != "polished" || a.Status != collector.StatusEdited {
		t.Fatalf("after edit: %+v", a)
	}
	if _, err := svc.SetCustomTitle(ctx, "a", " Pilots wanted "); err != nil {
		t.Fatalf("SetCustomTitle error: %v", err)
	}
	a, err = svc.Post(ctx, "a")
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if a.Status != collector.StatusPosted || len(poster.posts) != 1 || poster.posts[0].DisplayTitle() != "Pilots wanted" {
		t.Fatalf("post result %+v, posts %+v", a, poster.posts)
	}
	if _, err := svc.MarkForReview(ctx, "a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("review after post err = %v, want ErrInvalidTransition", err)
	}
}

func TestEditFailureKeepsStatus(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(collector.Article{ID: "a", Title: "t", Body: "raw", Status: collector.StatusSelected})

	if _, err := New(store, fakeEditor{err: llm.ErrMissingAPIKey}, &fakePoster{}).Edit(ctx, "a"); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("err = %v, want wrapped ErrMissingAPIKey", err)
	}
	if _, err := New(store, fakeEditor{rewrite: "   "}, &fakePoster{}).Edit(ctx, "a"); !errors.Is(err, ErrEmptyRewrite) {
		t.Fatalf("err = %v, want ErrEmptyRewrite", err)
	}
	a, _ := store.FindByID(ctx, "a")
	if a.Status != collector.StatusSelected || a.Body != "raw" {
		t.Fatalf("article changed after failed edit: %+v", a)
	}
}

func TestPostFailureKeepsStatus(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(collector.Article{ID: "a", Title: "t", Status: collector.StatusEdited})
	svc := New(store, fakeEditor{}, &fakePoster{err: errors.New("webhook 500")})

	if _, err := svc.Post(ctx, "a"); err == nil {
		t.Fatalf("expected post error")
	}
	if a, _ := store.FindByID(ctx, "a"); a.Status != collector.StatusEdited {
		t.Fatalf("status = %q, want edited", a.Status)
	}
}

func TestPostPendingOnlyAutoPost(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(
		collector.Article{ID: "auto", Title: "a", Status: collector.StatusEdited, Routing: &collector.Routing{AutoPost: true}},
		collector.Article{ID: "manual", Title: "b", Status: collector.StatusEdited, Routing: &collector.Routing{AutoPost: false}},
		collector.Article{ID: "fresh", Title: "c", Status: collector.StatusNew, Routing: &collector.Routing{AutoPost: true}},
	)
	poster := &fakePoster{}

	n, err := New(store, fakeEditor{}, poster).PostPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PostPending = %d, %v; want 1", n, err)
	}
	if poster.posts[0].ID != "auto" {
		t.Fatalf("posted %s, want auto", poster.posts[0].ID)
	}
	if a, _ := store.FindByID(ctx, "manual"); a.Status != collector.StatusEdited {
		t.Fatalf("manual article should stay edited")
	}
}

func TestRemixAndToneLookups(t *testing.T) {
	ctx := context.Background()
	svc := New(newMemStore(collector.Article{ID: "a", Title: "Jet", CustomTitle: "Jets!"}), fakeEditor{}, &fakePoster{})

	heads, err := svc.Remix(ctx, "a")
	if err != nil || len(heads) != 3 || heads[0] != "a Jet" {
		t.Fatalf("Remix = %v, %v", heads, err)
	}
	tone, err := svc.AnalyzeTone(ctx, "a")
	if err != nil || tone.Themes[0] != "Jets!" {
		t.Fatalf("AnalyzeTone = %+v, %v", tone, err)
	}
	if _, err := svc.Remix(ctx, "missing"); !errors.Is(err, errNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
