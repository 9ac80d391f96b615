package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/LoudCurator/internal/pipeline"
)

func TestScheduleCronSpec(t *testing.T) {
	cases := []struct {
		name string
		in   Schedule
		want string
		err  bool
	}{
		{"hourly uses minute", Schedule{Frequency: "hourly", Time: "09:15"}, "15 * * * *", false},
		{"daily", Schedule{Frequency: "daily", Time: "07:30"}, "30 7 * * *", false},
		{"empty frequency is daily", Schedule{Time: "23:05"}, "5 23 * * *", false},
		{"weekly names", Schedule{Frequency: "weekly", Time: "10:00", Days: []string{"Monday", "wed", "mon"}}, "0 10 * * mon,wed", false},
		{"weekly default monday", Schedule{Frequency: "weekly", Time: "08:00"}, "0 8 * * mon", false},
		{"raw spec", Schedule{Spec: "*/30 * * * *"}, "*/30 * * * *", false},
		{"bad raw spec", Schedule{Spec: "every day"}, "", true},
		{"bad time", Schedule{Frequency: "daily", Time: "25:00"}, "", true},
		{"bad weekday", Schedule{Frequency: "weekly", Days: []string{"funday"}}, "", true},
		{"bad frequency", Schedule{Frequency: "monthly"}, "", true},
	}
	for _, c := range cases {
		got, err := c.in.CronSpec()
		if (err != nil) != c.err {
			t.Fatalf("%s: err = %v, want error=%v", c.name, err, c.err)
		}
		if got != c.want {
			t.Fatalf("%s: CronSpec() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestParseJob(t *testing.T) {
	if j, err := ParseJob(" Ingestion "); err != nil || j != JobIngestion {
		t.Fatalf("ParseJob = %q, %v", j, err)
	}
	if _, err := ParseJob("cleanup"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
}

type memSettings struct {
	mu   sync.Mutex
	vals map[string]string
}

func (m *memSettings) GetSetting(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *memSettings) PutSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vals == nil {
		m.vals = map[string]string{}
	}
	m.vals[key] = value
	return nil
}

type fakeIngester struct {
	calls chan struct{}
	err   error
}

func (f *fakeIngester) RunIngestion(ctx context.Context) (pipeline.Result, error) {
	f.calls <- struct{}{}
	return pipeline.Result{ArticlesIngested: 2}, f.err
}

type fakePoster struct {
	calls chan struct{}
}

func (f *fakePoster) PostPending(ctx context.Context) (int, error) {
	f.calls <- struct{}{}
	return 1, nil
}

func TestNewMergesPersistedSchedules(t *testing.T) {
	settings := &memSettings{vals: map[string]string{
		settingsKey: `{"posting":{"enabled":true,"frequency":"daily","time":"18:00"}}`,
	}}
	defaults := map[Job]Schedule{
		JobIngestion: {Enabled: true, Spec: "*/30 * * * *"},
		JobPosting:   {Enabled: false},
	}

	s, err := New(nil, nil, settings, defaults)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	st := s.Status()
	if len(st.Jobs) != 2 || st.Running {
		t.Fatalf("unexpected status: %+v", st)
	}
	for _, js := range st.Jobs {
		if js.NextRun == nil {
			t.Fatalf("job %s should have a next run", js.Job)
		}
		if js.Job == JobPosting && js.Spec != "0 18 * * *" {
			t.Fatalf("posting spec = %q, persisted schedule not applied", js.Spec)
		}
	}
}

func TestSetSchedulePersistsAndDisables(t *testing.T) {
	settings := &memSettings{}
	s, err := New(nil, nil, settings, map[Job]Schedule{JobIngestion: {Enabled: true, Spec: "0 * * * *"}})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := s.SetSchedule(context.Background(), JobIngestion, Schedule{Enabled: false}); err != nil {
		t.Fatalf("SetSchedule error: %v", err)
	}
	st := s.Status()
	if len(st.Jobs) != 1 || st.Jobs[0].NextRun != nil {
		t.Fatalf("disabled job should have no next run: %+v", st.Jobs)
	}

	var saved map[Job]Schedule
	if err := json.Unmarshal([]byte(settings.vals[settingsKey]), &saved); err != nil {
		t.Fatalf("persisted schedules not valid json: %v", err)
	}
	if saved[JobIngestion].Enabled {
		t.Fatalf("persisted schedule = %+v", saved)
	}

	if err := s.SetSchedule(context.Background(), JobPosting, Schedule{Enabled: true, Time: "99:99"}); err == nil {
		t.Fatalf("invalid schedule should be rejected")
	}
	if err := s.SetSchedule(context.Background(), Job("cleanup"), Schedule{}); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
}

func TestRunNowDispatchesJobs(t *testing.T) {
	ing := &fakeIngester{calls: make(chan struct{}, 1), err: pipeline.ErrAlreadyRunning}
	post := &fakePoster{calls: make(chan struct{}, 1)}
	s, err := New(ing, post, nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := s.RunNow(JobIngestion); err != nil {
		t.Fatalf("RunNow ingestion error: %v", err)
	}
	if err := s.RunNow(JobPosting); err != nil {
		t.Fatalf("RunNow posting error: %v", err)
	}
	for name, ch := range map[string]chan struct{}{"ingestion": ing.calls, "posting": post.calls} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s job was not run", name)
		}
	}
}
