package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/LJTian/LoudCurator/internal/pipeline"
	"github.com/robfig/cron/v3"
)

var ErrUnknownJob = errors.New("scheduler: unknown job")

const settingsKey = "schedules"

type Ingester interface {
	RunIngestion(ctx context.Context) (pipeline.Result, error)
}

type Poster interface {
	PostPending(ctx context.Context) (int, error)
}

// Settings 调度预设的持久化
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

type Scheduler struct {
	cron     *cron.Cron
	ingester Ingester
	poster   Poster
	settings Settings

	mu        sync.Mutex
	started   bool
	schedules map[Job]Schedule
	entries   map[Job]cron.EntryID

	startupDelay time.Duration
}

type JobStatus struct {
	Job      Job        `json:"job"`
	Schedule Schedule   `json:"schedule"`
	Spec     string     `json:"spec,omitempty"`
	NextRun  *time.Time `json:"nextRun,omitempty"`
}

type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// New 以 defaults 为基础，叠加 settings 中持久化过的预设后注册到 cron
func New(ingester Ingester, poster Poster, settings Settings, defaults map[Job]Schedule) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(),
		ingester:     ingester,
		poster:       poster,
		settings:     settings,
		schedules:    map[Job]Schedule{},
		entries:      map[Job]cron.EntryID{},
		startupDelay: 15 * time.Second,
	}

	merged := map[Job]Schedule{}
	for job, sc := range defaults {
		merged[job] = sc
	}
	for job, sc := range s.loadPersisted() {
		merged[job] = sc
	}

	for job, sc := range merged {
		if err := s.apply(job, sc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) loadPersisted() map[Job]Schedule {
	if s.settings == nil {
		return nil
	}
	raw, ok, err := s.settings.GetSetting(context.Background(), settingsKey)
	if err != nil {
		log.Printf("warn: load schedules: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var out map[Job]Schedule
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("warn: decode schedules: %v", err)
		return nil
	}
	return out
}

// apply 替换 job 的 cron 条目；调用方不持锁
func (s *Scheduler) apply(job Job, sc Schedule) error {
	run, err := s.jobFunc(job)
	if err != nil {
		return err
	}

	var spec string
	if sc.Enabled {
		if spec, err = sc.CronSpec(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[job]; ok {
		s.cron.Remove(id)
		delete(s.entries, job)
	}
	s.schedules[job] = sc
	if !sc.Enabled {
		log.Printf("schedule %s disabled", job)
		return nil
	}

	id, err := s.cron.AddFunc(spec, run)
	if err != nil {
		return fmt.Errorf("scheduler: add %s: %w", job, err)
	}
	s.entries[job] = id
	log.Printf("schedule %s set to %q", job, spec)
	return nil
}

func (s *Scheduler) jobFunc(job Job) (func(), error) {
	switch job {
	case JobIngestion:
		return s.runIngestion, nil
	case JobPosting:
		return s.runPosting, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	// 延迟执行首轮采集，避免与服务启动时的请求争抢资源
	time.AfterFunc(s.startupDelay, s.runIngestion)
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return s.cron.Stop()
}

// SetSchedule 更新并持久化 job 的调度；持久化失败不回滚内存中的调度
func (s *Scheduler) SetSchedule(ctx context.Context, job Job, sc Schedule) error {
	if err := s.apply(job, sc); err != nil {
		return err
	}
	if s.settings == nil {
		return nil
	}

	s.mu.Lock()
	bs, err := json.Marshal(s.schedules)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("scheduler: encode schedules: %w", err)
	}
	if err := s.settings.PutSetting(ctx, settingsKey, string(bs)); err != nil {
		return fmt.Errorf("scheduler: persist schedules: %w", err)
	}
	return nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.started}
	now := time.Now()
	for job, sc := range s.schedules {
		js := JobStatus{Job: job, Schedule: sc}
		if id, ok := s.entries[job]; ok {
			entry := s.cron.Entry(id)
			next := entry.Next
			if next.IsZero() && entry.Schedule != nil {
				next = entry.Schedule.Next(now)
			}
			js.Spec, _ = sc.CronSpec()
			js.NextRun = &next
		}
		st.Jobs = append(st.Jobs, js)
	}
	sort.Slice(st.Jobs, func(i, j int) bool { return st.Jobs[i].Job < st.Jobs[j].Job })
	return st
}

// RunNow 在后台立即执行一次 job
func (s *Scheduler) RunNow(job Job) error {
	run, err := s.jobFunc(job)
	if err != nil {
		return err
	}
	go run()
	return nil
}

func (s *Scheduler) runIngestion() {
	if s.ingester == nil {
		return
	}
	log.Println("start ingestion job...")
	res, err := s.ingester.RunIngestion(context.Background())
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		log.Println("ingestion already running, skip this round")
		return
	}
	if err != nil {
		log.Printf("ingestion job error: %v", err)
		return
	}
	log.Printf("ingestion job done, ingested=%d", res.ArticlesIngested)
}

func (s *Scheduler) runPosting() {
	if s.poster == nil {
		return
	}
	n, err := s.poster.PostPending(context.Background())
	if err != nil {
		log.Printf("posting job error: %v", err)
		return
	}
	log.Printf("posting job done, posted=%d", n)
}
