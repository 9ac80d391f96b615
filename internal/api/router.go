package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/LJTian/LoudCurator/internal/editorial"
	"github.com/LJTian/LoudCurator/internal/llm"
	"github.com/LJTian/LoudCurator/internal/pipeline"
	"github.com/LJTian/LoudCurator/internal/scheduler"
	"github.com/LJTian/LoudCurator/internal/scoring"
	"github.com/LJTian/LoudCurator/internal/storage"
	"github.com/gin-gonic/gin"
)

type ArticleLister interface {
	ListArticles(ctx context.Context, status string, limit int) ([]collector.Article, error)
}

type Ingester interface {
	RunIngestion(ctx context.Context) (pipeline.Result, error)
}

type Editorial interface {
	Get(ctx context.Context, id string) (collector.Article, error)
	Select(ctx context.Context, id string) (collector.Article, error)
	Edit(ctx context.Context, id string) (collector.Article, error)
	Post(ctx context.Context, id string) (collector.Article, error)
	MarkForReview(ctx context.Context, id string) (collector.Article, error)
	Remix(ctx context.Context, id string) ([]string, error)
	SetCustomTitle(ctx context.Context, id, title string) (collector.Article, error)
	AnalyzeTone(ctx context.Context, id string) (llm.ToneAnalysis, error)
}

type Scheduler interface {
	Status() scheduler.Status
	SetSchedule(ctx context.Context, job scheduler.Job, sc scheduler.Schedule) error
	RunNow(job scheduler.Job) error
}

type Server struct {
	articles  ArticleLister
	ingester  Ingester
	editorial Editorial
	scheduler Scheduler
}

// NewServer scheduler 可以为 nil（例如未启用定时任务时），相关接口返回 503
func NewServer(articles ArticleLister, ingester Ingester, ed Editorial, sched Scheduler) *Server {
	return &Server{articles: articles, ingester: ingester, editorial: ed, scheduler: sched}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/news", s.listNews)
		v1.GET("/news/:id", s.getNews)
		v1.POST("/ingest", s.ingest)

		v1.POST("/news/:id/select", s.transition(s.editorial.Select))
		v1.POST("/news/:id/edit", s.transition(s.editorial.Edit))
		v1.POST("/news/:id/post", s.transition(s.editorial.Post))
		v1.POST("/news/:id/review", s.transition(s.editorial.MarkForReview))
		v1.POST("/news/:id/remix", s.remix)
		v1.PUT("/news/:id/title", s.setTitle)
		v1.GET("/news/:id/tone", s.tone)

		v1.GET("/schedules", s.schedules)
		v1.PUT("/schedules/:job", s.setSchedule)
		v1.POST("/schedules/:job/run", s.runJob)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

// writeError 把领域错误映射为 HTTP 状态码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fail(c, http.StatusNotFound, "not_found", "article not found")
	case errors.Is(err, editorial.ErrInvalidTransition):
		fail(c, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		fail(c, http.StatusConflict, "busy", "ingestion already running")
	case errors.Is(err, scheduler.ErrUnknownJob):
		fail(c, http.StatusNotFound, "not_found", err.Error())
	default:
		fail(c, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) listNews(c *gin.Context) {
	status := c.Query("status")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	items, err := s.articles.ListArticles(c.Request.Context(), status, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, items)
}

type articleDetail struct {
	collector.Article
	ScoreDescriptions []string `json:"scoreDescriptions,omitempty"`
}

func (s *Server) getNews(c *gin.Context) {
	a, err := s.editorial.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	detail := articleDetail{Article: a}
	if a.Scores != nil {
		detail.ScoreDescriptions = scoring.DescribeAll(*a.Scores)
	}
	ok(c, detail)
}

func (s *Server) ingest(c *gin.Context) {
	// 客户端断开不应中断正在进行的采集
	res, err := s.ingester.RunIngestion(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) transition(action func(ctx context.Context, id string) (collector.Article, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := action(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, a)
	}
}

func (s *Server) remix(c *gin.Context) {
	headlines, err := s.editorial.Remix(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"headlines": headlines})
}

type titleRequest struct {
	Title string `json:"title"`
}

func (s *Server) setTitle(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	a, err := s.editorial.SetCustomTitle(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, a)
}

func (s *Server) tone(c *gin.Context) {
	t, err := s.editorial.AnalyzeTone(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, t)
}

func (s *Server) schedules(c *gin.Context) {
	if s.scheduler == nil {
		fail(c, http.StatusServiceUnavailable, "unavailable", "scheduler disabled")
		return
	}
	ok(c, s.scheduler.Status())
}

func (s *Server) setSchedule(c *gin.Context) {
	if s.scheduler == nil {
		fail(c, http.StatusServiceUnavailable, "unavailable", "scheduler disabled")
		return
	}
	job, err := scheduler.ParseJob(c.Param("job"))
	if err != nil {
		writeError(c, err)
		return
	}
	var sc scheduler.Schedule
	if err := c.ShouldBindJSON(&sc); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	if _, err := sc.CronSpec(); sc.Enabled && err != nil {
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.scheduler.SetSchedule(c.Request.Context(), job, sc); err != nil {
		writeError(c, err)
		return
	}
	ok(c, s.scheduler.Status())
}

func (s *Server) runJob(c *gin.Context) {
	if s.scheduler == nil {
		fail(c, http.StatusServiceUnavailable, "unavailable", "scheduler disabled")
		return
	}
	job, err := scheduler.ParseJob(c.Param("job"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.scheduler.RunNow(job); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "ok",
		"message": "job started",
		"data":    gin.H{"job": job},
	})
}
