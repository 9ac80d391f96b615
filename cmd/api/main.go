package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/LoudCurator/internal/api"
	"github.com/LJTian/LoudCurator/internal/app"
	"github.com/LJTian/LoudCurator/internal/config"
	"github.com/LJTian/LoudCurator/internal/editorial"
	"github.com/LJTian/LoudCurator/internal/logging"
	"github.com/LJTian/LoudCurator/internal/publisher"
	"github.com/LJTian/LoudCurator/internal/scheduler"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("init logging failed: %v", err)
	}
	defer closer.Close()

	core, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("init pipeline failed: %v", err)
	}

	slack := publisher.NewSlack(cfg.SlackWebhookURL, cfg.SlackFigmaWebhookURL, cfg.Channels.Design)
	desk := editorial.New(core.Store, core.LLM, slack)

	// 环境变量给出初始调度，运行中通过 API 修改的预设会持久化并覆盖它们
	defaults := map[scheduler.Job]scheduler.Schedule{
		scheduler.JobIngestion: {Enabled: cfg.CronSpec != "", Spec: cfg.CronSpec},
		scheduler.JobPosting:   {Enabled: cfg.PostCronSpec != "", Spec: cfg.PostCronSpec},
	}

	sched, err := scheduler.New(core.Pipeline, desk, core.Store, defaults)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	sched.Start()

	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(core.Store, core.Pipeline, desk, sched).RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logging.Infof("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server exit: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Infof("shutting down ...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("server shutdown: %v", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-ctx.Done():
		logging.Warnf("scheduler jobs still running at exit")
	}
}
