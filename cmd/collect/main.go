package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/LoudCurator/internal/app"
	"github.com/LJTian/LoudCurator/internal/config"
	"github.com/LJTian/LoudCurator/internal/logging"
	"github.com/LJTian/LoudCurator/internal/pipeline"
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发或交给外部 cron
func main() {
	printJSON := flag.Bool("json", false, "print the run summary as JSON")
	flag.Parse()

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := core.Pipeline.RunIngestion(ctx)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		logging.Warnf("another ingestion is running, exit")
		return
	}
	if err != nil {
		log.Fatalf("ingestion failed: %v", err)
	}

	for _, s := range res.Sources {
		if s.Error != "" {
			logging.Warnf("source %s failed: %s", s.Source, s.Error)
			continue
		}
		logging.Debugf("source %s: %d items in %s", s.Source, s.Count, s.Elapsed)
	}
	logging.Infof("ingested %d new articles (fetched %d, duplicates %d)", res.ArticlesIngested, res.Fetched, res.Duplicates)

	if *printJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("encode result: %v", err)
		}
	}
}
