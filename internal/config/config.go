package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/LJTian/LoudCurator/internal/collector"
	"github.com/LJTian/LoudCurator/internal/scoring"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort string

	BasicAuthUser string
	BasicAuthPass string

	DatabaseURL string
	RedisAddr   string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	NewsDataKey   string
	GroundNewsKey string

	SlackWebhookURL      string
	SlackFigmaWebhookURL string

	BrowserScraperURL string

	LogLevel string
	LogFile  string

	CronSpec     string
	PostCronSpec string

	DedupThreshold   float64
	ScoreConcurrency int
	RunTimeout       time.Duration
	ScoreTimeout     time.Duration

	Feeds                []collector.Feed
	InstitutionalDomains []string
	SkyWestURL           string
	Thresholds           scoring.Thresholds
	Channels             scoring.Channels
}

// fileConfig CONFIG_FILE 指向的 YAML，只承载列表类与阈值类配置
type fileConfig struct {
	Feeds                []collector.Feed   `yaml:"feeds"`
	InstitutionalDomains []string           `yaml:"institutional_domains"`
	SkyWestURL           string             `yaml:"skywest_url"`
	Thresholds           scoring.Thresholds `yaml:"thresholds"`
	Channels             scoring.Channels   `yaml:"channels"`
	DedupThreshold       float64            `yaml:"dedup_threshold"`
}

// Load 依次读取 .env、CONFIG_FILE 与环境变量，后者优先
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warn: load .env: %v", err)
	}

	cfg := &Config{
		AppPort:              getEnv("APP_PORT", "9000"),
		BasicAuthUser:        os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:        os.Getenv("APP_BASIC_PASS"),
		DatabaseURL:          getEnv("DATABASE_URL", getEnv("POSTGRES_DSN", "sqlite://curator.db")),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		OpenAIKey:            os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
		NewsDataKey:          os.Getenv("NEWSDATA_API_KEY"),
		GroundNewsKey:        os.Getenv("GROUNDNEWS_API_KEY"),
		SlackWebhookURL:      os.Getenv("SLACK_WEBHOOK_URL"),
		SlackFigmaWebhookURL: os.Getenv("SLACK_WEBHOOK_FIGMA_URL"),
		BrowserScraperURL:    os.Getenv("BROWSER_SCRAPER_URL"),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LogFile:              os.Getenv("LOG_FILE"),
		CronSpec:             getEnv("CRON_SPEC", "0 */6 * * *"),
		PostCronSpec:         os.Getenv("POST_CRON_SPEC"),

		DedupThreshold:   0.8,
		ScoreConcurrency: 5,
		RunTimeout:       5 * time.Minute,
		ScoreTimeout:     30 * time.Second,

		Feeds:                collector.DefaultFeeds,
		InstitutionalDomains: collector.DefaultInstitutionalDomains,
		Thresholds:           scoring.DefaultThresholds(),
		Channels:             scoring.DefaultChannels(),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.DedupThreshold, err = getFloat("DEDUP_THRESHOLD", cfg.DedupThreshold); err != nil {
		return nil, err
	}
	if cfg.ScoreConcurrency, err = getInt("SCORE_CONCURRENCY", cfg.ScoreConcurrency); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getDuration("RUN_TIMEOUT", cfg.RunTimeout); err != nil {
		return nil, err
	}
	if cfg.ScoreTimeout, err = getDuration("SCORE_TIMEOUT", cfg.ScoreTimeout); err != nil {
		return nil, err
	}
	if cfg.DedupThreshold <= 0 || cfg.DedupThreshold > 1 {
		return nil, fmt.Errorf("config: DEDUP_THRESHOLD must be in (0,1], got %v", cfg.DedupThreshold)
	}

	log.Printf("config loaded: port=%s cron=%s feeds=%d openai=%t newsdata=%t groundnews=%t slack=%t redis=%t",
		cfg.AppPort, cfg.CronSpec, len(cfg.Feeds), cfg.OpenAIKey != "", cfg.NewsDataKey != "",
		cfg.GroundNewsKey != "", cfg.SlackWebhookURL != "", cfg.RedisAddr != "")
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	// 阈值与渠道在默认值上覆盖，文件里只需写要改的字段
	fc := fileConfig{Thresholds: c.Thresholds, Channels: c.Channels}
	if err := yaml.Unmarshal(bs, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if len(fc.Feeds) > 0 {
		c.Feeds = fc.Feeds
	}
	if len(fc.InstitutionalDomains) > 0 {
		c.InstitutionalDomains = fc.InstitutionalDomains
	}
	if fc.SkyWestURL != "" {
		c.SkyWestURL = fc.SkyWestURL
	}
	c.Thresholds = fc.Thresholds
	c.Channels = fc.Channels
	if fc.DedupThreshold > 0 {
		c.DedupThreshold = fc.DedupThreshold
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number, got %q", key, v)
	}
	return f, nil
}

// getDuration 接受 Go duration（"90s"）或纯秒数（"90"）
func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
