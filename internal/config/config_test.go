package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	if err := os.Setenv(key, "8080"); err != nil {
		t.Fatalf("Setenv error: %v", err)
	}
	defer os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestLoadReadsAuthAndPorts(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("APP_BASIC_USER", "user")
	t.Setenv("APP_BASIC_PASS", "pass")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.BasicAuthUser != "user" || cfg.BasicAuthPass != "pass" {
		t.Fatalf("BasicAuthUser/Pass not loaded correctly: %+v", cfg)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_DSN", "host=db user=curator")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DatabaseURL != "host=db user=curator" {
		t.Fatalf("DatabaseURL should fall back to POSTGRES_DSN, got %q", cfg.DatabaseURL)
	}
	if cfg.DedupThreshold != 0.8 || cfg.ScoreConcurrency != 5 || cfg.RunTimeout != 5*time.Minute || cfg.ScoreTimeout != 30*time.Second {
		t.Fatalf("unexpected tuning defaults: %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-4o" || len(cfg.Feeds) == 0 || cfg.Thresholds.AllRelevance != 85 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.yaml")
	content := `
feeds:
  - name: Test Feed
    url: https://example.com/feed.xml
institutional_domains: [reuters.com]
thresholds:
  all_relevance: 90
channels:
  design: canva
dedup_threshold: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DEDUP_THRESHOLD", "0.9")
	t.Setenv("RUN_TIMEOUT", "90")
	t.Setenv("SCORE_TIMEOUT", "10s")
	t.Setenv("SCORE_CONCURRENCY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Name != "Test Feed" {
		t.Fatalf("feeds = %+v", cfg.Feeds)
	}
	if len(cfg.InstitutionalDomains) != 1 || cfg.InstitutionalDomains[0] != "reuters.com" {
		t.Fatalf("domains = %v", cfg.InstitutionalDomains)
	}
	// 未写在文件里的阈值保持默认
	if cfg.Thresholds.AllRelevance != 90 || cfg.Thresholds.AllVibe != 85 {
		t.Fatalf("thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Channels.Design != "canva" || cfg.Channels.Primary != "slack" {
		t.Fatalf("channels = %+v", cfg.Channels)
	}
	if cfg.DedupThreshold != 0.9 {
		t.Fatalf("env should override file threshold, got %v", cfg.DedupThreshold)
	}
	if cfg.RunTimeout != 90*time.Second || cfg.ScoreTimeout != 10*time.Second {
		t.Fatalf("timeouts = %v / %v", cfg.RunTimeout, cfg.ScoreTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"DEDUP_THRESHOLD", "1.5"},
		{"DEDUP_THRESHOLD", "abc"},
		{"SCORE_CONCURRENCY", "0"},
		{"RUN_TIMEOUT", "soon"},
	}
	for _, c := range cases {
		t.Run(c.key+"="+c.value, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			t.Setenv(c.key, c.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%q should fail", c.key, c.value)
			}
		})
	}

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("Load with a missing CONFIG_FILE should fail")
	}
}
