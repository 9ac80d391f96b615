package scheduler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

type Job string

const (
	JobIngestion Job = "ingestion"
	JobPosting   Job = "posting"
)

func ParseJob(s string) (Job, error) {
	switch Job(strings.ToLower(strings.TrimSpace(s))) {
	case JobIngestion:
		return JobIngestion, nil
	case JobPosting:
		return JobPosting, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownJob, s)
}

const (
	FrequencyHourly = "hourly"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Schedule 面向运营的调度预设；Spec 非空时直接作为 cron 表达式使用
type Schedule struct {
	Enabled   bool     `json:"enabled"`
	Frequency string   `json:"frequency,omitempty"`
	Time      string   `json:"time,omitempty"`
	Days      []string `json:"days,omitempty"`
	Spec      string   `json:"spec,omitempty"`
}

var weekdays = map[string]string{
	"mon": "mon", "monday": "mon",
	"tue": "tue", "tuesday": "tue",
	"wed": "wed", "wednesday": "wed",
	"thu": "thu", "thursday": "thu",
	"fri": "fri", "friday": "fri",
	"sat": "sat", "saturday": "sat",
	"sun": "sun", "sunday": "sun",
}

// CronSpec 转成 5 段 cron 表达式：
// hourly 用 Time 的分钟；daily 为每天 HH:MM；weekly 为 Days 中每天的 HH:MM（默认周一）
func (s Schedule) CronSpec() (string, error) {
	if spec := strings.TrimSpace(s.Spec); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return "", fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
		}
		return spec, nil
	}

	hour, minute, err := parseClock(s.Time)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(s.Frequency) {
	case FrequencyHourly:
		return fmt.Sprintf("%d * * * *", minute), nil
	case FrequencyDaily, "":
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case FrequencyWeekly:
		days := make([]string, 0, len(s.Days))
		seen := map[string]bool{}
		for _, d := range s.Days {
			short, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
			if !ok {
				return "", fmt.Errorf("scheduler: unknown weekday %q", d)
			}
			if !seen[short] {
				seen[short] = true
				days = append(days, short)
			}
		}
		if len(days) == 0 {
			days = []string{"mon"}
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(days, ",")), nil
	}
	return "", fmt.Errorf("scheduler: unknown frequency %q", s.Frequency)
}

// parseClock 解析 HH:MM，空串为 00:00
func parseClock(v string) (int, int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, 0, nil
	}
	hs, ms, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, fmt.Errorf("scheduler: invalid time %q, want HH:MM", v)
	}
	h, err1 := strconv.Atoi(hs)
	m, err2 := strconv.Atoi(ms)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("scheduler: invalid time %q, want HH:MM", v)
	}
	return h, m, nil
}
