package scoring

import (
	"fmt"
	"strings"

	"github.com/LJTian/LoudCurator/internal/collector"
)

// Thresholds 分发规则的阈值，全部可配置
type Thresholds struct {
	AllRelevance      int `yaml:"all_relevance" json:"allRelevance"`
	AllVibe           int `yaml:"all_vibe" json:"allVibe"`
	SecondaryVibe     int `yaml:"secondary_design_vibe" json:"secondaryDesignVibe"`
	SecondaryVirality int `yaml:"secondary_design_virality" json:"secondaryDesignVirality"`
	PrimaryRelevance  int `yaml:"primary_design_relevance" json:"primaryDesignRelevance"`
	PrimaryVirality   int `yaml:"primary_design_virality" json:"primaryDesignVirality"`
	DesignVirality    int `yaml:"design_virality" json:"designVirality"`
	SecondaryOnlyVibe int `yaml:"secondary_vibe" json:"secondaryVibe"`
	HighPriority      int `yaml:"high_priority" json:"highPriority"`
	MediumPriority    int `yaml:"medium_priority" json:"mediumPriority"`
	AutoPostRelevance int `yaml:"auto_post_relevance" json:"autoPostRelevance"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AllRelevance:      85,
		AllVibe:           85,
		SecondaryVibe:     80,
		SecondaryVirality: 75,
		PrimaryRelevance:  70,
		PrimaryVirality:   80,
		DesignVirality:    90,
		SecondaryOnlyVibe: 60,
		HighPriority:      85,
		MediumPriority:    70,
		AutoPostRelevance: 85,
	}
}

// Channels 渠道标签
type Channels struct {
	Primary   string   `yaml:"primary" json:"primary"`
	Secondary string   `yaml:"secondary" json:"secondary"`
	Design    string   `yaml:"design" json:"design"`
	All       []string `yaml:"all" json:"all"`
}

func DefaultChannels() Channels {
	return Channels{
		Primary:   "slack",
		Secondary: "whatsapp",
		Design:    "figma",
		All:       []string{"slack", "whatsapp", "figma", "nft"},
	}
}

// Route 纯函数：按顺序匹配，命中第一条规则即确定渠道，不做并集
func Route(s collector.Scores, t Thresholds, ch Channels) collector.Routing {
	r, v, vir := s.Relevance, s.Vibe, s.Virality

	var channels []string
	switch {
	case r >= t.AllRelevance && v >= t.AllVibe:
		channels = append([]string(nil), ch.All...)
	case v >= t.SecondaryVibe && vir >= t.SecondaryVirality:
		channels = []string{ch.Secondary, ch.Design}
	case r >= t.PrimaryRelevance && vir >= t.PrimaryVirality:
		channels = []string{ch.Primary, ch.Design}
	case vir >= t.DesignVirality:
		channels = []string{ch.Design}
	case v >= t.SecondaryOnlyVibe:
		channels = []string{ch.Secondary}
	default:
		channels = []string{}
	}

	priority := collector.PriorityLow
	switch {
	case r >= t.HighPriority:
		priority = collector.PriorityHigh
	case r >= t.MediumPriority:
		priority = collector.PriorityMedium
	}

	return collector.Routing{
		TargetChannels: channels,
		Priority:       priority,
		AutoPost:       r >= t.AutoPostRelevance || (v >= t.SecondaryVibe && vir >= t.SecondaryVirality),
	}
}

// Describe 分数的可读描述，例如 "🔥 Relevance - EXCELLENT"
func Describe(score int, kind string) string {
	label := kind
	if label != "" {
		label = strings.ToUpper(label[:1]) + strings.ToLower(label[1:])
	}
	switch {
	case score >= 90:
		return fmt.Sprintf("🔥 %s - EXCELLENT", label)
	case score >= 80:
		return fmt.Sprintf("⚡ %s - GREAT", label)
	case score >= 70:
		return fmt.Sprintf("✅ %s - GOOD", label)
	case score >= 60:
		return fmt.Sprintf("🟡 %s - DECENT", label)
	case score >= 40:
		return fmt.Sprintf("🟠 %s - WEAK", label)
	default:
		return fmt.Sprintf("❌ %s - POOR", label)
	}
}

// DescribeAll 三个维度的描述，顺序为 relevance / vibe / viral
func DescribeAll(s collector.Scores) []string {
	return []string{
		Describe(s.Relevance, "relevance"),
		Describe(s.Vibe, "vibe"),
		Describe(s.Virality, "viral"),
	}
}
