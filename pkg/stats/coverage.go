// Package stats 提供排课统计分析功能
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
)

// CoverageMetrics 课时覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	TotalQuota      int     `json:"total_quota"`      // 登记总课时
	ScheduledSlots  int     `json:"scheduled_slots"`  // 已排课时（不含无效行）
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	// 按科目统计（实际科目）
	SubjectCoverage map[string]SubjectCoverage `json:"subject_coverage"`

	// 课时类型与偏好
	SeasonalSlots  int     `json:"seasonal_slots"`
	RegularSlots   int     `json:"regular_slots"`
	InvalidSlots   int     `json:"invalid_slots"`
	PrimarySlots   int     `json:"primary_slots"`
	PreferenceRate float64 `json:"preference_rate"` // 有首选教师的学生中落在首选教师的比例 (%)

	// 时间格占用 [day][shift]
	SlotOccupancy [][]int `json:"slot_occupancy"`

	// 问题识别
	Unscheduled []StudentGap `json:"unscheduled"` // 未排满的学生
}

// SubjectCoverage 单科目覆盖情况
type SubjectCoverage struct {
	Subject      string  `json:"subject"`
	Quota        int     `json:"quota"`
	Scheduled    int     `json:"scheduled"`
	CoverageRate float64 `json:"coverage_rate"`
}

// StudentGap 学生未排满的课时
type StudentGap struct {
	Student   int    `json:"student"`
	StudentID string `json:"student_id"`
	Quota     int    `json:"quota"`
	Scheduled int    `json:"scheduled"`
	Missing   int    `json:"missing"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	maxGaps int // 报告中最多列出的未排满学生数
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{maxGaps: 20}
}

// Analyze 分析后处理之后的结果行
func (c *CoverageAnalyzer) Analyze(tb *derive.Tables, rows []model.ResultRow) *CoverageMetrics {
	metrics := &CoverageMetrics{
		SubjectCoverage: make(map[string]SubjectCoverage),
	}
	if tb == nil {
		return metrics
	}
	metrics.SlotOccupancy = make([][]int, tb.NumDay)
	for d := range metrics.SlotOccupancy {
		metrics.SlotOccupancy[d] = make([]int, tb.NumShift)
	}

	numBase := tb.Catalog.NumBase()
	scheduled := make([][]int, tb.NumStudent)
	for st := range scheduled {
		scheduled[st] = make([]int, numBase)
		metrics.TotalQuota += tb.TotalQuota[st]
	}

	preferRows, preferEligible := 0, 0
	for _, r := range rows {
		if r.Day >= 0 && r.Day < tb.NumDay && r.Shift >= 0 && r.Shift < tb.NumShift {
			metrics.SlotOccupancy[r.Day][r.Shift]++
		}
		if r.IsPrimarySlot {
			metrics.PrimarySlots++
		}
		switch r.SlotType {
		case model.SlotTypeSeasonal:
			metrics.SeasonalSlots++
		case model.SlotTypeRegular:
			metrics.RegularSlots++
		case model.SlotTypeInvalid:
			metrics.InvalidSlots++
		}
		if r.Student >= 0 && r.Student < tb.NumStudent && hasPreference(tb, r.Student) {
			preferEligible++
			if r.IsPrefer {
				preferRows++
			}
		}
		if r.IsInvalid() {
			continue
		}
		b, ok := tb.Catalog.Lookup(r.ActualSubject)
		if !ok || b >= numBase || r.Student < 0 || r.Student >= tb.NumStudent {
			continue
		}
		scheduled[r.Student][b]++
		metrics.ScheduledSlots++
	}

	if metrics.TotalQuota > 0 {
		metrics.OverallCoverage = float64(metrics.ScheduledSlots) / float64(metrics.TotalQuota) * 100
	}
	if preferEligible > 0 {
		metrics.PreferenceRate = float64(preferRows) / float64(preferEligible) * 100
	}

	for b := 0; b < numBase; b++ {
		sc := SubjectCoverage{Subject: tb.Catalog.Get(b).Name}
		for st := 0; st < tb.NumStudent; st++ {
			sc.Quota += tb.Quota[st][b]
			sc.Scheduled += scheduled[st][b]
		}
		if sc.Quota > 0 {
			sc.CoverageRate = float64(sc.Scheduled) / float64(sc.Quota) * 100
		}
		metrics.SubjectCoverage[sc.Subject] = sc
	}

	for st := 0; st < tb.NumStudent; st++ {
		total := 0
		for _, n := range scheduled[st] {
			total += n
		}
		if total < tb.TotalQuota[st] {
			metrics.Unscheduled = append(metrics.Unscheduled, StudentGap{
				Student:   st,
				StudentID: tb.StudentIDs[st],
				Quota:     tb.TotalQuota[st],
				Scheduled: total,
				Missing:   tb.TotalQuota[st] - total,
			})
		}
	}
	sort.SliceStable(metrics.Unscheduled, func(i, j int) bool {
		return metrics.Unscheduled[i].Missing > metrics.Unscheduled[j].Missing
	})

	return metrics
}

func hasPreference(tb *derive.Tables, st int) bool {
	for _, p := range tb.Preference[st] {
		if p {
			return true
		}
	}
	return false
}

// GenerateCoverageReport 生成覆盖率报告
func (c *CoverageAnalyzer) GenerateCoverageReport(metrics *CoverageMetrics) string {
	var b strings.Builder
	b.WriteString("=== 课时覆盖率报告 ===\n\n")

	b.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&b, "  登记课时: %d\n", metrics.TotalQuota)
	fmt.Fprintf(&b, "  已排课时: %d\n", metrics.ScheduledSlots)
	fmt.Fprintf(&b, "  覆盖率: %.1f%%\n", metrics.OverallCoverage)
	fmt.Fprintf(&b, "  季节性/常规/无效: %d/%d/%d\n", metrics.SeasonalSlots, metrics.RegularSlots, metrics.InvalidSlots)
	fmt.Fprintf(&b, "  黄金时段课时: %d\n", metrics.PrimarySlots)
	fmt.Fprintf(&b, "  首选教师命中率: %.1f%%\n\n", metrics.PreferenceRate)

	if len(metrics.SubjectCoverage) > 0 {
		b.WriteString("【按科目】\n")
		names := make([]string, 0, len(metrics.SubjectCoverage))
		for name := range metrics.SubjectCoverage {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sc := metrics.SubjectCoverage[name]
			fmt.Fprintf(&b, "  - %s: %d/%d (%.1f%%)\n", name, sc.Scheduled, sc.Quota, sc.CoverageRate)
		}
		b.WriteString("\n")
	}

	if len(metrics.Unscheduled) > 0 {
		b.WriteString("【未排满学生】\n")
		for i, gap := range metrics.Unscheduled {
			if i >= c.maxGaps {
				fmt.Fprintf(&b, "  ... 另有 %d 名学生\n", len(metrics.Unscheduled)-c.maxGaps)
				break
			}
			fmt.Fprintf(&b, "  - %s: 已排 %d/%d，缺 %d 节\n", gap.StudentID, gap.Scheduled, gap.Quota, gap.Missing)
		}
	}

	return b.String()
}
