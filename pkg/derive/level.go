// Package derive 将学生、教师名册转换为排课模型使用的稠密查找表
package derive

import (
	"github.com/paiban/paike/pkg/model"
)

// gradeBand 年级区间 [From, To] 对应的学段
type gradeBand struct {
	From, To int
	Level    model.Level
}

var gradeBands = []gradeBand{
	{From: 1, To: 5, Level: model.LevelElementary},
	{From: 6, To: 9, Level: model.LevelMiddle},
	{From: 10, To: 11, Level: model.LevelHigh},
	{From: 12, To: 12, Level: model.LevelSeniorHigh},
}

// GradeToLevel 年级映射到学段；不在任何区间内时返回 LevelNone
func GradeToLevel(grade int) model.Level {
	for _, b := range gradeBands {
		if grade >= b.From && grade <= b.To {
			return b.Level
		}
	}
	return model.LevelNone
}

// StudentAvailability 学生可用时间矩阵，按学段时段白名单过滤
func StudentAvailability(settings model.Settings, level model.Level, slots []model.Slot) model.Grid {
	g := model.NewGrid(settings.NumDay, settings.NumShift)
	if !level.Valid() {
		return g
	}
	for _, s := range slots {
		if settings.ShiftAllowed(level, s.Shift) {
			g.Set(s.Day, s.Shift, true)
		}
	}
	return g
}

// TeacherAvailability 教师可用时间矩阵
func TeacherAvailability(settings model.Settings, slots []model.Slot) model.Grid {
	g := model.NewGrid(settings.NumDay, settings.NumShift)
	for _, s := range slots {
		g.Set(s.Day, s.Shift, true)
	}
	return g
}

// PrimaryTime 黄金时段矩阵
// 前 FirstDayRatio 的天取前 FirstShiftRatio 的时段，其余天取前 SecondShiftRatio 的时段
func PrimaryTime(settings model.Settings) model.Grid {
	g := model.NewGrid(settings.NumDay, settings.NumShift)
	pt := settings.PrimaryTime
	firstDays := int(float64(settings.NumDay) * pt.FirstDayRatio)
	firstShifts := int(float64(settings.NumShift) * pt.FirstShiftRatio)
	secondShifts := int(float64(settings.NumShift) * pt.SecondShiftRatio)

	for d := 0; d < settings.NumDay; d++ {
		limit := secondShifts
		if d < firstDays {
			limit = firstShifts
		}
		for sh := 0; sh < limit && sh < settings.NumShift; sh++ {
			g.Set(d, sh, true)
		}
	}
	return g
}

// PrimaryQuota 黄金时段课时上限 floor(ratio × total)
func PrimaryQuota(total int, ratio float64) int {
	// 0.9×10 这类乘积可能略小于整数
	return int(float64(total)*ratio + 1e-9)
}

// DailyLimit 每日课时上限 1 + floor(total / availableDays)；没有可用天时为 0
func DailyLimit(total, availableDays int) int {
	if availableDays <= 0 {
		return 0
	}
	return 1 + total/availableDays
}
