// Package model 定义排课引擎的核心数据模型
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// NumLevel 学段数量
const NumLevel = 4

// Level 学段（由年级映射而来）
type Level int

const (
	LevelNone       Level = iota // 无效学段（年级不在任何区间内）
	LevelElementary              // 小学
	LevelMiddle                  // 初中
	LevelHigh                    // 高中
	LevelSeniorHigh              // 高三（毕业班）
)

var levelNames = map[Level]string{
	LevelNone:       "none",
	LevelElementary: "elementary",
	LevelMiddle:     "middle",
	LevelHigh:       "high",
	LevelSeniorHigh: "senior_high",
}

// String 返回学段名称
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Valid 检查学段是否有效
func (l Level) Valid() bool {
	return l >= LevelElementary && l <= LevelSeniorHigh
}

// Index 返回学段在稠密数组中的下标（0 起）
func (l Level) Index() int {
	return int(l) - 1
}

// LevelFromIndex 由稠密下标还原学段
func LevelFromIndex(i int) Level {
	return Level(i + 1)
}

// AllLevels 返回所有有效学段
func AllLevels() []Level {
	return []Level{LevelElementary, LevelMiddle, LevelHigh, LevelSeniorHigh}
}

// ParseLevel 解析学段，支持数字或名称
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		l := Level(n)
		if !l.Valid() {
			return LevelNone, fmt.Errorf("学段超出范围: %d", n)
		}
		return l, nil
	}
	for l, name := range levelNames {
		if name == s && l.Valid() {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("未知学段: %q", s)
}

// MarshalCSV 以名称输出学段
func (l Level) MarshalCSV() (string, error) {
	return l.String(), nil
}

// UnmarshalCSV 解析学段单元格
func (l *Level) UnmarshalCSV(s string) error {
	if strings.TrimSpace(s) == "" {
		*l = LevelNone
		return nil
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Slot 时间格（天 × 时段）
type Slot struct {
	Day   int `json:"day"`
	Shift int `json:"shift"`
}

// String 返回 "天-时段" 形式
func (s Slot) String() string {
	return fmt.Sprintf("%d-%d", s.Day, s.Shift)
}

// ParseSlot 解析 "天-时段" 形式的时间格
func ParseSlot(s string) (Slot, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("时间格格式无效: %q", s)
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Slot{}, fmt.Errorf("时间格天数无效: %q", s)
	}
	shift, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Slot{}, fmt.Errorf("时间格时段无效: %q", s)
	}
	if day < 0 || shift < 0 {
		return Slot{}, fmt.Errorf("时间格不能为负: %q", s)
	}
	return Slot{Day: day, Shift: shift}, nil
}

// Grid 天 × 时段的布尔矩阵
type Grid struct {
	days   int
	shifts int
	cells  []bool
}

// NewGrid 创建空矩阵
func NewGrid(days, shifts int) Grid {
	return Grid{days: days, shifts: shifts, cells: make([]bool, days*shifts)}
}

// Days 返回天数
func (g Grid) Days() int { return g.days }

// Shifts 返回时段数
func (g Grid) Shifts() int { return g.shifts }

// Get 读取某格
func (g Grid) Get(day, shift int) bool {
	if day < 0 || day >= g.days || shift < 0 || shift >= g.shifts {
		return false
	}
	return g.cells[day*g.shifts+shift]
}

// Set 写入某格（越界忽略）
func (g Grid) Set(day, shift int, v bool) {
	if day < 0 || day >= g.days || shift < 0 || shift >= g.shifts {
		return
	}
	g.cells[day*g.shifts+shift] = v
}

// Count 返回为真的格数
func (g Grid) Count() int {
	n := 0
	for _, c := range g.cells {
		if c {
			n++
		}
	}
	return n
}

// DaysWithAny 返回至少有一个可用时段的天数
func (g Grid) DaysWithAny() int {
	n := 0
	for d := 0; d < g.days; d++ {
		for s := 0; s < g.shifts; s++ {
			if g.cells[d*g.shifts+s] {
				n++
				break
			}
		}
	}
	return n
}
