package model

import (
	"fmt"
	"time"
)

// NumHardConstraints 硬约束开关向量长度
const NumHardConstraints = 9

// 硬约束开关下标，顺序即第二阶段的施加顺序
const (
	FlagCapacityRatio    = iota // 班级容量
	FlagPrimaryTime             // 黄金时段配额
	FlagMaxSlotsPerDay          // 每日课时上限
	FlagMergedSubject           // 合并科目课时核算
	FlagOneSlotPerStudent       // 学生同一时段唯一
	FlagOneSlotPerTeacher       // 教师同一时段唯一
	FlagNoConsecutive           // 同一课程不连堂
	FlagStaffHours              // 教师每日工时
	FlagCenterCapacity          // 教学中心容量
)

// PrimaryTimeSettings 黄金时段参数
type PrimaryTimeSettings struct {
	FirstDayRatio    float64 `json:"first_day_ratio" mapstructure:"first_day_ratio" validate:"gt=0,lte=1"`
	FirstShiftRatio  float64 `json:"first_shift_ratio" mapstructure:"first_shift_ratio" validate:"gte=0,lte=1"`
	SecondShiftRatio float64 `json:"second_shift_ratio" mapstructure:"second_shift_ratio" validate:"gte=0,lte=1"`
	QuotaRatio       float64 `json:"quota_ratio" mapstructure:"quota_ratio" validate:"gte=0,lte=1"`
}

// StaffHoursSettings 教师工时公式参数（分钟）
type StaffHoursSettings struct {
	ShiftMinutes int `json:"shift_minutes" mapstructure:"shift_minutes" validate:"min=1"`
	BreakMinutes int `json:"break_minutes" mapstructure:"break_minutes" validate:"min=0"`
	MaxMinutes   int `json:"max_minutes" mapstructure:"max_minutes" validate:"min=1"`
}

// Weights 目标函数权重
type Weights struct {
	Continuity  int `json:"continuity" mapstructure:"continuity" validate:"min=0"`
	Preference  int `json:"preference" mapstructure:"preference" validate:"min=0"`
	Utilization int `json:"utilization" mapstructure:"utilization" validate:"min=0"`
	Class       int `json:"class" mapstructure:"class" validate:"min=0"`
	Remain      int `json:"remain" mapstructure:"remain" validate:"min=0"`
	Scheduled   int `json:"scheduled" mapstructure:"scheduled" validate:"min=0"`
}

// 求解器名称
const (
	EnginePseudoBoolean  = "pseudo_boolean"
	EngineBranchAndBound = "branch_and_bound"
	EngineGreedy         = "greedy"
	EngineLocalSearch    = "local_search"
)

// SolverSettings 求解预算
type SolverSettings struct {
	MaxTime        time.Duration `json:"max_time" mapstructure:"max_time"`
	Workers        int           `json:"workers" mapstructure:"workers" validate:"min=1"`
	AcceptFeasible bool          `json:"accept_feasible" mapstructure:"accept_feasible"`
	Engine         string        `json:"engine" mapstructure:"engine" validate:"omitempty,oneof=pseudo_boolean branch_and_bound greedy local_search"`
}

// Settings 一次排课运行的不可变配置
type Settings struct {
	NumDay          int                 `json:"num_day"`
	NumShift        int                 `json:"num_shift"`
	CenterCapacity  int                 `json:"center_capacity"`
	Subjects        []SubjectSpec       `json:"subjects"`
	AllowedShifts   map[Level][]int     `json:"allowed_shifts,omitempty"` // 为空表示该学段所有时段可用
	PrimaryTime     PrimaryTimeSettings `json:"primary_time"`
	StaffHours      StaffHoursSettings  `json:"staff_hours"`
	HardConstraints []bool              `json:"hard_constraints"`
	Weights         Weights             `json:"weights"`
	Solver          SolverSettings      `json:"solver"`
}

// DefaultSettings 返回默认配置
func DefaultSettings() Settings {
	return Settings{
		NumDay:         7,
		NumShift:       6,
		CenterCapacity: 30,
		Subjects: []SubjectSpec{
			{Name: "math", Ratio: 4},
			{Name: "english", Ratio: 4},
			{Name: "literature", Ratio: 4},
			{Name: "science", Ratio: 6},
			{Name: "social_science", Ratio: 6},
		},
		PrimaryTime: PrimaryTimeSettings{
			FirstDayRatio:    0.8,
			FirstShiftRatio:  0.85,
			SecondShiftRatio: 0.5,
			QuotaRatio:       0.9,
		},
		StaffHours: StaffHoursSettings{
			ShiftMinutes: 60,
			BreakMinutes: 10,
			MaxMinutes:   480,
		},
		HardConstraints: AllHardConstraints(),
		Weights: Weights{
			Continuity:  2,
			Preference:  3,
			Utilization: 1,
			Class:       10,
			Remain:      20,
			Scheduled:   10,
		},
		Solver: SolverSettings{
			MaxTime: 60 * time.Second,
			Workers: 8,
			Engine:  EnginePseudoBoolean,
		},
	}
}

// AllHardConstraints 返回全部开启的开关向量
func AllHardConstraints() []bool {
	flags := make([]bool, NumHardConstraints)
	for i := range flags {
		flags[i] = true
	}
	return flags
}

// Enabled 某硬约束是否开启
func (s Settings) Enabled(flag int) bool {
	return flag >= 0 && flag < len(s.HardConstraints) && s.HardConstraints[flag]
}

// ShiftAllowed 某学段是否允许在该时段上课
func (s Settings) ShiftAllowed(level Level, shift int) bool {
	if shift < 0 || shift >= s.NumShift {
		return false
	}
	allowed, ok := s.AllowedShifts[level]
	if !ok || len(allowed) == 0 {
		return true
	}
	for _, sh := range allowed {
		if sh == shift {
			return true
		}
	}
	return false
}

// Validate 校验配置
func (s Settings) Validate() error {
	if len(s.HardConstraints) != NumHardConstraints {
		return fmt.Errorf("硬约束开关数量必须为 %d，实际为 %d", NumHardConstraints, len(s.HardConstraints))
	}
	if s.NumDay < 1 || s.NumShift < 1 {
		return fmt.Errorf("天数和时段数必须大于 0: days=%d shifts=%d", s.NumDay, s.NumShift)
	}
	if s.CenterCapacity < 0 {
		return fmt.Errorf("中心容量不能为负: %d", s.CenterCapacity)
	}
	if len(s.Subjects) == 0 {
		return fmt.Errorf("至少需要一个科目")
	}
	if _, err := NewSubjectCatalog(s.Subjects); err != nil {
		return err
	}
	for level, shifts := range s.AllowedShifts {
		if !level.Valid() {
			return fmt.Errorf("时段白名单中的学段无效: %d", int(level))
		}
		for _, sh := range shifts {
			if sh < 0 || sh >= s.NumShift {
				return fmt.Errorf("学段 %s 的时段 %d 超出范围", level, sh)
			}
		}
	}
	if s.StaffHours.ShiftMinutes < 1 || s.StaffHours.MaxMinutes < 1 || s.StaffHours.BreakMinutes < 0 {
		return fmt.Errorf("工时参数无效")
	}
	if s.Solver.Workers < 1 {
		return fmt.Errorf("求解线程数必须大于 0")
	}
	switch s.Solver.Engine {
	case "", EnginePseudoBoolean, EngineBranchAndBound, EngineGreedy, EngineLocalSearch:
	default:
		return fmt.Errorf("未知的求解器: %s", s.Solver.Engine)
	}
	return nil
}
