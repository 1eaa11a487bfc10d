// Package constraint 定义约束接口和管理器
package constraint

import (
	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeVariableLink      Type = "variable_link"
	TypeCapacityRatio     Type = "capacity_ratio"
	TypePrimaryTime       Type = "primary_time"
	TypeMaxSlotsPerDay    Type = "max_slots_per_day"
	TypeMergedSubject     Type = "merged_subject"
	TypeOneSlotPerStudent Type = "one_slot_per_student"
	TypeOneSlotPerTeacher Type = "one_slot_per_teacher"
	TypeNoConsecutive     Type = "no_consecutive_repeat"
	TypeStaffHours        Type = "staff_hours"
	TypeCenterCapacity    Type = "center_capacity"

	// 软约束类型（目标函数项）
	TypeContinuity         Type = "continuity"
	TypePreferredTeacher   Type = "preferred_teacher"
	TypeTeacherUtilization Type = "teacher_utilization"
	TypeEligibleClass      Type = "eligible_class"
	TypeRemainSlots        Type = "remain_slots"
	TypeScheduledClasses   Type = "scheduled_classes"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（进入目标函数）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重；软约束即目标函数中的系数
	Weight() int

	// Apply 向模型添加硬约束，返回添加的约束数
	Apply(ctx *Context) int

	// Objective 返回软约束的目标项（未加权）；硬约束返回 nil
	Objective(ctx *Context) *cpmodel.LinearExpr
}

// Context 模型构建上下文
type Context struct {
	Settings model.Settings
	Data     *derive.Tables
	Vars     *VarSpace
	Model    *cpmodel.Model
	Phase    int
}

// NewContext 创建模型构建上下文
func NewContext(settings model.Settings, data *derive.Tables, vars *VarSpace, m *cpmodel.Model, phase int) *Context {
	return &Context{
		Settings: settings,
		Data:     data,
		Vars:     vars,
		Model:    m,
		Phase:    phase,
	}
}

// Result 模型构建结果
type Result struct {
	Applied        map[Type]int `json:"applied"` // 每个硬约束添加的约束数
	Constraints    int          `json:"constraints"`
	ObjectiveTerms int          `json:"objective_terms"`
	Registered     Summary      `json:"registered"`
}

// Summary 已注册约束的分类计数
type Summary struct {
	Hard int `json:"hard"`
	Soft int `json:"soft"`
}
