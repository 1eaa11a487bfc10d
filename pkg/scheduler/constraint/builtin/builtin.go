package builtin

import (
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
)

// HardConstraint 受开关控制的硬约束
type HardConstraint interface {
	constraint.Constraint
	Flag() int
}

// NewHardConstraints 按开关下标顺序创建全部硬约束
// 顺序：班级容量、黄金时段、每日上限、合并科目、学生时段、教师时段、不连堂、教师工时、中心容量
func NewHardConstraints() []HardConstraint {
	return []HardConstraint{
		NewCapacityRatioConstraint(),
		NewPrimaryTimeConstraint(),
		NewMaxSlotsPerDayConstraint(),
		NewMergedSubjectConstraint(),
		NewOneSlotPerStudentConstraint(),
		NewOneSlotPerTeacherConstraint(),
		NewNoConsecutiveConstraint(),
		NewStaffHoursConstraint(),
		NewCenterCapacityConstraint(),
	}
}

// RegisterPhaseOne 注册第一阶段约束：变量关联、合并科目核算、不连堂，目标含剩余课时
func RegisterPhaseOne(manager *constraint.Manager, settings model.Settings) {
	manager.Register(NewVariableLinkConstraint())
	for _, c := range NewHardConstraints() {
		if c.Flag() != model.FlagMergedSubject && c.Flag() != model.FlagNoConsecutive {
			continue
		}
		if settings.Enabled(c.Flag()) {
			manager.Register(c)
		}
	}

	w := settings.Weights
	registerClassObjectives(manager, w)
	manager.Register(NewRemainSlotsObjective(w.Remain))
	manager.Register(NewScheduledClassesObjective(w.Scheduled))
}

// RegisterPhaseTwo 注册第二阶段约束：变量关联与全部启用的硬约束
func RegisterPhaseTwo(manager *constraint.Manager, settings model.Settings) {
	manager.Register(NewVariableLinkConstraint())
	for _, c := range NewHardConstraints() {
		if settings.Enabled(c.Flag()) {
			manager.Register(c)
		}
	}
	registerClassObjectives(manager, settings.Weights)
}

// registerClassObjectives 两个阶段共有的目标项
func registerClassObjectives(manager *constraint.Manager, w model.Weights) {
	manager.Register(NewContinuityObjective(w.Continuity))
	manager.Register(NewPreferredTeacherObjective(w.Preference))
	manager.Register(NewTeacherUtilizationObjective(w.Utilization))
	manager.Register(NewEligibleClassObjective(w.Class))
}
