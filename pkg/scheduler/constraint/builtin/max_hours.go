package builtin

import (
	"fmt"

	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// StaffHoursConstraint 教师每日工时上限
// 工时 = 在岗时段数 × (时段时长 + 间隔) − 间隔，不超过上限分钟数
type StaffHoursConstraint struct {
	*BaseConstraint
}

// NewStaffHoursConstraint 创建教师每日工时约束
func NewStaffHoursConstraint() *StaffHoursConstraint {
	return &StaffHoursConstraint{
		BaseConstraint: newHard("教师每日工时", constraint.TypeStaffHours, model.FlagStaffHours),
	}
}

// Apply 施加约束
func (c *StaffHoursConstraint) Apply(ctx *constraint.Context) int {
	vs := ctx.Vars
	_, teachers, _, days, shifts := vs.Dims()
	hours := ctx.Settings.StaffHours
	perShift := int64(hours.ShiftMinutes + hours.BreakMinutes)
	added := 0
	for t := 0; t < teachers; t++ {
		for d := 0; d < days; d++ {
			expr := cpmodel.NewLinearExpr()
			for sh := 0; sh < shifts; sh++ {
				if tsh := vs.TeacherShift(t, d, sh); tsh != constraint.NoVar {
					expr.AddTerm(tsh, perShift)
				}
			}
			if expr.Len() == 0 {
				continue
			}
			expr.AddConst(-int64(hours.BreakMinutes))
			ctx.Model.AddLessOrEqual(expr, int64(hours.MaxMinutes)).WithName(fmt.Sprintf("staff_hours_%d_%d", t, d))
			added++
		}
	}
	return added
}

// OneSlotPerTeacherConstraint 教师同一时间格至多带一个班（一种科目与学段）
type OneSlotPerTeacherConstraint struct {
	*BaseConstraint
}

// NewOneSlotPerTeacherConstraint 创建教师时段唯一约束
func NewOneSlotPerTeacherConstraint() *OneSlotPerTeacherConstraint {
	return &OneSlotPerTeacherConstraint{
		BaseConstraint: newHard("教师时段唯一", constraint.TypeOneSlotPerTeacher, model.FlagOneSlotPerTeacher),
	}
}

// Apply 施加约束
func (c *OneSlotPerTeacherConstraint) Apply(ctx *constraint.Context) int {
	vs := ctx.Vars
	_, teachers, subjects, days, shifts := vs.Dims()
	added := 0
	for t := 0; t < teachers; t++ {
		for d := 0; d < days; d++ {
			for sh := 0; sh < shifts; sh++ {
				var slots []cpmodel.BoolVar
				for s := 0; s < subjects; s++ {
					for _, level := range model.AllLevels() {
						if ts := vs.TeacherSlot(t, s, level, d, sh); ts != constraint.NoVar {
							slots = append(slots, ts)
						}
					}
				}
				added += sumIfMany(ctx.Model, slots, 1, fmt.Sprintf("teacher_once_%d_%d_%d", t, d, sh))
			}
		}
	}
	return added
}
