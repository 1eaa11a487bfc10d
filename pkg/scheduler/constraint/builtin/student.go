package builtin

import (
	"fmt"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// OneSlotPerStudentConstraint 学生同一时间格至多一节课
type OneSlotPerStudentConstraint struct {
	*BaseConstraint
}

// NewOneSlotPerStudentConstraint 创建学生时段唯一约束
func NewOneSlotPerStudentConstraint() *OneSlotPerStudentConstraint {
	return &OneSlotPerStudentConstraint{
		BaseConstraint: newHard("学生时段唯一", constraint.TypeOneSlotPerStudent, model.FlagOneSlotPerStudent),
	}
}

// Apply 施加约束
func (c *OneSlotPerStudentConstraint) Apply(ctx *constraint.Context) int {
	students, _, _, days, shifts := ctx.Vars.Dims()
	added := 0
	for st := 0; st < students; st++ {
		for d := 0; d < days; d++ {
			for sh := 0; sh < shifts; sh++ {
				added += sumIfMany(ctx.Model, ctx.Vars.StudentSlotClasses(st, d, sh), 1,
					fmt.Sprintf("student_once_%d_%d_%d", st, d, sh))
			}
		}
	}
	return added
}

// PrimaryTimeConstraint 黄金时段配额：学生在黄金时段的课时不超过总课时的固定比例
type PrimaryTimeConstraint struct {
	*BaseConstraint
}

// NewPrimaryTimeConstraint 创建黄金时段配额约束
func NewPrimaryTimeConstraint() *PrimaryTimeConstraint {
	return &PrimaryTimeConstraint{
		BaseConstraint: newHard("黄金时段配额", constraint.TypePrimaryTime, model.FlagPrimaryTime),
	}
}

// Apply 施加约束
func (c *PrimaryTimeConstraint) Apply(ctx *constraint.Context) int {
	vs, tb := ctx.Vars, ctx.Data
	keys := vs.ClassKeys()
	added := 0
	for st := 0; st < tb.NumStudent; st++ {
		var primary []cpmodel.BoolVar
		for _, idx := range vs.StudentClasses(st) {
			k := keys[idx]
			if tb.Primary.Get(k.Day, k.Shift) {
				primary = append(primary, vs.ClassVar(idx))
			}
		}
		limit := int64(derive.PrimaryQuota(tb.TotalQuota[st], ctx.Settings.PrimaryTime.QuotaRatio))
		added += sumIfMany(ctx.Model, primary, limit, fmt.Sprintf("primary_%d", st))
	}
	return added
}

// MaxSlotsPerDayConstraint 每日课时上限：1 + floor(总课时 / 可用天数)
type MaxSlotsPerDayConstraint struct {
	*BaseConstraint
}

// NewMaxSlotsPerDayConstraint 创建每日课时上限约束
func NewMaxSlotsPerDayConstraint() *MaxSlotsPerDayConstraint {
	return &MaxSlotsPerDayConstraint{
		BaseConstraint: newHard("每日课时上限", constraint.TypeMaxSlotsPerDay, model.FlagMaxSlotsPerDay),
	}
}

// Apply 施加约束
func (c *MaxSlotsPerDayConstraint) Apply(ctx *constraint.Context) int {
	vs, tb := ctx.Vars, ctx.Data
	keys := vs.ClassKeys()
	added := 0
	for st := 0; st < tb.NumStudent; st++ {
		byDay := make([][]cpmodel.BoolVar, tb.NumDay)
		for _, idx := range vs.StudentClasses(st) {
			d := keys[idx].Day
			byDay[d] = append(byDay[d], vs.ClassVar(idx))
		}
		limit := int64(derive.DailyLimit(tb.TotalQuota[st], tb.AvailableDays[st]))
		for d, vars := range byDay {
			added += sumIfMany(ctx.Model, vars, limit, fmt.Sprintf("daily_%d_%d", st, d))
		}
	}
	return added
}

// NoConsecutiveConstraint 同一学生、教师、科目、学段不在同一天相邻时段连续出现
type NoConsecutiveConstraint struct {
	*BaseConstraint
}

// NewNoConsecutiveConstraint 创建不连堂约束
func NewNoConsecutiveConstraint() *NoConsecutiveConstraint {
	return &NoConsecutiveConstraint{
		BaseConstraint: newHard("同课不连堂", constraint.TypeNoConsecutive, model.FlagNoConsecutive),
	}
}

// Apply 施加约束
func (c *NoConsecutiveConstraint) Apply(ctx *constraint.Context) int {
	vs := ctx.Vars
	added := 0
	for i, k := range vs.ClassKeys() {
		next := k
		next.Shift++
		v, ok := vs.Class(next)
		if !ok {
			continue
		}
		ctx.Model.AddAtMostOne(vs.ClassVar(i), v).WithName("consecutive")
		added++
	}
	return added
}
