package builtin

import (
	"fmt"

	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
)

// CapacityRatioConstraint 班级容量：同一教师、科目、学段、时间格的学生数不超过科目容量
type CapacityRatioConstraint struct {
	*BaseConstraint
}

// NewCapacityRatioConstraint 创建班级容量约束
func NewCapacityRatioConstraint() *CapacityRatioConstraint {
	return &CapacityRatioConstraint{
		BaseConstraint: newHard("班级容量", constraint.TypeCapacityRatio, model.FlagCapacityRatio),
	}
}

// Apply 施加约束
func (c *CapacityRatioConstraint) Apply(ctx *constraint.Context) int {
	vs := ctx.Vars
	_, teachers, subjects, days, shifts := vs.Dims()
	added := 0
	for t := 0; t < teachers; t++ {
		for s := 0; s < subjects; s++ {
			ratio := int64(ctx.Data.Catalog.Get(s).Ratio)
			for _, level := range model.AllLevels() {
				for d := 0; d < days; d++ {
					for sh := 0; sh < shifts; sh++ {
						added += sumIfMany(ctx.Model, vs.TeacherSlotClasses(t, s, level, d, sh), ratio,
							fmt.Sprintf("capacity_%d_%d_%d_%d_%d", t, s, int(level), d, sh))
					}
				}
			}
		}
	}
	return added
}

// CenterCapacityConstraint 教学中心容量：同一时间格在校学生总数不超过中心容量
type CenterCapacityConstraint struct {
	*BaseConstraint
}

// NewCenterCapacityConstraint 创建中心容量约束
func NewCenterCapacityConstraint() *CenterCapacityConstraint {
	return &CenterCapacityConstraint{
		BaseConstraint: newHard("中心容量", constraint.TypeCenterCapacity, model.FlagCenterCapacity),
	}
}

// Apply 施加约束
func (c *CenterCapacityConstraint) Apply(ctx *constraint.Context) int {
	_, _, _, days, shifts := ctx.Vars.Dims()
	capacity := int64(ctx.Settings.CenterCapacity)
	added := 0
	for d := 0; d < days; d++ {
		for sh := 0; sh < shifts; sh++ {
			added += sumIfMany(ctx.Model, ctx.Vars.SlotClasses(d, sh), capacity, fmt.Sprintf("center_%d_%d", d, sh))
		}
	}
	return added
}
