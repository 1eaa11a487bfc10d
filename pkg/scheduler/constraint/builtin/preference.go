package builtin

import (
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// ContinuityObjective 学生相邻时段连续上课
type ContinuityObjective struct {
	*BaseConstraint
}

// NewContinuityObjective 创建连续上课目标项
func NewContinuityObjective(weight int) *ContinuityObjective {
	return &ContinuityObjective{
		BaseConstraint: newSoft("连续上课", constraint.TypeContinuity, weight),
	}
}

// Objective 返回目标项
func (c *ContinuityObjective) Objective(ctx *constraint.Context) *cpmodel.LinearExpr {
	vs := ctx.Vars
	students, _, _, days, shifts := vs.Dims()
	expr := cpmodel.NewLinearExpr()
	for st := 0; st < students; st++ {
		for d := 0; d < days; d++ {
			for sh := 0; sh < shifts; sh++ {
				if v := vs.Continuity(st, d, sh); v != constraint.NoVar {
					expr.Add(v)
				}
			}
		}
	}
	return expr
}

// PreferredTeacherObjective 学生偏好教师
type PreferredTeacherObjective struct {
	*BaseConstraint
}

// NewPreferredTeacherObjective 创建偏好教师目标项
func NewPreferredTeacherObjective(weight int) *PreferredTeacherObjective {
	return &PreferredTeacherObjective{
		BaseConstraint: newSoft("偏好教师", constraint.TypePreferredTeacher, weight),
	}
}

// Objective 返回目标项
func (c *PreferredTeacherObjective) Objective(ctx *constraint.Context) *cpmodel.LinearExpr {
	vs, tb := ctx.Vars, ctx.Data
	expr := cpmodel.NewLinearExpr()
	for i, k := range vs.ClassKeys() {
		if tb.Preference[k.Student][k.Teacher] {
			expr.Add(vs.ClassVar(i))
		}
	}
	return expr
}

// TeacherUtilizationObjective 教师在岗时段数
type TeacherUtilizationObjective struct {
	*BaseConstraint
}

// NewTeacherUtilizationObjective 创建教师利用率目标项
func NewTeacherUtilizationObjective(weight int) *TeacherUtilizationObjective {
	return &TeacherUtilizationObjective{
		BaseConstraint: newSoft("教师利用率", constraint.TypeTeacherUtilization, weight),
	}
}

// Objective 返回目标项
func (c *TeacherUtilizationObjective) Objective(ctx *constraint.Context) *cpmodel.LinearExpr {
	vs := ctx.Vars
	_, teachers, _, days, shifts := vs.Dims()
	expr := cpmodel.NewLinearExpr()
	for t := 0; t < teachers; t++ {
		for d := 0; d < days; d++ {
			for sh := 0; sh < shifts; sh++ {
				if v := vs.TeacherShift(t, d, sh); v != constraint.NoVar {
					expr.Add(v)
				}
			}
		}
	}
	return expr
}

// ClassCountObjective 已排课节数
// 第一阶段分别以“可排课”与“已排学生”两项计入，第二阶段仅保留“可排课”
type ClassCountObjective struct {
	*BaseConstraint
}

// NewEligibleClassObjective 创建可排课目标项
func NewEligibleClassObjective(weight int) *ClassCountObjective {
	return &ClassCountObjective{
		BaseConstraint: newSoft("可排课", constraint.TypeEligibleClass, weight),
	}
}

// NewScheduledClassesObjective 创建已排学生目标项
func NewScheduledClassesObjective(weight int) *ClassCountObjective {
	return &ClassCountObjective{
		BaseConstraint: newSoft("已排学生", constraint.TypeScheduledClasses, weight),
	}
}

// Objective 返回目标项
func (c *ClassCountObjective) Objective(ctx *constraint.Context) *cpmodel.LinearExpr {
	vs := ctx.Vars
	expr := cpmodel.NewLinearExpr()
	for i := 0; i < vs.NumClasses(); i++ {
		expr.Add(vs.ClassVar(i))
	}
	return expr
}
