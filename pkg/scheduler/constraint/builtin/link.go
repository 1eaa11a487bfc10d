package builtin

import (
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// VariableLinkConstraint 辅助变量与上课变量的逻辑关联
// 每个辅助变量等于其成员变量的“或”；连堂变量等于相邻两个时段占用的“与”
type VariableLinkConstraint struct {
	*BaseConstraint
}

// NewVariableLinkConstraint 创建变量关联约束
func NewVariableLinkConstraint() *VariableLinkConstraint {
	return &VariableLinkConstraint{
		BaseConstraint: newHard("变量关联", constraint.TypeVariableLink, -1),
	}
}

// Apply 施加约束
func (c *VariableLinkConstraint) Apply(ctx *constraint.Context) int {
	vs, m := ctx.Vars, ctx.Model
	students, teachers, subjects, days, shifts := vs.Dims()
	added := 0

	for t := 0; t < teachers; t++ {
		for d := 0; d < days; d++ {
			for sh := 0; sh < shifts; sh++ {
				var slots []cpmodel.BoolVar
				for s := 0; s < subjects; s++ {
					for _, level := range model.AllLevels() {
						ts := vs.TeacherSlot(t, s, level, d, sh)
						if ts == constraint.NoVar {
							continue
						}
						added += linkOr(m, ts, vs.TeacherSlotClasses(t, s, level, d, sh), "teacher_slot")
						slots = append(slots, ts)
					}
				}
				if tsh := vs.TeacherShift(t, d, sh); tsh != constraint.NoVar {
					added += linkOr(m, tsh, slots, "teacher_shift")
				}
			}
		}
	}

	for st := 0; st < students; st++ {
		for d := 0; d < days; d++ {
			for sh := 0; sh < shifts; sh++ {
				if ss := vs.StudentSlot(st, d, sh); ss != constraint.NoVar {
					added += linkOr(m, ss, vs.StudentSlotClasses(st, d, sh), "student_slot")
				}
				for s := 0; s < subjects; s++ {
					if sc := vs.StudentSubject(st, s, d, sh); sc != constraint.NoVar {
						added += linkOr(m, sc, vs.StudentSubjectClasses(st, s, d, sh), "student_subject")
					}
				}
				if cont := vs.Continuity(st, d, sh); cont != constraint.NoVar {
					a, b := vs.StudentSlot(st, d, sh), vs.StudentSlot(st, d, sh+1)
					m.AddLessOrEqual(cpmodel.NewLinearExpr().Add(cont).AddTerm(a, -1), 0).WithName("continuity")
					m.AddLessOrEqual(cpmodel.NewLinearExpr().Add(cont).AddTerm(b, -1), 0).WithName("continuity")
					m.AddLessOrEqual(cpmodel.NewLinearExpr().Add(a).Add(b).AddTerm(cont, -1), 1).WithName("continuity")
					added += 3
				}
			}
		}
	}
	return added
}

// linkOr aux = OR(members)：每个成员蕴含 aux，aux 蕴含至少一个成员
func linkOr(m *cpmodel.Model, aux cpmodel.BoolVar, members []cpmodel.BoolVar, name string) int {
	for _, v := range members {
		m.AddLessOrEqual(cpmodel.NewLinearExpr().Add(v).AddTerm(aux, -1), 0).WithName(name)
	}
	expr := cpmodel.NewLinearExpr().Add(aux)
	for _, v := range members {
		expr.AddTerm(v, -1)
	}
	m.AddLessOrEqual(expr, 0).WithName(name)
	return len(members) + 1
}
