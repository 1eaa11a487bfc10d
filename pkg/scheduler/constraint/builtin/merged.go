package builtin

import (
	"fmt"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// quotaAccount 学生某基础科目的课时核算
// 合并科目的一节课按 1/m 计入每个感兴趣的成员科目，整体乘以 L 化为整数
type quotaAccount struct {
	student int
	base    int
	lcm     int64
	used    *cpmodel.LinearExpr // Σ (L/m)·上课变量
	limit   int64               // L·配额
}

// quotaAccounts 枚举全部 (学生, 感兴趣的基础科目) 的核算表达式
func quotaAccounts(ctx *constraint.Context) []quotaAccount {
	tb, vs := ctx.Data, ctx.Vars
	keys := vs.ClassKeys()
	var out []quotaAccount
	for st := 0; st < tb.NumStudent; st++ {
		bySubject := make(map[int][]cpmodel.BoolVar)
		for _, idx := range vs.StudentClasses(st) {
			s := keys[idx].Subject
			bySubject[s] = append(bySubject[s], vs.ClassVar(idx))
		}
		for b := 0; b < tb.Catalog.NumBase(); b++ {
			if !tb.Interest[st][b] {
				continue
			}
			sats := tb.Satisfying(st, b)
			mults := make([]int, len(sats))
			for i, s := range sats {
				mults[i] = tb.Multiplicity[st][s]
			}
			l := int64(derive.LCM(mults...))
			used := cpmodel.NewLinearExpr()
			for i, s := range sats {
				coef := l / int64(mults[i])
				for _, v := range bySubject[s] {
					used.AddTerm(v, coef)
				}
			}
			out = append(out, quotaAccount{
				student: st,
				base:    b,
				lcm:     l,
				used:    used,
				limit:   l * int64(tb.Quota[st][b]),
			})
		}
	}
	return out
}

// MergedSubjectConstraint 合并科目课时核算
// 每个基础科目的加权课时不超过配额，且每节课蕴含对应的教师时段与学生科目变量
type MergedSubjectConstraint struct {
	*BaseConstraint
}

// NewMergedSubjectConstraint 创建合并科目核算约束
func NewMergedSubjectConstraint() *MergedSubjectConstraint {
	return &MergedSubjectConstraint{
		BaseConstraint: newHard("合并科目核算", constraint.TypeMergedSubject, model.FlagMergedSubject),
	}
}

// Apply 施加约束
func (c *MergedSubjectConstraint) Apply(ctx *constraint.Context) int {
	m, vs := ctx.Model, ctx.Vars
	added := 0
	for _, acc := range quotaAccounts(ctx) {
		if acc.used.Len() == 0 {
			continue
		}
		m.AddLessOrEqual(acc.used, acc.limit).WithName(fmt.Sprintf("quota_%d_%d", acc.student, acc.base))
		added++
	}
	for i, k := range vs.ClassKeys() {
		v := vs.ClassVar(i)
		m.AddImplication(v, vs.TeacherSlot(k.Teacher, k.Subject, k.Level, k.Day, k.Shift)).WithName("class_teacher_slot")
		m.AddImplication(v, vs.StudentSubject(k.Student, k.Subject, k.Day, k.Shift)).WithName("class_student_subject")
		added += 2
	}
	return added
}

// RemainSlotsObjective 剩余课时（取负值进入最大化目标）
type RemainSlotsObjective struct {
	*BaseConstraint
}

// NewRemainSlotsObjective 创建剩余课时目标项
func NewRemainSlotsObjective(weight int) *RemainSlotsObjective {
	return &RemainSlotsObjective{
		BaseConstraint: newSoft("剩余课时", constraint.TypeRemainSlots, weight),
	}
}

// Objective 返回 −Σ(L·配额 − 已排加权课时)
func (c *RemainSlotsObjective) Objective(ctx *constraint.Context) *cpmodel.LinearExpr {
	expr := cpmodel.NewLinearExpr()
	for _, acc := range quotaAccounts(ctx) {
		expr.AddExpr(acc.used, 1)
		expr.AddConst(-acc.limit)
	}
	return expr
}
