// Package constraints 约束目录：按当前配置列出硬约束开关与目标项
package constraints

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/constraint/builtin"
)

// Param 约束参数（取自当前配置）
type Param struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Definition 约束定义
type Definition struct {
	Name        string              `json:"name"`
	DisplayName string              `json:"display_name"`
	Category    constraint.Category `json:"category"`
	Flag        int                 `json:"flag"` // 开关下标，目标项为 -1
	Enabled     bool                `json:"enabled"`
	Phases      []int               `json:"phases"`
	Weight      int                 `json:"weight,omitempty"`
	Description string              `json:"description"`
	Params      []Param             `json:"params,omitempty"`
}

var descriptions = map[constraint.Type]string{
	constraint.TypeCapacityRatio:      "同一教师、科目、学段、时间格的学生数不超过科目容量；教师须持有该学段资质，学生学段须匹配。",
	constraint.TypePrimaryTime:        "每名学生在黄金时段的上课数不超过其登记总课时乘以配额比例（向下取整）。",
	constraint.TypeMaxSlotsPerDay:     "每名学生每天的上课数不超过 1 + 登记总课时 / 有空天数（向下取整）；没有可用天时上限为 0。",
	constraint.TypeMergedSubject:      "合并科目按最小公倍数折算消耗成员科目课时，折算后不超过各科登记课时。",
	constraint.TypeOneSlotPerStudent:  "同一学生同一时间格最多上一节课。",
	constraint.TypeOneSlotPerTeacher:  "同一教师同一时间格最多开一个班。",
	constraint.TypeNoConsecutive:      "同一学生、教师、科目、学段在同一天的相邻时段最多出现一次。",
	constraint.TypeStaffHours:         "教师每天的授课时长加课间不超过上限。",
	constraint.TypeCenterCapacity:     "每个时间格在校学生总数不超过中心容量。",
	constraint.TypeContinuity:         "奖励学生在相邻时段连续上课。",
	constraint.TypePreferredTeacher:   "奖励学生由其偏好教师授课。",
	constraint.TypeTeacherUtilization: "奖励教师的班级坐满。",
	constraint.TypeEligibleClass:      "奖励开出的班级数。",
	constraint.TypeRemainSlots:        "第一阶段奖励已消耗的登记课时。",
	constraint.TypeScheduledClasses:   "第一阶段奖励被排课的学生-时间格组合数。",
}

// Library 返回当前配置下的全部约束，硬约束按开关下标排序，目标项按权重降序
func Library(settings model.Settings) []Definition {
	hard := lo.Map(builtin.NewHardConstraints(), func(c builtin.HardConstraint, _ int) Definition {
		phases := []int{2}
		if c.Flag() == model.FlagMergedSubject || c.Flag() == model.FlagNoConsecutive {
			phases = []int{1, 2}
		}
		return Definition{
			Name:        string(c.Type()),
			DisplayName: c.Name(),
			Category:    constraint.CategoryHard,
			Flag:        c.Flag(),
			Enabled:     settings.Enabled(c.Flag()),
			Phases:      phases,
			Description: descriptions[c.Type()],
			Params:      paramsFor(c.Type(), settings),
		}
	})

	w := settings.Weights
	objectives := []struct {
		c      constraint.Constraint
		phases []int
	}{
		{builtin.NewContinuityObjective(w.Continuity), []int{1, 2}},
		{builtin.NewPreferredTeacherObjective(w.Preference), []int{1, 2}},
		{builtin.NewTeacherUtilizationObjective(w.Utilization), []int{1, 2}},
		{builtin.NewEligibleClassObjective(w.Class), []int{1, 2}},
		{builtin.NewRemainSlotsObjective(w.Remain), []int{1}},
		{builtin.NewScheduledClassesObjective(w.Scheduled), []int{1}},
	}
	soft := make([]Definition, 0, len(objectives))
	for _, o := range objectives {
		soft = append(soft, Definition{
			Name:        string(o.c.Type()),
			DisplayName: o.c.Name(),
			Category:    constraint.CategorySoft,
			Flag:        -1,
			Enabled:     o.c.Weight() > 0,
			Phases:      o.phases,
			Weight:      o.c.Weight(),
			Description: descriptions[o.c.Type()],
		})
	}
	sort.SliceStable(soft, func(i, j int) bool { return soft[i].Weight > soft[j].Weight })

	return append(hard, soft...)
}

// Enabled 返回启用的硬约束
func Enabled(settings model.Settings) []Definition {
	return lo.Filter(Library(settings), func(d Definition, _ int) bool {
		return d.Category == constraint.CategoryHard && d.Enabled
	})
}

// Find 按名称查找约束
func Find(settings model.Settings, name string) (Definition, bool) {
	return lo.Find(Library(settings), func(d Definition) bool { return d.Name == name })
}

func paramsFor(typ constraint.Type, settings model.Settings) []Param {
	switch typ {
	case constraint.TypeCapacityRatio:
		return lo.Map(settings.Subjects, func(s model.SubjectSpec, _ int) Param {
			return Param{Name: s.Name, Value: fmt.Sprint(s.Ratio), Description: "每班最多学生数"}
		})
	case constraint.TypePrimaryTime:
		p := settings.PrimaryTime
		return []Param{
			{Name: "first_day_ratio", Value: fmt.Sprint(p.FirstDayRatio), Description: "黄金时段覆盖的前若干天比例"},
			{Name: "first_shift_ratio", Value: fmt.Sprint(p.FirstShiftRatio), Description: "前段黄金时段比例"},
			{Name: "second_shift_ratio", Value: fmt.Sprint(p.SecondShiftRatio), Description: "后段黄金时段比例"},
			{Name: "quota_ratio", Value: fmt.Sprint(p.QuotaRatio), Description: "黄金时段课时上限比例"},
		}
	case constraint.TypeStaffHours:
		h := settings.StaffHours
		return []Param{
			{Name: "shift_minutes", Value: fmt.Sprint(h.ShiftMinutes), Description: "每节课分钟数"},
			{Name: "break_minutes", Value: fmt.Sprint(h.BreakMinutes), Description: "课间分钟数"},
			{Name: "max_minutes", Value: fmt.Sprint(h.MaxMinutes), Description: "每日上限分钟数"},
		}
	case constraint.TypeCenterCapacity:
		return []Param{{Name: "center_capacity", Value: fmt.Sprint(settings.CenterCapacity), Description: "每个时间格最多学生数"}}
	}
	return nil
}
