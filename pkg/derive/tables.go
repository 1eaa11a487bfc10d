package derive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/paiban/paike/pkg/model"
)

// Tables 一次排课运行的派生查找表，构建后只读
type Tables struct {
	NumStudent int
	NumTeacher int
	NumDay     int
	NumShift   int

	Catalog    *model.SubjectCatalog
	StudentIDs []string
	TeacherIDs []string

	Levels       []model.Level // [student]
	StudentAvail []model.Grid  // [student]
	TeacherAvail []model.Grid  // [teacher]
	Primary      model.Grid

	Interest     [][]bool   // [student][subject]，覆盖完整目录
	Multiplicity [][]int    // [student][subject]，学生感兴趣的成员科目数
	Cert         [][][]bool // [teacher][subject][level-1]

	Seasonal      [][]int // [student][base]
	Regular       [][]int // [student][base]，含缺课补偿
	Quota         [][]int // [student][base]
	TotalQuota    []int   // [student]
	AvailableDays []int   // [student]

	Preference [][]bool // [student][teacher]

	Warnings []string
}

// Build 由配置与名册构建查找表
// 缺失的数值按 0 处理，未知的科目或教师忽略并记录到 Warnings
func Build(settings model.Settings, students []model.StudentRecord, teachers []model.TeacherRecord) (*Tables, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	base, err := model.NewSubjectCatalog(settings.Subjects)
	if err != nil {
		return nil, err
	}

	tb := &Tables{
		NumStudent: len(students),
		NumTeacher: len(teachers),
		NumDay:     settings.NumDay,
		NumShift:   settings.NumShift,
		Primary:    PrimaryTime(settings),
	}

	// 教师：可授科目 → 合并科目目录
	teachable := make([][]int, len(teachers))
	teacherIndex := make(map[string]int, len(teachers))
	for t, rec := range teachers {
		subjects, unknown := TeachableSubjects(base, rec)
		teachable[t] = subjects
		for _, name := range unknown {
			tb.warnf("教师 %s 的可授科目 %s 不在科目目录中", rec.ID, name)
		}
		id := strings.TrimSpace(rec.ID)
		if id != "" {
			if _, dup := teacherIndex[id]; dup {
				tb.warnf("教师编号重复: %s", id)
			} else {
				teacherIndex[id] = t
			}
		}
		tb.TeacherIDs = append(tb.TeacherIDs, id)
		tb.TeacherAvail = append(tb.TeacherAvail, TeacherAvailability(settings, rec.AvailableSlots))
	}

	tb.Catalog, err = BuildMergedCatalog(base, teachable)
	if err != nil {
		return nil, err
	}
	tb.Cert = certification(tb.Catalog, teachers)

	// 学生
	numBase := tb.Catalog.NumBase()
	for _, rec := range students {
		level := GradeToLevel(int(rec.Grade))
		if !level.Valid() {
			tb.warnf("学生 %s 的年级 %d 不在任何学段内，不参与排课", rec.ID, int(rec.Grade))
		}
		tb.StudentIDs = append(tb.StudentIDs, strings.TrimSpace(rec.ID))
		tb.Levels = append(tb.Levels, level)

		avail := StudentAvailability(settings, level, rec.AvailableSlots)
		tb.StudentAvail = append(tb.StudentAvail, avail)
		tb.AvailableDays = append(tb.AvailableDays, avail.DaysWithAny())

		seasonal, regular, unknown := SlotQuotas(tb.Catalog, rec)
		for _, name := range unknown {
			tb.warnf("学生 %s 的科目 %s 不在科目目录中", rec.ID, name)
		}
		quota := make([]int, numBase)
		for b := range quota {
			quota[b] = seasonal[b] + regular[b]
		}
		tb.Seasonal = append(tb.Seasonal, seasonal)
		tb.Regular = append(tb.Regular, regular)
		tb.Quota = append(tb.Quota, quota)
		tb.TotalQuota = append(tb.TotalQuota, lo.Sum(quota))

		interest := Interest(tb.Catalog, rec, quota)
		tb.Interest = append(tb.Interest, interest)
		tb.Multiplicity = append(tb.Multiplicity, Multiplicity(tb.Catalog, interest))

		pref := make([]bool, len(teachers))
		if id := strings.TrimSpace(rec.PreferredTeacher); id != "" {
			if t, ok := teacherIndex[id]; ok {
				pref[t] = true
			} else {
				tb.warnf("学生 %s 的首选教师 %s 不存在", rec.ID, id)
			}
		}
		tb.Preference = append(tb.Preference, pref)
	}

	return tb, nil
}

func (tb *Tables) warnf(format string, args ...interface{}) {
	tb.Warnings = append(tb.Warnings, fmt.Sprintf(format, args...))
}

// certification 教师在各学段可授的目录科目；合并科目要求每个成员科目都可授
func certification(catalog *model.SubjectCatalog, teachers []model.TeacherRecord) [][][]bool {
	cert := make([][][]bool, len(teachers))
	for t, rec := range teachers {
		cert[t] = make([][]bool, catalog.Len())
		for s := 0; s < catalog.Len(); s++ {
			cert[t][s] = make([]bool, model.NumLevel)
			subject := catalog.Get(s)
			for _, level := range model.AllLevels() {
				cert[t][s][level.Index()] = lo.EveryBy(subject.Parts, func(p int) bool {
					return rec.Teachable.Can(catalog.Get(p).Name, level)
				})
			}
		}
	}
	return cert
}

// SlotQuotas 学生每个基础科目的季节性/常规课时；缺课补偿计入常规课时
func SlotQuotas(catalog *model.SubjectCatalog, rec model.StudentRecord) (seasonal, regular []int, unknown []string) {
	numBase := catalog.NumBase()
	seasonal = make([]int, numBase)
	regular = make([]int, numBase)

	collect := func(counts model.SlotCounts, into []int) {
		for name, n := range counts {
			b, ok := catalog.Lookup(name)
			if !ok || b >= numBase {
				unknown = append(unknown, name)
				continue
			}
			if n > 0 {
				into[b] += n
			}
		}
	}
	collect(rec.SeasonalSlots, seasonal)
	collect(rec.RegularSlots, regular)

	if name := strings.TrimSpace(rec.AbsentSubject); name != "" && rec.AbsentSlots > 0 {
		if b, ok := catalog.Lookup(name); ok && b < numBase {
			regular[b] += int(rec.AbsentSlots)
		} else {
			unknown = append(unknown, name)
		}
	}
	unknown = lo.Uniq(unknown)
	sort.Strings(unknown)
	return seasonal, regular, unknown
}

// Interest 学生对目录科目的兴趣：基础科目已报名或有课时；合并科目任一成员感兴趣即可
func Interest(catalog *model.SubjectCatalog, rec model.StudentRecord, quota []int) []bool {
	interest := make([]bool, catalog.Len())
	for _, name := range rec.Subjects {
		if b, ok := catalog.Lookup(name); ok && b < catalog.NumBase() {
			interest[b] = true
		}
	}
	for b, q := range quota {
		if q > 0 {
			interest[b] = true
		}
	}
	for s := catalog.NumBase(); s < catalog.Len(); s++ {
		interest[s] = lo.SomeBy(catalog.Get(s).Parts, func(p int) bool { return interest[p] })
	}
	return interest
}

// Multiplicity 每个目录科目中学生感兴趣的成员数
func Multiplicity(catalog *model.SubjectCatalog, interest []bool) []int {
	mult := make([]int, catalog.Len())
	for s := 0; s < catalog.Len(); s++ {
		mult[s] = lo.CountBy(catalog.Get(s).Parts, func(p int) bool { return interest[p] })
	}
	return mult
}

// Eligible 学生、教师、科目、时间格是否可以组成一节课
func (tb *Tables) Eligible(st, t, s, d, sh int) bool {
	level := tb.Levels[st]
	if !level.Valid() || !tb.Interest[st][s] {
		return false
	}
	if !tb.Cert[t][s][level.Index()] {
		return false
	}
	return tb.StudentAvail[st].Get(d, sh) && tb.TeacherAvail[t].Get(d, sh)
}

// Satisfying 能满足学生某基础科目的目录科目（该科目自身及包含它的合并科目）
func (tb *Tables) Satisfying(st, base int) []int {
	var out []int
	for s := 0; s < tb.Catalog.Len(); s++ {
		if tb.Catalog.Get(s).Contains(base) && tb.Multiplicity[st][s] > 0 {
			out = append(out, s)
		}
	}
	return out
}
