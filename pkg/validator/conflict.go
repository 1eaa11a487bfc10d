// Package validator 提供排课结果验证功能
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictStudentOverlap ConflictType = "student_overlap" // 学生同一时段多节课
	ConflictTeacherOverlap ConflictType = "teacher_overlap" // 教师同一时段多个班
	ConflictCapacity       ConflictType = "capacity"        // 班级人数超过科目容量
	ConflictQuota          ConflictType = "quota"           // 超过学生登记课时
	ConflictPrimaryTime    ConflictType = "primary_time"    // 黄金时段课时过多
	ConflictDailyLimit     ConflictType = "daily_limit"     // 单日课时过多
	ConflictStaffHours     ConflictType = "staff_hours"     // 教师工时超限
	ConflictCenter         ConflictType = "center_capacity" // 中心容量超限
	ConflictConsecutive    ConflictType = "consecutive"     // 同课连堂
	ConflictAvailability   ConflictType = "availability"    // 不可用或无资质
	ConflictInvalidSubject ConflictType = "invalid_subject" // 合并科目无法解析
)

// Severity 冲突严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	Student  int          `json:"student"`  // -1 表示与学生无关
	Teacher  int          `json:"teacher"`  // -1 表示与教师无关
	Day      int          `json:"day"`
	Shift    int          `json:"shift"` // -1 表示整天
	Message  string       `json:"message"`
	Rows     []int        `json:"rows,omitempty"` // 相关的结果行下标
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	settings model.Settings
	data     *derive.Tables
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(settings model.Settings, data *derive.Tables) *ConflictDetector {
	return &ConflictDetector{settings: settings, data: data}
}

// DetectAll 检测所有冲突；只检查已开启的硬约束，可用性与资质始终检查
func (d *ConflictDetector) DetectAll(rows []model.ResultRow) []Conflict {
	var conflicts []Conflict

	conflicts = append(conflicts, d.detectAvailability(rows)...)
	conflicts = append(conflicts, d.detectInvalidSubjects(rows)...)
	if d.settings.Enabled(model.FlagOneSlotPerStudent) {
		conflicts = append(conflicts, d.detectStudentOverlaps(rows)...)
	}
	if d.settings.Enabled(model.FlagOneSlotPerTeacher) {
		conflicts = append(conflicts, d.detectTeacherOverlaps(rows)...)
	}
	if d.settings.Enabled(model.FlagCapacityRatio) {
		conflicts = append(conflicts, d.detectCapacity(rows)...)
	}
	if d.settings.Enabled(model.FlagMergedSubject) {
		conflicts = append(conflicts, d.detectQuota(rows)...)
	}
	if d.settings.Enabled(model.FlagPrimaryTime) {
		conflicts = append(conflicts, d.detectPrimaryTime(rows)...)
	}
	if d.settings.Enabled(model.FlagMaxSlotsPerDay) {
		conflicts = append(conflicts, d.detectDailyLimit(rows)...)
	}
	if d.settings.Enabled(model.FlagStaffHours) {
		conflicts = append(conflicts, d.detectStaffHours(rows)...)
	}
	if d.settings.Enabled(model.FlagCenterCapacity) {
		conflicts = append(conflicts, d.detectCenterCapacity(rows)...)
	}
	if d.settings.Enabled(model.FlagNoConsecutive) {
		conflicts = append(conflicts, d.detectConsecutive(rows)...)
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		if a.Student != b.Student {
			return a.Student < b.Student
		}
		if a.Teacher != b.Teacher {
			return a.Teacher < b.Teacher
		}
		return a.Message < b.Message
	})
	return conflicts
}

// HasErrors 是否存在 error 级别的冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountByType 按类型统计冲突数
func CountByType(conflicts []Conflict) map[ConflictType]int {
	counts := make(map[ConflictType]int)
	for _, c := range conflicts {
		counts[c.Type]++
	}
	return counts
}

// detectAvailability 学生、教师在该时段可用，且教师具备该科目学段资质
func (d *ConflictDetector) detectAvailability(rows []model.ResultRow) []Conflict {
	var conflicts []Conflict
	tb := d.data
	for i, r := range rows {
		if r.Student < 0 || r.Student >= tb.NumStudent || r.Teacher < 0 || r.Teacher >= tb.NumTeacher {
			conflicts = append(conflicts, Conflict{
				Type: ConflictAvailability, Severity: SeverityError,
				Student: r.Student, Teacher: r.Teacher, Day: r.Day, Shift: r.Shift,
				Message: fmt.Sprintf("第 %d 行的学生或教师编号越界", i),
				Rows:    []int{i},
			})
			continue
		}
		s, ok := tb.Catalog.Lookup(r.Subject)
		var reason string
		switch {
		case !ok:
			reason = fmt.Sprintf("科目 %s 不在目录中", r.Subject)
		case !tb.StudentAvail[r.Student].Get(r.Day, r.Shift):
			reason = "学生在该时段不可用"
		case !tb.TeacherAvail[r.Teacher].Get(r.Day, r.Shift):
			reason = "教师在该时段不可用"
		case !r.Level.Valid() || !tb.Cert[r.Teacher][s][r.Level.Index()]:
			reason = fmt.Sprintf("教师不具备 %s %s 的授课资质", r.Subject, r.Level)
		}
		if reason != "" {
			conflicts = append(conflicts, Conflict{
				Type: ConflictAvailability, Severity: SeverityError,
				Student: r.Student, Teacher: r.Teacher, Day: r.Day, Shift: r.Shift,
				Message: reason,
				Rows:    []int{i},
			})
		}
	}
	return conflicts
}

func (d *ConflictDetector) detectInvalidSubjects(rows []model.ResultRow) []Conflict {
	var conflicts []Conflict
	for i, r := range rows {
		if !r.IsInvalid() {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type: ConflictInvalidSubject, Severity: SeverityWarning,
			Student: r.Student, Teacher: r.Teacher, Day: r.Day, Shift: r.Shift,
			Message: fmt.Sprintf("合并科目 %s 的成员课时均已用尽", r.Subject),
			Rows:    []int{i},
		})
	}
	return conflicts
}

type slotKey struct{ a, day, shift int }

func (d *ConflictDetector) detectStudentOverlaps(rows []model.ResultRow) []Conflict {
	groups := make(map[slotKey][]int)
	for i, r := range rows {
		k := slotKey{r.Student, r.Day, r.Shift}
		groups[k] = append(groups[k], i)
	}
	var conflicts []Conflict
	for k, idx := range groups {
		if len(idx) > 1 {
			conflicts = append(conflicts, Conflict{
				Type: ConflictStudentOverlap, Severity: SeverityError,
				Student: k.a, Teacher: -1, Day: k.day, Shift: k.shift,
				Message: fmt.Sprintf("学生 %d 在 %d-%d 有 %d 节课", k.a, k.day, k.shift, len(idx)),
				Rows:    idx,
			})
		}
	}
	return conflicts
}

// detectTeacherOverlaps 同一时段教师只能带一种科目与学段的班
func (d *ConflictDetector) detectTeacherOverlaps(rows []model.ResultRow) []Conflict {
	type class struct {
		subject string
		level   model.Level
	}
	groups := make(map[slotKey]map[class][]int)
	for i, r := range rows {
		k := slotKey{r.Teacher, r.Day, r.Shift}
		if groups[k] == nil {
			groups[k] = make(map[class][]int)
		}
		c := class{r.Subject, r.Level}
		groups[k][c] = append(groups[k][c], i)
	}
	var conflicts []Conflict
	for k, classes := range groups {
		if len(classes) <= 1 {
			continue
		}
		var idx []int
		for _, rs := range classes {
			idx = append(idx, rs...)
		}
		sort.Ints(idx)
		conflicts = append(conflicts, Conflict{
			Type: ConflictTeacherOverlap, Severity: SeverityError,
			Student: -1, Teacher: k.a, Day: k.day, Shift: k.shift,
			Message: fmt.Sprintf("教师 %d 在 %d-%d 同时带 %d 个班", k.a, k.day, k.shift, len(classes)),
			Rows:    idx,
		})
	}
	return conflicts
}

func (d *ConflictDetector) detectCapacity(rows []model.ResultRow) []Conflict {
	type classKey struct {
		teacher    int
		subject    string
		level      model.Level
		day, shift int
	}
	groups := make(map[classKey][]int)
	for i, r := range rows {
		k := classKey{r.Teacher, r.Subject, r.Level, r.Day, r.Shift}
		groups[k] = append(groups[k], i)
	}
	var conflicts []Conflict
	for k, idx := range groups {
		s, ok := d.data.Catalog.Lookup(k.subject)
		if !ok {
			continue
		}
		ratio := d.data.Catalog.Get(s).Ratio
		if len(idx) > ratio {
			conflicts = append(conflicts, Conflict{
				Type: ConflictCapacity, Severity: SeverityError,
				Student: -1, Teacher: k.teacher, Day: k.day, Shift: k.shift,
				Message: fmt.Sprintf("%s %s 班有 %d 名学生，超过容量 %d", k.subject, k.level, len(idx), ratio),
				Rows:    idx,
			})
		}
	}
	return conflicts
}

// detectQuota 按实际科目统计；未经后处理的单科目行按其科目统计
func (d *ConflictDetector) detectQuota(rows []model.ResultRow) []Conflict {
	type key struct{ student, base int }
	groups := make(map[key][]int)
	for i, r := range rows {
		if r.IsInvalid() {
			continue
		}
		name := r.ActualSubject
		if name == "" && !r.IsMerged() {
			name = r.Subject
		}
		b, ok := d.data.Catalog.Lookup(name)
		if !ok || b >= d.data.Catalog.NumBase() {
			continue
		}
		k := key{r.Student, b}
		groups[k] = append(groups[k], i)
	}
	var conflicts []Conflict
	for k, idx := range groups {
		if k.student < 0 || k.student >= d.data.NumStudent {
			continue
		}
		quota := d.data.Quota[k.student][k.base]
		if len(idx) > quota {
			conflicts = append(conflicts, Conflict{
				Type: ConflictQuota, Severity: SeverityError,
				Student: k.student, Teacher: -1, Day: -1, Shift: -1,
				Message: fmt.Sprintf("学生 %d 的 %s 排了 %d 节，登记 %d 节",
					k.student, d.data.Catalog.Get(k.base).Name, len(idx), quota),
				Rows: idx,
			})
		}
	}
	return conflicts
}

func (d *ConflictDetector) detectPrimaryTime(rows []model.ResultRow) []Conflict {
	groups := make(map[int][]int)
	for i, r := range rows {
		if d.data.Primary.Get(r.Day, r.Shift) {
			groups[r.Student] = append(groups[r.Student], i)
		}
	}
	var conflicts []Conflict
	for st, idx := range groups {
		if st < 0 || st >= d.data.NumStudent {
			continue
		}
		limit := derive.PrimaryQuota(d.data.TotalQuota[st], d.settings.PrimaryTime.QuotaRatio)
		if len(idx) > limit {
			conflicts = append(conflicts, Conflict{
				Type: ConflictPrimaryTime, Severity: SeverityError,
				Student: st, Teacher: -1, Day: -1, Shift: -1,
				Message: fmt.Sprintf("学生 %d 黄金时段 %d 节，上限 %d 节", st, len(idx), limit),
				Rows:    idx,
			})
		}
	}
	return conflicts
}

func (d *ConflictDetector) detectDailyLimit(rows []model.ResultRow) []Conflict {
	groups := make(map[slotKey][]int)
	for i, r := range rows {
		k := slotKey{r.Student, r.Day, -1}
		groups[k] = append(groups[k], i)
	}
	var conflicts []Conflict
	for k, idx := range groups {
		if k.a < 0 || k.a >= d.data.NumStudent {
			continue
		}
		limit := derive.DailyLimit(d.data.TotalQuota[k.a], d.data.AvailableDays[k.a])
		if len(idx) > limit {
			conflicts = append(conflicts, Conflict{
				Type: ConflictDailyLimit, Severity: SeverityError,
				Student: k.a, Teacher: -1, Day: k.day, Shift: -1,
				Message: fmt.Sprintf("学生 %d 第 %d 天 %d 节，上限 %d 节", k.a, k.day, len(idx), limit),
				Rows:    idx,
			})
		}
	}
	return conflicts
}

// detectStaffHours 在岗时段数 × (时长 + 间隔) − 间隔 不超过上限
func (d *ConflictDetector) detectStaffHours(rows []model.ResultRow) []Conflict {
	shifts := make(map[slotKey]map[int]bool)
	for _, r := range rows {
		k := slotKey{r.Teacher, r.Day, -1}
		if shifts[k] == nil {
			shifts[k] = make(map[int]bool)
		}
		shifts[k][r.Shift] = true
	}
	h := d.settings.StaffHours
	var conflicts []Conflict
	for k, set := range shifts {
		minutes := len(set)*(h.ShiftMinutes+h.BreakMinutes) - h.BreakMinutes
		if minutes > h.MaxMinutes {
			conflicts = append(conflicts, Conflict{
				Type: ConflictStaffHours, Severity: SeverityError,
				Student: -1, Teacher: k.a, Day: k.day, Shift: -1,
				Message: fmt.Sprintf("教师 %d 第 %d 天工作 %d 分钟，上限 %d 分钟", k.a, k.day, minutes, h.MaxMinutes),
			})
		}
	}
	return conflicts
}

func (d *ConflictDetector) detectCenterCapacity(rows []model.ResultRow) []Conflict {
	groups := make(map[slotKey][]int)
	for i, r := range rows {
		k := slotKey{0, r.Day, r.Shift}
		groups[k] = append(groups[k], i)
	}
	var conflicts []Conflict
	for k, idx := range groups {
		if len(idx) > d.settings.CenterCapacity {
			conflicts = append(conflicts, Conflict{
				Type: ConflictCenter, Severity: SeverityError,
				Student: -1, Teacher: -1, Day: k.day, Shift: k.shift,
				Message: fmt.Sprintf("%d-%d 共 %d 名学生，中心容量 %d", k.day, k.shift, len(idx), d.settings.CenterCapacity),
				Rows:    idx,
			})
		}
	}
	return conflicts
}

// detectConsecutive 同一学生、教师、科目、学段在同一天相邻时段出现
func (d *ConflictDetector) detectConsecutive(rows []model.ResultRow) []Conflict {
	type key struct {
		student, teacher int
		subject          string
		level            model.Level
		day, shift       int
	}
	index := make(map[key]int, len(rows))
	for i, r := range rows {
		index[key{r.Student, r.Teacher, r.Subject, r.Level, r.Day, r.Shift}] = i
	}
	var conflicts []Conflict
	for i, r := range rows {
		j, ok := index[key{r.Student, r.Teacher, r.Subject, r.Level, r.Day, r.Shift + 1}]
		if !ok {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type: ConflictConsecutive, Severity: SeverityError,
			Student: r.Student, Teacher: r.Teacher, Day: r.Day, Shift: r.Shift,
			Message: fmt.Sprintf("学生 %d 的 %s 在第 %d 天第 %d、%d 时段连堂", r.Student, r.Subject, r.Day, r.Shift, r.Shift+1),
			Rows:    []int{i, j},
		})
	}
	return conflicts
}
