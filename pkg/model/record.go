package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// 单元格内的分隔符
const (
	ListSeparator  = "|"
	PairSeparator  = ":"
	LevelSeparator = ","
)

// StudentRecord 学生名册中的一行
type StudentRecord struct {
	ID               string      `csv:"student_id" json:"student_id"`
	Name             string      `csv:"name" json:"name"`
	Grade            Count       `csv:"grade" json:"grade"`
	Subjects         SubjectList `csv:"subjects" json:"subjects"`
	SeasonalSlots    SlotCounts  `csv:"seasonal_slots" json:"seasonal_slots"`
	RegularSlots     SlotCounts  `csv:"regular_slots" json:"regular_slots"`
	AvailableSlots   SlotList    `csv:"available_slots" json:"available_slots"`
	PreferredTeacher string      `csv:"preferred_teacher" json:"preferred_teacher,omitempty"`
	AbsentSubject    string      `csv:"absent_subject" json:"absent_subject,omitempty"`
	AbsentSlots      Count       `csv:"absent_slots" json:"absent_slots"`
}

// TeacherRecord 教师名册中的一行
type TeacherRecord struct {
	ID             string    `csv:"teacher_id" json:"teacher_id"`
	Name           string    `csv:"name" json:"name"`
	Teachable      Teachable `csv:"teachable" json:"teachable"`
	AvailableSlots SlotList  `csv:"available_slots" json:"available_slots"`
}

// Count 允许空单元格的整数（空值为 0）
type Count int

// MarshalCSV 输出整数
func (c Count) MarshalCSV() (string, error) {
	return strconv.Itoa(int(c)), nil
}

// UnmarshalCSV 解析整数，空单元格视为 0
func (c *Count) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// 兼容 "3.0" 这类导出格式
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("无效的数值: %q", s)
		}
		n = int(f)
	}
	*c = Count(n)
	return nil
}

// SubjectList 科目列表，如 "math|english"
type SubjectList []string

// MarshalCSV 输出科目列表
func (l SubjectList) MarshalCSV() (string, error) {
	return strings.Join(l, ListSeparator), nil
}

// UnmarshalCSV 解析科目列表，忽略空项
func (l *SubjectList) UnmarshalCSV(s string) error {
	*l = splitList(s)
	return nil
}

// SlotCounts 按科目的课时数，如 "math:2|english:1"
type SlotCounts map[string]int

// Get 获取某科目的课时数，缺失为 0
func (c SlotCounts) Get(subject string) int {
	if c == nil {
		return 0
	}
	return c[subject]
}

// MarshalCSV 按科目名排序输出
func (c SlotCounts) MarshalCSV() (string, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s%s%d", k, PairSeparator, c[k]))
	}
	return strings.Join(parts, ListSeparator), nil
}

// UnmarshalCSV 解析课时数；缺少数值的项视为 0
func (c *SlotCounts) UnmarshalCSV(s string) error {
	out := make(SlotCounts)
	for _, item := range splitList(s) {
		name, value, _ := strings.Cut(item, PairSeparator)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var n Count
		if err := n.UnmarshalCSV(value); err != nil {
			return fmt.Errorf("科目 %s: %w", name, err)
		}
		out[name] += int(n)
	}
	*c = out
	return nil
}

// SlotList 时间格列表，如 "0-1|0-2"
type SlotList []Slot

// MarshalCSV 输出时间格列表
func (l SlotList) MarshalCSV() (string, error) {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = s.String()
	}
	return strings.Join(parts, ListSeparator), nil
}

// UnmarshalCSV 解析时间格列表
func (l *SlotList) UnmarshalCSV(s string) error {
	items := splitList(s)
	out := make(SlotList, 0, len(items))
	for _, item := range items {
		slot, err := ParseSlot(item)
		if err != nil {
			return err
		}
		out = append(out, slot)
	}
	*l = out
	return nil
}

// Teachable 教师可授科目及学段，如 "math:1,2|english:high"
type Teachable map[string][]Level

// Can 是否可以在某学段教授某科目
func (t Teachable) Can(subject string, level Level) bool {
	for _, l := range t[subject] {
		if l == level {
			return true
		}
	}
	return false
}

// MarshalCSV 按科目名排序输出
func (t Teachable) MarshalCSV() (string, error) {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		levels := make([]string, len(t[k]))
		for i, l := range t[k] {
			levels[i] = strconv.Itoa(int(l))
		}
		parts = append(parts, k+PairSeparator+strings.Join(levels, LevelSeparator))
	}
	return strings.Join(parts, ListSeparator), nil
}

// UnmarshalCSV 解析可授科目
func (t *Teachable) UnmarshalCSV(s string) error {
	out := make(Teachable)
	for _, item := range splitList(s) {
		name, levels, _ := strings.Cut(item, PairSeparator)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		for _, raw := range strings.Split(levels, LevelSeparator) {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			l, err := ParseLevel(raw)
			if err != nil {
				return fmt.Errorf("科目 %s: %w", name, err)
			}
			if !out.Can(name, l) {
				out[name] = append(out[name], l)
			}
		}
		if _, ok := out[name]; !ok {
			out[name] = nil
		}
	}
	*t = out
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ListSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
