package model

import (
	"sort"
	"strings"
)

// SlotType 课时类型
type SlotType string

const (
	SlotTypeSeasonal SlotType = "seasonal" // 季节性课时（优先消耗）
	SlotTypeRegular  SlotType = "regular"  // 常规课时
	SlotTypeInvalid  SlotType = "invalid"  // 合并科目无法落到任何成员科目
)

// InvalidSubject 无法解析的合并科目标记
const InvalidSubject = "invalid"

// ResultRow 排课结果中的一行，对应一个取值为真的上课变量
type ResultRow struct {
	Day           int      `csv:"day" json:"day" db:"day"`
	Shift         int      `csv:"shift" json:"shift" db:"shift"`
	Subject       string   `csv:"subject" json:"subject" db:"subject"`
	Level         Level    `csv:"level" json:"level" db:"level"`
	Student       int      `csv:"student" json:"student" db:"student"`
	Teacher       int      `csv:"teacher" json:"teacher" db:"teacher"`
	IsPrimarySlot bool     `csv:"is_primary_slot" json:"is_primary_slot" db:"is_primary_slot"`
	ActualSubject string   `csv:"actual_subject" json:"actual_subject" db:"actual_subject"`
	SlotType      SlotType `csv:"slot_type" json:"slot_type" db:"slot_type"`
	IsPrefer      bool     `csv:"is_prefer" json:"is_prefer" db:"is_prefer"`
	StudentID     string   `csv:"student_id" json:"student_id" db:"student_id"`
	TeacherID     string   `csv:"teacher_id" json:"teacher_id" db:"teacher_id"`
}

// Slot 返回所在时间格
func (r ResultRow) Slot() Slot {
	return Slot{Day: r.Day, Shift: r.Shift}
}

// IsMerged 是否为合并科目课
func (r ResultRow) IsMerged() bool {
	return strings.Contains(r.Subject, MergeSeparator)
}

// IsInvalid 合并科目是否解析失败
func (r ResultRow) IsInvalid() bool {
	return r.SlotType == SlotTypeInvalid || r.ActualSubject == InvalidSubject
}

// SortRows 规范排序：天、时段、学生、教师、科目
func SortRows(rows []ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
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
		return a.Subject < b.Subject
	})
}
