package constraint

import (
	"fmt"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// NoVar 稠密数组中不存在的变量
const NoVar cpmodel.BoolVar = -1

// ClassKey 上课变量的六维下标
type ClassKey struct {
	Student int
	Teacher int
	Subject int
	Level   model.Level
	Day     int
	Shift   int
}

// VarSpace 决策变量空间
//
// 上课变量只为满足全部资格条件（兴趣、资质、双方可用时间）的组合创建，
// 其余组合视为恒假。辅助变量存放在按计算偏移寻址的稠密数组中。
type VarSpace struct {
	numStudent, numTeacher, numSubject, numDay, numShift int

	classes   map[ClassKey]cpmodel.BoolVar
	classKeys []ClassKey
	classVars []cpmodel.BoolVar

	teacherSlot    []cpmodel.BoolVar // (t, s, l, d, sh)
	teacherShift   []cpmodel.BoolVar // (t, d, sh)
	studentSlot    []cpmodel.BoolVar // (st, d, sh)
	studentSubject []cpmodel.BoolVar // (st, s, d, sh)
	continuity     []cpmodel.BoolVar // (st, d, sh)，表示 sh 与 sh+1 都有课

	byTeacherSlot    map[int][]int // teacherSlot 偏移 → classKeys 下标
	byStudentSlot    map[int][]int
	byStudentSubject map[int][]int
	bySlot           map[int][]int // (d, sh)
	byStudent        [][]int
}

// NewVarSpace 在模型中创建全部变量
// 上课变量按 (天, 学生, 教师, 科目, 学段, 时段) 的嵌套顺序创建
func NewVarSpace(m *cpmodel.Model, tb *derive.Tables) *VarSpace {
	vs := &VarSpace{
		numStudent:       tb.NumStudent,
		numTeacher:       tb.NumTeacher,
		numSubject:       tb.Catalog.Len(),
		numDay:           tb.NumDay,
		numShift:         tb.NumShift,
		classes:          make(map[ClassKey]cpmodel.BoolVar),
		byTeacherSlot:    make(map[int][]int),
		byStudentSlot:    make(map[int][]int),
		byStudentSubject: make(map[int][]int),
		bySlot:           make(map[int][]int),
		byStudent:        make([][]int, tb.NumStudent),
	}
	vs.teacherSlot = newDense(vs.numTeacher * vs.numSubject * model.NumLevel * vs.numDay * vs.numShift)
	vs.teacherShift = newDense(vs.numTeacher * vs.numDay * vs.numShift)
	vs.studentSlot = newDense(vs.numStudent * vs.numDay * vs.numShift)
	vs.studentSubject = newDense(vs.numStudent * vs.numSubject * vs.numDay * vs.numShift)
	vs.continuity = newDense(vs.numStudent * vs.numDay * vs.numShift)

	for d := 0; d < vs.numDay; d++ {
		for st := 0; st < vs.numStudent; st++ {
			level := tb.Levels[st]
			if !level.Valid() {
				continue
			}
			for t := 0; t < vs.numTeacher; t++ {
				for s := 0; s < vs.numSubject; s++ {
					for sh := 0; sh < vs.numShift; sh++ {
						if !tb.Eligible(st, t, s, d, sh) {
							continue
						}
						key := ClassKey{Student: st, Teacher: t, Subject: s, Level: level, Day: d, Shift: sh}
						v := m.NewBoolVar(fmt.Sprintf("class_%d_%d_%d_%d_%d_%d", st, t, s, int(level), d, sh))
						vs.classes[key] = v
						idx := len(vs.classKeys)
						vs.classKeys = append(vs.classKeys, key)
						vs.classVars = append(vs.classVars, v)

						ts := vs.teacherSlotOffset(t, s, level, d, sh)
						vs.byTeacherSlot[ts] = append(vs.byTeacherSlot[ts], idx)
						ss := vs.studentSlotOffset(st, d, sh)
						vs.byStudentSlot[ss] = append(vs.byStudentSlot[ss], idx)
						sc := vs.studentSubjectOffset(st, s, d, sh)
						vs.byStudentSubject[sc] = append(vs.byStudentSubject[sc], idx)
						slot := d*vs.numShift + sh
						vs.bySlot[slot] = append(vs.bySlot[slot], idx)
						vs.byStudent[st] = append(vs.byStudent[st], idx)
					}
				}
			}
		}
	}

	vs.createAuxVars(m)
	return vs
}

func newDense(n int) []cpmodel.BoolVar {
	out := make([]cpmodel.BoolVar, n)
	for i := range out {
		out[i] = NoVar
	}
	return out
}

// createAuxVars 只为至少关联一个上课变量的组合创建辅助变量
func (vs *VarSpace) createAuxVars(m *cpmodel.Model) {
	for t := 0; t < vs.numTeacher; t++ {
		for s := 0; s < vs.numSubject; s++ {
			for _, level := range model.AllLevels() {
				for d := 0; d < vs.numDay; d++ {
					for sh := 0; sh < vs.numShift; sh++ {
						off := vs.teacherSlotOffset(t, s, level, d, sh)
						if len(vs.byTeacherSlot[off]) == 0 {
							continue
						}
						vs.teacherSlot[off] = m.NewBoolVar(fmt.Sprintf("teacher_slot_%d_%d_%d_%d_%d", t, s, int(level), d, sh))
						shiftOff := vs.teacherShiftOffset(t, d, sh)
						if vs.teacherShift[shiftOff] == NoVar {
							vs.teacherShift[shiftOff] = m.NewBoolVar(fmt.Sprintf("teacher_shift_%d_%d_%d", t, d, sh))
						}
					}
				}
			}
		}
	}

	for st := 0; st < vs.numStudent; st++ {
		for d := 0; d < vs.numDay; d++ {
			for sh := 0; sh < vs.numShift; sh++ {
				off := vs.studentSlotOffset(st, d, sh)
				if len(vs.byStudentSlot[off]) > 0 {
					vs.studentSlot[off] = m.NewBoolVar(fmt.Sprintf("student_slot_%d_%d_%d", st, d, sh))
				}
				for s := 0; s < vs.numSubject; s++ {
					so := vs.studentSubjectOffset(st, s, d, sh)
					if len(vs.byStudentSubject[so]) > 0 {
						vs.studentSubject[so] = m.NewBoolVar(fmt.Sprintf("student_subject_%d_%d_%d_%d", st, s, d, sh))
					}
				}
			}
			for sh := 0; sh+1 < vs.numShift; sh++ {
				if vs.StudentSlot(st, d, sh) != NoVar && vs.StudentSlot(st, d, sh+1) != NoVar {
					vs.continuity[vs.studentSlotOffset(st, d, sh)] = m.NewBoolVar(fmt.Sprintf("continuity_%d_%d_%d", st, d, sh))
				}
			}
		}
	}
}

func (vs *VarSpace) teacherSlotOffset(t, s int, level model.Level, d, sh int) int {
	return (((t*vs.numSubject+s)*model.NumLevel+level.Index())*vs.numDay+d)*vs.numShift + sh
}

func (vs *VarSpace) teacherShiftOffset(t, d, sh int) int {
	return (t*vs.numDay+d)*vs.numShift + sh
}

func (vs *VarSpace) studentSlotOffset(st, d, sh int) int {
	return (st*vs.numDay+d)*vs.numShift + sh
}

func (vs *VarSpace) studentSubjectOffset(st, s, d, sh int) int {
	return ((st*vs.numSubject+s)*vs.numDay+d)*vs.numShift + sh
}

// NumClasses 上课变量数
func (vs *VarSpace) NumClasses() int { return len(vs.classKeys) }

// Class 查找上课变量
func (vs *VarSpace) Class(key ClassKey) (cpmodel.BoolVar, bool) {
	v, ok := vs.classes[key]
	return v, ok
}

// ClassKeys 按创建顺序返回全部上课变量下标
func (vs *VarSpace) ClassKeys() []ClassKey { return vs.classKeys }

// ClassVar 第 i 个上课变量
func (vs *VarSpace) ClassVar(i int) cpmodel.BoolVar { return vs.classVars[i] }

// TeacherSlot 教师在某时段开设某科目某学段的课
func (vs *VarSpace) TeacherSlot(t, s int, level model.Level, d, sh int) cpmodel.BoolVar {
	if !level.Valid() {
		return NoVar
	}
	return vs.teacherSlot[vs.teacherSlotOffset(t, s, level, d, sh)]
}

// TeacherShift 教师在某时段有课
func (vs *VarSpace) TeacherShift(t, d, sh int) cpmodel.BoolVar {
	return vs.teacherShift[vs.teacherShiftOffset(t, d, sh)]
}

// StudentSlot 学生在某时段有课
func (vs *VarSpace) StudentSlot(st, d, sh int) cpmodel.BoolVar {
	return vs.studentSlot[vs.studentSlotOffset(st, d, sh)]
}

// StudentSubject 学生在某时段上某科目
func (vs *VarSpace) StudentSubject(st, s, d, sh int) cpmodel.BoolVar {
	return vs.studentSubject[vs.studentSubjectOffset(st, s, d, sh)]
}

// Continuity 学生在 sh 与 sh+1 连续有课
func (vs *VarSpace) Continuity(st, d, sh int) cpmodel.BoolVar {
	if sh+1 >= vs.numShift {
		return NoVar
	}
	return vs.continuity[vs.studentSlotOffset(st, d, sh)]
}

func (vs *VarSpace) collect(idx []int) []cpmodel.BoolVar {
	out := make([]cpmodel.BoolVar, len(idx))
	for i, k := range idx {
		out[i] = vs.classVars[k]
	}
	return out
}

// TeacherSlotClasses 某教师班级（科目、学段、时间格）中的上课变量
func (vs *VarSpace) TeacherSlotClasses(t, s int, level model.Level, d, sh int) []cpmodel.BoolVar {
	if !level.Valid() {
		return nil
	}
	return vs.collect(vs.byTeacherSlot[vs.teacherSlotOffset(t, s, level, d, sh)])
}

// StudentSlotClasses 学生在某时间格的全部上课变量
func (vs *VarSpace) StudentSlotClasses(st, d, sh int) []cpmodel.BoolVar {
	return vs.collect(vs.byStudentSlot[vs.studentSlotOffset(st, d, sh)])
}

// StudentSubjectClasses 学生在某时间格某科目的上课变量（不同教师）
func (vs *VarSpace) StudentSubjectClasses(st, s, d, sh int) []cpmodel.BoolVar {
	return vs.collect(vs.byStudentSubject[vs.studentSubjectOffset(st, s, d, sh)])
}

// SlotClasses 某时间格的全部上课变量
func (vs *VarSpace) SlotClasses(d, sh int) []cpmodel.BoolVar {
	return vs.collect(vs.bySlot[d*vs.numShift+sh])
}

// StudentClasses 学生的全部上课变量下标（按创建顺序）
func (vs *VarSpace) StudentClasses(st int) []int {
	return vs.byStudent[st]
}

// AuxVars 返回全部已创建的辅助变量数量
func (vs *VarSpace) AuxVars() int {
	n := 0
	for _, group := range [][]cpmodel.BoolVar{vs.teacherSlot, vs.teacherShift, vs.studentSlot, vs.studentSubject, vs.continuity} {
		for _, v := range group {
			if v != NoVar {
				n++
			}
		}
	}
	return n
}

// Dims 返回变量空间维度
func (vs *VarSpace) Dims() (students, teachers, subjects, days, shifts int) {
	return vs.numStudent, vs.numTeacher, vs.numSubject, vs.numDay, vs.numShift
}
