package tableio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/model"
)

const studentsCSV = `student_id,name,grade,subjects,seasonal_slots,regular_slots,available_slots,preferred_teacher,absent_subject,absent_slots
S1,Alice,8,math|english,math:1,math:2|english:1,0-0|0-1,T1,,
S2,Bob,,math,,math:,1-2,,math,2
`

const teachersCSV = `teacher_id,name,teachable,available_slots
T1,Tom,"math:2,3|english:middle",0-0|0-1|1-2
T2,Ann,,
`

func TestReadStudents(t *testing.T) {
	students, err := ReadStudents(strings.NewReader(studentsCSV))
	require.NoError(t, err)
	require.Len(t, students, 2)

	s1 := students[0]
	assert.Equal(t, "S1", s1.ID)
	assert.Equal(t, model.Count(8), s1.Grade)
	assert.Equal(t, model.SubjectList{"math", "english"}, s1.Subjects)
	assert.Equal(t, 1, s1.SeasonalSlots.Get("math"))
	assert.Equal(t, 2, s1.RegularSlots.Get("math"))
	assert.Equal(t, 1, s1.RegularSlots.Get("english"))
	assert.Equal(t, model.SlotList{{Day: 0, Shift: 0}, {Day: 0, Shift: 1}}, s1.AvailableSlots)
	assert.Equal(t, "T1", s1.PreferredTeacher)

	// 空的数值单元格按 0 处理
	s2 := students[1]
	assert.Equal(t, model.Count(0), s2.Grade)
	assert.Equal(t, 0, s2.RegularSlots.Get("math"))
	assert.Equal(t, "math", s2.AbsentSubject)
	assert.Equal(t, model.Count(2), s2.AbsentSlots)
}

func TestReadTeachers(t *testing.T) {
	teachers, err := ReadTeachers(strings.NewReader(teachersCSV))
	require.NoError(t, err)
	require.Len(t, teachers, 2)

	t1 := teachers[0]
	assert.True(t, t1.Teachable.Can("math", model.LevelMiddle))
	assert.True(t, t1.Teachable.Can("math", model.LevelHigh))
	assert.True(t, t1.Teachable.Can("english", model.LevelMiddle))
	assert.False(t, t1.Teachable.Can("english", model.LevelHigh))
	assert.Len(t, t1.AvailableSlots, 3)

	assert.Empty(t, teachers[1].Teachable)
	assert.Empty(t, teachers[1].AvailableSlots)
}

func TestReadTeachers_Malformed(t *testing.T) {
	_, err := ReadTeachers(strings.NewReader("teacher_id,teachable,available_slots\nT1,math:9,0-0\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestLoadStudents_MissingFile(t *testing.T) {
	_, err := LoadStudents(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func sampleRows() []model.ResultRow {
	return []model.ResultRow{
		{
			Day: 0, Shift: 1, Subject: "english+math", Level: model.LevelMiddle, Student: 0, Teacher: 0,
			IsPrimarySlot: true, ActualSubject: "math", SlotType: model.SlotTypeSeasonal, IsPrefer: true,
			StudentID: "S1", TeacherID: "T1",
		},
		{
			Day: 1, Shift: 2, Subject: "math", Level: model.LevelMiddle, Student: 1, Teacher: 0,
			ActualSubject: "math", SlotType: model.SlotTypeRegular, StudentID: "S2", TeacherID: "T1",
		},
	}
}

func TestWriteResults_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, sampleRows()))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "day,shift,subject,level,student,teacher,is_primary_slot,actual_subject,slot_type,is_prefer,student_id,teacher_id", header)

	rows, err := ReadResults(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

func TestWriteResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "day,shift,"))
}

func TestSaveResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")
	require.NoError(t, SaveResults(path, sampleRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "english+math")
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleRows(), 2, 3))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetResults, SheetGrid}, f.GetSheetList())

	v, err := f.GetCellValue(SheetResults, "J2")
	require.NoError(t, err)
	assert.Equal(t, "math", v)
	v, _ = f.GetCellValue(SheetResults, "F3")
	assert.Equal(t, "S2", v)

	// 第 1 天第 2 节：合并科目格子显示合并名
	v, _ = f.GetCellValue(SheetGrid, "B3")
	assert.Equal(t, "T1 english+math/middle ×1", v)
	v, _ = f.GetCellValue(SheetGrid, "C4")
	assert.Equal(t, "T1 math/middle ×1", v)
	v, _ = f.GetCellValue(SheetGrid, "B2")
	assert.Equal(t, "-", v)
}
