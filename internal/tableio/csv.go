// Package tableio 读写名册与排课结果表
package tableio

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/model"
)

// newReader 容忍缺列与前导空格；空的数值单元格由自定义类型按 0 处理
func newReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r
}

// ReadStudents 解析学生名册，行号即学生下标（0 起）
func ReadStudents(in io.Reader) ([]model.StudentRecord, error) {
	var students []model.StudentRecord
	if err := gocsv.UnmarshalCSV(newReader(in), &students); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析学生名册失败")
	}
	for i := range students {
		students[i].ID = strings.TrimSpace(students[i].ID)
	}
	return students, nil
}

// ReadTeachers 解析教师名册，行号即教师下标（0 起）
func ReadTeachers(in io.Reader) ([]model.TeacherRecord, error) {
	var teachers []model.TeacherRecord
	if err := gocsv.UnmarshalCSV(newReader(in), &teachers); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析教师名册失败")
	}
	for i := range teachers {
		teachers[i].ID = strings.TrimSpace(teachers[i].ID)
	}
	return teachers, nil
}

// LoadStudents 从文件读取学生名册
func LoadStudents(path string) ([]model.StudentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "打开学生名册失败").WithField("path", path)
	}
	defer f.Close()
	return ReadStudents(f)
}

// LoadTeachers 从文件读取教师名册
func LoadTeachers(path string) ([]model.TeacherRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "打开教师名册失败").WithField("path", path)
	}
	defer f.Close()
	return ReadTeachers(f)
}

// WriteResults 输出排课结果表（含表头）
func WriteResults(out io.Writer, rows []model.ResultRow) error {
	if rows == nil {
		rows = []model.ResultRow{}
	}
	if err := gocsv.Marshal(&rows, out); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入排课结果失败")
	}
	return nil
}

// SaveResults 将排课结果写入文件
func SaveResults(path string, rows []model.ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "创建结果文件失败").WithField("path", path)
	}
	if err := WriteResults(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadResults 解析排课结果表
func ReadResults(in io.Reader) ([]model.ResultRow, error) {
	var rows []model.ResultRow
	if err := gocsv.UnmarshalCSV(newReader(in), &rows); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析排课结果失败")
	}
	return rows, nil
}
