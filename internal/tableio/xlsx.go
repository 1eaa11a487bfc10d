package tableio

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/model"
)

// 工作表名称
const (
	SheetResults = "排课结果"
	SheetGrid    = "课表"
)

var resultHeaders = []string{
	"天", "时段", "科目", "学段", "学生", "学生编号", "教师", "教师编号",
	"黄金时段", "实际科目", "课时类型", "首选教师",
}

// WriteWorkbook 导出排课结果工作簿：明细表与天 × 时段课表
func WriteWorkbook(out io.Writer, rows []model.ResultRow, days, shifts int) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetResults)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "创建工作表失败")
	}
	f.SetActiveSheet(idx)
	if _, err := f.NewSheet(SheetGrid); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "创建工作表失败")
	}
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	if err := writeResultSheet(f, rows, headerStyle); err != nil {
		return err
	}
	if err := writeGridSheet(f, rows, days, shifts, headerStyle, wrapStyle); err != nil {
		return err
	}

	if err := f.Write(out); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入工作簿失败")
	}
	return nil
}

// SaveWorkbook 将工作簿写入文件
func SaveWorkbook(path string, rows []model.ResultRow, days, shifts int) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "创建工作簿文件失败").WithField("path", path)
	}
	if err := WriteWorkbook(file, rows, days, shifts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeResultSheet(f *excelize.File, rows []model.ResultRow, headerStyle int) error {
	header := make([]interface{}, len(resultHeaders))
	for i, h := range resultHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetResults, "A1", &header); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入表头失败")
	}
	last := colName(len(resultHeaders) - 1)
	f.SetCellStyle(SheetResults, "A1", cell(last, 1), headerStyle)
	f.SetColWidth(SheetResults, "A", last, 12)

	for i, r := range rows {
		values := []interface{}{
			r.Day, r.Shift, r.Subject, r.Level.String(), r.Student, r.StudentID, r.Teacher, r.TeacherID,
			yesNo(r.IsPrimarySlot), r.ActualSubject, string(r.SlotType), yesNo(r.IsPrefer),
		}
		if err := f.SetSheetRow(SheetResults, cell("A", i+2), &values); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "写入结果行失败")
		}
	}
	return nil
}

// writeGridSheet 行为时段、列为天；每格列出该时间格的班级
func writeGridSheet(f *excelize.File, rows []model.ResultRow, days, shifts int, headerStyle, wrapStyle int) error {
	type classKey struct {
		teacher string
		subject string
		level   model.Level
	}
	grid := make(map[model.Slot]map[classKey]int)
	for _, r := range rows {
		if r.Day < 0 || r.Day >= days || r.Shift < 0 || r.Shift >= shifts {
			continue
		}
		subject := r.ActualSubject
		if subject == "" || r.IsMerged() {
			subject = r.Subject
		}
		teacher := r.TeacherID
		if teacher == "" {
			teacher = fmt.Sprintf("#%d", r.Teacher)
		}
		if grid[r.Slot()] == nil {
			grid[r.Slot()] = make(map[classKey]int)
		}
		grid[r.Slot()][classKey{teacher, subject, r.Level}]++
	}

	f.SetCellValue(SheetGrid, "A1", "时段 \\ 天")
	for d := 0; d < days; d++ {
		f.SetCellValue(SheetGrid, cell(colName(d+1), 1), fmt.Sprintf("第%d天", d+1))
	}
	f.SetCellStyle(SheetGrid, "A1", cell(colName(days), 1), headerStyle)
	f.SetColWidth(SheetGrid, "B", colName(days), 28)

	for sh := 0; sh < shifts; sh++ {
		row := sh + 2
		f.SetCellValue(SheetGrid, cell("A", row), fmt.Sprintf("第%d节", sh+1))
		for d := 0; d < days; d++ {
			classes := grid[model.Slot{Day: d, Shift: sh}]
			if len(classes) == 0 {
				f.SetCellValue(SheetGrid, cell(colName(d+1), row), "-")
				continue
			}
			lines := make([]string, 0, len(classes))
			for k, n := range classes {
				lines = append(lines, fmt.Sprintf("%s %s/%s ×%d", k.teacher, k.subject, k.level, n))
			}
			sort.Strings(lines)
			f.SetCellValue(SheetGrid, cell(colName(d+1), row), strings.Join(lines, "\n"))
			f.SetCellStyle(SheetGrid, cell(colName(d+1), row), cell(colName(d+1), row), wrapStyle)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
