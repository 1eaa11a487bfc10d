// Package postprocess 为排课结果确定实际科目、课时类型与偏好标记
package postprocess

import (
	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/model"
)

// Quotas 每名学生各基础科目的剩余课时
type Quotas struct {
	Seasonal [][]int // [student][base]
	Regular  [][]int // [student][base]，含缺课补偿
}

// QuotasFromTables 从派生表复制剩余课时
func QuotasFromTables(tb *derive.Tables) Quotas {
	return Quotas{
		Seasonal: clone2D(tb.Seasonal),
		Regular:  clone2D(tb.Regular),
	}
}

func clone2D(src [][]int) [][]int {
	out := make([][]int, len(src))
	for i, row := range src {
		out[i] = append([]int(nil), row...)
	}
	return out
}

func (q Quotas) get(pool [][]int, st, b int) int {
	if st < 0 || st >= len(pool) || b < 0 || b >= len(pool[st]) {
		return 0
	}
	return pool[st][b]
}

// Report 后处理统计
type Report struct {
	Rows        int   `json:"rows"`
	Merged      int   `json:"merged"`
	Invalid     int   `json:"invalid"`
	Seasonal    int   `json:"seasonal"`
	Regular     int   `json:"regular"`
	Preferred   int   `json:"preferred"`
	InvalidRows []int `json:"invalid_rows,omitempty"` // 排序后的行下标
}

// Processor 结果后处理器
type Processor struct {
	catalog    *model.SubjectCatalog
	preference [][]bool
	logger     *logger.SchedulerLogger
}

// NewProcessor 创建后处理器
func NewProcessor(catalog *model.SubjectCatalog, preference [][]bool) *Processor {
	return &Processor{
		catalog:    catalog,
		preference: preference,
		logger:     logger.NewSchedulerLogger(),
	}
}

// Process 规范排序后依次解析合并科目、标记课时类型与偏好；不修改入参
func (p *Processor) Process(rows []model.ResultRow, quotas Quotas) ([]model.ResultRow, *Report) {
	out := make([]model.ResultRow, len(rows))
	copy(out, rows)
	model.SortRows(out)

	report := &Report{Rows: len(out)}
	remaining := make([][]int, len(quotas.Seasonal))
	for st := range remaining {
		remaining[st] = make([]int, len(quotas.Seasonal[st]))
		for b := range remaining[st] {
			remaining[st][b] = quotas.get(quotas.Seasonal, st, b) + quotas.get(quotas.Regular, st, b)
		}
	}

	// 第一遍：单科目直接计数
	for i := range out {
		row := &out[i]
		if row.IsMerged() {
			continue
		}
		row.ActualSubject = row.Subject
		if b, ok := p.catalog.Lookup(row.Subject); ok && b < p.catalog.NumBase() {
			decrement(remaining, row.Student, b)
		}
	}

	// 第二遍：合并科目取剩余课时最少（且为正）的成员
	for i := range out {
		row := &out[i]
		if !row.IsMerged() {
			continue
		}
		report.Merged++
		b := p.resolve(remaining, row)
		if b < 0 {
			row.ActualSubject = model.InvalidSubject
			row.SlotType = model.SlotTypeInvalid
			report.Invalid++
			report.InvalidRows = append(report.InvalidRows, i)
			p.logger.InvalidMergedRow(row.Student, row.Subject, row.Day, row.Shift)
			continue
		}
		row.ActualSubject = p.catalog.Get(b).Name
		decrement(remaining, row.Student, b)
	}

	// 课时类型：先消耗季节性课时
	seasonal := clone2D(quotas.Seasonal)
	for i := range out {
		row := &out[i]
		if row.IsInvalid() {
			continue
		}
		b, ok := p.catalog.Lookup(row.ActualSubject)
		if ok && row.Student < len(seasonal) && b < len(seasonal[row.Student]) && seasonal[row.Student][b] > 0 {
			seasonal[row.Student][b]--
			row.SlotType = model.SlotTypeSeasonal
			report.Seasonal++
		} else {
			row.SlotType = model.SlotTypeRegular
			report.Regular++
		}
	}

	for i := range out {
		row := &out[i]
		row.IsPrefer = p.preferred(row.Student, row.Teacher)
		if row.IsPrefer {
			report.Preferred++
		}
	}

	return out, report
}

// resolve 返回选中的基础科目下标；全部成员都已耗尽时返回 -1
func (p *Processor) resolve(remaining [][]int, row *model.ResultRow) int {
	idx, ok := p.catalog.Lookup(row.Subject)
	if !ok || row.Student < 0 || row.Student >= len(remaining) {
		return -1
	}
	best, bestLeft := -1, 0
	for _, b := range p.catalog.Get(idx).Parts {
		left := remaining[row.Student][b]
		if left <= 0 {
			continue
		}
		if best < 0 || left < bestLeft {
			best, bestLeft = b, left
		}
	}
	return best
}

func (p *Processor) preferred(st, t int) bool {
	if st < 0 || st >= len(p.preference) || t < 0 || t >= len(p.preference[st]) {
		return false
	}
	return p.preference[st][t]
}

func decrement(remaining [][]int, st, b int) {
	if st >= 0 && st < len(remaining) && b < len(remaining[st]) {
		remaining[st][b]--
	}
}

// Process 使用派生表完成后处理
func Process(tb *derive.Tables, rows []model.ResultRow) ([]model.ResultRow, *Report) {
	return NewProcessor(tb.Catalog, tb.Preference).Process(rows, QuotasFromTables(tb))
}
