package stats

import (
	"math"
	"sort"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
)

// FairnessMetrics 教师负载公平性指标
type FairnessMetrics struct {
	// 在岗时段公平性
	LoadGini         float64 `json:"load_gini"`          // 在岗时段基尼系数 (0=完全公平, 1=完全不公平)
	LoadVariance     float64 `json:"load_variance"`      // 在岗时段方差
	LoadStdDev       float64 `json:"load_std_dev"`       // 在岗时段标准差
	AvgShiftsPerHead float64 `json:"avg_shifts_per_head"` // 人均在岗时段
	MaxShifts        float64 `json:"max_shifts"`
	MinShifts        float64 `json:"min_shifts"`
	ShiftsRange      float64 `json:"shifts_range"`

	// 学生覆盖公平性（已排/登记）
	StudentFillGini float64 `json:"student_fill_gini"`

	TeacherStats []TeacherStat `json:"teacher_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 0-100
}

// TeacherStat 教师统计
type TeacherStat struct {
	Teacher   int     `json:"teacher"`
	TeacherID string  `json:"teacher_id"`
	Shifts    int     `json:"shifts"`   // 在岗时段数
	Students  int     `json:"students"` // 授课人次
	Classes   int     `json:"classes"`  // 班数（教师、科目、学段、时间格）
	Deviation float64 `json:"deviation"` // 与平均在岗时段的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析教师负载与学生覆盖的公平性
func (f *FairnessAnalyzer) Analyze(tb *derive.Tables, rows []model.ResultRow) *FairnessMetrics {
	if tb == nil || tb.NumTeacher == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	teacherStats := f.calculateTeacherStats(tb, rows)

	shifts := make([]float64, len(teacherStats))
	for i, s := range teacherStats {
		shifts[i] = float64(s.Shifts)
	}
	avg := f.calculateMean(shifts)
	variance := f.calculateVariance(shifts, avg)
	stdDev := math.Sqrt(variance)
	maxShifts, minShifts := f.calculateRange(shifts)

	for i := range teacherStats {
		if avg > 0 {
			teacherStats[i].Deviation = (float64(teacherStats[i].Shifts) - avg) / avg * 100
		}
	}

	// 学生覆盖率
	scheduled := make([]int, tb.NumStudent)
	for _, r := range rows {
		if !r.IsInvalid() && r.Student >= 0 && r.Student < tb.NumStudent {
			scheduled[r.Student]++
		}
	}
	var fill []float64
	for st := 0; st < tb.NumStudent; st++ {
		if tb.TotalQuota[st] > 0 {
			fill = append(fill, math.Min(1, float64(scheduled[st])/float64(tb.TotalQuota[st])))
		}
	}

	loadGini := f.calculateGini(shifts)
	fillGini := f.calculateGini(fill)

	return &FairnessMetrics{
		LoadGini:             loadGini,
		LoadVariance:         variance,
		LoadStdDev:           stdDev,
		AvgShiftsPerHead:     avg,
		MaxShifts:            maxShifts,
		MinShifts:            minShifts,
		ShiftsRange:          maxShifts - minShifts,
		StudentFillGini:      fillGini,
		TeacherStats:         teacherStats,
		OverallFairnessScore: f.calculateOverallScore(loadGini, fillGini, stdDev, avg),
	}
}

// calculateTeacherStats 计算每名教师的统计数据
func (f *FairnessAnalyzer) calculateTeacherStats(tb *derive.Tables, rows []model.ResultRow) []TeacherStat {
	type class struct {
		subject    string
		level      model.Level
		day, shift int
	}
	shiftSets := make([]map[model.Slot]bool, tb.NumTeacher)
	classSets := make([]map[class]bool, tb.NumTeacher)
	stats := make([]TeacherStat, tb.NumTeacher)
	for t := range stats {
		stats[t] = TeacherStat{Teacher: t, TeacherID: tb.TeacherIDs[t]}
		shiftSets[t] = make(map[model.Slot]bool)
		classSets[t] = make(map[class]bool)
	}
	for _, r := range rows {
		if r.Teacher < 0 || r.Teacher >= tb.NumTeacher {
			continue
		}
		stats[r.Teacher].Students++
		shiftSets[r.Teacher][r.Slot()] = true
		classSets[r.Teacher][class{r.Subject, r.Level, r.Day, r.Shift}] = true
	}
	for t := range stats {
		stats[t].Shifts = len(shiftSets[t])
		stats[t].Classes = len(classSets[t])
	}
	return stats
}

// calculateMean 计算平均值
func (f *FairnessAnalyzer) calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func (f *FairnessAnalyzer) calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func (f *FairnessAnalyzer) calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func (f *FairnessAnalyzer) calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// calculateOverallScore 综合评分：负载基尼占 50%，覆盖基尼占 30%，变异系数占 20%
func (f *FairnessAnalyzer) calculateOverallScore(loadGini, fillGini, stdDev, avg float64) float64 {
	cv := 0.0
	if avg > 0 {
		cv = math.Min(1, stdDev/avg)
	}
	score := 100 - (loadGini*50 + fillGini*30 + cv*20)
	return math.Max(0, math.Min(100, score))
}
