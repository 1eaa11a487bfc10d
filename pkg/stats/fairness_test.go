package stats

import (
	"testing"
)

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	tb, rows := createTestData(t)
	analyzer := NewFairnessAnalyzer()

	metrics := analyzer.Analyze(tb, rows)

	if metrics == nil {
		t.Fatal("Metrics should not be nil")
	}
	if len(metrics.TeacherStats) != 2 {
		t.Fatalf("Expected 2 teacher stats, got %d", len(metrics.TeacherStats))
	}

	// T1 在 (0,0) 与 (1,0) 两个时段上课，(0,0) 有两名学生
	t1 := metrics.TeacherStats[0]
	if t1.TeacherID != "T1" || t1.Shifts != 2 || t1.Students != 3 || t1.Classes != 2 {
		t.Errorf("Unexpected T1 stat: %+v", t1)
	}
	t2 := metrics.TeacherStats[1]
	if t2.Shifts != 1 || t2.Students != 1 {
		t.Errorf("Unexpected T2 stat: %+v", t2)
	}

	if !almostEqual(metrics.AvgShiftsPerHead, 1.5) {
		t.Errorf("Expected avg 1.5, got %f", metrics.AvgShiftsPerHead)
	}
	if metrics.ShiftsRange != 1 {
		t.Errorf("Expected range 1, got %f", metrics.ShiftsRange)
	}
	if !almostEqual(metrics.LoadGini, 1.0/6) {
		t.Errorf("Expected load gini 1/6, got %f", metrics.LoadGini)
	}
	// 无效行不计入覆盖：S1 = 1.0, S2 = 0.5
	if !almostEqual(metrics.StudentFillGini, 1.0/6) {
		t.Errorf("Expected fill gini 1/6, got %f", metrics.StudentFillGini)
	}
	if !almostEqual(t1.Deviation, 100.0/3) {
		t.Errorf("Expected T1 deviation 33.3%%, got %f", t1.Deviation)
	}

	if metrics.OverallFairnessScore < 0 || metrics.OverallFairnessScore > 100 {
		t.Errorf("Fairness score should be between 0 and 100, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_NoTeachers(t *testing.T) {
	metrics := NewFairnessAnalyzer().Analyze(nil, nil)
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Expected score 100, got %f", metrics.OverallFairnessScore)
	}
}

func TestCalculateGini(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"完全平等", []float64{10, 10, 10, 10}, 0},
		{"集中在一人", []float64{0, 0, 0, 10}, 0.75},
		{"空", nil, 0},
		{"全零", []float64{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gini := analyzer.calculateGini(tt.values)
			if !almostEqual(gini, tt.expected) {
				t.Errorf("Expected Gini %f, got %f", tt.expected, gini)
			}
		})
	}
}
