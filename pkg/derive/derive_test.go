package derive

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/paike/pkg/model"
)

func TestGradeToLevel(t *testing.T) {
	tests := []struct {
		name     string
		grade    int
		expected model.Level
	}{
		{"五年级是小学", 5, model.LevelElementary},
		{"六年级是初中", 6, model.LevelMiddle},
		{"九年级是初中", 9, model.LevelMiddle},
		{"十年级是高中", 10, model.LevelHigh},
		{"十一年级是高中", 11, model.LevelHigh},
		{"十二年级是毕业班", 12, model.LevelSeniorHigh},
		{"零年级无效", 0, model.LevelNone},
		{"十三年级无效", 13, model.LevelNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GradeToLevel(tt.grade))
		})
	}

	for grade := 1; grade <= 12; grade++ {
		assert.True(t, GradeToLevel(grade).Valid(), "grade %d must map to a level", grade)
	}
}

func TestStudentAvailability_Whitelist(t *testing.T) {
	settings := model.DefaultSettings()
	settings.NumDay = 2
	settings.NumShift = 3
	settings.AllowedShifts = map[model.Level][]int{model.LevelElementary: {0}}

	slots := []model.Slot{{Day: 0, Shift: 0}, {Day: 0, Shift: 2}, {Day: 1, Shift: 1}, {Day: 9, Shift: 0}}

	elem := StudentAvailability(settings, model.LevelElementary, slots)
	assert.True(t, elem.Get(0, 0))
	assert.False(t, elem.Get(0, 2), "shift 2 is not allowed for elementary")
	assert.Equal(t, 1, elem.Count())

	high := StudentAvailability(settings, model.LevelHigh, slots)
	assert.Equal(t, 3, high.Count())
	assert.Equal(t, 2, high.DaysWithAny())

	none := StudentAvailability(settings, model.LevelNone, slots)
	assert.Equal(t, 0, none.Count())
}

func TestPrimaryTime(t *testing.T) {
	settings := model.DefaultSettings()
	settings.NumDay = 5
	settings.NumShift = 4

	g := PrimaryTime(settings)
	// 前 4 天取前 3 个时段，第 5 天取前 2 个时段
	assert.Equal(t, 14, g.Count())
	assert.True(t, g.Get(3, 2))
	assert.False(t, g.Get(3, 3))
	assert.True(t, g.Get(4, 1))
	assert.False(t, g.Get(4, 2))

	settings.NumDay = 1
	settings.NumShift = 1
	assert.Equal(t, 0, PrimaryTime(settings).Count())
}

func TestQuotaLimits(t *testing.T) {
	assert.Equal(t, 9, PrimaryQuota(10, 0.9))
	assert.Equal(t, 0, PrimaryQuota(1, 0.9))
	assert.Equal(t, 2, PrimaryQuota(3, 0.9))

	assert.Equal(t, 3, DailyLimit(5, 2))
	assert.Equal(t, 1, DailyLimit(0, 3))
	assert.Equal(t, 0, DailyLimit(5, 0))
}

func TestLCM(t *testing.T) {
	assert.Equal(t, 1, LCM())
	assert.Equal(t, 1, LCM(1))
	assert.Equal(t, 6, LCM(1, 2, 3))
	assert.Equal(t, 4, LCM(2, 4))
	assert.Equal(t, 12, LCM(4, 6))
}

func baseCatalog(t *testing.T) *model.SubjectCatalog {
	t.Helper()
	c, err := model.NewSubjectCatalog([]model.SubjectSpec{
		{Name: "math", Ratio: 4},
		{Name: "english", Ratio: 4},
		{Name: "literature", Ratio: 4},
		{Name: "science", Ratio: 6},
	})
	require.NoError(t, err)
	return c
}

func TestBuildMergedCatalog(t *testing.T) {
	base := baseCatalog(t)
	teachable := [][]int{
		{0, 1, 2, 3}, // math, english, literature, science
		{1, 0},       // 与第一位教师重复的组合
		{3},
	}

	once, err := BuildMergedCatalog(base, teachable)
	require.NoError(t, err)

	expected := []string{
		"math", "english", "literature", "science",
		"english+literature", "english+literature+math", "english+math", "literature+math",
	}
	if diff := cmp.Diff(expected, once.Names()); diff != "" {
		t.Errorf("catalog names mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, base.Len(), "base catalog must not be modified")

	merged := once.Get(5)
	assert.Equal(t, []int{0, 1, 2}, merged.Parts)
	assert.Equal(t, 4, merged.Ratio)

	twice, err := BuildMergedCatalog(once, teachable)
	require.NoError(t, err)
	if diff := cmp.Diff(once.Subjects(), twice.Subjects()); diff != "" {
		t.Errorf("building twice changed the catalog (-once +twice):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	settings := model.DefaultSettings()
	settings.NumDay = 2
	settings.NumShift = 2
	settings.Subjects = []model.SubjectSpec{
		{Name: "math", Ratio: 2},
		{Name: "english", Ratio: 2},
	}

	teachers := []model.TeacherRecord{
		{
			ID:             "T1",
			Teachable:      model.Teachable{"math": {model.LevelMiddle}, "english": {model.LevelMiddle, model.LevelHigh}},
			AvailableSlots: model.SlotList{{Day: 0, Shift: 0}, {Day: 1, Shift: 1}},
		},
		{
			ID:             "T2",
			Teachable:      model.Teachable{"english": {model.LevelHigh}, "art": {model.LevelHigh}},
			AvailableSlots: model.SlotList{{Day: 0, Shift: 1}},
		},
	}
	students := []model.StudentRecord{
		{
			ID:               "S1",
			Grade:            8,
			Subjects:         model.SubjectList{"math"},
			SeasonalSlots:    model.SlotCounts{"math": 1},
			RegularSlots:     model.SlotCounts{"math": 1, "english": 1},
			AvailableSlots:   model.SlotList{{Day: 0, Shift: 0}, {Day: 1, Shift: 1}},
			PreferredTeacher: "T1",
			AbsentSubject:    "english",
			AbsentSlots:      2,
		},
		{
			ID:               "S2",
			Grade:            14,
			Subjects:         model.SubjectList{"english"},
			PreferredTeacher: "T9",
		},
	}

	tb, err := Build(settings, students, teachers)
	require.NoError(t, err)

	assert.Equal(t, []string{"math", "english", "english+math"}, tb.Catalog.Names())
	assert.Equal(t, []model.Level{model.LevelMiddle, model.LevelNone}, tb.Levels)

	// 课时：缺课补偿计入常规课时
	assert.Equal(t, []int{1, 0}, tb.Seasonal[0])
	assert.Equal(t, []int{1, 3}, tb.Regular[0])
	assert.Equal(t, []int{2, 3}, tb.Quota[0])
	assert.Equal(t, 5, tb.TotalQuota[0])
	assert.Equal(t, 2, tb.AvailableDays[0])

	// 兴趣与有效合并数
	assert.Equal(t, []bool{true, true, true}, tb.Interest[0])
	assert.Equal(t, []int{1, 1, 2}, tb.Multiplicity[0])
	assert.Equal(t, []bool{false, true, true}, tb.Interest[1])

	// 合并科目要求每个成员都可授
	mergedIdx := 2
	assert.True(t, tb.Cert[0][mergedIdx][model.LevelMiddle.Index()])
	assert.False(t, tb.Cert[0][mergedIdx][model.LevelHigh.Index()])
	assert.False(t, tb.Cert[1][mergedIdx][model.LevelHigh.Index()])

	assert.Equal(t, []bool{true, false}, tb.Preference[0])
	assert.Equal(t, []bool{false, false}, tb.Preference[1])

	assert.True(t, tb.Eligible(0, 0, 0, 0, 0))
	assert.False(t, tb.Eligible(0, 1, 1, 0, 1), "T2 is not certified for middle school")
	assert.False(t, tb.Eligible(1, 0, 1, 0, 0), "invalid level is never eligible")

	assert.Equal(t, []int{0, 2}, tb.Satisfying(0, 0))
	assert.Equal(t, []int{1, 2}, tb.Satisfying(0, 1))

	assert.Len(t, tb.Warnings, 3) // 未知科目 art、无效年级、不存在的首选教师
}

func TestBuild_InvalidSettings(t *testing.T) {
	settings := model.DefaultSettings()
	settings.HardConstraints = []bool{true}
	_, err := Build(settings, nil, nil)
	assert.Error(t, err)
}
