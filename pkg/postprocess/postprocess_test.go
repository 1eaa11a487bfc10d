package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/paike/pkg/model"
)

func testCatalog(t *testing.T) (*model.SubjectCatalog, string) {
	t.Helper()
	catalog, err := model.NewSubjectCatalog([]model.SubjectSpec{
		{Name: "math", Ratio: 4},
		{Name: "english", Ratio: 4},
	})
	require.NoError(t, err)
	idx, err := catalog.AppendMerged([]int{0, 1})
	require.NoError(t, err)
	return catalog, catalog.Get(idx).Name
}

func row(day, shift int, subject string, student, teacher int) model.ResultRow {
	return model.ResultRow{Day: day, Shift: shift, Subject: subject, Level: model.LevelMiddle, Student: student, Teacher: teacher}
}

func TestProcess_MergeResolution(t *testing.T) {
	catalog, merged := testCatalog(t)

	tests := []struct {
		name     string
		seasonal []int
		regular  []int
		want     string
		wantType model.SlotType
	}{
		{name: "math exhausted", seasonal: []int{0, 0}, regular: []int{0, 2}, want: "english", wantType: model.SlotTypeRegular},
		{name: "smallest positive wins", seasonal: []int{1, 0}, regular: []int{0, 2}, want: "math", wantType: model.SlotTypeSeasonal},
		{name: "tie keeps declared order", seasonal: []int{0, 0}, regular: []int{1, 1}, want: "math", wantType: model.SlotTypeRegular},
		{name: "all exhausted", seasonal: []int{0, 0}, regular: []int{0, 0}, want: model.InvalidSubject, wantType: model.SlotTypeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(catalog, [][]bool{{false}})
			out, report := p.Process(
				[]model.ResultRow{row(0, 0, merged, 0, 0)},
				Quotas{Seasonal: [][]int{tt.seasonal}, Regular: [][]int{tt.regular}},
			)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].ActualSubject)
			assert.Equal(t, tt.wantType, out[0].SlotType)
			assert.Equal(t, 1, report.Merged)
			if tt.wantType == model.SlotTypeInvalid {
				assert.Equal(t, 1, report.Invalid)
				assert.Equal(t, []int{0}, report.InvalidRows)
				assert.True(t, out[0].IsInvalid())
			} else {
				assert.Zero(t, report.Invalid)
			}
		})
	}
}

func TestProcess_SingleSubjectsFirst(t *testing.T) {
	catalog, merged := testCatalog(t)
	p := NewProcessor(catalog, [][]bool{{false}})

	// 合并科目行排在前面，但单科目行先扣减 math 的剩余课时
	rows := []model.ResultRow{
		row(0, 0, merged, 0, 0),
		row(1, 0, "math", 0, 0),
	}
	out, _ := p.Process(rows, Quotas{Seasonal: [][]int{{0, 0}}, Regular: [][]int{{1, 1}}})

	require.Len(t, out, 2)
	assert.Equal(t, "english", out[0].ActualSubject)
	assert.Equal(t, "math", out[1].ActualSubject)
}

func TestProcess_SeasonalBeforeRegular(t *testing.T) {
	catalog, _ := testCatalog(t)
	p := NewProcessor(catalog, [][]bool{{true}, {false}})

	rows := []model.ResultRow{
		row(1, 0, "math", 0, 0),
		row(0, 1, "math", 0, 0),
		row(0, 0, "english", 1, 0),
	}
	out, report := p.Process(rows, Quotas{
		Seasonal: [][]int{{1, 0}, {0, 0}},
		Regular:  [][]int{{1, 0}, {0, 1}},
	})

	require.Len(t, out, 3)
	// 规范排序：天、时段、学生
	assert.Equal(t, model.Slot{Day: 0, Shift: 0}, out[0].Slot())
	assert.Equal(t, model.Slot{Day: 0, Shift: 1}, out[1].Slot())
	assert.Equal(t, model.Slot{Day: 1, Shift: 0}, out[2].Slot())

	assert.Equal(t, model.SlotTypeRegular, out[0].SlotType)
	assert.Equal(t, model.SlotTypeSeasonal, out[1].SlotType)
	assert.Equal(t, model.SlotTypeRegular, out[2].SlotType)

	assert.False(t, out[0].IsPrefer)
	assert.True(t, out[1].IsPrefer)
	assert.True(t, out[2].IsPrefer)

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.Seasonal)
	assert.Equal(t, 2, report.Regular)
	assert.Equal(t, 2, report.Preferred)
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	catalog, _ := testCatalog(t)
	p := NewProcessor(catalog, nil)

	rows := []model.ResultRow{row(1, 0, "math", 0, 0), row(0, 0, "math", 0, 0)}
	quotas := Quotas{Seasonal: [][]int{{2, 0}}, Regular: [][]int{{0, 0}}}
	_, _ = p.Process(rows, quotas)

	assert.Equal(t, 1, rows[0].Day)
	assert.Empty(t, rows[0].ActualSubject)
	assert.Equal(t, 2, quotas.Seasonal[0][0])
}
