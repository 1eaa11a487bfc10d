package model

import (
	"testing"
)

func testSpecs() []SubjectSpec {
	return []SubjectSpec{
		{Name: "math", Ratio: 4},
		{Name: "english", Ratio: 4},
		{Name: "science", Ratio: 6},
	}
}

func TestNewSubjectCatalog(t *testing.T) {
	c, err := NewSubjectCatalog(testSpecs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 3 || c.NumBase() != 3 {
		t.Errorf("Len=%d NumBase=%d", c.Len(), c.NumBase())
	}
	if i, ok := c.Lookup("english"); !ok || i != 1 {
		t.Errorf("Lookup(english) = %d, %v", i, ok)
	}

	invalid := [][]SubjectSpec{
		{{Name: "", Ratio: 1}},
		{{Name: "a+b", Ratio: 1}},
		{{Name: "math", Ratio: 0}},
		{{Name: "math", Ratio: 1}, {Name: "math", Ratio: 2}},
	}
	for _, specs := range invalid {
		if _, err := NewSubjectCatalog(specs); err == nil {
			t.Errorf("NewSubjectCatalog(%v) expected error", specs)
		}
	}
}

func TestSubjectCatalog_AppendMerged(t *testing.T) {
	c, _ := NewSubjectCatalog(testSpecs())

	idx, err := c.AppendMerged([]int{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	merged := c.Get(idx)
	if merged.Name != "english+math" {
		t.Errorf("merged name = %s, expected english+math", merged.Name)
	}
	if merged.Ratio != 4 || !merged.IsMerged() || merged.Multiplicity() != 2 {
		t.Errorf("unexpected merged subject: %+v", merged)
	}
	if !merged.Contains(0) || !merged.Contains(1) || merged.Contains(2) {
		t.Errorf("Contains mismatch: %+v", merged.Parts)
	}

	// 重复追加返回原下标
	again, err := c.AppendMerged([]int{0, 1})
	if err != nil || again != idx || c.Len() != 4 {
		t.Errorf("AppendMerged again = %d, %v (len %d)", again, err, c.Len())
	}

	if _, err := c.AppendMerged([]int{0, 2}); err == nil {
		t.Error("expected ratio mismatch error")
	}
	if _, err := c.AppendMerged([]int{0}); err == nil {
		t.Error("expected error for single part")
	}
	if _, err := c.AppendMerged([]int{0, idx}); err == nil {
		t.Error("expected error for merged part")
	}
}

func TestSubjectCatalog_Clone(t *testing.T) {
	c, _ := NewSubjectCatalog(testSpecs())
	clone := c.Clone()
	if _, err := clone.AppendMerged([]int{0, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("original catalog modified: len %d", c.Len())
	}
	if clone.Len() != 4 {
		t.Errorf("clone len = %d", clone.Len())
	}
}

func TestSplitMergedName(t *testing.T) {
	parts := SplitMergedName("english+math")
	if len(parts) != 2 || parts[0] != "english" || parts[1] != "math" {
		t.Errorf("SplitMergedName = %v", parts)
	}
	if IsMergedName("math") || !IsMergedName("a+b") {
		t.Error("IsMergedName mismatch")
	}
}
