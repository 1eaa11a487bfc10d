package model

import (
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Level
		wantErr  bool
	}{
		{name: "数字", input: "2", expected: LevelMiddle},
		{name: "名称", input: "senior_high", expected: LevelSeniorHigh},
		{name: "大小写与空白", input: " High ", expected: LevelHigh},
		{name: "越界", input: "5", wantErr: true},
		{name: "哨兵值不可解析", input: "none", wantErr: true},
		{name: "未知名称", input: "college", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLevel(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevel_Index(t *testing.T) {
	for i, l := range AllLevels() {
		if l.Index() != i {
			t.Errorf("%s.Index() = %d, expected %d", l, l.Index(), i)
		}
		if LevelFromIndex(i) != l {
			t.Errorf("LevelFromIndex(%d) = %v, expected %v", i, LevelFromIndex(i), l)
		}
	}
	if len(AllLevels()) != NumLevel {
		t.Errorf("expected %d levels, got %d", NumLevel, len(AllLevels()))
	}
}

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot("3-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot.Day != 3 || slot.Shift != 2 {
		t.Errorf("ParseSlot = %+v", slot)
	}
	if slot.String() != "3-2" {
		t.Errorf("String() = %s", slot.String())
	}

	for _, bad := range []string{"", "3", "a-1", "1-b", "-1-2"} {
		if _, err := ParseSlot(bad); err == nil {
			t.Errorf("ParseSlot(%q) expected error", bad)
		}
	}
}

func TestGrid(t *testing.T) {
	g := NewGrid(2, 3)
	g.Set(0, 1, true)
	g.Set(1, 2, true)
	g.Set(5, 5, true) // 越界忽略

	if !g.Get(0, 1) || !g.Get(1, 2) {
		t.Error("expected cells to be set")
	}
	if g.Get(0, 0) || g.Get(-1, 0) || g.Get(2, 0) {
		t.Error("unexpected cell value")
	}
	if g.Count() != 2 {
		t.Errorf("Count() = %d, expected 2", g.Count())
	}
	if g.DaysWithAny() != 2 {
		t.Errorf("DaysWithAny() = %d, expected 2", g.DaysWithAny())
	}

	empty := NewGrid(3, 3)
	if empty.DaysWithAny() != 0 {
		t.Errorf("empty grid DaysWithAny() = %d", empty.DaysWithAny())
	}
}
