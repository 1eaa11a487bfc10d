package constraints

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
)

func TestLibrary_HardOrderFollowsFlags(t *testing.T) {
	lib := Library(model.DefaultSettings())
	if len(lib) != model.NumHardConstraints+6 {
		t.Fatalf("expected %d definitions, got %d", model.NumHardConstraints+6, len(lib))
	}

	want := []string{
		"capacity_ratio", "primary_time", "max_slots_per_day", "merged_subject",
		"one_slot_per_student", "one_slot_per_teacher", "no_consecutive_repeat",
		"staff_hours", "center_capacity",
	}
	var got []string
	for i, d := range lib[:model.NumHardConstraints] {
		if d.Flag != i {
			t.Errorf("%s: flag %d, want %d", d.Name, d.Flag, i)
		}
		if d.Category != constraint.CategoryHard {
			t.Errorf("%s: category %s", d.Name, d.Category)
		}
		if d.Description == "" {
			t.Errorf("%s: missing description", d.Name)
		}
		got = append(got, d.Name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hard constraint order mismatch (-want +got):\n%s", diff)
	}
}

func TestLibrary_SoftSortedByWeight(t *testing.T) {
	lib := Library(model.DefaultSettings())

	var got []string
	for _, d := range lib[model.NumHardConstraints:] {
		if d.Flag != -1 {
			t.Errorf("%s: objective should have flag -1", d.Name)
		}
		got = append(got, d.Name)
	}
	want := []string{
		"remain_slots", "eligible_class", "scheduled_classes",
		"preferred_teacher", "continuity", "teacher_utilization",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("objective order mismatch (-want +got):\n%s", diff)
	}
}

func TestLibrary_PhasesAndParams(t *testing.T) {
	settings := model.DefaultSettings()
	settings.CenterCapacity = 12

	d, ok := Find(settings, "no_consecutive_repeat")
	if !ok {
		t.Fatal("no_consecutive_repeat not found")
	}
	if diff := cmp.Diff([]int{1, 2}, d.Phases); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}

	d, _ = Find(settings, "remain_slots")
	if diff := cmp.Diff([]int{1}, d.Phases); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}

	d, _ = Find(settings, "center_capacity")
	want := []Param{{Name: "center_capacity", Value: "12", Description: "每个时间格最多学生数"}}
	if diff := cmp.Diff(want, d.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	d, _ = Find(settings, "capacity_ratio")
	if len(d.Params) != len(settings.Subjects) {
		t.Errorf("expected one param per subject, got %d", len(d.Params))
	}

	if _, ok := Find(settings, "unknown"); ok {
		t.Error("unknown constraint should not be found")
	}
}

func TestEnabled(t *testing.T) {
	settings := model.DefaultSettings()
	settings.HardConstraints[model.FlagNoConsecutive] = false
	settings.HardConstraints[model.FlagStaffHours] = false

	enabled := Enabled(settings)
	if len(enabled) != model.NumHardConstraints-2 {
		t.Fatalf("expected %d enabled, got %d", model.NumHardConstraints-2, len(enabled))
	}
	for _, d := range enabled {
		if d.Name == "no_consecutive_repeat" || d.Name == "staff_hours" {
			t.Errorf("%s should be disabled", d.Name)
		}
	}

	settings.Weights.Utilization = 0
	d, _ := Find(settings, "teacher_utilization")
	if d.Enabled {
		t.Error("zero-weight objective should be reported disabled")
	}
}
