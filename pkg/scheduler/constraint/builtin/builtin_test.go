package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
	"github.com/paiban/paike/pkg/scheduler/solver"
)

// createTestContext 一天两个时段，一名数学教师，三名初中学生各需两节数学课
func createTestContext(t *testing.T, mutate func(*model.Settings)) *constraint.Context {
	t.Helper()

	settings := model.DefaultSettings()
	settings.NumDay = 1
	settings.NumShift = 2
	settings.Subjects = []model.SubjectSpec{{Name: "math", Ratio: 2}}
	if mutate != nil {
		mutate(&settings)
	}

	slots := model.SlotList{{Day: 0, Shift: 0}, {Day: 0, Shift: 1}}
	teachers := []model.TeacherRecord{
		{ID: "T1", Teachable: model.Teachable{"math": {model.LevelMiddle}}, AvailableSlots: slots},
	}
	var students []model.StudentRecord
	for _, id := range []string{"S1", "S2", "S3"} {
		students = append(students, model.StudentRecord{
			ID:             id,
			Grade:          8,
			Subjects:       model.SubjectList{"math"},
			RegularSlots:   model.SlotCounts{"math": 2},
			AvailableSlots: slots,
		})
	}

	tb, err := derive.Build(settings, students, teachers)
	if err != nil {
		t.Fatalf("build tables: %v", err)
	}
	m := cpmodel.NewModel()
	vs := constraint.NewVarSpace(m, tb)
	return constraint.NewContext(settings, tb, vs, m, 2)
}

func solve(t *testing.T, ctx *constraint.Context) *solver.Response {
	t.Helper()
	resp, err := solver.NewBranchAndBound().Solve(context.Background(), ctx.Model, solver.Parameters{
		MaxTime: 10 * time.Second,
		Workers: 2,
	})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	return resp
}

func countClasses(ctx *constraint.Context, resp *solver.Response) int {
	n := 0
	for i := 0; i < ctx.Vars.NumClasses(); i++ {
		if resp.Value(ctx.Vars.ClassVar(i)) {
			n++
		}
	}
	return n
}

func TestHardConstraints_Apply(t *testing.T) {
	tests := []struct {
		name      string
		c         constraint.Constraint
		mutate    func(*model.Settings)
		wantAdded int
	}{
		{name: "班级容量：三名学生超过容量 2", c: NewCapacityRatioConstraint(), wantAdded: 2},
		{name: "黄金时段：每名学生只有一个黄金时段变量", c: NewPrimaryTimeConstraint(), wantAdded: 0},
		{name: "每日上限高于可排变量数", c: NewMaxSlotsPerDayConstraint(), wantAdded: 0},
		{name: "合并科目：三条配额加十二条蕴含", c: NewMergedSubjectConstraint(), wantAdded: 15},
		{name: "学生时段：每格只有一个变量", c: NewOneSlotPerStudentConstraint(), wantAdded: 0},
		{name: "教师时段：每格只有一个班", c: NewOneSlotPerTeacherConstraint(), wantAdded: 0},
		{name: "不连堂：每名学生一对相邻时段", c: NewNoConsecutiveConstraint(), wantAdded: 3},
		{name: "教师工时：一名教师一天", c: NewStaffHoursConstraint(), wantAdded: 1},
		{
			name:      "中心容量 2",
			c:         NewCenterCapacityConstraint(),
			mutate:    func(s *model.Settings) { s.CenterCapacity = 2 },
			wantAdded: 2,
		},
		{
			name:      "中心容量充足时无需约束",
			c:         NewCenterCapacityConstraint(),
			wantAdded: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := createTestContext(t, tt.mutate)
			added := tt.c.Apply(ctx)
			if added != tt.wantAdded {
				t.Errorf("Apply() added = %d, want %d", added, tt.wantAdded)
			}
			if ctx.Model.NumConstraints() != tt.wantAdded {
				t.Errorf("model constraints = %d, want %d", ctx.Model.NumConstraints(), tt.wantAdded)
			}
		})
	}
}

func TestVariableLinkConstraint(t *testing.T) {
	ctx := createTestContext(t, nil)

	if ctx.Vars.NumClasses() != 6 {
		t.Fatalf("expected 6 class variables, got %d", ctx.Vars.NumClasses())
	}

	added := NewVariableLinkConstraint().Apply(ctx)
	if added == 0 {
		t.Fatal("expected link constraints")
	}

	// 连堂变量必须与两个学生时段变量一致
	ctx.Model.AddEquality(cpmodel.Sum(ctx.Vars.StudentSlot(0, 0, 0), ctx.Vars.StudentSlot(0, 0, 1)), 2)
	ctx.Model.Maximize(cpmodel.NewLinearExpr().AddTerm(ctx.Vars.Continuity(0, 0, 0), -1))
	resp := solve(t, ctx)
	if resp.Status != solver.StatusOptimal {
		t.Fatalf("expected optimal, got %s", resp.Status)
	}
	if !resp.Value(ctx.Vars.Continuity(0, 0, 0)) {
		t.Error("continuity must be true when both adjacent slots are occupied")
	}
	if !resp.Value(ctx.Vars.TeacherShift(0, 0, 0)) || !resp.Value(ctx.Vars.TeacherShift(0, 0, 1)) {
		t.Error("teacher shifts must follow occupied classes")
	}
}

func TestRegisterPhaseOne(t *testing.T) {
	settings := model.DefaultSettings()
	manager := constraint.NewManager()
	RegisterPhaseOne(manager, settings)

	hard := manager.GetByCategory(constraint.CategoryHard)
	wantHard := []constraint.Type{constraint.TypeVariableLink, constraint.TypeMergedSubject, constraint.TypeNoConsecutive}
	if len(hard) != len(wantHard) {
		t.Fatalf("expected %d hard constraints, got %d", len(wantHard), len(hard))
	}
	for i, typ := range wantHard {
		if hard[i].Type() != typ {
			t.Errorf("position %d: expected %s, got %s", i, typ, hard[i].Type())
		}
	}
	if manager.GetConstraint(constraint.TypeRemainSlots) == nil {
		t.Error("phase one must include the remain slot objective")
	}

	// 关闭开关后不再注册
	settings.HardConstraints[model.FlagNoConsecutive] = false
	manager.Clear()
	RegisterPhaseOne(manager, settings)
	if manager.GetConstraint(constraint.TypeNoConsecutive) != nil {
		t.Error("disabled constraint must not be registered")
	}
}

func TestRegisterPhaseTwo(t *testing.T) {
	settings := model.DefaultSettings()
	manager := constraint.NewManager()
	RegisterPhaseTwo(manager, settings)

	if got := len(manager.GetByCategory(constraint.CategoryHard)); got != model.NumHardConstraints+1 {
		t.Errorf("expected %d hard constraints, got %d", model.NumHardConstraints+1, got)
	}
	if manager.GetConstraint(constraint.TypeRemainSlots) != nil {
		t.Error("phase two must not include the remain slot objective")
	}
	if manager.GetConstraint(constraint.TypeScheduledClasses) != nil {
		t.Error("phase two must not include the scheduled classes objective")
	}

	// 注册顺序与开关下标一致
	for i, c := range NewHardConstraints() {
		if c.Flag() != i {
			t.Errorf("constraint %s has flag %d, want %d", c.Name(), c.Flag(), i)
		}
	}
}

func TestPhaseSolve(t *testing.T) {
	tests := []struct {
		name        string
		phase       int
		mutate      func(*model.Settings)
		wantClasses int
	}{
		{name: "第一阶段：不连堂限制每名学生一节", phase: 1, wantClasses: 3},
		{name: "第二阶段：班级容量 2", phase: 2, wantClasses: 3},
		{
			name:        "第二阶段：中心容量 1",
			phase:       2,
			mutate:      func(s *model.Settings) { s.CenterCapacity = 1 },
			wantClasses: 2,
		},
		{
			name:  "第二阶段：关闭不连堂后受配额与容量限制",
			phase: 2,
			mutate: func(s *model.Settings) {
				s.HardConstraints[model.FlagNoConsecutive] = false
			},
			wantClasses: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := createTestContext(t, tt.mutate)
			ctx.Phase = tt.phase
			manager := constraint.NewManager()
			if tt.phase == 1 {
				RegisterPhaseOne(manager, ctx.Settings)
			} else {
				RegisterPhaseTwo(manager, ctx.Settings)
			}
			manager.Build(ctx)

			resp := solve(t, ctx)
			if resp.Status != solver.StatusOptimal {
				t.Fatalf("expected optimal, got %s", resp.Status)
			}
			if got := countClasses(ctx, resp); got != tt.wantClasses {
				t.Errorf("classes = %d, want %d", got, tt.wantClasses)
			}
		})
	}
}

func TestRemainSlotsObjective(t *testing.T) {
	ctx := createTestContext(t, nil)
	expr := NewRemainSlotsObjective(20).Objective(ctx)

	// 三名学生各 2 节数学：全不排时为 -6，全排时为 0
	none := expr.Evaluate(func(cpmodel.BoolVar) bool { return false })
	all := expr.Evaluate(func(cpmodel.BoolVar) bool { return true })
	if none != -6 {
		t.Errorf("empty schedule remain = %d, want -6", none)
	}
	if all != 0 {
		t.Errorf("full schedule remain = %d, want 0", all)
	}
}

func TestPreferredTeacherObjective(t *testing.T) {
	ctx := createTestContext(t, nil)
	ctx.Data.Preference[0][0] = true

	expr := NewPreferredTeacherObjective(3).Objective(ctx)
	if expr.Len() != 2 {
		t.Errorf("expected 2 preferred class terms, got %d", expr.Len())
	}
}
