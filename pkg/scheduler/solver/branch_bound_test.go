package solver

import (
	"context"
	"testing"

	"go.uber.org/goleak"

	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

func solve(t *testing.T, m *cpmodel.Model, workers int) *Response {
	t.Helper()
	resp, err := NewBranchAndBound().Solve(context.Background(), m, Parameters{Workers: workers})
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	return resp
}

func TestBranchAndBound_Maximize(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	z := m.NewBoolVar("z")
	m.AddAtMostOne(x, y)
	m.Maximize(cpmodel.Sum(x, y, z))

	resp := solve(t, m, 1)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s, expected optimal", resp.Status)
	}
	if resp.ObjectiveValue != 2 {
		t.Errorf("objective = %d, expected 2", resp.ObjectiveValue)
	}
	if resp.Value(x) && resp.Value(y) {
		t.Error("x and y must not both be true")
	}
	if !resp.Value(z) {
		t.Error("z should be true")
	}
	if resp.BestBound != resp.ObjectiveValue {
		t.Errorf("best bound = %d, expected %d", resp.BestBound, resp.ObjectiveValue)
	}
}

func TestBranchAndBound_Minimize(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	m.AddBoolOr(x, y)
	m.Minimize(cpmodel.NewLinearExpr().AddTerm(x, 3).AddTerm(y, 2).AddConst(1))

	resp := solve(t, m, 1)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.ObjectiveValue != 3 {
		t.Errorf("objective = %d, expected 3", resp.ObjectiveValue)
	}
	if resp.Value(x) || !resp.Value(y) {
		t.Errorf("expected only y, got x=%v y=%v", resp.Value(x), resp.Value(y))
	}
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	m.AddGreaterOrEqual(cpmodel.Sum(x, y), 3)

	resp := solve(t, m, 2)
	if resp.Status != StatusInfeasible {
		t.Fatalf("status = %s, expected infeasible", resp.Status)
	}
	if resp.Status.HasSolution() {
		t.Error("infeasible status should not carry a solution")
	}
	if resp.Value(x) || resp.Value(y) {
		t.Error("values must be false without a solution")
	}
}

func TestBranchAndBound_Enforcement(t *testing.T) {
	m := cpmodel.NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	c := m.NewBoolVar("c")
	m.AddImplication(a, b)
	m.AddLessOrEqual(cpmodel.Sum(b), 0)
	// c 只有在 a 为真时才被强制为假
	m.AddLessOrEqual(cpmodel.Sum(c), 0).OnlyEnforceIf(a)
	m.Maximize(cpmodel.NewLinearExpr().AddTerm(a, 5).AddTerm(c, 1))

	resp := solve(t, m, 1)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.Value(a) {
		t.Error("a must be false because it implies b")
	}
	if !resp.Value(c) {
		t.Error("c should be true when its constraint is not enforced")
	}
	if resp.ObjectiveValue != 1 {
		t.Errorf("objective = %d, expected 1", resp.ObjectiveValue)
	}
}

func TestBranchAndBound_Assignment(t *testing.T) {
	weights := [][]int64{
		{3, 1, 2},
		{2, 3, 1},
		{1, 2, 3},
	}
	m := cpmodel.NewModel()
	vars := make([][]cpmodel.BoolVar, 3)
	obj := cpmodel.NewLinearExpr()
	for i := range vars {
		vars[i] = make([]cpmodel.BoolVar, 3)
		for j := range vars[i] {
			vars[i][j] = m.NewBoolVar("x")
			obj.AddTerm(vars[i][j], weights[i][j])
		}
	}
	for i := 0; i < 3; i++ {
		m.AddAtMostOne(vars[i][0], vars[i][1], vars[i][2])
		m.AddAtMostOne(vars[0][i], vars[1][i], vars[2][i])
	}
	m.Maximize(obj)

	for _, workers := range []int{1, 3} {
		resp := solve(t, m, workers)
		if resp.Status != StatusOptimal {
			t.Fatalf("workers=%d status = %s", workers, resp.Status)
		}
		if resp.ObjectiveValue != 9 {
			t.Errorf("workers=%d objective = %d, expected 9", workers, resp.ObjectiveValue)
		}
	}
}

func TestBranchAndBound_Hints(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	m.AddAtMostOne(x, y)
	m.AddHint(y, true)

	resp := solve(t, m, 1)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	if !resp.Value(y) || resp.Value(x) {
		t.Errorf("expected the hinted assignment, got x=%v y=%v", resp.Value(x), resp.Value(y))
	}
}

func TestBranchAndBound_ModelInvalid(t *testing.T) {
	m := cpmodel.NewModel()
	m.NewBoolVar("x")
	m.AddLessOrEqual(cpmodel.Sum(cpmodel.BoolVar(5)), 1)

	resp := solve(t, m, 1)
	if resp.Status != StatusModelInvalid {
		t.Errorf("status = %s, expected model_invalid", resp.Status)
	}
	if resp.Message == "" {
		t.Error("expected a diagnostic message")
	}
}

func TestBranchAndBound_NilModel(t *testing.T) {
	if _, err := NewBranchAndBound().Solve(context.Background(), nil, DefaultParameters()); err == nil {
		t.Error("expected error for nil model")
	}
}

func TestBranchAndBound_WorkersExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := cpmodel.NewModel()
	vars := make([]cpmodel.BoolVar, 12)
	obj := cpmodel.NewLinearExpr()
	for i := range vars {
		vars[i] = m.NewBoolVar("x")
		obj.AddTerm(vars[i], int64(i%4+1))
	}
	m.AddLessOrEqual(cpmodel.Sum(vars...), 5)
	m.Maximize(obj)

	resp := solve(t, m, 4)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	// 最优：选三个 4 和两个 3
	if resp.ObjectiveValue != 18 {
		t.Errorf("objective = %d, expected 18", resp.ObjectiveValue)
	}
}
