package solver

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

func solvePB(t *testing.T, m *cpmodel.Model) *Response {
	t.Helper()
	resp, err := NewPseudoBoolean().Solve(context.Background(), m, Parameters{MaxTime: 10 * time.Second})
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	return resp
}

func TestPseudoBoolean_Maximize(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	z := m.NewBoolVar("z")
	m.AddAtMostOne(x, y)
	m.Maximize(cpmodel.Sum(x, y, z))

	resp := solvePB(t, m)
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

func TestPseudoBoolean_Minimize(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	m.AddBoolOr(x, y)
	m.Minimize(cpmodel.NewLinearExpr().AddTerm(x, 3).AddTerm(y, 2).AddConst(1))

	resp := solvePB(t, m)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	// 常数项计入目标值
	if resp.ObjectiveValue != 3 {
		t.Errorf("objective = %d, expected 3", resp.ObjectiveValue)
	}
	if resp.Value(x) || !resp.Value(y) {
		t.Errorf("expected only y, got x=%v y=%v", resp.Value(x), resp.Value(y))
	}
}

func TestPseudoBoolean_NegativeCoefficients(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	// x - y ≥ 0 且 x + y ≤ 1
	m.AddGreaterOrEqual(cpmodel.NewLinearExpr().AddTerm(x, 1).AddTerm(y, -1), 0)
	m.AddAtMostOne(x, y)
	m.Maximize(cpmodel.NewLinearExpr().AddTerm(x, -2).AddTerm(y, 3))

	resp := solvePB(t, m)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.ObjectiveValue != 0 {
		t.Errorf("objective = %d, expected 0", resp.ObjectiveValue)
	}
	if resp.Value(x) || resp.Value(y) {
		t.Errorf("expected all false, got x=%v y=%v", resp.Value(x), resp.Value(y))
	}
}

func TestPseudoBoolean_Infeasible(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	m.AddAtMostOne(x, y)
	m.AddGreaterOrEqual(cpmodel.Sum(x, y), 2)
	m.Maximize(cpmodel.Sum(x, y))

	resp := solvePB(t, m)
	if resp.Status != StatusInfeasible {
		t.Errorf("status = %s, expected infeasible", resp.Status)
	}
}

func TestPseudoBoolean_EmptyConstraintInfeasible(t *testing.T) {
	m := cpmodel.NewModel()
	m.NewBoolVar("x")
	m.AddGreaterOrEqual(cpmodel.NewLinearExpr(), 1)

	resp := solvePB(t, m)
	if resp.Status != StatusInfeasible {
		t.Errorf("status = %s, expected infeasible", resp.Status)
	}
}

func TestPseudoBoolean_Enforcement(t *testing.T) {
	m := cpmodel.NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	c := m.NewBoolVar("c")
	m.AddImplication(a, b)
	m.AddLessOrEqual(cpmodel.Sum(b), 0)
	// c 只有在 a 为真时才被强制为假
	m.AddLessOrEqual(cpmodel.Sum(c), 0).OnlyEnforceIf(a)
	m.Maximize(cpmodel.NewLinearExpr().AddTerm(a, 5).AddTerm(c, 1))

	resp := solvePB(t, m)
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

func TestPseudoBoolean_EnforcedLowerBound(t *testing.T) {
	m := cpmodel.NewModel()
	e := m.NewBoolVar("e")
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	// e 为真时 x + y ≥ 2
	m.AddGreaterOrEqual(cpmodel.Sum(x, y), 2).OnlyEnforceIf(e)
	m.Maximize(cpmodel.NewLinearExpr().AddTerm(e, 10).AddTerm(x, -1).AddTerm(y, -1))

	resp := solvePB(t, m)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	if !resp.Value(e) || !resp.Value(x) || !resp.Value(y) {
		t.Errorf("expected e, x, y all true, got %v", resp.Values)
	}
	if resp.ObjectiveValue != 8 {
		t.Errorf("objective = %d, expected 8", resp.ObjectiveValue)
	}
}

func TestPseudoBoolean_NoObjective(t *testing.T) {
	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")
	m.AddEquality(cpmodel.Sum(x, y), 1)
	m.AddHint(x, true)

	resp := solvePB(t, m)
	if resp.Status != StatusOptimal {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.Value(x) == resp.Value(y) {
		t.Errorf("exactly one of x, y expected, got x=%v y=%v", resp.Value(x), resp.Value(y))
	}
	if resp.Message == "" {
		t.Error("expected a message noting hints are ignored")
	}
}

func TestPseudoBoolean_ModelInvalid(t *testing.T) {
	m := cpmodel.NewModel()
	m.NewBoolVar("x")
	m.AddLessOrEqual(cpmodel.Sum(cpmodel.BoolVar(5)), 1)

	resp := solvePB(t, m)
	if resp.Status != StatusModelInvalid {
		t.Errorf("status = %s, expected model_invalid", resp.Status)
	}
	if resp.Message == "" {
		t.Error("expected a diagnostic message")
	}
}

func TestPseudoBoolean_NilModel(t *testing.T) {
	if _, err := NewPseudoBoolean().Solve(context.Background(), nil, DefaultParameters()); err == nil {
		t.Error("expected error for nil model")
	}
}

// 随机小模型上与分支定界求得的最优值一致
func TestPseudoBoolean_AgreesWithBranchAndBound(t *testing.T) {
	defer goleak.VerifyNone(t)

	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 20; round++ {
		m := cpmodel.NewModel()
		vars := make([]cpmodel.BoolVar, 8)
		for i := range vars {
			vars[i] = m.NewBoolVar("v")
		}
		for k := 0; k < 4; k++ {
			expr := cpmodel.NewLinearExpr()
			for _, v := range vars {
				if rng.Intn(2) == 0 {
					expr.AddTerm(v, int64(rng.Intn(5)-1))
				}
			}
			c := m.AddLessOrEqual(expr, int64(rng.Intn(4)+1))
			if rng.Intn(3) == 0 {
				c.OnlyEnforceIf(vars[rng.Intn(len(vars))])
			}
		}
		obj := cpmodel.NewLinearExpr()
		for _, v := range vars {
			obj.AddTerm(v, int64(rng.Intn(7)-2))
		}
		m.Maximize(obj)

		want := solve(t, m, 1)
		got := solvePB(t, m)
		if got.Status != want.Status {
			t.Fatalf("round %d: status = %s, branch and bound = %s", round, got.Status, want.Status)
		}
		if got.Status == StatusOptimal && got.ObjectiveValue != want.ObjectiveValue {
			t.Errorf("round %d: objective = %d, branch and bound = %d", round, got.ObjectiveValue, want.ObjectiveValue)
		}
	}
}

func TestPseudoBoolean_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := cpmodel.NewModel()
	x := m.NewBoolVar("x")
	m.Maximize(cpmodel.Sum(x))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := NewPseudoBoolean().Solve(ctx, m, DefaultParameters())
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if resp.Status == StatusInfeasible || resp.Status == StatusModelInvalid {
		t.Errorf("status = %s after cancellation", resp.Status)
	}
}
