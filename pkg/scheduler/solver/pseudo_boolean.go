package solver

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	gophersat "github.com/crillab/gophersat/solver"

	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// PseudoBoolean 基于 gophersat 的伪布尔优化求解器
// 线性约束按伪布尔约束下发，启用条件用 big-M 线性化；目标统一转为最小化代价。
// 单线程求解，不使用提示；超时后返回已找到的最好解。
type PseudoBoolean struct{}

// NewPseudoBoolean 创建伪布尔求解器
func NewPseudoBoolean() *PseudoBoolean {
	return &PseudoBoolean{}
}

// Name 返回求解器名称
func (s *PseudoBoolean) Name() string {
	return "PseudoBoolean"
}

// Solve 求解模型
func (s *PseudoBoolean) Solve(ctx context.Context, m *cpmodel.Model, params Parameters) (*Response, error) {
	if m == nil {
		return nil, fmt.Errorf("模型不能为空")
	}
	start := time.Now()

	if err := m.Validate(); err != nil {
		return &Response{
			Status:   StatusModelInvalid,
			WallTime: time.Since(start),
			Message:  err.Error(),
		}, nil
	}

	solveCtx := ctx
	if params.MaxTime > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, params.MaxTime)
		defer cancel()
	}

	n := m.NumVars()
	constrs, ok := encodeConstraints(m)
	if !ok {
		return &Response{
			Status:   StatusInfeasible,
			Values:   make([]bool, n),
			WallTime: time.Since(start),
		}, nil
	}

	pb := gophersat.ParsePBConstrs(constrs)
	expr, maximize := m.Objective()
	hasCost := false
	if expr != nil {
		lits, weights := encodeCost(expr, maximize)
		if len(lits) > 0 {
			pb.SetCostFunc(lits, weights)
			hasCost = true
		}
	}
	engine := gophersat.New(pb)

	// ctx 结束时通知求解器停止，返回当前最好解
	stop := make(chan struct{})
	done := make(chan struct{})
	var stopped atomic.Bool
	go func() {
		select {
		case <-solveCtx.Done():
			stopped.Store(true)
			close(stop)
		case <-done:
		}
	}()

	var (
		status Status
		model  []bool
	)
	if hasCost {
		res := engine.Optimal(nil, stop)
		switch res.Status {
		case gophersat.Sat:
			status = StatusOptimal
			if stopped.Load() {
				status = StatusFeasible
			}
			model = res.Model
		case gophersat.Unsat:
			status = StatusInfeasible
		default:
			status = StatusUnknown
		}
	} else {
		switch engine.Solve() {
		case gophersat.Sat:
			status = StatusOptimal
			model = engine.Model()
		case gophersat.Unsat:
			status = StatusInfeasible
		default:
			status = StatusUnknown
		}
	}
	close(done)

	values := make([]bool, n)
	copy(values, model)

	resp := &Response{
		Status:   status,
		Values:   values,
		WallTime: time.Since(start),
	}
	if status.HasSolution() && expr != nil {
		resp.ObjectiveValue = expr.Evaluate(func(v cpmodel.BoolVar) bool { return values[v] })
		if status == StatusOptimal {
			resp.BestBound = resp.ObjectiveValue
		}
	}
	if m.NumHints() > 0 {
		resp.Message = "伪布尔求解器不使用提示"
	}

	logger.Debug().
		Str("solver", s.Name()).
		Str("status", string(resp.Status)).
		Int("vars", n).
		Int("constraints", m.NumConstraints()).
		Int("pb_constraints", len(constrs)).
		Dur("wall_time", resp.WallTime).
		Msg("模型求解结束")

	return resp, nil
}

// lit cpmodel 变量对应的 DIMACS 文字（从 1 开始，负数为取反）
func lit(v cpmodel.BoolVar, positive bool) int {
	if positive {
		return int(v) + 1
	}
	return -(int(v) + 1)
}

// encodeConstraints 将模型约束转为伪布尔约束；出现恒假的空约束时返回 false
func encodeConstraints(m *cpmodel.Model) ([]gophersat.PBConstr, bool) {
	n := m.NumVars()
	constrs := make([]gophersat.PBConstr, 0, m.NumConstraints()+1)

	// 额外的自由变量保证所有变量都在问题中出现
	free := make([]int, 0, n+1)
	for v := 0; v < n; v++ {
		free = append(free, lit(cpmodel.BoolVar(v), true))
	}
	free = append(free, n+1)
	constrs = append(constrs, gophersat.PropClause(free...))

	for _, c := range m.Constraints() {
		var maxAct, minAct int64
		for _, t := range c.Terms {
			if t.Coef > 0 {
				maxAct += t.Coef
			} else {
				minAct += t.Coef
			}
		}
		if len(c.Terms) == 0 && len(c.Enforcement) == 0 {
			if c.Lo > 0 || c.Hi < 0 {
				return nil, false
			}
			continue
		}

		// Σ c·x − M·Σ¬e ≤ hi，任一启用条件为假时放宽到 maxAct
		if c.Hi < cpmodel.Inf && c.Hi < maxAct {
			lits, weights := terms(c.Terms)
			bigM := maxAct - c.Hi
			for _, e := range c.Enforcement {
				lits = append(lits, lit(e, false))
				weights = append(weights, -int(bigM))
			}
			constrs = append(constrs, gophersat.LtEq(lits, weights, int(c.Hi)))
		}
		// Σ c·x + M·Σ¬e ≥ lo，任一启用条件为假时放宽到 minAct
		if c.Lo > -cpmodel.Inf && c.Lo > minAct {
			lits, weights := terms(c.Terms)
			bigM := c.Lo - minAct
			for _, e := range c.Enforcement {
				lits = append(lits, lit(e, false))
				weights = append(weights, int(bigM))
			}
			constrs = append(constrs, gophersat.GtEq(lits, weights, int(c.Lo)))
		}
	}
	return constrs, true
}

// terms 返回新分配的文字与系数切片（gophersat 会原地改写负系数）
func terms(ts []cpmodel.Term) ([]int, []int) {
	lits := make([]int, 0, len(ts)+1)
	weights := make([]int, 0, len(ts)+1)
	for _, t := range ts {
		if t.Coef == 0 {
			continue
		}
		lits = append(lits, lit(t.Var, true))
		weights = append(weights, int(t.Coef))
	}
	return lits, weights
}

// encodeCost 目标转为最小化代价；负系数改写为取反文字上的正系数（常数项不影响最优解）
func encodeCost(expr *cpmodel.LinearExpr, maximize bool) ([]gophersat.Lit, []int) {
	lits := make([]gophersat.Lit, 0, len(expr.Terms))
	weights := make([]int, 0, len(expr.Terms))
	for _, t := range expr.Terms {
		w := t.Coef
		if maximize {
			w = -w
		}
		switch {
		case w > 0:
			lits = append(lits, gophersat.IntToLit(int32(lit(t.Var, true))))
			weights = append(weights, int(w))
		case w < 0:
			lits = append(lits, gophersat.IntToLit(int32(lit(t.Var, false))))
			weights = append(weights, int(-w))
		}
	}
	return lits, weights
}
