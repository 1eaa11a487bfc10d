package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// GreedySolver 贪心求解器
// 按目标系数从大到小依次取值并传播，冲突时回溯，找到第一个可行解即返回
type GreedySolver struct {
	maxIterations int64
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{
		maxIterations: 1_000_000,
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// SetMaxIterations 设置最大搜索节点数
func (s *GreedySolver) SetMaxIterations(max int64) {
	s.maxIterations = max
}

// Solve 使用贪心算法求一个可行解
func (s *GreedySolver) Solve(ctx context.Context, m *cpmodel.Model, params Parameters) (*Response, error) {
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

	p := compile(m)
	shared := &incumbent{}
	w := newWorker(p, shared, 0)
	w.firstOnly = true
	w.nodeLimit = s.maxIterations
	complete := w.run(solveCtx)

	resp := &Response{
		Branches:  w.branches,
		Conflicts: w.conflicts,
		WallTime:  time.Since(start),
	}
	best, found := shared.bestValue()
	switch {
	case found:
		// 贪心解不证明最优
		resp.Status = StatusFeasible
		resp.Values = shared.snapshot()
		resp.ObjectiveValue = p.sense * best
	case complete:
		resp.Status = StatusInfeasible
		resp.Values = make([]bool, p.numVars)
	default:
		resp.Status = StatusUnknown
		resp.Values = make([]bool, p.numVars)
		resp.Message = "超出搜索节点上限或时间预算"
	}
	if w.rootOK {
		resp.BestBound = p.sense * w.rootBound
	}

	logger.Debug().
		Str("solver", s.Name()).
		Str("status", string(resp.Status)).
		Int64("branches", resp.Branches).
		Dur("wall_time", resp.WallTime).
		Msg("模型求解结束")

	return resp, nil
}

// NewEngine 按名称创建求解器
func NewEngine(name string) (Engine, error) {
	switch name {
	case "", model.EnginePseudoBoolean:
		return NewPseudoBoolean(), nil
	case model.EngineBranchAndBound:
		return NewBranchAndBound(), nil
	case model.EngineGreedy:
		return NewGreedySolver(), nil
	default:
		return nil, fmt.Errorf("未知的求解器: %s", name)
	}
}
