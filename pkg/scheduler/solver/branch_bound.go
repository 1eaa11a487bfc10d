package solver

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// BranchAndBound 并行分支定界求解器
// 每个 worker 使用不同的分支启发式独立搜索，共享当前最优解用于剪枝
type BranchAndBound struct{}

// NewBranchAndBound 创建分支定界求解器
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{}
}

// Name 返回求解器名称
func (s *BranchAndBound) Name() string {
	return "BranchAndBound"
}

// Solve 求解模型
func (s *BranchAndBound) Solve(ctx context.Context, m *cpmodel.Model, params Parameters) (*Response, error) {
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

	workers := params.Workers
	if workers <= 0 {
		workers = 1
	}

	solveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if params.MaxTime > 0 {
		var timeoutCancel context.CancelFunc
		solveCtx, timeoutCancel = context.WithTimeout(solveCtx, params.MaxTime)
		defer timeoutCancel()
	}

	p := compile(m)
	shared := &incumbent{}

	var (
		proved    atomic.Bool
		branches  atomic.Int64
		conflicts atomic.Int64
		rootBound atomic.Int64
		rootKnown atomic.Bool
	)

	g, gctx := errgroup.WithContext(solveCtx)
	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			w := newWorker(p, shared, id)
			complete := w.run(gctx)
			branches.Add(w.branches)
			conflicts.Add(w.conflicts)
			if id == 0 && w.rootOK {
				rootBound.Store(w.rootBound)
				rootKnown.Store(true)
			}
			if complete {
				proved.Store(true)
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := &Response{
		Branches:  branches.Load(),
		Conflicts: conflicts.Load(),
		WallTime:  time.Since(start),
	}

	best, found := shared.bestValue()
	switch {
	case proved.Load() && found:
		resp.Status = StatusOptimal
	case proved.Load():
		resp.Status = StatusInfeasible
	case found:
		resp.Status = StatusFeasible
	default:
		resp.Status = StatusUnknown
	}

	if found {
		resp.Values = shared.snapshot()
		resp.ObjectiveValue = p.sense * best
	} else {
		resp.Values = make([]bool, p.numVars)
	}
	switch {
	case resp.Status == StatusOptimal:
		resp.BestBound = resp.ObjectiveValue
	case rootKnown.Load():
		resp.BestBound = p.sense * rootBound.Load()
	}

	logger.Debug().
		Str("solver", s.Name()).
		Str("status", string(resp.Status)).
		Int("vars", m.NumVars()).
		Int("constraints", m.NumConstraints()).
		Int("workers", workers).
		Int64("branches", resp.Branches).
		Int64("conflicts", resp.Conflicts).
		Dur("wall_time", resp.WallTime).
		Msg("模型求解结束")

	return resp, nil
}
