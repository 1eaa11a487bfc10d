package optimizer

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
	"github.com/paiban/paike/pkg/scheduler/solver"
)

// LocalSearch 局部搜索求解器
// 每个 worker 跑一条独立种子的搜索链，取目标最好的一条
type LocalSearch struct {
	config  Config
	initial solver.Engine
}

// New 创建局部搜索求解器
func New(cfg Config) *LocalSearch {
	return &LocalSearch{
		config:  cfg,
		initial: solver.NewGreedySolver(),
	}
}

// Name 返回求解器名称
func (l *LocalSearch) Name() string {
	return "LocalSearch"
}

// Solve 求解模型
func (l *LocalSearch) Solve(ctx context.Context, m *cpmodel.Model, params solver.Parameters) (*solver.Response, error) {
	if m == nil {
		return nil, fmt.Errorf("模型不能为空")
	}
	start := time.Now()

	solveCtx := ctx
	if params.MaxTime > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, params.MaxTime)
		defer cancel()
	}

	// 起点：贪心可行解
	initResp, err := l.initial.Solve(solveCtx, m, params)
	if err != nil {
		return nil, err
	}
	if !initResp.Status.HasSolution() {
		initResp.WallTime = time.Since(start)
		return initResp, nil
	}
	expr, _ := m.Objective()
	if expr == nil {
		return initResp, nil
	}

	workers := params.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		best = chainResult{values: initResp.Values, objective: math.MinInt64}

		iterations int64
		rejected   int64
	)

	g, gctx := errgroup.WithContext(solveCtx)
	for i := 0; i < workers; i++ {
		seed := l.config.seedFor(i)
		g.Go(func() error {
			r := search(gctx, l.config, m, initResp.Values, seed)
			mu.Lock()
			defer mu.Unlock()
			iterations += r.iterations
			rejected += r.rejected
			if r.objective > best.objective {
				best.values = r.values
				best.objective = r.objective
			}
			return nil
		})
	}
	_ = g.Wait()

	values := best.values
	resp := &solver.Response{
		Status:         solver.StatusFeasible,
		ObjectiveValue: expr.Evaluate(func(v cpmodel.BoolVar) bool { return values[v] }),
		BestBound:      initResp.BestBound,
		Values:         values,
		Branches:       iterations,
		Conflicts:      rejected,
		WallTime:       time.Since(start),
	}

	logger.Debug().
		Str("solver", l.Name()).
		Int("workers", workers).
		Int64("initial_objective", initResp.ObjectiveValue).
		Int64("objective", resp.ObjectiveValue).
		Int64("iterations", iterations).
		Int64("rejected", rejected).
		Dur("wall_time", resp.WallTime).
		Msg("模型求解结束")

	return resp, nil
}
