// Package scheduler 两阶段排课驱动
//
// 第一阶段只带变量关联、合并科目核算与不连堂，目标中额外包含剩余课时与已排人次，
// 用于快速收窄可行区域；第二阶段以第一阶段的取值作为提示，施加全部启用的硬约束后重新求解。
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/paike/pkg/derive"
	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/postprocess"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/constraint/builtin"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
	"github.com/paiban/paike/pkg/scheduler/optimizer"
	"github.com/paiban/paike/pkg/scheduler/solver"
	"github.com/paiban/paike/pkg/stats"
	"github.com/paiban/paike/pkg/validator"
)

// 阶段编号
const (
	PhaseOne = 1
	PhaseTwo = 2
)

// Input 一次排课的名册输入
type Input struct {
	Students []model.StudentRecord
	Teachers []model.TeacherRecord
}

// PhaseReport 单个阶段的求解诊断
type PhaseReport struct {
	Phase       int                     `json:"phase"`
	Status      solver.Status           `json:"status"`
	Objective   int64                   `json:"objective"`
	BestBound   int64                   `json:"best_bound"`
	Variables   int                     `json:"variables"`
	Constraints int                     `json:"constraints"`
	Applied     map[constraint.Type]int `json:"applied"`
	Registered  constraint.Summary      `json:"registered"`
	Hints       int                     `json:"hints"`
	Branches    int64                   `json:"branches"`
	Conflicts   int64                   `json:"conflicts"`
	WallTime    time.Duration           `json:"wall_time"`
}

// Stats 结果统计
type Stats struct {
	Coverage *stats.CoverageMetrics `json:"coverage"`
	Fairness *stats.FairnessMetrics `json:"fairness"`
}

// Result 排课结果；无解不是错误，Status 非最优且 Rows 为空
type Result struct {
	RunID       string               `json:"run_id"`
	Status      solver.Status        `json:"status"`
	Accepted    bool                 `json:"accepted"`
	Rows        []model.ResultRow    `json:"rows"`
	Phase1      *PhaseReport         `json:"phase1,omitempty"`
	Phase2      *PhaseReport         `json:"phase2,omitempty"`
	Postprocess *postprocess.Report  `json:"postprocess,omitempty"`
	Conflicts   []validator.Conflict `json:"conflicts,omitempty"`
	Stats       *Stats               `json:"stats,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
	Subjects    []string             `json:"subjects"`
	Duration    time.Duration        `json:"duration"`
	Tables      *derive.Tables       `json:"-"`
}

// Solved 是否产出了可接受的方案
func (r *Result) Solved() bool {
	return r != nil && r.Accepted
}

// Observer 运行过程回调（指标采集等）
type Observer interface {
	PhaseSolved(report PhaseReport)
	RunFinished(result *Result)
}

// Option 调度器选项
type Option func(*Scheduler)

// WithEngine 指定求解器
func WithEngine(engine solver.Engine) Option {
	return func(s *Scheduler) { s.engine = engine }
}

// WithObserver 添加观察者
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithLogger 指定日志器
func WithLogger(l *logger.SchedulerLogger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// Scheduler 排课驱动
type Scheduler struct {
	settings  model.Settings
	engine    solver.Engine
	logger    *logger.SchedulerLogger
	observers []Observer
}

// New 创建排课驱动，配置无效时立即失败
func New(settings model.Settings, opts ...Option) (*Scheduler, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "排课配置无效")
	}
	s := &Scheduler{settings: settings}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		engine, err := newEngine(settings.Solver.Engine)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "求解器配置无效")
		}
		s.engine = engine
	}
	if s.logger == nil {
		s.logger = logger.NewSchedulerLogger()
	}
	return s, nil
}

// newEngine 按配置名创建求解器；局部搜索不证明最优，需配合 accept_feasible
func newEngine(name string) (solver.Engine, error) {
	if name == model.EngineLocalSearch {
		return optimizer.New(optimizer.DefaultConfig()), nil
	}
	return solver.NewEngine(name)
}

// Settings 返回运行配置
func (s *Scheduler) Settings() model.Settings {
	return s.settings
}

func (s *Scheduler) params() solver.Parameters {
	return solver.Parameters{
		MaxTime: s.settings.Solver.MaxTime,
		Workers: s.settings.Solver.Workers,
	}
}

// Run 执行一次完整排课：派生查找表、两阶段求解、提取结果、后处理与审计
func (s *Scheduler) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = logger.ContextWithRunID(ctx, runID)

	tb, err := derive.Build(s.settings, in.Students, in.Teachers)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "构建查找表失败")
	}
	result := &Result{
		RunID:    runID,
		Warnings: tb.Warnings,
		Subjects: tb.Catalog.Names(),
		Tables:   tb,
	}
	for _, w := range tb.Warnings {
		logger.WithContext(ctx).Warn().Msg(w)
	}
	s.logger.StartRun(runID, tb.NumStudent, tb.NumTeacher, tb.NumDay, tb.NumShift, tb.Catalog.Len())

	m := cpmodel.NewModel()
	vars := constraint.NewVarSpace(m, tb)

	// 第一阶段
	phaseOne := constraint.NewManager()
	builtin.RegisterPhaseOne(phaseOne, s.settings)
	resp1, report1, err := s.solvePhase(ctx, runID, PhaseOne, phaseOne, constraint.NewContext(s.settings, tb, vars, m, PhaseOne))
	if err != nil {
		return nil, err
	}
	result.Phase1 = report1
	if resp1.Status == solver.StatusInfeasible {
		s.logger.NoSolution(runID, PhaseOne, string(resp1.Status))
		result.Status = resp1.Status
		return s.finish(result, start), nil
	}

	// 阶段间传递提示；第一阶段未找到解时第二阶段不带提示
	m.ClearConstraints()
	m.ClearHints()
	if resp1.Status.HasSolution() {
		for i, v := range resp1.Values {
			m.AddHint(cpmodel.BoolVar(i), v)
		}
		s.logger.HintsTransferred(runID, m.NumHints())
	}

	// 第二阶段
	phaseTwo := constraint.NewManager()
	builtin.RegisterPhaseTwo(phaseTwo, s.settings)
	resp2, report2, err := s.solvePhase(ctx, runID, PhaseTwo, phaseTwo, constraint.NewContext(s.settings, tb, vars, m, PhaseTwo))
	if err != nil {
		return nil, err
	}
	result.Phase2 = report2
	result.Status = resp2.Status

	if !s.accept(resp2.Status) {
		s.logger.NoSolution(runID, PhaseTwo, string(resp2.Status))
		return s.finish(result, start), nil
	}

	rows := ExtractRows(tb, vars, resp2)
	result.Rows, result.Postprocess = postprocess.Process(tb, rows)

	result.Conflicts = validator.NewConflictDetector(s.settings, tb).DetectAll(result.Rows)
	for _, c := range result.Conflicts {
		s.logger.ConstraintViolation(string(c.Type), c.Message)
	}

	result.Stats = &Stats{
		Coverage: stats.NewCoverageAnalyzer().Analyze(tb, result.Rows),
		Fairness: stats.NewFairnessAnalyzer().Analyze(tb, result.Rows),
	}
	return s.finish(result, start), nil
}

// solvePhase 构建并求解一个阶段的模型
func (s *Scheduler) solvePhase(ctx context.Context, runID string, phase int, manager *constraint.Manager, cctx *constraint.Context) (*solver.Response, *PhaseReport, error) {
	built := manager.Build(cctx)
	m := cctx.Model
	s.logger.ModelBuilt(runID, phase, m.NumVars(), m.NumConstraints(), built.Registered.Hard, built.Registered.Soft)

	resp, err := s.engine.Solve(ctx, m, s.params())
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("第 %d 阶段求解失败", phase))
	}
	if ctx.Err() != nil {
		return nil, nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "排课已取消或超时")
	}
	if resp.Status == solver.StatusModelInvalid {
		return nil, nil, errors.New(errors.CodeModelInvalid, "模型结构错误").WithDetails(resp.Message)
	}

	s.logger.PhaseSolved(runID, phase, string(resp.Status), resp.ObjectiveValue, resp.BestBound,
		resp.Branches, resp.Conflicts, resp.WallTime)

	report := &PhaseReport{
		Phase:       phase,
		Status:      resp.Status,
		Objective:   resp.ObjectiveValue,
		BestBound:   resp.BestBound,
		Variables:   m.NumVars(),
		Constraints: built.Constraints,
		Applied:     built.Applied,
		Registered:  built.Registered,
		Hints:       m.NumHints(),
		Branches:    resp.Branches,
		Conflicts:   resp.Conflicts,
		WallTime:    resp.WallTime,
	}
	for _, o := range s.observers {
		o.PhaseSolved(*report)
	}
	return resp, report, nil
}

func (s *Scheduler) accept(status solver.Status) bool {
	if status == solver.StatusOptimal {
		return true
	}
	return s.settings.Solver.AcceptFeasible && status == solver.StatusFeasible
}

func (s *Scheduler) finish(result *Result, start time.Time) *Result {
	result.Accepted = s.accept(result.Status)
	if !result.Accepted {
		result.Rows = nil
	}
	result.Duration = time.Since(start)
	s.logger.RunComplete(result.RunID, string(result.Status), len(result.Rows), result.Duration)
	for _, o := range s.observers {
		o.RunFinished(result)
	}
	return result
}

// ExtractRows 按变量创建顺序（天、学生、教师、科目、学段、时段）为每个取值为真的上课变量生成一行
func ExtractRows(tb *derive.Tables, vars *constraint.VarSpace, resp *solver.Response) []model.ResultRow {
	var rows []model.ResultRow
	for i, key := range vars.ClassKeys() {
		if !resp.Value(vars.ClassVar(i)) {
			continue
		}
		rows = append(rows, model.ResultRow{
			Day:           key.Day,
			Shift:         key.Shift,
			Subject:       tb.Catalog.Get(key.Subject).Name,
			Level:         key.Level,
			Student:       key.Student,
			Teacher:       key.Teacher,
			IsPrimarySlot: tb.Primary.Get(key.Day, key.Shift),
			StudentID:     tb.StudentIDs[key.Student],
			TeacherID:     tb.TeacherIDs[key.Teacher],
		})
	}
	return rows
}
