// Package cpmodel 提供 0-1 整数规划模型：布尔变量、线性约束、目标函数与求解提示
package cpmodel

import (
	"fmt"
	"sort"
)

// Inf 表示无界
const Inf int64 = 1 << 60

// BoolVar 布尔变量（模型内下标）
type BoolVar int

// Term 线性项 coef·var
type Term struct {
	Var  BoolVar
	Coef int64
}

// LinearExpr 线性表达式 Σ coef·var + offset
type LinearExpr struct {
	Terms  []Term
	Offset int64
}

// NewLinearExpr 创建空表达式
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// Sum 变量之和
func Sum(vars ...BoolVar) *LinearExpr {
	e := &LinearExpr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

// Add 追加系数为 1 的变量
func (e *LinearExpr) Add(v BoolVar) *LinearExpr {
	e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	return e
}

// AddTerm 追加 coef·v
func (e *LinearExpr) AddTerm(v BoolVar, coef int64) *LinearExpr {
	if coef != 0 {
		e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	}
	return e
}

// AddConst 追加常数
func (e *LinearExpr) AddConst(c int64) *LinearExpr {
	e.Offset += c
	return e
}

// AddExpr 追加 scale·other
func (e *LinearExpr) AddExpr(other *LinearExpr, scale int64) *LinearExpr {
	if other == nil || scale == 0 {
		return e
	}
	for _, t := range other.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: t.Coef * scale})
	}
	e.Offset += other.Offset * scale
	return e
}

// Len 项数
func (e *LinearExpr) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Terms)
}

// Evaluate 按给定取值计算表达式
func (e *LinearExpr) Evaluate(value func(BoolVar) bool) int64 {
	total := e.Offset
	for _, t := range e.Terms {
		if value(t.Var) {
			total += t.Coef
		}
	}
	return total
}

// normalize 合并同一变量的系数并去掉零系数项
func (e *LinearExpr) normalize() []Term {
	coefs := make(map[BoolVar]int64, len(e.Terms))
	order := make([]BoolVar, 0, len(e.Terms))
	for _, t := range e.Terms {
		if _, ok := coefs[t.Var]; !ok {
			order = append(order, t.Var)
		}
		coefs[t.Var] += t.Coef
	}
	out := make([]Term, 0, len(order))
	for _, v := range order {
		if c := coefs[v]; c != 0 {
			out = append(out, Term{Var: v, Coef: c})
		}
	}
	return out
}

// Constraint 线性约束 lo ≤ Σ coef·var ≤ hi；Enforcement 全为真时才生效
type Constraint struct {
	Name        string
	Terms       []Term
	Lo          int64
	Hi          int64
	Enforcement []BoolVar
}

// OnlyEnforceIf 仅当给定变量全部为真时约束生效
func (c *Constraint) OnlyEnforceIf(lits ...BoolVar) *Constraint {
	c.Enforcement = append(c.Enforcement, lits...)
	return c
}

// WithName 设置约束名称（用于诊断）
func (c *Constraint) WithName(name string) *Constraint {
	c.Name = name
	return c
}

// Hint 求解提示
type Hint struct {
	Var   BoolVar
	Value bool
}

// Model 0-1 线性模型
type Model struct {
	names       []string
	constraints []*Constraint
	objective   *LinearExpr
	maximize    bool
	hints       map[BoolVar]bool
}

// NewModel 创建模型
func NewModel() *Model {
	return &Model{hints: make(map[BoolVar]bool)}
}

// NewBoolVar 创建布尔变量
func (m *Model) NewBoolVar(name string) BoolVar {
	m.names = append(m.names, name)
	return BoolVar(len(m.names) - 1)
}

// NumVars 变量数
func (m *Model) NumVars() int { return len(m.names) }

// VarName 变量名称
func (m *Model) VarName(v BoolVar) string {
	if int(v) < 0 || int(v) >= len(m.names) {
		return fmt.Sprintf("var(%d)", int(v))
	}
	return m.names[v]
}

// AddLinear 添加 lo ≤ expr ≤ hi
func (m *Model) AddLinear(expr *LinearExpr, lo, hi int64) *Constraint {
	if expr == nil {
		expr = NewLinearExpr()
	}
	c := &Constraint{Terms: expr.normalize(), Lo: lo, Hi: hi}
	if lo > -Inf {
		c.Lo = lo - expr.Offset
	}
	if hi < Inf {
		c.Hi = hi - expr.Offset
	}
	m.constraints = append(m.constraints, c)
	return c
}

// AddLessOrEqual 添加 expr ≤ hi
func (m *Model) AddLessOrEqual(expr *LinearExpr, hi int64) *Constraint {
	return m.AddLinear(expr, -Inf, hi)
}

// AddGreaterOrEqual 添加 expr ≥ lo
func (m *Model) AddGreaterOrEqual(expr *LinearExpr, lo int64) *Constraint {
	return m.AddLinear(expr, lo, Inf)
}

// AddEquality 添加 expr = value
func (m *Model) AddEquality(expr *LinearExpr, value int64) *Constraint {
	return m.AddLinear(expr, value, value)
}

// AddAtMostOne 至多一个为真
func (m *Model) AddAtMostOne(vars ...BoolVar) *Constraint {
	return m.AddLessOrEqual(Sum(vars...), 1)
}

// AddBoolOr 至少一个为真
func (m *Model) AddBoolOr(vars ...BoolVar) *Constraint {
	return m.AddGreaterOrEqual(Sum(vars...), 1)
}

// AddImplication a ⇒ b
func (m *Model) AddImplication(a, b BoolVar) *Constraint {
	return m.AddGreaterOrEqual(Sum(b), 1).OnlyEnforceIf(a)
}

// Maximize 设置最大化目标
func (m *Model) Maximize(expr *LinearExpr) {
	m.objective = expr
	m.maximize = true
}

// Minimize 设置最小化目标
func (m *Model) Minimize(expr *LinearExpr) {
	m.objective = expr
	m.maximize = false
}

// Objective 返回目标函数及方向
func (m *Model) Objective() (*LinearExpr, bool) {
	return m.objective, m.maximize
}

// HasObjective 是否设置了目标
func (m *Model) HasObjective() bool {
	return m.objective != nil
}

// AddHint 添加求解提示（不是约束）
func (m *Model) AddHint(v BoolVar, value bool) {
	m.hints[v] = value
}

// ClearHints 清除全部提示
func (m *Model) ClearHints() {
	m.hints = make(map[BoolVar]bool)
}

// Hint 查询提示值
func (m *Model) Hint(v BoolVar) (bool, bool) {
	val, ok := m.hints[v]
	return val, ok
}

// Hints 按变量顺序返回全部提示
func (m *Model) Hints() []Hint {
	out := make([]Hint, 0, len(m.hints))
	for v, val := range m.hints {
		out = append(out, Hint{Var: v, Value: val})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

// NumHints 提示数量
func (m *Model) NumHints() int { return len(m.hints) }

// ClearConstraints 清除全部约束和目标，保留变量与提示
func (m *Model) ClearConstraints() {
	m.constraints = nil
	m.objective = nil
	m.maximize = false
}

// Constraints 返回约束列表
func (m *Model) Constraints() []*Constraint {
	return m.constraints
}

// NumConstraints 约束数量
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Validate 检查模型结构
func (m *Model) Validate() error {
	n := BoolVar(len(m.names))
	check := func(v BoolVar) error {
		if v < 0 || v >= n {
			return fmt.Errorf("变量下标越界: %d", int(v))
		}
		return nil
	}
	for i, c := range m.constraints {
		if c.Lo > c.Hi {
			return fmt.Errorf("约束 %d (%s) 的下界大于上界: %d > %d", i, c.Name, c.Lo, c.Hi)
		}
		for _, t := range c.Terms {
			if err := check(t.Var); err != nil {
				return fmt.Errorf("约束 %d (%s): %w", i, c.Name, err)
			}
		}
		for _, v := range c.Enforcement {
			if err := check(v); err != nil {
				return fmt.Errorf("约束 %d (%s) 的启用条件: %w", i, c.Name, err)
			}
		}
	}
	if m.objective != nil {
		for _, t := range m.objective.Terms {
			if err := check(t.Var); err != nil {
				return fmt.Errorf("目标函数: %w", err)
			}
		}
	}
	for v := range m.hints {
		if err := check(v); err != nil {
			return fmt.Errorf("提示: %w", err)
		}
	}
	return nil
}
