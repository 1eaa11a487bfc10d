package constraint

import (
	"sort"
	"sync"

	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.SchedulerLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewSchedulerLogger(),
	}
}

// Register 注册约束
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 检查是否已存在同类型约束
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c // 替换
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，权重高的在前；同权重保持注册顺序
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Weight() > cj.Weight()
	})
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Apply 依次施加全部硬约束
func (m *Manager) Apply(ctx *Context) *Result {
	result := &Result{Applied: make(map[Type]int)}
	for _, c := range m.GetByCategory(CategoryHard) {
		n := c.Apply(ctx)
		result.Applied[c.Type()] = n
		m.logger.ConstraintApplied(ctx.Phase, c.Name(), n)
	}
	result.Constraints = ctx.Model.NumConstraints()
	return result
}

// Objective 按权重合并全部软约束的目标项
func (m *Manager) Objective(ctx *Context) *cpmodel.LinearExpr {
	expr := cpmodel.NewLinearExpr()
	for _, c := range m.GetByCategory(CategorySoft) {
		if c.Weight() == 0 {
			continue
		}
		term := c.Objective(ctx)
		if term == nil {
			continue
		}
		expr.AddExpr(term, int64(c.Weight()))
	}
	return expr
}

// Build 施加硬约束并设置最大化目标
func (m *Manager) Build(ctx *Context) *Result {
	result := m.Apply(ctx)
	objective := m.Objective(ctx)
	ctx.Model.Maximize(objective)
	result.ObjectiveTerms = objective.Len()
	result.Registered = m.Summary()
	return result
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make([]Constraint, 0)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Summary 按类别统计已注册的约束
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum Summary
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			sum.Hard++
		} else {
			sum.Soft++
		}
	}
	return sum
}
