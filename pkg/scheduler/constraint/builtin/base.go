// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// HardWeight 硬约束权重
const HardWeight = 100

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   int
	flag     int // 硬约束开关下标，-1 表示不受开关控制
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight int) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
		flag:     -1,
	}
}

// newHard 创建受开关控制的硬约束基类
func newHard(name string, typ constraint.Type, flag int) *BaseConstraint {
	b := NewBaseConstraint(name, typ, constraint.CategoryHard, HardWeight)
	b.flag = flag
	return b
}

// newSoft 创建软约束基类
func newSoft(name string, typ constraint.Type, weight int) *BaseConstraint {
	return NewBaseConstraint(name, typ, constraint.CategorySoft, weight)
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Weight 返回约束权重
func (c *BaseConstraint) Weight() int { return c.weight }

// Flag 返回硬约束开关下标
func (c *BaseConstraint) Flag() int { return c.flag }

// Apply 默认不添加约束（软约束使用）
func (c *BaseConstraint) Apply(ctx *constraint.Context) int {
	return 0
}

// Objective 默认无目标项（硬约束使用）
func (c *BaseConstraint) Objective(ctx *constraint.Context) *cpmodel.LinearExpr {
	return nil
}

// sumIfMany 多于 limit 个变量时才需要上界约束
func sumIfMany(m *cpmodel.Model, vars []cpmodel.BoolVar, limit int64, name string) int {
	if int64(len(vars)) <= limit {
		return 0
	}
	m.AddLessOrEqual(cpmodel.Sum(vars...), limit).WithName(name)
	return 1
}
