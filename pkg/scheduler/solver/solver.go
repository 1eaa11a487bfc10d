// Package solver 提供 0-1 线性模型求解器
package solver

import (
	"context"
	"time"

	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// Status 求解状态
type Status string

const (
	StatusOptimal      Status = "optimal"       // 已证明最优
	StatusFeasible     Status = "feasible"      // 有可行解但未证明最优（通常是超时）
	StatusInfeasible   Status = "infeasible"    // 已证明无可行解
	StatusUnknown      Status = "unknown"       // 超时且没有找到可行解
	StatusModelInvalid Status = "model_invalid" // 模型结构错误
)

// HasSolution 是否带有可用取值
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Engine 求解器接口
type Engine interface {
	// Solve 求解模型，阻塞直到结束或预算耗尽
	Solve(ctx context.Context, m *cpmodel.Model, params Parameters) (*Response, error)

	// Name 返回求解器名称
	Name() string
}

// Parameters 求解参数
type Parameters struct {
	MaxTime time.Duration `json:"max_time"` // 0 表示不限时
	Workers int           `json:"workers"`
}

// DefaultParameters 默认求解参数
func DefaultParameters() Parameters {
	return Parameters{
		MaxTime: 60 * time.Second,
		Workers: 8,
	}
}

// Response 求解结果
type Response struct {
	Status         Status        `json:"status"`
	ObjectiveValue int64         `json:"objective_value"`
	BestBound      int64         `json:"best_bound"`
	Values         []bool        `json:"-"`
	Branches       int64         `json:"branches"`
	Conflicts      int64         `json:"conflicts"`
	WallTime       time.Duration `json:"wall_time"`
	Message        string        `json:"message,omitempty"`
}

// Value 返回变量取值；无解时恒为 false
func (r *Response) Value(v cpmodel.BoolVar) bool {
	if r == nil || int(v) < 0 || int(v) >= len(r.Values) {
		return false
	}
	return r.Values[v]
}

// CountTrue 返回取值为真的变量数
func (r *Response) CountTrue() int {
	n := 0
	for _, v := range r.Values {
		if v {
			n++
		}
	}
	return n
}
