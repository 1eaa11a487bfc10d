package solver

import (
	"sort"

	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// occurrence 变量在约束中的一次出现
type occurrence struct {
	cons int32
	coef int64
}

// compiledConstraint 求解期使用的约束
type compiledConstraint struct {
	terms  []cpmodel.Term
	lo, hi int64
	enf    []cpmodel.BoolVar
	maxAbs int64
	minAct int64 // 全部未赋值时的最小活动值
	maxAct int64
}

// group 目标变量上的 "至多 k 个" 分组，用于加强目标上界
type group struct {
	cons    int32
	members []int32 // 组内目标系数为正的变量
}

// problem 由模型编译得到的只读求解结构，供多个 worker 共享
type problem struct {
	numVars   int
	cons      []compiledConstraint
	occ       [][]occurrence
	enfOcc    [][]int32
	obj       []int64 // 统一为最大化方向的目标系数
	objVars   []int32 // 目标系数非零的变量
	objOffset int64
	sense     int64 // 1 最大化，-1 最小化
	groups    []group
	grouped   []bool
	hints     []int8 // -1 无提示
}

func compile(m *cpmodel.Model) *problem {
	n := m.NumVars()
	p := &problem{
		numVars: n,
		occ:     make([][]occurrence, n),
		enfOcc:  make([][]int32, n),
		obj:     make([]int64, n),
		grouped: make([]bool, n),
		hints:   make([]int8, n),
		sense:   1,
	}

	for i, c := range m.Constraints() {
		cc := compiledConstraint{terms: c.Terms, lo: c.Lo, hi: c.Hi, enf: c.Enforcement}
		for _, t := range c.Terms {
			if t.Coef > 0 {
				cc.maxAct += t.Coef
			} else {
				cc.minAct += t.Coef
			}
			abs := t.Coef
			if abs < 0 {
				abs = -abs
			}
			if abs > cc.maxAbs {
				cc.maxAbs = abs
			}
			p.occ[t.Var] = append(p.occ[t.Var], occurrence{cons: int32(i), coef: t.Coef})
		}
		for _, e := range c.Enforcement {
			p.enfOcc[e] = append(p.enfOcc[e], int32(i))
		}
		p.cons = append(p.cons, cc)
	}

	if expr, maximize := m.Objective(); expr != nil {
		if !maximize {
			p.sense = -1
		}
		for _, t := range expr.Terms {
			p.obj[t.Var] += p.sense * t.Coef
		}
		p.objOffset = p.sense * expr.Offset
		for v := 0; v < n; v++ {
			if p.obj[v] != 0 {
				p.objVars = append(p.objVars, int32(v))
			}
		}
	}

	for v := range p.hints {
		p.hints[v] = -1
	}
	for _, h := range m.Hints() {
		if h.Value {
			p.hints[h.Var] = 1
		} else {
			p.hints[h.Var] = 0
		}
	}

	p.buildGroups()
	return p
}

// buildGroups 从单位系数、无启用条件的 ≤k 约束中挑选互不相交的目标变量分组
func (p *problem) buildGroups() {
	if len(p.objVars) == 0 {
		return
	}
	candidates := make([]int32, 0)
	for i, c := range p.cons {
		if len(c.enf) > 0 || c.hi >= cpmodel.Inf || c.hi < 0 || int64(len(c.terms)) <= c.hi {
			continue
		}
		unit := true
		for _, t := range c.terms {
			if t.Coef != 1 {
				unit = false
				break
			}
		}
		if unit {
			candidates = append(candidates, int32(i))
		}
	}
	// k 小、覆盖多的约束优先
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := p.cons[candidates[i]], p.cons[candidates[j]]
		if ci.hi != cj.hi {
			return ci.hi < cj.hi
		}
		return len(ci.terms) > len(cj.terms)
	})

	for _, ci := range candidates {
		var members []int32
		for _, t := range p.cons[ci].terms {
			v := int32(t.Var)
			if p.obj[v] > 0 && !p.grouped[v] {
				members = append(members, v)
			}
		}
		if int64(len(members)) <= p.cons[ci].hi {
			continue
		}
		for _, v := range members {
			p.grouped[v] = true
		}
		p.groups = append(p.groups, group{cons: ci, members: members})
	}
}
