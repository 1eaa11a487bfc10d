package optimizer

import (
	"math/rand"

	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

// MoveType 移动类型
type MoveType int

const (
	MoveFlip   MoveType = iota // 翻转单个变量
	MoveSwap                   // 关掉一个真变量并打开一个假变量
	MoveInsert                 // 打开一个目标变量并修复被破坏的约束
	MoveRemove                 // 关掉一个目标变量并修复
)

// Move 一次移动：按顺序翻转的变量列表
type Move struct {
	Type  MoveType
	Vars  []int32
	Delta int64 // 目标值变化（最大化方向）
}

type occurrence struct {
	cons int32
	coef int64
}

// state 当前取值及每个约束的活动值，翻转时增量维护
type state struct {
	cons     []*cpmodel.Constraint
	occ      [][]occurrence
	enfOcc   [][]int32
	obj      []int64 // 统一为最大化方向
	objVars  []int32
	values   []bool
	act      []int64
	objValue int64
	seen     []int32 // 约束检查去重标记
	epoch    int32
}

func newState(m *cpmodel.Model, values []bool) *state {
	n := m.NumVars()
	s := &state{
		cons:   m.Constraints(),
		occ:    make([][]occurrence, n),
		enfOcc: make([][]int32, n),
		obj:    make([]int64, n),
		values: append([]bool(nil), values...),
	}
	if len(s.values) < n {
		s.values = append(s.values, make([]bool, n-len(s.values))...)
	}
	s.act = make([]int64, len(s.cons))
	s.seen = make([]int32, len(s.cons))

	for i, c := range s.cons {
		for _, t := range c.Terms {
			s.occ[t.Var] = append(s.occ[t.Var], occurrence{cons: int32(i), coef: t.Coef})
			if s.values[t.Var] {
				s.act[i] += t.Coef
			}
		}
		for _, e := range c.Enforcement {
			s.enfOcc[e] = append(s.enfOcc[e], int32(i))
		}
	}

	if expr, maximize := m.Objective(); expr != nil {
		sense := int64(1)
		if !maximize {
			sense = -1
		}
		for _, t := range expr.Terms {
			s.obj[t.Var] += sense * t.Coef
		}
		for v := range s.obj {
			if s.obj[v] != 0 {
				s.objVars = append(s.objVars, int32(v))
				if s.values[v] {
					s.objValue += s.obj[v]
				}
			}
		}
	}
	return s
}

func (s *state) flip(v int32) {
	d := int64(1)
	if s.values[v] {
		d = -1
	}
	s.values[v] = !s.values[v]
	for _, o := range s.occ[v] {
		s.act[o.cons] += o.coef * d
	}
	s.objValue += s.obj[v] * d
}

func (s *state) violated(ci int32) bool {
	c := s.cons[ci]
	for _, e := range c.Enforcement {
		if !s.values[e] {
			return false
		}
	}
	a := s.act[ci]
	return a < c.Lo || a > c.Hi
}

// firstViolated 返回被 vars 触及的第一个违反约束，没有则返回 -1
func (s *state) firstViolated(vars []int32) int32 {
	s.epoch++
	check := func(ci int32) bool {
		if s.seen[ci] == s.epoch {
			return false
		}
		s.seen[ci] = s.epoch
		return s.violated(ci)
	}
	for _, v := range vars {
		for _, o := range s.occ[v] {
			if check(o.cons) {
				return o.cons
			}
		}
		for _, ci := range s.enfOcc[v] {
			if check(ci) {
				return ci
			}
		}
	}
	return -1
}

// feasible 检查全部约束（仅用于起点校验与测试）
func (s *state) feasible() bool {
	for i := range s.cons {
		if s.violated(int32(i)) {
			return false
		}
	}
	return true
}

// repairVar 为违反的约束挑一个可翻转的变量，使活动值向可行区间移动
func (s *state) repairVar(ci int32, exclude map[int32]bool, rng *rand.Rand) int32 {
	c := s.cons[ci]
	a := s.act[ci]
	var candidates []int32
	for _, t := range c.Terms {
		v := int32(t.Var)
		if exclude[v] {
			continue
		}
		on := s.values[v]
		if a > c.Hi && ((t.Coef > 0 && on) || (t.Coef < 0 && !on)) {
			candidates = append(candidates, v)
		}
		if a < c.Lo && ((t.Coef > 0 && !on) || (t.Coef < 0 && on)) {
			candidates = append(candidates, v)
		}
	}
	// 关掉启用条件同样能满足约束
	for _, e := range c.Enforcement {
		if v := int32(e); !exclude[v] {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[rng.Intn(len(candidates))]
}

// try 依次翻转给定变量并修复，返回实际翻转的变量；不可行时还原并返回 nil
func (s *state) try(seed []int32, maxRepairs int, rng *rand.Rand) []int32 {
	flipped := make([]int32, 0, len(seed)+maxRepairs)
	exclude := make(map[int32]bool, len(seed)+maxRepairs)
	for _, v := range seed {
		s.flip(v)
		flipped = append(flipped, v)
		exclude[v] = true
	}
	for r := 0; ; r++ {
		ci := s.firstViolated(flipped)
		if ci < 0 {
			return flipped
		}
		if r >= maxRepairs {
			break
		}
		u := s.repairVar(ci, exclude, rng)
		if u < 0 {
			break
		}
		s.flip(u)
		flipped = append(flipped, u)
		exclude[u] = true
	}
	s.undo(flipped)
	return nil
}

func (s *state) undo(flipped []int32) {
	for i := len(flipped) - 1; i >= 0; i-- {
		s.flip(flipped[i])
	}
}

// apply 重放一次已验证的移动
func (s *state) apply(mv Move) {
	for _, v := range mv.Vars {
		s.flip(v)
	}
}

// NeighborhoodGenerator 邻域生成器
type NeighborhoodGenerator struct {
	moveWeights map[MoveType]float64
	maxRepairs  int
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(maxRepairs int) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		moveWeights: map[MoveType]float64{
			MoveFlip:   0.2,
			MoveSwap:   0.2,
			MoveInsert: 0.45,
			MoveRemove: 0.15,
		},
		maxRepairs: maxRepairs,
	}
}

// SetMoveWeights 设置移动类型权重
func (n *NeighborhoodGenerator) SetMoveWeights(weights map[MoveType]float64) {
	for k, v := range weights {
		n.moveWeights[k] = v
	}
}

func (n *NeighborhoodGenerator) selectMoveType(rng *rand.Rand) MoveType {
	total := 0.0
	for _, w := range n.moveWeights {
		total += w
	}
	r := rng.Float64() * total
	for _, t := range []MoveType{MoveFlip, MoveSwap, MoveInsert, MoveRemove} {
		r -= n.moveWeights[t]
		if r <= 0 {
			return t
		}
	}
	return MoveInsert
}

// generate 生成一个可行移动并计算其目标变化，状态保持不变；失败返回 false
func (n *NeighborhoodGenerator) generate(s *state, rng *rand.Rand) (Move, bool) {
	if len(s.objVars) == 0 {
		return Move{}, false
	}
	typ := n.selectMoveType(rng)
	var seed []int32
	repairs := n.maxRepairs

	switch typ {
	case MoveFlip:
		seed = []int32{s.objVars[rng.Intn(len(s.objVars))]}
		repairs = 0
	case MoveSwap:
		off, on := s.pick(rng, true), s.pick(rng, false)
		if off < 0 || on < 0 {
			return Move{}, false
		}
		seed = []int32{off, on}
		repairs = 0
	case MoveInsert:
		v := s.pick(rng, false)
		if v < 0 {
			return Move{}, false
		}
		seed = []int32{v}
	case MoveRemove:
		v := s.pick(rng, true)
		if v < 0 {
			return Move{}, false
		}
		seed = []int32{v}
	}

	before := s.objValue
	flipped := s.try(seed, repairs, rng)
	if flipped == nil {
		return Move{}, false
	}
	mv := Move{Type: typ, Vars: flipped, Delta: s.objValue - before}
	s.undo(flipped)
	return mv, true
}

// pick 随机挑一个取值为 on 的目标变量，找不到返回 -1
func (s *state) pick(rng *rand.Rand, on bool) int32 {
	n := len(s.objVars)
	start := rng.Intn(n)
	for i := 0; i < n; i++ {
		v := s.objVars[(start+i)%n]
		if s.values[v] == on {
			return v
		}
	}
	return -1
}

// batch 生成一批可行移动
func (n *NeighborhoodGenerator) batch(s *state, rng *rand.Rand, count int) []Move {
	moves := make([]Move, 0, count)
	for attempts := 0; len(moves) < count && attempts < count*4; attempts++ {
		if mv, ok := n.generate(s, rng); ok {
			moves = append(moves, mv)
		}
	}
	return moves
}
