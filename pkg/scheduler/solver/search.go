package solver

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/paiban/paike/pkg/scheduler/cpmodel"
)

const unassigned int8 = -1

// incumbent 多个 worker 共享的当前最优解
type incumbent struct {
	mu     sync.Mutex
	found  atomic.Bool
	best   atomic.Int64
	values []bool
}

// bestValue 返回当前最优目标值（最大化方向）
func (in *incumbent) bestValue() (int64, bool) {
	if !in.found.Load() {
		return math.MinInt64, false
	}
	return in.best.Load(), true
}

// offer 提交一个可行解，仅当严格更优时接受
func (in *incumbent) offer(value int64, assignment []int8) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.found.Load() && value <= in.best.Load() {
		return false
	}
	if in.values == nil {
		in.values = make([]bool, len(assignment))
	}
	for i, v := range assignment {
		in.values[i] = v == 1
	}
	in.best.Store(value)
	in.found.Store(true)
	return true
}

// snapshot 复制当前最优解
func (in *incumbent) snapshot() []bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.values == nil {
		return nil
	}
	out := make([]bool, len(in.values))
	copy(out, in.values)
	return out
}

// frame 搜索栈中的一个分支点
type frame struct {
	trailLen int
	pos      int
	v        int32
	second   int8
	tried    bool
}

// worker 单线程深度优先分支定界
type worker struct {
	p      *problem
	shared *incumbent

	order  []int32
	prefer []int8

	val     []int8
	minAct  []int64
	maxAct  []int64
	trail   []int32
	queue   []int32
	inQueue []bool

	objFixed int64
	scratch  []int64

	branches  int64
	conflicts int64
	nodes     int64
	rootBound int64
	rootOK    bool

	firstOnly bool  // 找到第一个可行解即停止
	nodeLimit int64 // 0 表示不限
}

func newWorker(p *problem, shared *incumbent, id int) *worker {
	w := &worker{
		p:       p,
		shared:  shared,
		val:     make([]int8, p.numVars),
		minAct:  make([]int64, len(p.cons)),
		maxAct:  make([]int64, len(p.cons)),
		inQueue: make([]bool, len(p.cons)),
		prefer:  make([]int8, p.numVars),
	}
	for i := range w.val {
		w.val[i] = unassigned
	}
	for i, c := range p.cons {
		w.minAct[i] = c.minAct
		w.maxAct[i] = c.maxAct
	}
	w.initHeuristics(id)
	return w
}

// initHeuristics 设置分支顺序与取值偏好
// worker 0 优先采用提示，worker 1 只看目标系数，其余 worker 在同系数变量间随机打散
func (w *worker) initHeuristics(id int) {
	p := w.p
	w.order = make([]int32, p.numVars)
	for i := range w.order {
		w.order[i] = int32(i)
	}
	if id >= 2 {
		rng := rand.New(rand.NewSource(int64(id) * 7919))
		rng.Shuffle(len(w.order), func(i, j int) { w.order[i], w.order[j] = w.order[j], w.order[i] })
	}
	abs := func(x int64) int64 {
		if x < 0 {
			return -x
		}
		return x
	}
	sort.SliceStable(w.order, func(i, j int) bool {
		return abs(p.obj[w.order[i]]) > abs(p.obj[w.order[j]])
	})

	for v := 0; v < p.numVars; v++ {
		pref := int8(0)
		if p.obj[v] > 0 {
			pref = 1
		}
		if id != 1 && p.hints[v] != unassigned {
			pref = p.hints[v]
		}
		w.prefer[v] = pref
	}
}

// assign 赋值并更新约束活动值
func (w *worker) assign(v int32, value int8) {
	w.val[v] = value
	w.trail = append(w.trail, v)
	for _, o := range w.p.occ[v] {
		switch {
		case value == 1 && o.coef > 0:
			w.minAct[o.cons] += o.coef
		case value == 1 && o.coef < 0:
			w.maxAct[o.cons] += o.coef
		case value == 0 && o.coef > 0:
			w.maxAct[o.cons] -= o.coef
		default:
			w.minAct[o.cons] -= o.coef
		}
		w.enqueue(o.cons)
	}
	for _, ci := range w.p.enfOcc[v] {
		w.enqueue(ci)
	}
	if value == 1 {
		w.objFixed += w.p.obj[v]
	}
}

// undo 回退到给定的赋值栈长度
func (w *worker) undo(trailLen int) {
	for len(w.trail) > trailLen {
		v := w.trail[len(w.trail)-1]
		w.trail = w.trail[:len(w.trail)-1]
		value := w.val[v]
		for _, o := range w.p.occ[v] {
			switch {
			case value == 1 && o.coef > 0:
				w.minAct[o.cons] -= o.coef
			case value == 1 && o.coef < 0:
				w.maxAct[o.cons] -= o.coef
			case value == 0 && o.coef > 0:
				w.maxAct[o.cons] += o.coef
			default:
				w.minAct[o.cons] += o.coef
			}
		}
		if value == 1 {
			w.objFixed -= w.p.obj[v]
		}
		w.val[v] = unassigned
	}
	for _, ci := range w.queue {
		w.inQueue[ci] = false
	}
	w.queue = w.queue[:0]
}

func (w *worker) enqueue(ci int32) {
	if !w.inQueue[ci] {
		w.inQueue[ci] = true
		w.queue = append(w.queue, ci)
	}
}

// propagate 约束传播；返回 false 表示冲突
func (w *worker) propagate() bool {
	for len(w.queue) > 0 {
		ci := w.queue[len(w.queue)-1]
		w.queue = w.queue[:len(w.queue)-1]
		w.inQueue[ci] = false
		c := &w.p.cons[ci]

		free := 0
		var freeLit cpmodel.BoolVar
		inactive := false
		for _, e := range c.enf {
			switch w.val[e] {
			case 0:
				inactive = true
			case unassigned:
				free++
				freeLit = e
			}
			if inactive {
				break
			}
		}
		if inactive {
			continue
		}

		violated := w.minAct[ci] > c.hi || w.maxAct[ci] < c.lo
		if free > 0 {
			// 约束必然违反时，唯一未定的启用条件只能为假
			if violated && free == 1 {
				w.assign(int32(freeLit), 0)
			}
			continue
		}
		if violated {
			w.clearQueue()
			return false
		}
		if w.minAct[ci]+c.maxAbs <= c.hi && w.maxAct[ci]-c.maxAbs >= c.lo {
			continue
		}
		for _, t := range c.terms {
			v := int32(t.Var)
			if w.val[v] != unassigned {
				continue
			}
			if t.Coef > 0 {
				if w.minAct[ci]+t.Coef > c.hi {
					w.assign(v, 0)
				} else if w.maxAct[ci]-t.Coef < c.lo {
					w.assign(v, 1)
				}
			} else {
				if w.minAct[ci]-t.Coef > c.hi {
					w.assign(v, 1)
				} else if w.maxAct[ci]+t.Coef < c.lo {
					w.assign(v, 0)
				}
			}
		}
	}
	return true
}

func (w *worker) clearQueue() {
	for _, ci := range w.queue {
		w.inQueue[ci] = false
	}
	w.queue = w.queue[:0]
}

// bound 当前节点的目标上界（最大化方向）
func (w *worker) bound() int64 {
	p := w.p
	total := p.objOffset + w.objFixed
	for _, v := range p.objVars {
		if w.val[v] == unassigned && !p.grouped[v] && p.obj[v] > 0 {
			total += p.obj[v]
		}
	}
	for _, g := range p.groups {
		remaining := p.cons[g.cons].hi - w.minAct[g.cons]
		if remaining <= 0 {
			continue
		}
		w.scratch = w.scratch[:0]
		for _, v := range g.members {
			if w.val[v] == unassigned {
				w.scratch = append(w.scratch, p.obj[v])
			}
		}
		if int64(len(w.scratch)) > remaining {
			sort.Slice(w.scratch, func(i, j int) bool { return w.scratch[i] > w.scratch[j] })
			w.scratch = w.scratch[:remaining]
		}
		for _, c := range w.scratch {
			total += c
		}
	}
	return total
}

// pickVar 从 pos 开始按分支顺序找第一个未赋值变量
func (w *worker) pickVar(pos int) (int32, int) {
	for i := pos; i < len(w.order); i++ {
		if w.val[w.order[i]] == unassigned {
			return w.order[i], i
		}
	}
	return -1, len(w.order)
}

// run 执行搜索；返回 true 表示搜索空间已穷尽（结论可信）
func (w *worker) run(ctx context.Context) bool {
	for i := range w.p.cons {
		w.enqueue(int32(i))
	}
	if !w.propagate() {
		w.conflicts++
		return true
	}
	w.rootBound = w.bound()
	w.rootOK = true

	var stack []frame
	pos := 0
	for {
		w.nodes++
		if w.nodes&1023 == 0 && ctx.Err() != nil {
			return false
		}
		if w.nodeLimit > 0 && w.nodes > w.nodeLimit {
			return false
		}

		descend := true
		if best, ok := w.shared.bestValue(); ok && w.bound() <= best {
			descend = false
		}
		if descend {
			v, at := w.pickVar(pos)
			if v < 0 {
				w.shared.offer(w.p.objOffset+w.objFixed, w.val)
				if w.firstOnly {
					return false
				}
			} else {
				first := w.prefer[v]
				stack = append(stack, frame{trailLen: len(w.trail), pos: at, v: v, second: 1 - first})
				w.branches++
				w.assign(v, first)
				pos = at
				if w.propagate() {
					continue
				}
				w.conflicts++
			}
		}

		// 回溯到最近一个还有另一分支的节点
		for {
			if len(stack) == 0 {
				return true
			}
			f := &stack[len(stack)-1]
			w.undo(f.trailLen)
			if f.tried {
				stack = stack[:len(stack)-1]
				continue
			}
			f.tried = true
			pos = f.pos
			w.assign(f.v, f.second)
			if w.propagate() {
				break
			}
			w.conflicts++
		}
	}
}
