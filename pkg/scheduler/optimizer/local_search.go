// Package optimizer 提供局部搜索求解器
//
// 以贪心可行解为起点，在可行域内做禁忌搜索与模拟退火：每次移动翻转若干变量，
// 必要时连带修复被破坏的约束，只接受保持全部约束成立的移动。
// 不证明最优，返回状态恒为 feasible（起点不可得时透传贪心的状态）。
package optimizer

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/paiban/paike/pkg/scheduler/cpmodel"
	"github.com/paiban/paike/pkg/scheduler/solver"
)

// Config 局部搜索配置
type Config struct {
	MaxIterations    int     `json:"max_iterations"`    // 每条搜索链的最大迭代次数
	InitialTemp      float64 `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64 `json:"cooling_rate"`      // 冷却速率
	TabuSize         int     `json:"tabu_size"`         // 禁忌表大小
	NeighborhoodSize int     `json:"neighborhood_size"` // 每次迭代评估的移动数
	MaxRepairs       int     `json:"max_repairs"`       // 单次移动最多连带翻转的变量数
	StopOnPlateau    bool    `json:"stop_on_plateau"`   // 平台期停止
	PlateauThreshold int     `json:"plateau_threshold"` // 无改进迭代次数阈值
	Seed             int64   `json:"seed"`              // 0 表示按时间取种子
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MaxIterations:    5000,
		InitialTemp:      10.0,
		CoolingRate:      0.995,
		TabuSize:         50,
		NeighborhoodSize: 20,
		MaxRepairs:       8,
		StopOnPlateau:    true,
		PlateauThreshold: 500,
	}
}

// chainResult 单条搜索链的结果
type chainResult struct {
	values     []bool
	objective  int64 // 最大化方向
	iterations int64
	rejected   int64
}

// search 从起点出发执行一条搜索链
func search(ctx context.Context, cfg Config, m *cpmodel.Model, start []bool, seed int64) chainResult {
	rng := rand.New(rand.NewSource(seed))
	s := newState(m, start)
	neighbors := NewNeighborhoodGenerator(cfg.MaxRepairs)
	tabu := NewTabuList(cfg.TabuSize)

	best := chainResult{values: append([]bool(nil), s.values...), objective: s.objValue}
	temperature := cfg.InitialTemp
	noImprovement := 0

	for i := 0; i < cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			break
		}
		best.iterations++

		moves := neighbors.batch(s, rng, cfg.NeighborhoodSize)
		if len(moves) == 0 {
			noImprovement++
			if cfg.StopOnPlateau && noImprovement >= cfg.PlateauThreshold {
				break
			}
			continue
		}

		// 选最好的非禁忌移动；能刷新最优的禁忌移动照样可选
		chosen := -1
		for j, mv := range moves {
			if tabu.Contains(moveKey(mv)) && s.objValue+mv.Delta <= best.objective {
				continue
			}
			if chosen < 0 || mv.Delta > moves[chosen].Delta {
				chosen = j
			}
		}
		if chosen < 0 {
			best.rejected++
			noImprovement++
			continue
		}
		mv := moves[chosen]

		if mv.Delta >= 0 || rng.Float64() < boltzmannProbability(float64(-mv.Delta), temperature) {
			s.apply(mv)
			tabu.Add(moveKey(mv))
			if s.objValue > best.objective {
				best.objective = s.objValue
				copy(best.values, s.values)
				noImprovement = 0
			} else {
				noImprovement++
			}
		} else {
			best.rejected++
			noImprovement++
		}

		if cfg.StopOnPlateau && noImprovement >= cfg.PlateauThreshold {
			break
		}
		temperature *= cfg.CoolingRate
	}
	return best
}

// moveKey 移动的哈希（变量集合与顺序无关）
func moveKey(mv Move) uint64 {
	var sum, xor uint64
	for _, v := range mv.Vars {
		h := fnv.New64a()
		var buf [4]byte
		buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		h.Write(buf[:])
		x := h.Sum64()
		sum += x
		xor ^= x
	}
	return sum ^ (xor << 1)
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 目标值下降量
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用uint64哈希作为键）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxSize <= 0 {
		return
	}
	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Len 返回禁忌表长度
func (t *TabuList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// seedFor 第 i 条搜索链的随机种子
func (c Config) seedFor(i int) int64 {
	if c.Seed != 0 {
		return c.Seed + int64(i)
	}
	return time.Now().UnixNano() + int64(i)*7919
}

var _ solver.Engine = (*LocalSearch)(nil)
