package derive

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/paiban/paike/pkg/model"
)

// maxMergeGroup 单个教师同容量科目数上限（子集数随其指数增长）
const maxMergeGroup = 12

// BuildMergedCatalog 基于教师可授科目生成合并科目目录
//
// 对每位教师，取其可授的基础科目并按班级容量分组；组内任意 ≥2 个科目的子集
// 生成一个合并科目（名称为成员名排序后以 "+" 连接）。已存在的名称跳过，
// 新条目按名称排序后追加，因此对同一输入重复执行得到相同目录。
func BuildMergedCatalog(base *model.SubjectCatalog, teachable [][]int) (*model.SubjectCatalog, error) {
	catalog := base.Clone()

	type candidate struct {
		name  string
		parts []int
	}
	seen := make(map[string]bool)
	var candidates []candidate

	for t, subjects := range teachable {
		distinct := lo.Uniq(lo.Filter(subjects, func(s int, _ int) bool {
			return s >= 0 && s < base.NumBase()
		}))
		byRatio := lo.GroupBy(distinct, func(s int) int { return base.Get(s).Ratio })

		for _, group := range byRatio {
			if len(group) < 2 {
				continue
			}
			if len(group) > maxMergeGroup {
				return nil, fmt.Errorf("教师 %d 的同容量科目过多: %d", t, len(group))
			}
			sort.Ints(group)
			for _, parts := range subsets(group) {
				name := catalog.MergedName(parts)
				if seen[name] {
					continue
				}
				seen[name] = true
				candidates = append(candidates, candidate{name: name, parts: parts})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].name < candidates[j].name })
	for _, c := range candidates {
		if _, err := catalog.AppendMerged(c.parts); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// subsets 枚举大小 ≥2 的全部子集
func subsets(items []int) [][]int {
	var out [][]int
	n := len(items)
	for mask := 1; mask < 1<<n; mask++ {
		if bitCount(mask) < 2 {
			continue
		}
		parts := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				parts = append(parts, items[i])
			}
		}
		out = append(out, parts)
	}
	return out
}

func bitCount(x int) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}

// TeachableSubjects 将教师记录中的科目名解析为基础科目下标；未知科目返回在 unknown 中
func TeachableSubjects(catalog *model.SubjectCatalog, rec model.TeacherRecord) (subjects []int, unknown []string) {
	names := lo.Keys(rec.Teachable)
	sort.Strings(names)
	for _, name := range names {
		if len(rec.Teachable[name]) == 0 {
			continue
		}
		idx, ok := catalog.Lookup(name)
		if !ok || idx >= catalog.NumBase() {
			unknown = append(unknown, name)
			continue
		}
		subjects = append(subjects, idx)
	}
	return subjects, unknown
}

// LCM 最小公倍数
func LCM(values ...int) int {
	result := 1
	for _, v := range values {
		if v <= 0 {
			continue
		}
		result = result / gcd(result, v) * v
	}
	return result
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
