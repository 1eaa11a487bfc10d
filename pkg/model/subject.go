// Package model 定义排课引擎的核心数据模型
package model

import (
	"fmt"
	"sort"
	"strings"
)

// MergeSeparator 合并科目名称的分隔符
const MergeSeparator = "+"

// SubjectSpec 基础科目声明
type SubjectSpec struct {
	Name  string `json:"name" mapstructure:"name" validate:"required"`
	Ratio int    `json:"ratio" mapstructure:"ratio" validate:"min=1"` // 单个班级最多容纳学生数
}

// Subject 科目目录中的一项（基础科目或合并科目）
type Subject struct {
	Name  string `json:"name"`
	Ratio int    `json:"ratio"`
	Parts []int  `json:"parts"` // 组成该科目的基础科目下标（升序）；基础科目只包含自身
}

// IsMerged 是否为合并科目
func (s Subject) IsMerged() bool {
	return len(s.Parts) > 1
}

// Multiplicity 合并的基础科目数
func (s Subject) Multiplicity() int {
	return len(s.Parts)
}

// Contains 是否包含某基础科目
func (s Subject) Contains(base int) bool {
	for _, p := range s.Parts {
		if p == base {
			return true
		}
	}
	return false
}

// SubjectCatalog 科目目录，只追加不修改；基础科目在前，合并科目在后
type SubjectCatalog struct {
	subjects []Subject
	index    map[string]int
	numBase  int
}

// NewSubjectCatalog 由基础科目声明创建目录
func NewSubjectCatalog(specs []SubjectSpec) (*SubjectCatalog, error) {
	c := &SubjectCatalog{index: make(map[string]int)}
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("科目名称不能为空")
		}
		if strings.Contains(name, MergeSeparator) {
			return nil, fmt.Errorf("基础科目名称不能包含 %q: %s", MergeSeparator, name)
		}
		if spec.Ratio < 1 {
			return nil, fmt.Errorf("科目 %s 的班级容量必须大于 0", name)
		}
		if _, exists := c.index[name]; exists {
			return nil, fmt.Errorf("科目重复: %s", name)
		}
		c.index[name] = len(c.subjects)
		c.subjects = append(c.subjects, Subject{Name: name, Ratio: spec.Ratio, Parts: []int{len(c.subjects)}})
	}
	c.numBase = len(c.subjects)
	return c, nil
}

// Len 目录总长度（含合并科目）
func (c *SubjectCatalog) Len() int { return len(c.subjects) }

// NumBase 基础科目数量
func (c *SubjectCatalog) NumBase() int { return c.numBase }

// Get 按下标获取科目
func (c *SubjectCatalog) Get(i int) Subject { return c.subjects[i] }

// Lookup 按名称查找科目下标
func (c *SubjectCatalog) Lookup(name string) (int, bool) {
	i, ok := c.index[strings.TrimSpace(name)]
	return i, ok
}

// Names 返回全部科目名称（目录顺序）
func (c *SubjectCatalog) Names() []string {
	names := make([]string, len(c.subjects))
	for i, s := range c.subjects {
		names[i] = s.Name
	}
	return names
}

// Subjects 返回目录副本
func (c *SubjectCatalog) Subjects() []Subject {
	out := make([]Subject, len(c.subjects))
	copy(out, c.subjects)
	return out
}

// MergedName 合并科目名称：成员名称排序后以 "+" 连接
func (c *SubjectCatalog) MergedName(parts []int) string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = c.subjects[p].Name
	}
	sort.Strings(names)
	return strings.Join(names, MergeSeparator)
}

// Clone 复制目录，用于在不影响原目录的情况下追加合并科目
func (c *SubjectCatalog) Clone() *SubjectCatalog {
	out := &SubjectCatalog{
		subjects: make([]Subject, len(c.subjects)),
		index:    make(map[string]int, len(c.index)),
		numBase:  c.numBase,
	}
	for i, s := range c.subjects {
		parts := make([]int, len(s.Parts))
		copy(parts, s.Parts)
		out.subjects[i] = Subject{Name: s.Name, Ratio: s.Ratio, Parts: parts}
	}
	for k, v := range c.index {
		out.index[k] = v
	}
	return out
}

// AppendMerged 追加合并科目；已存在则返回原下标
// 成员必须是基础科目且班级容量一致
func (c *SubjectCatalog) AppendMerged(parts []int) (int, error) {
	if len(parts) < 2 {
		return -1, fmt.Errorf("合并科目至少需要两个基础科目")
	}
	sorted := make([]int, len(parts))
	copy(sorted, parts)
	sort.Ints(sorted)

	ratio := 0
	for i, p := range sorted {
		if p < 0 || p >= c.numBase {
			return -1, fmt.Errorf("合并成员 %d 不是基础科目", p)
		}
		if i > 0 && sorted[i-1] == p {
			return -1, fmt.Errorf("合并成员重复: %s", c.subjects[p].Name)
		}
		if ratio == 0 {
			ratio = c.subjects[p].Ratio
		} else if c.subjects[p].Ratio != ratio {
			return -1, fmt.Errorf("合并成员班级容量不一致: %s", c.MergedName(sorted))
		}
	}

	name := c.MergedName(sorted)
	if i, ok := c.index[name]; ok {
		return i, nil
	}
	c.index[name] = len(c.subjects)
	c.subjects = append(c.subjects, Subject{Name: name, Ratio: ratio, Parts: sorted})
	return len(c.subjects) - 1, nil
}

// SplitMergedName 拆分合并科目名称
func SplitMergedName(name string) []string {
	return strings.Split(name, MergeSeparator)
}

// IsMergedName 名称是否表示合并科目
func IsMergedName(name string) bool {
	return strings.Contains(name, MergeSeparator)
}
