// Package repository 提供排课结果的数据访问层
package repository

// ListFilter 列表查询过滤器
type ListFilter struct {
	Env    string `json:"env,omitempty"`
	Status string `json:"status,omitempty"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset: 0,
		Limit:  20,
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithEnv 设置运行环境过滤
func (f ListFilter) WithEnv(env string) ListFilter {
	f.Env = env
	return f
}

// WithStatus 设置状态过滤
func (f ListFilter) WithStatus(status string) ListFilter {
	f.Status = status
	return f
}
