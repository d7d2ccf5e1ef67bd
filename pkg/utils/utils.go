// Package utils 提供分页等通用工具
package utils

// Pagination 分页信息
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Pages    int64 `json:"pages"`
}

// NewPagination 创建分页信息，page 从 1 开始，pageSize 取值 [1, 100]，默认 12
func NewPagination(page, pageSize int, total int64) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 12
	}
	if pageSize > 100 {
		pageSize = 100
	}

	pages := (total + int64(pageSize) - 1) / int64(pageSize)

	return &Pagination{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    pages,
	}
}

// Offset 当前页的起始下标
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 每页条数
func (p *Pagination) Limit() int {
	return p.PageSize
}

// Bounds 返回长度为 n 的切片在当前页的 [start, end) 区间，越界时为空区间
func (p *Pagination) Bounds(n int) (int, int) {
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Limit()
	if end > n {
		end = n
	}
	return start, end
}
