package repository

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination 页码从 1 开始
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination 越界的页码与页大小被收敛到合法范围
func NewPagination(page, pageSize int) Pagination {
	p := Pagination{Page: max(page, 1), PageSize: pageSize}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

func (p Pagination) Limit() int { return p.PageSize }

// PagedResult 一页数据及总条数
type PagedResult[T any] struct {
	Items      []T
	Total      int64
	Page       int
	TotalPages int
}

func NewPagedResult[T any](items []T, total int64, p Pagination) *PagedResult[T] {
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &PagedResult[T]{Items: items, Total: total, Page: p.Page, TotalPages: pages}
}
