package pagination

import "gorm.io/gorm"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Params struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=10"`
}

type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	NextPage   *int  `json:"next_page,omitempty"`
}

func (p Params) normalized() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Scope applies offset and limit for the requested page.
func (p Params) Scope(db *gorm.DB) *gorm.DB {
	p = p.normalized()
	return db.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

func (p Params) Meta(total int64) Meta {
	p = p.normalized()
	meta := Meta{Page: p.Page, PageSize: p.PageSize, TotalCount: total}
	if int64(p.Page*p.PageSize) < total {
		next := p.Page + 1
		meta.NextPage = &next
	}
	return meta
}
