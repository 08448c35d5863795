// Package pagination pages gorm list queries.
package pagination

import (
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is bound from the page and page_size query parameters.
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Defaults fills unset fields and clamps PageSize to MaxPageSize.
func (p *PageRequest) Defaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
}

// Offset is the number of rows before the requested page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageResponse is the list envelope of every paged endpoint.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse wraps one page of data. Data is never encoded as null.
func NewPageResponse[T any](data []T, page, pageSize int, totalItems int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Scope is a gorm scope applied to the page fetch only, never to the count.
type Scope = func(*gorm.DB) *gorm.DB

// OrderBy sorts the page by the given clauses, in order.
func OrderBy(clauses ...string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range clauses {
			db = db.Order(c)
		}
		return db
	}
}

// Preload loads an association on every row of the page.
func Preload(association string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(association)
	}
}

// Find counts the rows matched by query and loads the requested page of them.
// query carries the filters only; ordering and preloads go in scopes.
func Find[T any](query *gorm.DB, req PageRequest, scopes ...Scope) (*PageResponse[T], error) {
	req.Defaults()
	base := query.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []T
	if total > int64(req.Offset()) {
		if err := base.Scopes(scopes...).
			Offset(req.Offset()).
			Limit(req.PageSize).
			Find(&rows).Error; err != nil {
			return nil, err
		}
	}

	resp := NewPageResponse(rows, req.Page, req.PageSize, total)
	return &resp, nil
}
