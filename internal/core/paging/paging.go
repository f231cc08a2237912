// Package paging holds the list envelope shared by every list endpoint.
package paging

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Params struct {
	Page     int
	PageSize int
}

// NewParams clamps page and page size to their defaults and upper bound.
func NewParams(page, pageSize int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Params{Page: page, PageSize: pageSize}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p Params) Limit() int {
	return p.PageSize
}

type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func NewMeta(total int64, p Params) Meta {
	totalPages := 0
	if total > 0 && p.PageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(p.PageSize)))
	}
	return Meta{
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
	}
}

type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

func NewPage[T any](items []T, total int64, p Params) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Data: items, Meta: NewMeta(total, p)}
}

// SlicePage paginates an already filtered in-memory list.
func SlicePage[T any](items []T, p Params) *Page[T] {
	total := int64(len(items))
	start := p.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return NewPage(items[start:end], total, p)
}
