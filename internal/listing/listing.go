package listing

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Params are the list controls shared by every collection endpoint.
type Params struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// Normalize clamps paging and order to accepted values.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Status = strings.ToUpper(strings.TrimSpace(p.Status))
	switch strings.ToLower(p.Order) {
	case "desc":
		p.Order = "desc"
	default:
		p.Order = "asc"
	}
	return p
}

// Offset is the zero-based index of the first row of the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Values encodes the params as query string values for the inventory API.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	if p.Sort != "" {
		v.Set("sortBy", p.Sort)
		v.Set("sortOrder", p.Order)
	}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.PageSize))
	return v
}

// Page is one page of a collection.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPage wraps items already cut to the page.
func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return Page[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize, TotalPages: pages}
}

// Paginate cuts a local slice to the requested page.
func Paginate[T any](all []T, p Params) Page[T] {
	p = p.Normalize()
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return NewPage(all[start:end], len(all), p)
}
