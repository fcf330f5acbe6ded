package domain

import (
	"net/url"
	"strconv"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder возвращает desc для всего, что не asc.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// PaginationParams — параметры страницы и сортировки для списочных запросов.
type PaginationParams struct {
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
	SortBy    string    `json:"sort_by,omitempty"`
	SortOrder SortOrder `json:"sort_order"`
}

// Values рендерит параметры в query string. Пустой sort_by не передается.
func (p PaginationParams) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("page_size", strconv.Itoa(p.PageSize))
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
	}
	v.Set("sort_order", string(p.SortOrder))
	return v
}
