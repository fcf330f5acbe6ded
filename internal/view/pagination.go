// Package view держит состояние одного представления дашборда:
// страницу и сортировку, окно времени и виджет обновления.
package view

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/xela07ax/cylestio-dashboard/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// PaginationOptions — начальные значения. Нулевые поля заменяются дефолтами.
type PaginationOptions struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder domain.SortOrder
}

func (o PaginationOptions) resolve() PaginationOptions {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	o.SortOrder = domain.ParseSortOrder(string(o.SortOrder))
	return o
}

// Pagination — состояние страницы и сортировки одного представления.
// Не потокобезопасна: один экземпляр живет в рамках одного запроса или прогона.
type Pagination struct {
	initial PaginationOptions

	page      int
	pageSize  int
	sortBy    string
	sortOrder domain.SortOrder
}

func NewPagination(opts PaginationOptions) *Pagination {
	p := &Pagination{initial: opts.resolve()}
	p.Reset()
	return p
}

// PaginationFromQuery собирает состояние из query string входящего запроса.
// Мусорные значения игнорируются, остаются defaults.
func PaginationFromQuery(q url.Values, defaults PaginationOptions) *Pagination {
	p := NewPagination(defaults)
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.SetPage(v)
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		p.SetPageSize(v)
	}
	if v := strings.TrimSpace(q.Get("sort_by")); v != "" {
		p.SetSortBy(v)
	}
	if v := strings.TrimSpace(q.Get("sort_order")); v != "" {
		p.SetSortOrder(domain.SortOrder(strings.ToLower(v)))
	}
	return p
}

func (p *Pagination) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	p.page = page
}

func (p *Pagination) SetPageSize(size int) {
	if size < 1 {
		size = 1
	}
	p.pageSize = size
}

func (p *Pagination) SetSortBy(field string) { p.sortBy = field }

// SetSortOrder: все, кроме asc, трактуется как desc.
func (p *Pagination) SetSortOrder(order domain.SortOrder) {
	p.sortOrder = domain.ParseSortOrder(string(order))
}

func (p *Pagination) NextPage() { p.page++ }

// PrevPage никогда не уходит ниже первой страницы.
func (p *Pagination) PrevPage() {
	if p.page > 1 {
		p.page--
	}
}

// Reset возвращает значения, переданные при создании.
func (p *Pagination) Reset() {
	p.page = p.initial.Page
	p.pageSize = p.initial.PageSize
	p.sortBy = p.initial.SortBy
	p.sortOrder = p.initial.SortOrder
}

// Params пересчитывается из текущих значений на каждый вызов.
func (p *Pagination) Params() domain.PaginationParams {
	return domain.PaginationParams{
		Page:      p.page,
		PageSize:  p.pageSize,
		SortBy:    p.sortBy,
		SortOrder: p.sortOrder,
	}
}
