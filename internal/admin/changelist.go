package admin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/phenrril/myshop/internal/domain"
)

const (
	DefaultListPerPage    = 100
	DefaultListMaxShowAll = 200

	QueryParam   = "q"
	PageParam    = "page"
	ShowAllParam = "all"
)

// ListFilter is a changelist sidebar filter bound to one query parameter.
type ListFilter interface {
	Param() string
	Title() string
	Choices(ctx context.Context) ([]domain.Choice, error)
	Apply(f *domain.ProductFilter, value string) error
}

// ChangeListParams are the parsed changelist query parameters.
type ChangeListParams struct {
	Query   string
	Page    int
	ShowAll bool
	Filters map[string]string
}

// ParseChangeList reads q, page, all and the parameters of the given filters.
// A missing or malformed page is page 1.
func ParseChangeList(v url.Values, filters []ListFilter) ChangeListParams {
	p := ChangeListParams{
		Query:   strings.TrimSpace(v.Get(QueryParam)),
		Page:    1,
		Filters: map[string]string{},
	}
	if n, err := strconv.Atoi(v.Get(PageParam)); err == nil && n > 0 {
		p.Page = n
	}
	_, p.ShowAll = v[ShowAllParam]
	for _, f := range filters {
		if val := v.Get(f.Param()); val != "" {
			p.Filters[f.Param()] = val
		}
	}
	return p
}

// Filter translates the params into a repository filter using the parent's
// search fields, list filters and page size.
func (p *ParentAdmin) Filter(params ChangeListParams) (domain.ProductFilter, error) {
	f := domain.ProductFilter{
		Query:        params.Query,
		SearchFields: p.SearchFields,
		Page:         params.Page,
		PageSize:     p.perPage(),
	}
	var ve ValidationError
	for _, lf := range p.ListFilter {
		val, ok := params.Filters[lf.Param()]
		if !ok {
			continue
		}
		if err := lf.Apply(&f, val); err != nil {
			ve.Add(lf.Param(), err.Error())
		}
	}
	return f, ve.Err()
}

func (p *ParentAdmin) perPage() int {
	if p.ListPerPage > 0 {
		return p.ListPerPage
	}
	return DefaultListPerPage
}

func (p *ParentAdmin) maxShowAll() int {
	if p.ListMaxShowAll > 0 {
		return p.ListMaxShowAll
	}
	return DefaultListMaxShowAll
}

// CanShowAll reports whether "show all" may be honoured for total rows.
func (p *ParentAdmin) CanShowAll(total int64) bool {
	return total <= int64(p.maxShowAll())
}

// Pagination describes the page actually served.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Pages      int   `json:"pages"`
	Total      int64 `json:"total"`
	ShowAll    bool  `json:"show_all"`
	CanShowAll bool  `json:"can_show_all"`
}

func (p *ParentAdmin) Paginate(total int64, page int, showAll bool) Pagination {
	per := p.perPage()
	pages := int((total + int64(per) - 1) / int64(per))
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	can := p.CanShowAll(total)
	return Pagination{
		Page:       page,
		PerPage:    per,
		Pages:      pages,
		Total:      total,
		ShowAll:    showAll && can,
		CanShowAll: can,
	}
}

// ChildTypeFilter narrows the changelist to one product type.
type ChildTypeFilter struct {
	Parent *ParentAdmin
}

func (ChildTypeFilter) Param() string { return "polymorphic_ctype" }
func (ChildTypeFilter) Title() string { return "Type" }

func (c ChildTypeFilter) Choices(context.Context) ([]domain.Choice, error) {
	var out []domain.Choice
	for _, t := range c.Parent.ChildTypes() {
		out = append(out, domain.Choice{Value: string(t), Label: t.Label()})
	}
	return out, nil
}

func (c ChildTypeFilter) Apply(f *domain.ProductFilter, value string) error {
	t := domain.ProductType(value)
	if _, err := c.Parent.Child(t); err != nil {
		return fmt.Errorf("select a valid choice")
	}
	f.Type = t
	return nil
}

// PageLister lists the CMS pages usable as categories.
type PageLister interface {
	List(ctx context.Context) ([]domain.CMSPage, error)
}

// CMSPageFilter narrows the changelist to products of one CMS page.
type CMSPageFilter struct {
	Pages PageLister
}

func (CMSPageFilter) Param() string { return "cms_page" }
func (CMSPageFilter) Title() string { return "Category" }

func (c CMSPageFilter) Choices(ctx context.Context) ([]domain.Choice, error) {
	pages, err := c.Pages.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Choice, len(pages))
	for i, pg := range pages {
		out[i] = domain.Choice{Value: strconv.FormatUint(uint64(pg.ID), 10), Label: pg.Title}
	}
	return out, nil
}

func (CMSPageFilter) Apply(f *domain.ProductFilter, value string) error {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("select a valid choice")
	}
	u := uint(id)
	f.CMSPageID = &u
	return nil
}
