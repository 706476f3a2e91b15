package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/domain"
)

var (
	ErrNotSortable   = errors.New("changelist is not sortable")
	ErrNoDisplay     = errors.New("display not available for this product")
	ErrNotSmartPhone = errors.New("spec sheets only apply to smartphones")
)

// SpecSheets looks phone spec sheets up, by page URL or by free-text query.
type SpecSheets interface {
	Search(ctx context.Context, query string) (*domain.SpecSheet, error)
	Fetch(ctx context.Context, pageURL string) (*domain.SpecSheet, error)
}

// ProductUC runs the product admin operations against the polymorphic parent
// admin and the child admin of each product's type.
type ProductUC struct {
	Products         domain.ProductRepo
	OperatingSystems domain.OperatingSystemRepo
	Parent           *admin.ParentAdmin
	Specs            SpecSheets
}

type ColumnHeader struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Link  bool   `json:"link"`
}

type ChangeListRow struct {
	ID     uuid.UUID          `json:"id"`
	Type   domain.ProductType `json:"product_type"`
	Order  int                `json:"order"`
	Values map[string]any     `json:"values"`
}

type FilterSpec struct {
	Param    string          `json:"param"`
	Title    string          `json:"title"`
	Choices  []domain.Choice `json:"choices"`
	Selected string          `json:"selected,omitempty"`
}

type ChangeList struct {
	Columns    []ColumnHeader   `json:"columns"`
	Rows       []ChangeListRow  `json:"rows"`
	Filters    []FilterSpec     `json:"filters"`
	Query      string           `json:"q"`
	Pagination admin.Pagination `json:"pagination"`
	Sortable   bool             `json:"sortable"`
}

// ChangeList lists products the way the parent admin declares: searched,
// filtered and paged, with every column computed on the real instance.
func (uc *ProductUC) ChangeList(ctx context.Context, params admin.ChangeListParams) (*ChangeList, error) {
	f, err := uc.Parent.Filter(params)
	if err != nil {
		return nil, err
	}
	list, total, err := uc.Products.List(ctx, f)
	if err != nil {
		return nil, err
	}
	pag := uc.Parent.Paginate(total, params.Page, params.ShowAll)
	switch {
	case pag.ShowAll:
		f.All = true
		if list, total, err = uc.Products.List(ctx, f); err != nil {
			return nil, err
		}
	case pag.Page != f.Page:
		f.Page = pag.Page
		if list, total, err = uc.Products.List(ctx, f); err != nil {
			return nil, err
		}
	}
	pag.Total = total

	rows, err := uc.rows(ctx, list)
	if err != nil {
		return nil, err
	}
	cl := &ChangeList{
		Columns:    uc.columns(),
		Query:      params.Query,
		Pagination: pag,
		Sortable:   uc.Parent.Sortable != nil,
	}
	for _, r := range rows {
		values := make(map[string]any, len(r.values))
		for i, c := range uc.Parent.ListDisplay {
			values[c.Name] = r.values[i]
		}
		cl.Rows = append(cl.Rows, ChangeListRow{ID: r.product.ID, Type: r.product.PolymorphicType, Order: r.product.Order, Values: values})
	}
	for _, lf := range uc.Parent.ListFilter {
		choices, err := lf.Choices(ctx)
		if err != nil {
			return nil, err
		}
		cl.Filters = append(cl.Filters, FilterSpec{Param: lf.Param(), Title: lf.Title(), Choices: choices, Selected: params.Filters[lf.Param()]})
	}
	return cl, nil
}

type computedRow struct {
	product domain.Product
	values  []any
}

func (uc *ProductUC) rows(ctx context.Context, list []domain.Product) ([]computedRow, error) {
	leaves, err := uc.Products.RealInstances(ctx, list)
	if err != nil {
		return nil, err
	}
	out := make([]computedRow, 0, len(list))
	for _, p := range list {
		row := admin.ListRow{Product: p, Leaf: leaves[p.ID]}
		values := make([]any, len(uc.Parent.ListDisplay))
		for i, c := range uc.Parent.ListDisplay {
			v, err := c.Value(ctx, row)
			if err != nil {
				log.Warn().Err(err).Str("product", p.ID.String()).Str("column", c.Name).Msg("changelist column failed")
				v = nil
			}
			values[i] = v
		}
		out = append(out, computedRow{product: p, values: values})
	}
	return out, nil
}

func (uc *ProductUC) columns() []ColumnHeader {
	links := map[string]bool{}
	for _, l := range uc.Parent.ListDisplayLinks {
		links[l] = true
	}
	out := make([]ColumnHeader, len(uc.Parent.ListDisplay))
	for i, c := range uc.Parent.ListDisplay {
		out[i] = ColumnHeader{Name: c.Name, Label: c.Label, Link: links[c.Name]}
	}
	return out
}

// ExportRows returns every product matching params, ignoring pages, as
// column labels and row values.
func (uc *ProductUC) ExportRows(ctx context.Context, params admin.ChangeListParams) ([]string, [][]any, error) {
	f, err := uc.Parent.Filter(params)
	if err != nil {
		return nil, nil, err
	}
	f.All = true
	list, _, err := uc.Products.List(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	rows, err := uc.rows(ctx, list)
	if err != nil {
		return nil, nil, err
	}
	header := make([]string, len(uc.Parent.ListDisplay))
	for i, c := range uc.Parent.ListDisplay {
		header[i] = c.Label
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.values
	}
	return header, out, nil
}

// AddChoices lists the product types the add form can create.
func (uc *ProductUC) AddChoices() []domain.Choice {
	var out []domain.Choice
	for _, t := range uc.Parent.ChildTypes() {
		out = append(out, domain.Choice{Value: string(t), Label: t.Label()})
	}
	return out
}

// Get loads the real instance of a product with the admin that edits it.
func (uc *ProductUC) Get(ctx context.Context, id uuid.UUID) (domain.Leaf, *admin.ModelAdmin, error) {
	l, err := uc.Products.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	child, err := uc.Parent.Child(l.Type())
	if err != nil {
		return nil, nil, err
	}
	return l, child, nil
}

// Create builds a product of type t from the add form of its child admin.
func (uc *ProductUC) Create(ctx context.Context, t domain.ProductType, form admin.Form) (domain.Leaf, error) {
	child, err := uc.Parent.Child(t)
	if err != nil {
		return nil, err
	}
	l, err := domain.NewLeaf(t)
	if err != nil {
		return nil, err
	}
	if err := child.Binder.Bind(ctx, l, form, false); err != nil {
		return nil, err
	}
	if err := uc.save(ctx, child, l, false); err != nil {
		return nil, err
	}
	return l, nil
}

func (uc *ProductUC) Update(ctx context.Context, id uuid.UUID, form admin.Form) (domain.Leaf, error) {
	l, child, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := child.Binder.Bind(ctx, l, form, true); err != nil {
		return nil, err
	}
	if err := uc.save(ctx, child, l, true); err != nil {
		return nil, err
	}
	return l, nil
}

// save runs the child's clean step, then its SaveModel hook when it has one.
// Otherwise new products get their order from the Sortable strategy before
// the default save.
func (uc *ProductUC) save(ctx context.Context, child *admin.ModelAdmin, l domain.Leaf, change bool) error {
	if err := uc.checkUnique(ctx, l); err != nil {
		return err
	}
	if child.Cleaner != nil {
		if err := child.Cleaner.Clean(ctx, l); err != nil {
			return err
		}
	}
	if child.Saver != nil {
		return child.Saver.SaveModel(ctx, l, change)
	}
	if !change && child.Sortable != nil {
		if err := child.Sortable.AssignOrder(ctx, l.Base()); err != nil {
			return err
		}
	}
	return admin.Persist(ctx, uc.Products, l, change)
}

// checkUnique reports slugs and variant codes another product already uses
// as field errors.
func (uc *ProductUC) checkUnique(ctx context.Context, l domain.Leaf) error {
	p := l.Base()
	var ve admin.ValidationError
	taken, err := uc.Products.SlugTaken(ctx, p.Slug, p.ID)
	if err != nil {
		return err
	}
	if taken {
		ve.Add("slug", "product with this slug already exists")
	}
	if m, ok := l.(*domain.SmartPhoneModel); ok {
		codes := make([]string, len(m.Variants))
		for i, v := range m.Variants {
			codes[i] = v.ProductCode
		}
		used, err := uc.Products.VariantCodesTaken(ctx, codes, p.ID)
		if err != nil {
			return err
		}
		if len(used) > 0 {
			ve.Add("variants", fmt.Sprintf("product code %q already exists", used[0]))
		}
	}
	return ve.Err()
}

func (uc *ProductUC) Delete(ctx context.Context, id uuid.UUID) error {
	return uc.Products.Delete(ctx, id)
}

// Reorder moves the product at startOrder to endOrder in the changelist.
func (uc *ProductUC) Reorder(ctx context.Context, startOrder, endOrder int) error {
	if uc.Parent.Sortable == nil {
		return ErrNotSortable
	}
	return uc.Parent.Sortable.Move(ctx, startOrder, endOrder)
}

func (uc *ProductUC) placeholders(ctx context.Context, id uuid.UUID) (*admin.PlaceholderEditable, error) {
	_, child, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if child.Placeholders == nil {
		return nil, admin.ErrUnknownSlot
	}
	return child.Placeholders, nil
}

func (uc *ProductUC) Placeholder(ctx context.Context, id uuid.UUID, slot string) (*domain.Placeholder, error) {
	pe, err := uc.placeholders(ctx, id)
	if err != nil {
		return nil, err
	}
	return pe.Get(ctx, id, slot)
}

func (uc *ProductUC) SavePlaceholder(ctx context.Context, id uuid.UUID, slot string, content json.RawMessage) (*domain.Placeholder, error) {
	pe, err := uc.placeholders(ctx, id)
	if err != nil {
		return nil, err
	}
	return pe.Put(ctx, id, slot, content)
}

// EditField changes a single frontend-editable field of a product.
func (uc *ProductUC) EditField(ctx context.Context, id uuid.UUID, field string, value json.RawMessage) (domain.Leaf, error) {
	l, child, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if child.Frontend == nil || !child.Frontend.Allows(field) {
		return nil, fmt.Errorf("%w: %s", admin.ErrNotEditable, field)
	}
	if err := child.Binder.Bind(ctx, l, admin.Form{field: value}, true); err != nil {
		return nil, err
	}
	if err := uc.save(ctx, child, l, true); err != nil {
		return nil, err
	}
	return l, nil
}

// Display renders the named read-only display of a product's admin.
func (uc *ProductUC) Display(ctx context.Context, id uuid.UUID, name string) (admin.Display, string, error) {
	l, child, err := uc.Get(ctx, id)
	if err != nil {
		return admin.Display{}, "", err
	}
	d, ok := child.Display(name)
	if !ok {
		return admin.Display{}, "", fmt.Errorf("%w: %s", ErrNoDisplay, name)
	}
	out, err := d.Render(ctx, l)
	return d, out, err
}

// SpecSheet reads the spec sheet of a smartphone, from pageURL when given and
// otherwise by searching for its manufacturer and name. The operating system
// is matched against the known ones by name.
func (uc *ProductUC) SpecSheet(ctx context.Context, id uuid.UUID, pageURL string) (*domain.SpecSheet, error) {
	l, _, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := l.(*domain.SmartPhoneModel); !ok {
		return nil, ErrNotSmartPhone
	}
	var sheet *domain.SpecSheet
	if pageURL != "" {
		sheet, err = uc.Specs.Fetch(ctx, pageURL)
	} else {
		p := l.Base()
		sheet, err = uc.Specs.Search(ctx, strings.TrimSpace(p.Manufacturer+" "+p.ProductName))
	}
	if err != nil {
		return nil, err
	}
	if sheet.OperatingSystem != "" {
		oses, err := uc.OperatingSystems.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, os := range oses {
			if strings.EqualFold(os.Name, sheet.OperatingSystem) {
				sheet.Fields["operating_system"] = os.ID
				break
			}
		}
	}
	return sheet, nil
}
