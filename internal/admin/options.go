package admin

import (
	"context"

	"github.com/phenrril/myshop/internal/domain"
)

// FieldRow is one line of a change form. Most rows hold a single field.
type FieldRow []string

// Row builds a FieldRow, mostly to make multi-field lines read well in
// configurator literals.
func Row(fields ...string) FieldRow { return FieldRow(fields) }

// Inline describes a collection edited inside the parent's change form.
type Inline struct {
	Name   string   `json:"name"`
	Model  string   `json:"model"`
	Fields []string `json:"fields"`
	Extra  int      `json:"extra"`
}

// Binder copies submitted form values onto a model instance.
type Binder interface {
	Bind(ctx context.Context, obj any, form Form, change bool) error
}

// Saver replaces the default persistence of a child admin.
type Saver interface {
	SaveModel(ctx context.Context, obj domain.Leaf, change bool) error
}

// Cleaner runs cross-field checks after binding and before saving.
type Cleaner interface {
	Clean(ctx context.Context, obj domain.Leaf) error
}

// Display is a read-only computed value shown on the change form.
type Display struct {
	Name   string
	Label  string
	Render func(ctx context.Context, obj domain.Leaf) (string, error)
}

// ModelAdmin is the declarative configuration of one editable model plus the
// capability strategies switched on for it. A nil capability is disabled.
type ModelAdmin struct {
	Name             string
	VerboseName      string
	Fields           []FieldRow
	Inlines          []Inline
	Prepopulated     map[string][]string
	FilterHorizontal []string

	Sortable     *Sortable
	Placeholders *PlaceholderEditable
	Frontend     *FrontendEditable
	CMSPages     *CMSPageCategory
	Polymorphic  *PolymorphicChild

	Binder   Binder
	Saver    Saver
	Cleaner  Cleaner
	Displays []Display
}

// FieldNames flattens Fields in form order.
func (m *ModelAdmin) FieldNames() []string {
	var out []string
	for _, row := range m.Fields {
		out = append(out, row...)
	}
	return out
}

// FormKeys lists every key a submitted form may carry: plain fields, inline
// collections and the fields contributed by capabilities.
func (m *ModelAdmin) FormKeys() []string {
	keys := m.FieldNames()
	for _, in := range m.Inlines {
		keys = append(keys, in.Name)
	}
	if m.CMSPages != nil {
		keys = append(keys, m.CMSPages.Field())
	}
	return keys
}

func (m *ModelAdmin) Display(name string) (Display, bool) {
	for _, d := range m.Displays {
		if d.Name == name {
			return d, true
		}
	}
	return Display{}, false
}

// Column is a changelist column. Value receives the listed row with its real
// leaf already resolved.
type Column struct {
	Name  string
	Label string
	Value func(ctx context.Context, row ListRow) (any, error)
}

// ListRow is one changelist row.
type ListRow struct {
	Product domain.Product
	Leaf    domain.Leaf
}

// ParentAdmin configures the changelist of a polymorphic base model and maps
// each product type to the child admin editing it.
type ParentAdmin struct {
	Name             string
	VerboseName      string
	ChildModels      map[domain.ProductType]*ModelAdmin
	ListDisplay      []Column
	ListDisplayLinks []string
	SearchFields     []string
	ListFilter       []ListFilter
	ListPerPage      int
	ListMaxShowAll   int
	Sortable         *Sortable
}

// Child returns the admin editing products of type t.
func (p *ParentAdmin) Child(t domain.ProductType) (*ModelAdmin, error) {
	m, ok := p.ChildModels[t]
	if !ok {
		return nil, domain.ErrUnknownProductType
	}
	return m, nil
}

// ChildTypes lists the registered product types in a stable order, used by
// the add-form type chooser.
func (p *ParentAdmin) ChildTypes() []domain.ProductType {
	var out []domain.ProductType
	for _, t := range []domain.ProductType{domain.ProductTypeCommodity, domain.ProductTypeSmartCard, domain.ProductTypeSmartPhone} {
		if _, ok := p.ChildModels[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
