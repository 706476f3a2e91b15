package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/phenrril/myshop/internal/domain"
)

var (
	ErrUnknownSlot     = errors.New("unknown placeholder slot")
	ErrNotEditable     = errors.New("field not editable from the frontend")
	ErrInvalidPosition = errors.New("invalid order position")
)

// OrderStore is the persistence a Sortable needs.
type OrderStore interface {
	MaxOrder(ctx context.Context) (*int, error)
	Move(ctx context.Context, startOrder, endOrder int) error
}

// Sortable keeps products in a user-defined order: new rows go last and rows
// can be dragged to another position.
type Sortable struct {
	store OrderStore
}

func NewSortable(store OrderStore) *Sortable { return &Sortable{store: store} }

// NextOrder is the order given to a new row when the current maximum is max.
// A missing or zero maximum starts over at 1.
func NextOrder(max *int) int {
	if max == nil || *max == 0 {
		return 1
	}
	return *max + 1
}

// AssignOrder puts p after every existing product.
func (s *Sortable) AssignOrder(ctx context.Context, p *domain.Product) error {
	max, err := s.store.MaxOrder(ctx)
	if err != nil {
		return fmt.Errorf("max order: %w", err)
	}
	p.Order = NextOrder(max)
	return nil
}

// Move relocates the row at startOrder to endOrder.
func (s *Sortable) Move(ctx context.Context, startOrder, endOrder int) error {
	if startOrder < 1 || endOrder < 1 {
		return ErrInvalidPosition
	}
	return s.store.Move(ctx, startOrder, endOrder)
}

// PlaceholderStore is the persistence a PlaceholderEditable needs.
type PlaceholderStore interface {
	FindPlaceholder(ctx context.Context, productID uuid.UUID, slot string) (*domain.Placeholder, error)
	SavePlaceholder(ctx context.Context, ph *domain.Placeholder) error
}

// PlaceholderEditable exposes the named content slots of a product.
type PlaceholderEditable struct {
	Slots []string
	store PlaceholderStore
}

func NewPlaceholderEditable(store PlaceholderStore, slots ...string) *PlaceholderEditable {
	return &PlaceholderEditable{Slots: slots, store: store}
}

func (p *PlaceholderEditable) has(slot string) bool {
	for _, s := range p.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Get returns the slot content. A slot never written yields an empty object.
func (p *PlaceholderEditable) Get(ctx context.Context, productID uuid.UUID, slot string) (*domain.Placeholder, error) {
	if !p.has(slot) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	ph, err := p.store.FindPlaceholder(ctx, productID, slot)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Placeholder{ProductID: productID, Slot: slot, Content: datatypes.JSON("{}")}, nil
	}
	return ph, err
}

func (p *PlaceholderEditable) Put(ctx context.Context, productID uuid.UUID, slot string, content json.RawMessage) (*domain.Placeholder, error) {
	if !p.has(slot) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	if !json.Valid(content) {
		return nil, &ValidationError{Fields: map[string]string{"content": "invalid JSON"}}
	}
	ph := &domain.Placeholder{ProductID: productID, Slot: slot, Content: datatypes.JSON(content)}
	if err := p.store.SavePlaceholder(ctx, ph); err != nil {
		return nil, err
	}
	return ph, nil
}

// FrontendEditable whitelists the fields the storefront may edit one at a time.
type FrontendEditable struct {
	Fields []string
}

func NewFrontendEditable(fields ...string) *FrontendEditable {
	return &FrontendEditable{Fields: fields}
}

func (f *FrontendEditable) Allows(field string) bool {
	for _, x := range f.Fields {
		if x == field {
			return true
		}
	}
	return false
}

// PageLookup resolves CMS pages by id.
type PageLookup interface {
	FindByIDs(ctx context.Context, ids []uint) ([]domain.CMSPage, error)
}

// CMSPageCategory restricts product categories to pages of the CMS tree.
type CMSPageCategory struct {
	pages PageLookup
}

func NewCMSPageCategory(pages PageLookup) *CMSPageCategory { return &CMSPageCategory{pages: pages} }

// Field is the form key carrying the selected page ids.
func (c *CMSPageCategory) Field() string { return "cms_pages" }

// Bind decodes the page ids from the form and resolves them onto p.
func (c *CMSPageCategory) Bind(ctx context.Context, p *domain.Product, form Form) error {
	raw, ok := form[c.Field()]
	if !ok {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return &ValidationError{Fields: map[string]string{c.Field(): "expected a list of page ids"}}
	}
	pages, err := c.pages.FindByIDs(ctx, ids)
	if errors.Is(err, domain.ErrUnknownCMSPage) {
		return &ValidationError{Fields: map[string]string{c.Field(): "select a valid choice"}}
	}
	if err != nil {
		return err
	}
	p.CMSPages = pages
	return nil
}

// PolymorphicChild ties a child admin to its base model and product type.
type PolymorphicChild struct {
	BaseModel string
	Type      domain.ProductType
}

// LeafStore writes product leaves.
type LeafStore interface {
	Create(ctx context.Context, l domain.Leaf) error
	Update(ctx context.Context, l domain.Leaf) error
}

// Persist is the default save of a product leaf.
func Persist(ctx context.Context, repo LeafStore, l domain.Leaf, change bool) error {
	if change {
		return repo.Update(ctx, l)
	}
	return repo.Create(ctx, l)
}
