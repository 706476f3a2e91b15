package domain

import (
	"context"

	"github.com/google/uuid"
)

type ProductFilter struct {
	Query string
	// SearchFields are the columns Query is matched against; product_name
	// when empty.
	SearchFields []string
	Type      ProductType
	CMSPageID *uint
	Page      int
	PageSize  int
	// All disables pagination.
	All bool
}

type ProductRepo interface {
	Create(ctx context.Context, l Leaf) error
	Update(ctx context.Context, l Leaf) error
	Get(ctx context.Context, id uuid.UUID) (Leaf, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	RealInstances(ctx context.Context, list []Product) (map[uuid.UUID]Leaf, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MaxOrder(ctx context.Context) (*int, error)
	Move(ctx context.Context, startOrder, endOrder int) error
	FindPlaceholder(ctx context.Context, productID uuid.UUID, slot string) (*Placeholder, error)
	SavePlaceholder(ctx context.Context, ph *Placeholder) error
	// SlugTaken reports whether another product than except uses slug.
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	// VariantCodesTaken returns the codes already used by variants of other
	// products than except.
	VariantCodesTaken(ctx context.Context, codes []string, except uuid.UUID) ([]string, error)
}

type OperatingSystemRepo interface {
	List(ctx context.Context) ([]OperatingSystem, error)
	FindByID(ctx context.Context, id uint) (*OperatingSystem, error)
	Save(ctx context.Context, os *OperatingSystem) error
	Delete(ctx context.Context, id uint) error
	NameTaken(ctx context.Context, name string, except uint) (bool, error)
}

type CMSPageRepo interface {
	List(ctx context.Context) ([]CMSPage, error)
	FindByIDs(ctx context.Context, ids []uint) ([]CMSPage, error)
	Save(ctx context.Context, p *CMSPage) error
}
