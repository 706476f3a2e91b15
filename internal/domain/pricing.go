package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Leaf is the concrete variant of a Product. Only the three catalog leaf
// types implement it.
type Leaf interface {
	Base() *Product
	Type() ProductType
	setProductID(id uuid.UUID)
}

func (c *Commodity) Base() *Product            { return &c.Product }
func (c *Commodity) Type() ProductType         { return ProductTypeCommodity }
func (c *Commodity) setProductID(id uuid.UUID) { c.ProductID = id }

func (s *SmartCard) Base() *Product            { return &s.Product }
func (s *SmartCard) Type() ProductType         { return ProductTypeSmartCard }
func (s *SmartCard) setProductID(id uuid.UUID) { s.ProductID = id }

func (m *SmartPhoneModel) Base() *Product            { return &m.Product }
func (m *SmartPhoneModel) Type() ProductType         { return ProductTypeSmartPhone }
func (m *SmartPhoneModel) setProductID(id uuid.UUID) { m.ProductID = id }

// Link copies the base row id onto the leaf key, giving the base a fresh id
// first when it has none.
func Link(l Leaf) uuid.UUID {
	p := l.Base()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	l.setProductID(p.ID)
	return p.ID
}

// NewLeaf returns an empty leaf for the given discriminator.
func NewLeaf(t ProductType) (Leaf, error) {
	var l Leaf
	switch t {
	case ProductTypeCommodity:
		l = &Commodity{}
	case ProductTypeSmartCard:
		l = &SmartCard{}
	case ProductTypeSmartPhone:
		l = &SmartPhoneModel{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProductType, t)
	}
	l.Base().PolymorphicType = t
	return l, nil
}

// PricingContext narrows a price lookup. A nil context means list price with
// no customer attached.
type PricingContext struct {
	// ProductCode selects one smartphone variant instead of the cheapest.
	ProductCode string
}

// Price resolves the price of a concrete product.
func Price(l Leaf, pc *PricingContext) (decimal.Decimal, error) {
	switch v := l.(type) {
	case *Commodity:
		return v.Product.UnitPrice, nil
	case *SmartCard:
		return v.Product.UnitPrice, nil
	case *SmartPhoneModel:
		return v.price(pc), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %T", ErrUnknownProductType, l)
	}
}

func (m *SmartPhoneModel) price(pc *PricingContext) decimal.Decimal {
	if pc != nil && pc.ProductCode != "" {
		for _, v := range m.Variants {
			if v.ProductCode == pc.ProductCode {
				return v.UnitPrice
			}
		}
	}
	if len(m.Variants) == 0 {
		return decimal.Zero
	}
	min := m.Variants[0].UnitPrice
	for _, v := range m.Variants[1:] {
		if v.UnitPrice.LessThan(min) {
			min = v.UnitPrice
		}
	}
	return min
}
