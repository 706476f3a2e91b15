package shopadmin

import (
	"context"

	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/domain"
)

const (
	ListPerPage    = 250
	ListMaxShowAll = 1000
)

// Deps are the collaborators the configurators are built with.
type Deps struct {
	Products         domain.ProductRepo
	Pages            domain.CMSPageRepo
	OperatingSystems domain.OperatingSystemRepo
	Text             TextRenderer
}

// NewProductAdmin is the polymorphic parent: it lists every product and
// routes editing to the admin of the product's type.
func NewProductAdmin(d Deps) *admin.ParentAdmin {
	p := &admin.ParentAdmin{
		Name:        BaseModel,
		VerboseName: "Product",
		ChildModels: map[domain.ProductType]*admin.ModelAdmin{
			domain.ProductTypeSmartPhone: NewSmartPhoneAdmin(d),
			domain.ProductTypeSmartCard:  NewSmartCardAdmin(d),
			domain.ProductTypeCommodity:  NewCommodityAdmin(d),
		},
		ListDisplay: []admin.Column{
			{Name: "product_name", Label: "Product Name", Value: func(_ context.Context, r admin.ListRow) (any, error) {
				return r.Product.ProductName, nil
			}},
			{Name: "get_price", Label: "Price starting at", Value: getPrice},
			{Name: "product_type", Label: "Product Type", Value: func(_ context.Context, r admin.ListRow) (any, error) {
				return r.Product.PolymorphicType.Label(), nil
			}},
			{Name: "active", Label: "Active", Value: func(_ context.Context, r admin.ListRow) (any, error) {
				return r.Product.Active, nil
			}},
		},
		ListDisplayLinks: []string{"product_name"},
		SearchFields:     []string{"product_name"},
		ListPerPage:      ListPerPage,
		ListMaxShowAll:   ListMaxShowAll,
		Sortable:         admin.NewSortable(d.Products),
	}
	p.ListFilter = []admin.ListFilter{
		admin.ChildTypeFilter{Parent: p},
		admin.CMSPageFilter{Pages: d.Pages},
	}
	return p
}

// getPrice asks the real instance for its price without a pricing context.
func getPrice(_ context.Context, r admin.ListRow) (any, error) {
	if r.Leaf == nil {
		return nil, domain.ErrNotFound
	}
	return domain.Price(r.Leaf, nil)
}

// NewSite registers the product parent admin and the operating system lookup
// model on a fresh site.
func NewSite(d Deps) (*admin.Site, error) {
	site := admin.NewSite("myshop administration")
	if err := site.RegisterParent(BaseModel, NewProductAdmin(d)); err != nil {
		return nil, err
	}
	if err := site.Register("operatingsystem", admin.DefaultModelAdmin("Operating System", domain.OperatingSystem{})); err != nil {
		return nil, err
	}
	return site, nil
}
