// Package shopadmin declares how the shop's products are edited in the admin
// site: one configurator per product type plus the polymorphic parent.
package shopadmin

import (
	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/domain"
)

const (
	BaseModel = "product"

	// DetailsSlot is the placeholder shown on every product detail page.
	DetailsSlot = "details"
)

var slugFromName = map[string][]string{"slug": {"product_name"}}

var imageInline = admin.Inline{
	Name:   "images",
	Model:  "productimage",
	Fields: []string{"url", "alt", "order"},
	Extra:  1,
}

var variantInline = admin.Inline{
	Name:   "variants",
	Model:  "smartphonevariant",
	Fields: []string{"product_code", "unit_price", "storage"},
	Extra:  0,
}

func child(m *admin.ModelAdmin) *admin.ModelAdmin {
	m.Binder = &productBinder{m: m}
	return m
}

// NewCommodityAdmin edits plain commodities.
func NewCommodityAdmin(d Deps) *admin.ModelAdmin {
	return child(&admin.ModelAdmin{
		Name:        string(domain.ProductTypeCommodity),
		VerboseName: domain.ProductTypeCommodity.Label(),
		Fields: []admin.FieldRow{
			admin.Row("product_name"), admin.Row("slug"), admin.Row("product_code"),
			admin.Row("unit_price"), admin.Row("active"), admin.Row("caption"),
			admin.Row("manufacturer"),
		},
		FilterHorizontal: []string{"cms_pages"},
		Inlines:          []admin.Inline{imageInline},
		Prepopulated:     slugFromName,
		Sortable:         admin.NewSortable(d.Products),
		Placeholders:     admin.NewPlaceholderEditable(d.Products, DetailsSlot),
		Frontend:         frontendEditing(),
		CMSPages:         admin.NewCMSPageCategory(d.Pages),
		Polymorphic:      &admin.PolymorphicChild{BaseModel: BaseModel, Type: domain.ProductTypeCommodity},
	})
}

// NewSmartCardAdmin edits memory cards.
func NewSmartCardAdmin(d Deps) *admin.ModelAdmin {
	return child(&admin.ModelAdmin{
		Name:        string(domain.ProductTypeSmartCard),
		VerboseName: domain.ProductTypeSmartCard.Label(),
		Fields: []admin.FieldRow{
			admin.Row("product_name"), admin.Row("slug"), admin.Row("product_code"),
			admin.Row("unit_price"), admin.Row("active"), admin.Row("caption"),
			admin.Row("description"), admin.Row("manufacturer"), admin.Row("storage"),
			admin.Row("card_type"), admin.Row("speed"),
		},
		FilterHorizontal: []string{"cms_pages"},
		Inlines:          []admin.Inline{imageInline},
		Prepopulated:     slugFromName,
		Sortable:         admin.NewSortable(d.Products),
		Placeholders:     admin.NewPlaceholderEditable(d.Products, DetailsSlot),
		Frontend:         frontendEditing(),
		CMSPages:         admin.NewCMSPageCategory(d.Pages),
		Polymorphic:      &admin.PolymorphicChild{BaseModel: BaseModel, Type: domain.ProductTypeSmartCard},
	})
}

func frontendEditing() *admin.FrontendEditable {
	return admin.NewFrontendEditable("product_name", "caption")
}
