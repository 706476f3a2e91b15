package shopadmin

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/domain"
)

// TextIndexTemplate renders the search-index text of a product.
const TextIndexTemplate = "search/indexes/myshop/commodity_text.txt"

// TextIndexDisplay names the read-only text index display.
const TextIndexDisplay = "render_text_index"

// TextRenderer renders a named template. A non-empty cacheKey lets the
// renderer reuse an earlier result.
type TextRenderer interface {
	Render(ctx context.Context, name, cacheKey string, data any) (string, error)
}

// SmartPhoneAdmin holds the behaviour the smartphone configurator adds on top
// of its declarations. It does not use the Sortable strategy, so it assigns
// the order of new models itself.
type SmartPhoneAdmin struct {
	products domain.ProductRepo
	oses     domain.OperatingSystemRepo
	text     TextRenderer
}

// NewSmartPhoneAdmin edits smartphone models and their variants.
func NewSmartPhoneAdmin(d Deps) *admin.ModelAdmin {
	a := &SmartPhoneAdmin{products: d.Products, oses: d.OperatingSystems, text: d.Text}
	return child(&admin.ModelAdmin{
		Name:        string(domain.ProductTypeSmartPhone),
		VerboseName: domain.ProductTypeSmartPhone.Label(),
		Fields: []admin.FieldRow{
			admin.Row("product_name"), admin.Row("slug"), admin.Row("active"),
			admin.Row("caption"), admin.Row("description"), admin.Row("manufacturer"),
			admin.Row("battery_type"), admin.Row("battery_capacity"), admin.Row("ram_storage"),
			admin.Row("wifi_connectivity"), admin.Row("bluetooth"), admin.Row("gps"),
			admin.Row("operating_system"), admin.Row("width", "height", "weight"),
			admin.Row("screen_size"),
		},
		FilterHorizontal: []string{"cms_pages"},
		Inlines:          []admin.Inline{imageInline, variantInline},
		Prepopulated:     slugFromName,
		Placeholders:     admin.NewPlaceholderEditable(d.Products, DetailsSlot),
		Frontend:         frontendEditing(),
		CMSPages:         admin.NewCMSPageCategory(d.Pages),
		Polymorphic:      &admin.PolymorphicChild{BaseModel: BaseModel, Type: domain.ProductTypeSmartPhone},
		Saver:            a,
		Cleaner:          a,
		Displays: []admin.Display{
			{Name: TextIndexDisplay, Label: "Text Index", Render: a.RenderTextIndex},
		},
	})
}

// SaveModel puts a new model after every existing product, then saves.
// Updates keep their order.
func (a *SmartPhoneAdmin) SaveModel(ctx context.Context, l domain.Leaf, change bool) error {
	if !change {
		max, err := a.products.MaxOrder(ctx)
		if err != nil {
			return fmt.Errorf("max order: %w", err)
		}
		l.Base().Order = admin.NextOrder(max)
	}
	return admin.Persist(ctx, a.products, l, change)
}

// Clean checks the selected operating system exists.
func (a *SmartPhoneAdmin) Clean(ctx context.Context, l domain.Leaf) error {
	m, ok := l.(*domain.SmartPhoneModel)
	if !ok || m.OperatingSystemID == nil {
		return nil
	}
	os, err := a.oses.FindByID(ctx, *m.OperatingSystemID)
	if errors.Is(err, domain.ErrNotFound) {
		return &admin.ValidationError{Fields: map[string]string{"operating_system": "select a valid choice"}}
	}
	if err != nil {
		return err
	}
	m.OperatingSystem = os
	return nil
}

// RenderTextIndex renders the search-index text with the product bound as
// "object".
func (a *SmartPhoneAdmin) RenderTextIndex(ctx context.Context, l domain.Leaf) (string, error) {
	return a.text.Render(ctx, TextIndexTemplate, textIndexKey(l), map[string]any{"object": l})
}

// textIndexKey changes whenever the product or the operating system shown in
// its text changes. Unsaved products get no key.
func textIndexKey(l domain.Leaf) string {
	p := l.Base()
	if p.UpdatedAt.IsZero() {
		return ""
	}
	key := p.ID.String() + ":" + strconv.FormatInt(p.UpdatedAt.UnixNano(), 10)
	if m, ok := l.(*domain.SmartPhoneModel); ok && m.OperatingSystem != nil {
		key += ":" + strconv.FormatUint(uint64(m.OperatingSystem.ID), 10) + ":" + m.OperatingSystem.Name
	}
	return key
}
