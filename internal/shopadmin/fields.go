package shopadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/domain"
)

// binding decodes one form value onto a leaf, recording problems in ve.
type binding func(name string, l domain.Leaf, raw json.RawMessage, ve *admin.ValidationError)

func decode[T any](name string, raw json.RawMessage, rules string, ve *admin.ValidationError) (T, bool) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		ve.Add(name, "invalid value")
		return v, false
	}
	before := len(ve.Fields)
	ve.Check(name, v, rules)
	return v, len(ve.Fields) == before
}

func baseField[T any](rules string, set func(*domain.Product, T)) binding {
	return func(name string, l domain.Leaf, raw json.RawMessage, ve *admin.ValidationError) {
		if v, ok := decode[T](name, raw, rules, ve); ok {
			set(l.Base(), v)
		}
	}
}

func leafField[L domain.Leaf, T any](rules string, set func(L, T)) binding {
	return func(name string, l domain.Leaf, raw json.RawMessage, ve *admin.ValidationError) {
		target, ok := l.(L)
		if !ok {
			ve.Add(name, "unknown field")
			return
		}
		if v, ok := decode[T](name, raw, rules, ve); ok {
			set(target, v)
		}
	}
}

type choice interface {
	~string
	Valid() bool
}

func choiceField[L domain.Leaf, T choice](set func(L, T)) binding {
	return func(name string, l domain.Leaf, raw json.RawMessage, ve *admin.ValidationError) {
		target, ok := l.(L)
		if !ok {
			ve.Add(name, "unknown field")
			return
		}
		v, ok := decode[T](name, raw, "", ve)
		if !ok {
			return
		}
		if !v.Valid() {
			ve.Add(name, fmt.Sprintf("select a valid choice, %q is not one of the available choices", string(v)))
			return
		}
		set(target, v)
	}
}

var bindings = map[string]binding{
	"product_name": baseField("max=255", func(p *domain.Product, v string) { p.ProductName = v }),
	"slug":         baseField("max=255", func(p *domain.Product, v string) { p.Slug = v }),
	"product_code": baseField("max=255", func(p *domain.Product, v string) { p.ProductCode = v }),
	"unit_price":   baseField("gte=0", func(p *domain.Product, v decimal.Decimal) { p.UnitPrice = v }),
	"active":       baseField("", func(p *domain.Product, v bool) { p.Active = v }),
	"caption":      baseField("", func(p *domain.Product, v string) { p.Caption = v }),
	"description":  baseField("", func(p *domain.Product, v string) { p.Description = v }),
	"manufacturer": baseField("max=100", func(p *domain.Product, v string) { p.Manufacturer = v }),

	"storage":   leafField("gte=0", func(c *domain.SmartCard, v int) { c.Storage = v }),
	"card_type": choiceField(func(c *domain.SmartCard, v domain.CardType) { c.CardType = v }),
	"speed":     choiceField(func(c *domain.SmartCard, v domain.CardSpeed) { c.Speed = v }),

	"battery_type":      choiceField(func(m *domain.SmartPhoneModel, v domain.BatteryType) { m.BatteryType = v }),
	"battery_capacity":  leafField("gte=0", func(m *domain.SmartPhoneModel, v int) { m.BatteryCapacity = v }),
	"ram_storage":       leafField("gte=0", func(m *domain.SmartPhoneModel, v int) { m.RAMStorage = v }),
	"wifi_connectivity": choiceField(func(m *domain.SmartPhoneModel, v domain.WifiConnectivity) { m.WifiConnectivity = v }),
	"bluetooth":         choiceField(func(m *domain.SmartPhoneModel, v domain.BluetoothVersion) { m.Bluetooth = v }),
	"gps":               leafField("", func(m *domain.SmartPhoneModel, v bool) { m.GPS = v }),
	"operating_system":  leafField("omitempty,gt=0", func(m *domain.SmartPhoneModel, v *uint) { m.OperatingSystemID = v }),
	"width":             leafField("gte=0,lt=1000", func(m *domain.SmartPhoneModel, v decimal.Decimal) { m.Width = v }),
	"height":            leafField("gte=0,lt=1000", func(m *domain.SmartPhoneModel, v decimal.Decimal) { m.Height = v }),
	"weight":            leafField("gte=0,lt=10000", func(m *domain.SmartPhoneModel, v decimal.Decimal) { m.Weight = v }),
	"screen_size":       leafField("gte=0,lt=100", func(m *domain.SmartPhoneModel, v decimal.Decimal) { m.ScreenSize = v }),

	"images":   bindImages,
	"variants": bindVariants,
}

func bindImages(name string, l domain.Leaf, raw json.RawMessage, ve *admin.ValidationError) {
	var rows []domain.ProductImage
	if err := json.Unmarshal(raw, &rows); err != nil {
		ve.Add(name, "expected a list of images")
		return
	}
	p := l.Base()
	known := map[uuid.UUID]bool{}
	for _, im := range p.Images {
		known[im.ID] = true
	}
	for i, im := range rows {
		key := fmt.Sprintf("%s.%d", name, i)
		if im.ID != uuid.Nil && !known[im.ID] {
			ve.Add(key+".id", "unknown image")
		}
		ve.Check(key+".url", im.URL, "required,max=255")
		ve.Check(key+".alt", im.Alt, "max=140")
	}
	p.Images = rows
}

func bindVariants(name string, l domain.Leaf, raw json.RawMessage, ve *admin.ValidationError) {
	m, ok := l.(*domain.SmartPhoneModel)
	if !ok {
		ve.Add(name, "unknown field")
		return
	}
	var rows []domain.SmartPhoneVariant
	if err := json.Unmarshal(raw, &rows); err != nil {
		ve.Add(name, "expected a list of variants")
		return
	}
	known := map[uuid.UUID]bool{}
	for _, v := range m.Variants {
		known[v.ID] = true
	}
	seen := map[string]bool{}
	for i, v := range rows {
		key := fmt.Sprintf("%s.%d", name, i)
		if v.ID != uuid.Nil && !known[v.ID] {
			ve.Add(key+".id", "unknown variant")
		}
		ve.Check(key+".product_code", v.ProductCode, "required,max=255")
		ve.Check(key+".unit_price", v.UnitPrice, "gte=0")
		ve.Check(key+".storage", v.Storage, "gte=0")
		if seen[v.ProductCode] {
			ve.Add(key+".product_code", "duplicate product code")
		}
		seen[v.ProductCode] = true
	}
	m.Variants = rows
}

// productBinder binds the change form of one child admin. Only the keys the
// admin declares are accepted.
type productBinder struct {
	m *admin.ModelAdmin
}

func (b *productBinder) Bind(ctx context.Context, obj any, form admin.Form, change bool) error {
	l, ok := obj.(domain.Leaf)
	if !ok {
		return fmt.Errorf("shopadmin: cannot bind %T", obj)
	}
	if err := form.Only(b.m.FormKeys()); err != nil {
		return err
	}
	b.m.Prepopulate(form, change)

	var ve admin.ValidationError
	for _, name := range b.m.FormKeys() {
		raw, ok := form[name]
		if !ok {
			continue
		}
		if bind, ok := bindings[name]; ok {
			bind(name, l, raw, &ve)
		}
	}
	if b.m.CMSPages != nil {
		if err := ve.Merge(b.m.CMSPages.Bind(ctx, l.Base(), form)); err != nil {
			return err
		}
	}
	p := l.Base()
	ve.Check("product_name", p.ProductName, "required")
	ve.Check("slug", p.Slug, "required")
	if p.Slug != "" && !validSlug(p.Slug) {
		ve.Add("slug", "enter a valid slug consisting of letters, numbers, underscores or hyphens")
	}
	return ve.Err()
}

func validSlug(s string) bool {
	for _, r := range s {
		if !(r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
