package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/phenrril/myshop/internal/adapters/repo/postgres"
	"github.com/phenrril/myshop/internal/domain"
	"github.com/phenrril/myshop/internal/testdb"
)

func newPhone(name string, order int, prices ...float64) *domain.SmartPhoneModel {
	m := &domain.SmartPhoneModel{
		Product:         domain.Product{ProductName: name, Slug: name, Order: order, Active: true},
		BatteryType:     domain.BatteryLithiumIon,
		BatteryCapacity: 3000,
		ScreenSize:      decimal.NewFromFloat(5.5),
	}
	for i, p := range prices {
		m.Variants = append(m.Variants, domain.SmartPhoneVariant{
			ProductCode: name + "-" + string(rune('a'+i)),
			UnitPrice:   decimal.NewFromFloat(p),
			Storage:     16 << i,
		})
	}
	return m
}

func TestProductRepoCreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := postgres.NewProductRepo(db)
	pages := postgres.NewCMSPageRepo(db)

	page := &domain.CMSPage{Title: "Phones", Path: "/shop/phones/"}
	require.NoError(t, pages.Save(ctx, page))

	phone := newPhone("nexus", 1, 399, 299)
	phone.Product.CMSPages = []domain.CMSPage{*page}
	phone.Product.Images = []domain.ProductImage{{URL: "/media/nexus.jpg", Alt: "front"}}
	require.NoError(t, repo.Create(ctx, phone))
	assert.NotEqual(t, uuid.Nil, phone.Product.ID)
	assert.Equal(t, phone.Product.ID, phone.ProductID)

	got, err := repo.Get(ctx, phone.Product.ID)
	require.NoError(t, err)
	loaded, ok := got.(*domain.SmartPhoneModel)
	require.True(t, ok, "expected smartphone leaf, got %T", got)
	assert.Equal(t, "nexus", loaded.Product.ProductName)
	assert.Equal(t, domain.ProductTypeSmartPhone, loaded.Product.PolymorphicType)
	assert.Len(t, loaded.Variants, 2)
	assert.Len(t, loaded.Product.CMSPages, 1)
	assert.Len(t, loaded.Product.Images, 1)
	assert.Equal(t, 3000, loaded.BatteryCapacity)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepoCreateEveryLeaf(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepo(testdb.New(t))

	leaves := []domain.Leaf{
		&domain.Commodity{Product: domain.Product{ProductName: "USB Cable", Slug: "usb-cable", UnitPrice: decimal.NewFromInt(5)}},
		&domain.SmartCard{Product: domain.Product{ProductName: "SD 64", Slug: "sd-64", UnitPrice: decimal.NewFromInt(20)}, CardType: domain.CardTypeMicroSDXC},
		newPhone("moto", 1, 199),
	}
	for _, l := range leaves {
		t.Run(string(l.Type()), func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, l))
			got, err := repo.Get(ctx, l.Base().ID)
			require.NoError(t, err)
			assert.Equal(t, l.Type(), got.Type())
			assert.Equal(t, l.Base().ProductName, got.Base().ProductName)
		})
	}
}

func TestProductRepoUpdateReplacesInlines(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepo(testdb.New(t))

	phone := newPhone("pixel", 1, 500, 600)
	require.NoError(t, repo.Create(ctx, phone))

	kept := phone.Variants[1]
	kept.UnitPrice = decimal.NewFromInt(650)
	phone.Variants = []domain.SmartPhoneVariant{
		kept,
		{ProductCode: "pixel-new", UnitPrice: decimal.NewFromInt(700), Storage: 128},
	}
	require.NoError(t, repo.Update(ctx, phone))

	got, err := repo.Get(ctx, phone.Product.ID)
	require.NoError(t, err)
	variants := got.(*domain.SmartPhoneModel).Variants
	require.Len(t, variants, 2)
	codes := []string{variants[0].ProductCode, variants[1].ProductCode}
	assert.ElementsMatch(t, []string{"pixel-b", "pixel-new"}, codes)
	for _, v := range variants {
		if v.ProductCode == "pixel-b" {
			assert.True(t, decimal.NewFromInt(650).Equal(v.UnitPrice))
		}
	}
}

func TestProductRepoListFilters(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := postgres.NewProductRepo(db)
	pages := postgres.NewCMSPageRepo(db)

	page := &domain.CMSPage{Title: "Cards", Path: "/shop/cards/"}
	require.NoError(t, pages.Save(ctx, page))

	card := &domain.SmartCard{
		Product:  domain.Product{ProductName: "SanDisk Extreme", Slug: "sandisk-extreme", Order: 2, UnitPrice: decimal.NewFromInt(30), CMSPages: []domain.CMSPage{*page}},
		Storage:  64,
		CardType: domain.CardTypeMicroSDXC,
		Speed:    "U3",
	}
	commodity := &domain.Commodity{Product: domain.Product{ProductName: "USB Cable", Slug: "usb-cable", Order: 3}}
	require.NoError(t, repo.Create(ctx, newPhone("galaxy", 1, 800)))
	require.NoError(t, repo.Create(ctx, card))
	require.NoError(t, repo.Create(ctx, commodity))

	list, total, err := repo.List(ctx, domain.ProductFilter{PageSize: 2, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.Equal(t, "galaxy", list[0].ProductName)

	list, total, err = repo.List(ctx, domain.ProductFilter{All: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 3)

	list, total, err = repo.List(ctx, domain.ProductFilter{Type: domain.ProductTypeSmartCard})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "SanDisk Extreme", list[0].ProductName)

	list, _, err = repo.List(ctx, domain.ProductFilter{CMSPageID: &page.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, card.Product.ID, list[0].ID)

	list, _, err = repo.List(ctx, domain.ProductFilter{Query: "usb"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "USB Cable", list[0].ProductName)

	leaves, err := repo.RealInstances(ctx, []domain.Product{list[0], card.Product})
	require.NoError(t, err)
	assert.IsType(t, &domain.Commodity{}, leaves[commodity.Product.ID])
	assert.IsType(t, &domain.SmartCard{}, leaves[card.Product.ID])
	assert.Equal(t, 64, leaves[card.Product.ID].(*domain.SmartCard).Storage)
}

func TestProductRepoMaxOrder(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepo(testdb.New(t))

	max, err := repo.MaxOrder(ctx)
	require.NoError(t, err)
	assert.Nil(t, max)

	require.NoError(t, repo.Create(ctx, newPhone("a", 4)))
	require.NoError(t, repo.Create(ctx, newPhone("b", 9)))
	max, err = repo.MaxOrder(ctx)
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, 9, *max)
}

func TestProductRepoMove(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepo(testdb.New(t))
	for i, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Create(ctx, newPhone(name, i+1)))
	}

	order := func() []string {
		list, _, err := repo.List(ctx, domain.ProductFilter{All: true})
		require.NoError(t, err)
		names := make([]string, len(list))
		for i, p := range list {
			names[i] = p.ProductName
			assert.Equal(t, i+1, p.Order)
		}
		return names
	}

	require.NoError(t, repo.Move(ctx, 1, 3))
	assert.Equal(t, []string{"b", "c", "a", "d"}, order())

	require.NoError(t, repo.Move(ctx, 4, 1))
	assert.Equal(t, []string{"d", "b", "c", "a"}, order())

	assert.ErrorIs(t, repo.Move(ctx, 42, 1), domain.ErrNotFound)
}

func TestProductRepoDelete(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := postgres.NewProductRepo(db)

	phone := newPhone("moto", 1, 100, 200)
	phone.Product.Images = []domain.ProductImage{{URL: "/m.jpg"}}
	require.NoError(t, repo.Create(ctx, phone))
	require.NoError(t, repo.SavePlaceholder(ctx, &domain.Placeholder{ProductID: phone.Product.ID, Slot: "details", Content: datatypes.JSON(`{"text":"hi"}`)}))

	require.NoError(t, repo.Delete(ctx, phone.Product.ID))

	for _, m := range []any{&domain.Product{}, &domain.SmartPhoneModel{}, &domain.SmartPhoneVariant{}, &domain.ProductImage{}, &domain.Placeholder{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", m)
	}
	assert.ErrorIs(t, repo.Delete(ctx, phone.Product.ID), domain.ErrNotFound)
}

func TestProductRepoPlaceholders(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepo(testdb.New(t))
	c := &domain.Commodity{Product: domain.Product{ProductName: "Case", Slug: "case"}}
	require.NoError(t, repo.Create(ctx, c))

	_, err := repo.FindPlaceholder(ctx, c.Product.ID, "details")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.SavePlaceholder(ctx, &domain.Placeholder{ProductID: c.Product.ID, Slot: "details", Content: datatypes.JSON(`{"v":1}`)}))
	require.NoError(t, repo.SavePlaceholder(ctx, &domain.Placeholder{ProductID: c.Product.ID, Slot: "details", Content: datatypes.JSON(`{"v":2}`)}))

	ph, err := repo.FindPlaceholder(ctx, c.Product.ID, "details")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(ph.Content))
}

func TestProductRepoUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepo(testdb.New(t))

	first := newPhone("nexus", 1, 399, 299)
	require.NoError(t, repo.Create(ctx, first))

	taken, err := repo.SlugTaken(ctx, "nexus", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.SlugTaken(ctx, "nexus", first.Product.ID)
	require.NoError(t, err)
	assert.False(t, taken, "own slug")

	codes, err := repo.VariantCodesTaken(ctx, []string{"nexus-a", "other"}, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"nexus-a"}, codes)
	codes, err = repo.VariantCodesTaken(ctx, []string{"nexus-a"}, first.Product.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)

	dupSlug := &domain.Commodity{Product: domain.Product{ProductName: "Nexus", Slug: "nexus"}}
	assert.ErrorIs(t, repo.Create(ctx, dupSlug), domain.ErrDuplicate)

	dupCode := newPhone("pixel", 2, 100)
	dupCode.Variants[0].ProductCode = "nexus-a"
	assert.ErrorIs(t, repo.Create(ctx, dupCode), domain.ErrDuplicate)
}

func TestProductRepoSearchIsLiteral(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepo(testdb.New(t))
	for i, name := range []string{"Alpha", "Beta", "Gamma", "Charger 50%", `Path\Cable`, "usb_c"} {
		require.NoError(t, repo.Create(ctx, &domain.Commodity{Product: domain.Product{ProductName: name, Slug: fmt.Sprintf("item-%d", i), Order: i}}))
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"_", []string{"usb_c"}},
		{"%", []string{"Charger 50%"}},
		{"50%", []string{"Charger 50%"}},
		{`\`, []string{`Path\Cable`}},
		{"a_p", nil},
		{"ALPHA", []string{"Alpha"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			list, total, err := repo.List(ctx, domain.ProductFilter{Query: tt.query, All: true})
			require.NoError(t, err)
			names := make([]string, 0, len(list))
			for _, p := range list {
				names = append(names, p.ProductName)
			}
			assert.Equal(t, int64(len(tt.want)), total)
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}
