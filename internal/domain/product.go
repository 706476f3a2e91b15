package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ProductType string

const (
	ProductTypeCommodity  ProductType = "commodity"
	ProductTypeSmartCard  ProductType = "smartcard"
	ProductTypeSmartPhone ProductType = "smartphone"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeCommodity, ProductTypeSmartCard, ProductTypeSmartPhone:
		return true
	}
	return false
}

// Label is the verbose name shown in the admin type chooser.
func (t ProductType) Label() string {
	switch t {
	case ProductTypeCommodity:
		return "Commodity"
	case ProductTypeSmartCard:
		return "Smart Card"
	case ProductTypeSmartPhone:
		return "Smart Phone"
	}
	return string(t)
}

// Product is the shared base row of every catalog item. PolymorphicType tells
// which leaf table holds the rest of the row.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductName     string          `gorm:"size:255;not null" json:"product_name"`
	Slug            string          `gorm:"size:255;uniqueIndex" json:"slug"`
	ProductCode     string          `gorm:"size:255;index" json:"product_code"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(30,3);default:0" json:"unit_price"`
	Active          bool            `gorm:"index" json:"active"`
	Caption         string          `gorm:"type:text" json:"caption"`
	Description     string          `gorm:"type:text" json:"description"`
	Manufacturer    string          `gorm:"size:100" json:"manufacturer"`
	Order           int             `gorm:"column:display_order;index" json:"order"`
	PolymorphicType ProductType     `gorm:"type:varchar(20);index;not null" json:"product_type"`
	CMSPages        []CMSPage       `gorm:"many2many:product_cms_pages" json:"cms_pages,omitempty"`
	Images          []ProductImage  `json:"images,omitempty"`
	Placeholders    []Placeholder   `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Commodity struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
}

type SmartCard struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Storage   int       `gorm:"default:0" json:"storage"`
	CardType  CardType  `gorm:"size:15" json:"card_type"`
	Speed     CardSpeed `gorm:"size:8" json:"speed"`
}

type SmartPhoneModel struct {
	ProductID         uuid.UUID           `gorm:"type:uuid;primaryKey" json:"-"`
	Product           Product             `gorm:"foreignKey:ProductID" json:"product"`
	BatteryType       BatteryType         `gorm:"size:20" json:"battery_type"`
	BatteryCapacity   int                 `gorm:"default:0" json:"battery_capacity"`
	RAMStorage        int                 `gorm:"default:0" json:"ram_storage"`
	WifiConnectivity  WifiConnectivity    `gorm:"size:20" json:"wifi_connectivity"`
	Bluetooth         BluetoothVersion    `gorm:"size:10" json:"bluetooth"`
	GPS               bool                `gorm:"default:false" json:"gps"`
	OperatingSystemID *uint               `gorm:"index" json:"operating_system"`
	OperatingSystem   *OperatingSystem    `json:"-"`
	Width             decimal.Decimal     `gorm:"type:decimal(4,1);default:0" json:"width"`
	Height            decimal.Decimal     `gorm:"type:decimal(4,1);default:0" json:"height"`
	Weight            decimal.Decimal     `gorm:"type:decimal(5,1);default:0" json:"weight"`
	ScreenSize        decimal.Decimal     `gorm:"type:decimal(4,2);default:0" json:"screen_size"`
	Variants          []SmartPhoneVariant `gorm:"foreignKey:ProductID;references:ProductID" json:"variants"`
}

// SmartPhoneVariant belongs to exactly one SmartPhoneModel and is only ever
// edited inline from the model's change form.
type SmartPhoneVariant struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"-"`
	ProductCode string          `gorm:"size:255;uniqueIndex" json:"product_code"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(30,3);default:0" json:"unit_price"`
	Storage     int             `gorm:"default:0" json:"storage"`
}

type OperatingSystem struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;uniqueIndex;not null" json:"name"`
}

func (OperatingSystem) TableName() string { return "operating_systems" }

// CMSPage is a page of the content tree used as a product category.
type CMSPage struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Title string `gorm:"size:255;not null" json:"title"`
	Path  string `gorm:"size:255;uniqueIndex" json:"path"`
}

func (CMSPage) TableName() string { return "cms_pages" }

type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"-"`
	URL       string    `gorm:"size:255" json:"url"`
	Alt       string    `gorm:"size:140" json:"alt"`
	Order     int       `gorm:"column:display_order;default:0" json:"order"`
	CreatedAt time.Time `json:"-"`
}

// Placeholder holds the editable content of one named slot on a product's
// detail page.
type Placeholder struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	ProductID uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_placeholder_slot" json:"-"`
	Slot      string         `gorm:"size:50;uniqueIndex:idx_placeholder_slot" json:"slot"`
	Content   datatypes.JSON `json:"content"`
	UpdatedAt time.Time      `json:"updated_at"`
}
