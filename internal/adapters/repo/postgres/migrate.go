package postgres

import (
	"gorm.io/gorm"

	"github.com/phenrril/myshop/internal/domain"
)

// AutoMigrate creates or updates every table the admin works on.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.OperatingSystem{}, &domain.CMSPage{},
		&domain.Product{}, &domain.Commodity{}, &domain.SmartCard{}, &domain.SmartPhoneModel{},
		&domain.SmartPhoneVariant{}, &domain.ProductImage{}, &domain.Placeholder{},
	)
}
