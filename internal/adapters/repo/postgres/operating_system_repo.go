package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/phenrril/myshop/internal/domain"
)

type OperatingSystemRepo struct{ db *gorm.DB }

func NewOperatingSystemRepo(db *gorm.DB) *OperatingSystemRepo { return &OperatingSystemRepo{db: db} }

func (r *OperatingSystemRepo) List(ctx context.Context) ([]domain.OperatingSystem, error) {
	var list []domain.OperatingSystem
	if err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *OperatingSystemRepo) FindByID(ctx context.Context, id uint) (*domain.OperatingSystem, error) {
	var os domain.OperatingSystem
	if err := r.db.WithContext(ctx).First(&os, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &os, nil
}

func (r *OperatingSystemRepo) Save(ctx context.Context, os *domain.OperatingSystem) error {
	os.Name = strings.TrimSpace(os.Name)
	if os.Name == "" {
		return errors.New("empty name")
	}
	return translate(r.db.WithContext(ctx).Save(os).Error)
}

// NameTaken compares names case-insensitively.
func (r *OperatingSystemRepo) NameTaken(ctx context.Context, name string, except uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.OperatingSystem{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", strings.TrimSpace(name), except).
		Count(&n).Error
	return n > 0, err
}

func (r *OperatingSystemRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// phones keep existing without an operating system
		if err := tx.Model(&domain.SmartPhoneModel{}).
			Where("operating_system_id = ?", id).Update("operating_system_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.OperatingSystem{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
