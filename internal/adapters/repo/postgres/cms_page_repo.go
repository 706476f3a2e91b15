package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/phenrril/myshop/internal/domain"
)

type CMSPageRepo struct{ db *gorm.DB }

func NewCMSPageRepo(db *gorm.DB) *CMSPageRepo {
	return &CMSPageRepo{db: db}
}

// List returns every page ordered by path.
func (r *CMSPageRepo) List(ctx context.Context) ([]domain.CMSPage, error) {
	var list []domain.CMSPage
	if err := r.db.WithContext(ctx).Order("path asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FindByIDs fails with ErrUnknownCMSPage when any of the ids does not exist.
func (r *CMSPageRepo) FindByIDs(ctx context.Context, ids []uint) ([]domain.CMSPage, error) {
	if len(ids) == 0 {
		return []domain.CMSPage{}, nil
	}
	var list []domain.CMSPage
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("title asc").Find(&list).Error; err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{}, len(list))
	for _, p := range list {
		seen[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			return nil, domain.ErrUnknownCMSPage
		}
	}
	return list, nil
}

// Save inserts or updates a page by its path.
func (r *CMSPageRepo) Save(ctx context.Context, p *domain.CMSPage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.CMSPage
		err := tx.Where("path = ?", p.Path).First(&existing).Error
		if err == nil {
			p.ID = existing.ID
			return tx.Model(&existing).Update("title", p.Title).Error
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(p).Error
		}
		return err
	})
}
