package usecase

import (
	"context"

	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/domain"
)

// OperatingSystemUC edits the operating system lookup through its default
// admin.
type OperatingSystemUC struct {
	OperatingSystems domain.OperatingSystemRepo
	Admin            *admin.ModelAdmin
}

func (uc *OperatingSystemUC) List(ctx context.Context) ([]domain.OperatingSystem, error) {
	return uc.OperatingSystems.List(ctx)
}

func (uc *OperatingSystemUC) Get(ctx context.Context, id uint) (*domain.OperatingSystem, error) {
	return uc.OperatingSystems.FindByID(ctx, id)
}

func (uc *OperatingSystemUC) Create(ctx context.Context, form admin.Form) (*domain.OperatingSystem, error) {
	os := &domain.OperatingSystem{}
	if err := uc.bind(ctx, os, form, false); err != nil {
		return nil, err
	}
	if err := uc.OperatingSystems.Save(ctx, os); err != nil {
		return nil, err
	}
	return os, nil
}

func (uc *OperatingSystemUC) Update(ctx context.Context, id uint, form admin.Form) (*domain.OperatingSystem, error) {
	os, err := uc.OperatingSystems.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.bind(ctx, os, form, true); err != nil {
		return nil, err
	}
	os.ID = id
	if err := uc.OperatingSystems.Save(ctx, os); err != nil {
		return nil, err
	}
	return os, nil
}

func (uc *OperatingSystemUC) bind(ctx context.Context, os *domain.OperatingSystem, form admin.Form, change bool) error {
	if err := form.Only(uc.Admin.FormKeys()); err != nil {
		return err
	}
	if err := uc.Admin.Binder.Bind(ctx, os, form, change); err != nil {
		return err
	}
	var ve admin.ValidationError
	ve.Check("name", os.Name, "required,max=50")
	if err := ve.Err(); err != nil {
		return err
	}
	taken, err := uc.OperatingSystems.NameTaken(ctx, os.Name, os.ID)
	if err != nil {
		return err
	}
	if taken {
		ve.Add("name", "operating system with this name already exists")
	}
	return ve.Err()
}

func (uc *OperatingSystemUC) Delete(ctx context.Context, id uint) error {
	return uc.OperatingSystems.Delete(ctx, id)
}
