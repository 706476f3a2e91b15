package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/myshop/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

// Create writes the base row, the leaf row and every inline collection in one
// transaction.
func (r *ProductRepo) Create(ctx context.Context, l domain.Leaf) error {
	p := l.Base()
	domain.Link(l)
	p.PolymorphicType = l.Type()
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(l).Error; err != nil {
			return err
		}
		return saveInlines(tx, l)
	}))
}

func (r *ProductRepo) Update(ctx context.Context, l domain.Leaf) error {
	p := l.Base()
	if p.ID == uuid.Nil {
		return errors.New("empty product id")
	}
	domain.Link(l)
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return err
		}
		// commodities carry no columns besides the key
		if _, ok := l.(*domain.Commodity); !ok {
			if err := tx.Omit(clause.Associations).Save(l).Error; err != nil {
				return err
			}
		}
		return saveInlines(tx, l)
	}))
}

func (r *ProductRepo) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("slug = ? AND id <> ?", slug, except).Count(&n).Error
	return n > 0, err
}

func (r *ProductRepo) VariantCodesTaken(ctx context.Context, codes []string, except uuid.UUID) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var taken []string
	err := r.db.WithContext(ctx).Model(&domain.SmartPhoneVariant{}).
		Where("product_code IN ? AND product_id <> ?", codes, except).
		Order("product_code").Pluck("product_code", &taken).Error
	return taken, err
}

// Search terms match literally: the LIKE wildcards they carry are escaped.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

const likeClause = `LIKE LOWER(?) ESCAPE '\'`

// translate maps unique violations reported by the driver to
// domain.ErrDuplicate. It needs the connection opened with TranslateError.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	}
	return err
}

// saveInlines replaces the inline collections of a product with what the
// submitted form carried: rows missing from the submission are deleted.
func saveInlines(tx *gorm.DB, l domain.Leaf) error {
	p := l.Base()
	if err := tx.Model(p).Association("CMSPages").Replace(p.CMSPages); err != nil {
		return fmt.Errorf("cms pages: %w", err)
	}

	keep := make([]uuid.UUID, 0, len(p.Images))
	for i := range p.Images {
		im := &p.Images[i]
		if im.ID == uuid.Nil {
			im.ID = uuid.New()
		}
		if im.CreatedAt.IsZero() {
			im.CreatedAt = time.Now()
		}
		im.ProductID = p.ID
		keep = append(keep, im.ID)
	}
	if err := deleteMissing(tx, &domain.ProductImage{}, p.ID, keep); err != nil {
		return err
	}
	if len(p.Images) > 0 {
		if err := tx.Save(&p.Images).Error; err != nil {
			return err
		}
	}

	phone, ok := l.(*domain.SmartPhoneModel)
	if !ok {
		return nil
	}
	keep = keep[:0]
	for i := range phone.Variants {
		v := &phone.Variants[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = p.ID
		keep = append(keep, v.ID)
	}
	if err := deleteMissing(tx, &domain.SmartPhoneVariant{}, p.ID, keep); err != nil {
		return err
	}
	if len(phone.Variants) > 0 {
		return tx.Save(&phone.Variants).Error
	}
	return nil
}

func deleteMissing(tx *gorm.DB, model any, productID uuid.UUID, keep []uuid.UUID) error {
	q := tx.Where("product_id = ?", productID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(model).Error
}

func (r *ProductRepo) Get(ctx context.Context, id uuid.UUID) (domain.Leaf, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	l, err := domain.NewLeaf(p.PolymorphicType)
	if err != nil {
		return nil, err
	}
	q := r.db.WithContext(ctx).
		Preload("Product.CMSPages", func(db *gorm.DB) *gorm.DB { return db.Order("title asc") }).
		Preload("Product.Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc, created_at asc") })
	if l.Type() == domain.ProductTypeSmartPhone {
		q = q.Preload("OperatingSystem").
			Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("product_code asc") })
	}
	if err := q.Preload("Product").First(l, "product_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: leaf row missing for %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return l, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if f.Type != "" {
		q = q.Where("polymorphic_type = ?", f.Type)
	}
	if f.CMSPageID != nil {
		q = q.Where("id IN (?)", r.db.Table("product_cms_pages").Select("product_id").Where("cms_page_id = ?", *f.CMSPageID))
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		cols := searchColumns(f.SearchFields)
		// every term has to match at least one search column
		for _, term := range strings.Fields(query) {
			like := "%" + likeEscaper.Replace(term) + "%"
			cond := r.db.Where("LOWER("+cols[0]+") "+likeClause, like)
			for _, c := range cols[1:] {
				cond = cond.Or("LOWER("+c+") "+likeClause, like)
			}
			q = q.Where(cond)
		}
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Order("display_order asc").Order("product_name asc")
	if !f.All {
		if f.Page <= 0 {
			f.Page = 1
		}
		if f.PageSize <= 0 {
			f.PageSize = 20
		}
		q = q.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

var searchable = map[string]bool{
	"product_name": true,
	"product_code": true,
	"slug":         true,
	"manufacturer": true,
	"caption":      true,
}

func searchColumns(fields []string) []string {
	var cols []string
	for _, f := range fields {
		if searchable[f] {
			cols = append(cols, f)
		}
	}
	if len(cols) == 0 {
		return []string{"product_name"}
	}
	return cols
}

// RealInstances loads the leaf of every listed product with one query per
// product type.
func (r *ProductRepo) RealInstances(ctx context.Context, list []domain.Product) (map[uuid.UUID]domain.Leaf, error) {
	byType := map[domain.ProductType][]uuid.UUID{}
	base := make(map[uuid.UUID]domain.Product, len(list))
	for _, p := range list {
		byType[p.PolymorphicType] = append(byType[p.PolymorphicType], p.ID)
		base[p.ID] = p
	}
	out := make(map[uuid.UUID]domain.Leaf, len(list))
	db := r.db.WithContext(ctx)
	for t, ids := range byType {
		switch t {
		case domain.ProductTypeCommodity:
			var rows []domain.Commodity
			if err := db.Where("product_id IN ?", ids).Find(&rows).Error; err != nil {
				return nil, err
			}
			for i := range rows {
				rows[i].Product = base[rows[i].ProductID]
				out[rows[i].ProductID] = &rows[i]
			}
		case domain.ProductTypeSmartCard:
			var rows []domain.SmartCard
			if err := db.Where("product_id IN ?", ids).Find(&rows).Error; err != nil {
				return nil, err
			}
			for i := range rows {
				rows[i].Product = base[rows[i].ProductID]
				out[rows[i].ProductID] = &rows[i]
			}
		case domain.ProductTypeSmartPhone:
			var rows []domain.SmartPhoneModel
			if err := db.Preload("Variants").Where("product_id IN ?", ids).Find(&rows).Error; err != nil {
				return nil, err
			}
			for i := range rows {
				rows[i].Product = base[rows[i].ProductID]
				out[rows[i].ProductID] = &rows[i]
			}
		default:
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProductType, t)
		}
	}
	return out, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&p).Association("CMSPages").Clear(); err != nil {
			return err
		}
		for _, m := range []any{&domain.ProductImage{}, &domain.Placeholder{}, &domain.SmartPhoneVariant{}, &domain.Commodity{}, &domain.SmartCard{}, &domain.SmartPhoneModel{}} {
			if err := tx.Where("product_id = ?", p.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&domain.Product{}, "id = ?", p.ID).Error
	})
}

// MaxOrder returns the highest display order over all products, nil when the
// table is empty.
func (r *ProductRepo) MaxOrder(ctx context.Context) (*int, error) {
	var max sql.NullInt64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Select("MAX(display_order)").Row().Scan(&max); err != nil {
		return nil, err
	}
	if !max.Valid {
		return nil, nil
	}
	v := int(max.Int64)
	return &v, nil
}

// Move puts the product at startOrder on endOrder and shifts every product in
// between by one position.
func (r *ProductRepo) Move(ctx context.Context, startOrder, endOrder int) error {
	if startOrder == endOrder {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var moved domain.Product
		if err := tx.First(&moved, "display_order = ?", startOrder).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		shift := sq.Update("products")
		if startOrder < endOrder {
			shift = shift.Set("display_order", sq.Expr("display_order - 1")).
				Where(sq.And{sq.Gt{"display_order": startOrder}, sq.LtOrEq{"display_order": endOrder}})
		} else {
			shift = shift.Set("display_order", sq.Expr("display_order + 1")).
				Where(sq.And{sq.GtOrEq{"display_order": endOrder}, sq.Lt{"display_order": startOrder}})
		}
		stmt, args, err := shift.ToSql()
		if err != nil {
			return err
		}
		if err := tx.Exec(stmt, args...).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Product{}).Where("id = ?", moved.ID).Update("display_order", endOrder).Error
	})
}

func (r *ProductRepo) FindPlaceholder(ctx context.Context, productID uuid.UUID, slot string) (*domain.Placeholder, error) {
	var ph domain.Placeholder
	if err := r.db.WithContext(ctx).First(&ph, "product_id = ? AND slot = ?", productID, slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ph, nil
}

func (r *ProductRepo) SavePlaceholder(ctx context.Context, ph *domain.Placeholder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Placeholder
		err := tx.Where("product_id = ? AND slot = ?", ph.ProductID, ph.Slot).First(&existing).Error
		if err == nil {
			ph.ID = existing.ID
			return tx.Model(&existing).Updates(map[string]any{"content": ph.Content, "updated_at": time.Now()}).Error
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			if ph.ID == uuid.Nil {
				ph.ID = uuid.New()
			}
			return tx.Create(ph).Error
		}
		return err
	})
}
