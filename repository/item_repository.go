package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geekyair/restaurant-backoffice/models"
)

// ItemFilter narrows and pages item queries.
type ItemFilter struct {
	Category       *models.Category
	ExcludeExpired bool
	SortBy         string
	SortOrder      string
	Page           int
	Limit          int
}

// ItemRepository is the inventory store. AdjustStock and LockByID must only
// be used inside a Store.Transaction shared with the order mutation they
// accompany.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id uint) (*models.Item, error)
	FindByName(ctx context.Context, name string) (*models.Item, error)
	Save(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id uint) error
	FindAll(ctx context.Context, filter ItemFilter) ([]models.Item, int64, error)

	// LockByID loads the item row under a SELECT ... FOR UPDATE lock so
	// concurrent stock mutations on the same item serialize.
	LockByID(ctx context.Context, id uint) (*models.Item, error)
	// AdjustStock applies stock_quantity += delta as one conditional update
	// that refuses to drive the quantity negative.
	AdjustStock(ctx context.Context, id uint, delta int) error

	ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Item, error)
	ExpiringOn(ctx context.Context, day time.Time) ([]models.Item, error)
	ApplyDiscount(ctx context.Context, id uint, discounted decimal.Decimal) error
}

type itemRepository struct {
	db *gorm.DB
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	err := r.db.WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *itemRepository) FindByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) FindByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) Save(ctx context.Context, item *models.Item) error {
	err := r.db.WithContext(ctx).Save(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *itemRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Item{}, id)
	if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
		return ErrItemReferenced
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepository) FindAll(ctx context.Context, filter ItemFilter) ([]models.Item, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Item{})

	if filter.Category != nil {
		q = q.Where("category = ?", *filter.Category)
	}
	if filter.ExcludeExpired {
		q = q.Where("expiry_date IS NULL OR expiry_date > ?", time.Now())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "name", "price", "expiry_date", "stock_quantity":
		direction := "ASC"
		if filter.SortOrder == "desc" || filter.SortOrder == "DESC" {
			direction = "DESC"
		}
		q = q.Order(filter.SortBy + " " + direction)
	default:
		q = q.Order("id ASC")
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	var items []models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) LockByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) AdjustStock(ctx context.Context, id uint, delta int) error {
	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, delta).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing row from a would-be-negative quantity.
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *itemRepository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("expiry_date > ? AND expiry_date <= ?", from, to).
		Where("stock_quantity > 0").
		Where("discount_applied = ?", false).
		Find(&items).Error
	return items, err
}

func (r *itemRepository) ExpiringOn(ctx context.Context, day time.Time) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("expiry_date = ?", day.Format("2006-01-02")).
		Where("stock_quantity > 0").
		Find(&items).Error
	return items, err
}

func (r *itemRepository) ApplyDiscount(ctx context.Context, id uint, discounted decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"discounted_price": discounted,
			"discount_applied": true,
		}).Error
}
