package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/geekyair/restaurant-backoffice/models"
)

// OrderFilter narrows and pages order queries.
type OrderFilter struct {
	Status    *models.OrderStatus
	WaiterID  *uint
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	// FindByIDDetailed preloads lines (with items) and the assigned waiter.
	FindByIDDetailed(ctx context.Context, id uint) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	FindAll(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)

	FindLine(ctx context.Context, orderID, itemID uint) (*models.OrderLine, error)
	LinesByOrder(ctx context.Context, orderID uint) ([]models.OrderLine, error)
	CountLines(ctx context.Context, orderID uint) (int64, error)
	SaveLine(ctx context.Context, line *models.OrderLine) error
	DeleteLine(ctx context.Context, line *models.OrderLine) error

	// ExpirePending marks every pending order created before cutoff as
	// expired in one conditional bulk update.
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
	// CompletedSince returns the count and summed total of completed orders
	// created after the given time.
	CompletedSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error)
	// CreatedBetween returns orders created in [start, end) with lines,
	// items and waiter preloaded, for sales reporting.
	CreatedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDDetailed(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.Item").
		Preload("Waiter").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepository) FindAll(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.WaiterID != nil {
		q = q.Where("waiter_id = ?", *filter.WaiterID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	switch filter.SortBy {
	case "created_at", "updated_at", "total_cost", "status":
		sortBy = filter.SortBy
	}
	direction := "DESC"
	if filter.SortOrder == "asc" || filter.SortOrder == "ASC" {
		direction = "ASC"
	}
	q = q.Order(sortBy + " " + direction)

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	var orders []models.Order
	if err := q.Preload("Waiter").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) FindLine(ctx context.Context, orderID, itemID uint) (*models.OrderLine, error) {
	var line models.OrderLine
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND item_id = ?", orderID, itemID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *orderRepository) LinesByOrder(ctx context.Context, orderID uint) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&lines).Error
	return lines, err
}

func (r *orderRepository) CountLines(ctx context.Context, orderID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderLine{}).
		Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

func (r *orderRepository) SaveLine(ctx context.Context, line *models.OrderLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *orderRepository) DeleteLine(ctx context.Context, line *models.OrderLine) error {
	res := r.db.WithContext(ctx).Delete(line)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at < ?", models.OrderStatusPending, cutoff).
		Update("status", models.OrderStatusExpired)
	return res.RowsAffected, res.Error
}

func (r *orderRepository) CompletedSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error) {
	var row struct {
		OrderCount int64
		TotalSales decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("COUNT(id) AS order_count, COALESCE(SUM(total_cost), 0) AS total_sales").
		Where("status = ? AND created_at >= ?", models.OrderStatusCompleted, since).
		Scan(&row).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	return row.OrderCount, row.TotalSales, nil
}

func (r *orderRepository) CreatedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Preload("Lines").
		Preload("Lines.Item").
		Preload("Waiter").
		Find(&orders).Error
	return orders, err
}
