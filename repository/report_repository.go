package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/geekyair/restaurant-backoffice/models"
)

// CommissionRow is one waiter's aggregate over completed orders in a range.
type CommissionRow struct {
	WaiterID           uint            `json:"waiter_id"`
	WaiterName         string          `json:"waiter_name"`
	TotalItemsSold     int64           `json:"total_items_sold"`
	ItemsSoldFood      int64           `json:"items_sold_food"`
	ItemsSoldBeverages int64           `json:"items_sold_beverages"`
	ItemsSoldOthers    int64           `json:"items_sold_others"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
}

// CommissionQuery bounds the report. Exactly one of WaiterID / WaiterName
// may be set; both empty means all waiters.
type CommissionQuery struct {
	Start      time.Time
	End        time.Time
	WaiterID   *uint
	WaiterName string
}

type ReportRepository interface {
	WaiterCommission(ctx context.Context, q CommissionQuery) ([]CommissionRow, error)
}

type reportRepository struct {
	db *gorm.DB
}

// Commission weights per category: food 1%, beverages 0.5%, others 0.25%.
const commissionSQL = `
SELECT
    u.id   AS waiter_id,
    u.name AS waiter_name,
    COUNT(DISTINCT ol.id) AS total_items_sold,
    COALESCE(SUM(CASE WHEN i.category = 'food'      THEN ol.quantity ELSE 0 END), 0) AS items_sold_food,
    COALESCE(SUM(CASE WHEN i.category = 'beverages' THEN ol.quantity ELSE 0 END), 0) AS items_sold_beverages,
    COALESCE(SUM(CASE WHEN i.category = 'others'    THEN ol.quantity ELSE 0 END), 0) AS items_sold_others,
    COALESCE(SUM(ol.price_at_order * ol.quantity), 0) AS total_revenue,
    COALESCE(SUM(
        CASE
            WHEN i.category = 'food'      THEN ol.price_at_order * ol.quantity * 0.01
            WHEN i.category = 'beverages' THEN ol.price_at_order * ol.quantity * 0.005
            WHEN i.category = 'others'    THEN ol.price_at_order * ol.quantity * 0.0025
            ELSE 0
        END
    ), 0) AS total_commission
FROM users u
JOIN orders o       ON o.waiter_id = u.id
JOIN order_lines ol ON ol.order_id = o.id
JOIN items i        ON i.id = ol.item_id
WHERE u.role = ?
  AND o.status = ?
  AND o.updated_at >= ?
  AND o.updated_at <= ?
`

func (r *reportRepository) WaiterCommission(ctx context.Context, q CommissionQuery) ([]CommissionRow, error) {
	sql := commissionSQL
	args := []interface{}{models.RoleWaiter, models.OrderStatusCompleted, q.Start, q.End}

	if q.WaiterID != nil {
		sql += " AND u.id = ?"
		args = append(args, *q.WaiterID)
	} else if q.WaiterName != "" {
		sql += " AND u.name ILIKE ?"
		args = append(args, "%"+q.WaiterName+"%")
	}
	sql += " GROUP BY u.id, u.name ORDER BY u.name"

	var rows []CommissionRow
	err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error
	return rows, err
}
