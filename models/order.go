package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. All transitions out of
// pending are terminal except for administrative override.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusExpired, OrderStatusCancelled:
		return true
	}
	return false
}

// Order owns its lines. TotalCost is derived: it always equals the sum of
// price_at_order * quantity over the order's lines.
type Order struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Status    OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalCost decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_cost"`
	WaiterID  *uint           `gorm:"index" json:"waiter_id,omitempty"`
	Waiter    *User           `gorm:"foreignKey:WaiterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"waiter,omitempty"`
	Lines     []OrderLine     `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
