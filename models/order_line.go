package models

import "github.com/shopspring/decimal"

// OrderLine joins an order to an item. At most one line exists per
// (order, item) pair; adding the same item again replaces the quantity.
// PriceAtOrder snapshots the item price at the time of the last add/update.
type OrderLine struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"not null;uniqueIndex:idx_order_item" json:"order_id"`
	Order        *Order          `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ItemID       uint            `gorm:"not null;uniqueIndex:idx_order_item;index" json:"item_id"`
	Item         *Item           `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"item,omitempty"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	PriceAtOrder decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_order"`
}
