package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies an inventory item for reporting and commission.
type Category string

const (
	CategoryOthers    Category = "others"
	CategoryFood      Category = "food"
	CategoryBeverages Category = "beverages"
)

// ValidCategory reports whether c is a known item category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryOthers, CategoryFood, CategoryBeverages:
		return true
	}
	return false
}

// Item is a unit of inventory. StockQuantity and Price are never negative;
// the stock invariant is enforced by the conditional update in the repository.
type Item struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"uniqueIndex;not null" json:"name"`
	Description     string           `gorm:"type:text" json:"description"`
	Price           decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	Category        Category         `gorm:"type:varchar(20);not null;index" json:"category"`
	ExpiryDate      *time.Time       `gorm:"type:date;index" json:"expiry_date,omitempty"`
	StockQuantity   int              `gorm:"not null;default:0" json:"stock_quantity"`
	DiscountedPrice *decimal.Decimal `gorm:"type:decimal(10,2)" json:"discounted_price,omitempty"`
	DiscountApplied bool             `gorm:"default:false" json:"discount_applied"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Expired reports whether the item's expiry date has passed at the given time.
func (i *Item) Expired(now time.Time) bool {
	return i.ExpiryDate != nil && i.ExpiryDate.Before(now)
}
