package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a catalog entry: produce the business sells and buys. The
// order engine consumes products read-only through the catalog service.
type Product struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Code         string  `gorm:"size:40;not null;uniqueIndex" json:"code"`
	Name         string  `gorm:"size:255;not null" json:"name"`
	UnitSellRate float64 `gorm:"not null" json:"unit_sell_rate"`
	UnitBuyRate  float64 `gorm:"not null" json:"unit_buy_rate"`
	// Unit is the display UOM, e.g. "kg", "crate", "box".
	Unit  string `gorm:"size:20;not null;default:'kg'" json:"unit"`
	Image string `gorm:"size:500" json:"image,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// UnitMargin is the per-unit spread between sell and buy rates.
func (p *Product) UnitMargin() float64 {
	return p.UnitSellRate - p.UnitBuyRate
}
