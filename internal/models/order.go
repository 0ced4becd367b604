package models

import "time"

// OrderDocument is the persisted form of an engine document: a sales order
// or purchase quotation header with its line and tax rows. Totals are never
// stored; they are re-derived by the engine on every read.
type OrderDocument struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Kind   string `gorm:"size:30;not null;index" json:"kind"`
	Status string `gorm:"size:20;not null;default:'draft';index" json:"status"`
	Picked bool   `gorm:"not null;default:false" json:"picked"`

	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	OrderDate    time.Time `gorm:"not null" json:"order_date"`
	DeliveryDate time.Time `gorm:"not null" json:"delivery_date"`

	Lines   []OrderLine   `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	TaxRows []OrderTaxRow `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"tax_rows,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderLine is one persisted line item. The primary key is the engine's
// snowflake row id, minted once per line and never reused; Position keeps
// the insertion order stable across reloads.
type OrderLine struct {
	ID         int64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DocumentID uint  `gorm:"index;not null" json:"document_id"`

	ProductCode  string  `gorm:"size:40;not null" json:"product_code"`
	ProductName  string  `gorm:"size:255;not null" json:"product_name"`
	Unit         string  `gorm:"size:20" json:"unit"`
	Quantity     int     `gorm:"not null" json:"quantity"`
	UnitSellRate float64 `gorm:"not null" json:"unit_sell_rate"`
	UnitBuyRate  float64 `gorm:"not null" json:"unit_buy_rate"`
	LineTotal    float64 `gorm:"not null" json:"line_total"`
	RateIsAuto   bool    `gorm:"not null" json:"rate_is_auto"`
	Position     int     `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderTaxRow is one persisted tax row, snowflake-keyed like OrderLine.
type OrderTaxRow struct {
	ID         int64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DocumentID uint  `gorm:"index;not null" json:"document_id"`

	Kind         string  `gorm:"size:20;not null" json:"kind"`
	AccountLabel string  `gorm:"size:255" json:"account_label"`
	Rate         float64 `gorm:"not null" json:"rate"`
	Amount       float64 `gorm:"not null" json:"amount"`
	Position     int     `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
