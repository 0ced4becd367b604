package models

import "time"

type Address struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Line1      string    `gorm:"size:255;not null" json:"line1"`
	Line2      string    `gorm:"size:255" json:"line2,omitempty"`
	City       string    `gorm:"size:120;not null" json:"city"`
	PostalCode string    `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string    `gorm:"size:2;not null" json:"country"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Customer is a buyer in the export ledger.
type Customer struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	Name      string   `gorm:"size:255;not null" json:"name"`
	Email     string   `gorm:"size:255" json:"email,omitempty"`
	Phone     string   `gorm:"size:40" json:"phone,omitempty"`
	AddressID uint     `json:"address_id,omitempty"`
	Address   *Address `gorm:"foreignKey:AddressID" json:"address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
