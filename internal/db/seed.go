package db

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sukanfresh/orderdesk/internal/models"
)

// Seed inserts a small produce catalog and a couple of customers for
// development. Existing codes are left alone so re-seeding is safe.
func Seed(conn *gorm.DB) {
	products := []models.Product{
		{Code: "MNG-01", Name: "Alphonso Mango", UnitSellRate: 10, UnitBuyRate: 6, Unit: "kg"},
		{Code: "MNG-02", Name: "Kent Mango", UnitSellRate: 8.5, UnitBuyRate: 5.2, Unit: "kg"},
		{Code: "PNP-01", Name: "Pineapple", UnitSellRate: 4, UnitBuyRate: 2.5, Unit: "kg"},
		{Code: "BAN-02", Name: "Cavendish Banana", UnitSellRate: 1.5, UnitBuyRate: 1, Unit: "crate"},
		{Code: "PPY-01", Name: "Red Papaya", UnitSellRate: 3.2, UnitBuyRate: 1.9, Unit: "kg"},
		{Code: "AVO-01", Name: "Hass Avocado", UnitSellRate: 12, UnitBuyRate: 8.4, Unit: "box"},
	}
	for _, p := range products {
		var existing models.Product
		if err := conn.Where("code = ?", p.Code).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			conn.Create(&p)
		}
	}

	customers := []struct {
		customer models.Customer
		address  models.Address
	}{
		{
			customer: models.Customer{Name: "Nordfrukt AB", Email: "orders@nordfrukt.example"},
			address:  models.Address{Line1: "Frihamnsgatan 12", City: "Stockholm", PostalCode: "115 56", Country: "SE"},
		},
		{
			customer: models.Customer{Name: "Al Madina Trading", Email: "purchasing@almadina.example"},
			address:  models.Address{Line1: "Port Saeed Road 4", City: "Dubai", Country: "AE"},
		},
	}
	for _, c := range customers {
		var existing models.Customer
		if err := conn.Where("name = ?", c.customer.Name).First(&existing).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		addr := c.address
		if err := conn.Create(&addr).Error; err != nil {
			continue
		}
		cust := c.customer
		cust.AddressID = addr.ID
		conn.Create(&cust)
	}
}
