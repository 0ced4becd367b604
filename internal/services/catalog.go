package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sukanfresh/orderdesk/internal/engine"
	"github.com/sukanfresh/orderdesk/internal/models"
)

// CatalogService serves the engine's read-only product lookups from the
// products table. A record that cannot be loaded (missing or soft-deleted)
// is a lookup miss; DB failures are logged and reported the same way, since
// the engine treats both as a validation error at the add/edit boundary.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

var _ engine.Catalog = (*CatalogService)(nil)

func (s *CatalogService) LookupProduct(code string) (*engine.Product, bool) {
	var p models.Product
	if err := s.db.Where("code = ?", code).First(&p).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("product lookup failed", zap.String("code", code), zap.Error(err))
		}
		return nil, false
	}
	return &engine.Product{
		Code:         p.Code,
		Name:         p.Name,
		UnitSellRate: p.UnitSellRate,
		UnitBuyRate:  p.UnitBuyRate,
		Unit:         p.Unit,
		Image:        p.Image,
	}, true
}
