package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sukanfresh/orderdesk/internal/engine"
	"github.com/sukanfresh/orderdesk/internal/models"
)

// ErrDocumentNotFound is returned when a document id does not resolve.
var ErrDocumentNotFound = errors.New("order document not found")

// OrderStore persists engine documents. It implements the engine's
// Persister port: Save writes the whole aggregate in one transaction with
// replace-row semantics, so a document in the database always matches one
// engine snapshot exactly.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

var _ engine.Persister = (*OrderStore)(nil)

// Save upserts the document and returns its id. A zero doc.ID means first
// save; the id comes from the insert and the engine adopts it.
func (s *OrderStore) Save(doc *engine.Document) (int64, error) {
	row := headerFromEngine(doc)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if row.ID == 0 {
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create document: %w", err)
			}
		} else {
			var existing models.OrderDocument
			if err := tx.First(&existing, row.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrDocumentNotFound
				}
				return err
			}
			row.CreatedAt = existing.CreatedAt
			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("update document: %w", err)
			}
			// Replace-row semantics: removed lines must not survive a re-save.
			if err := tx.Where("document_id = ?", row.ID).Delete(&models.OrderLine{}).Error; err != nil {
				return err
			}
			if err := tx.Where("document_id = ?", row.ID).Delete(&models.OrderTaxRow{}).Error; err != nil {
				return err
			}
		}
		if len(doc.Lines) > 0 {
			lines := linesFromEngine(doc, row.ID)
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("create lines: %w", err)
			}
		}
		if len(doc.TaxRows) > 0 {
			taxRows := taxRowsFromEngine(doc, row.ID)
			if err := tx.Create(&taxRows).Error; err != nil {
				return fmt.Errorf("create tax rows: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(row.ID), nil
}

// Load rebuilds an engine document from its persisted rows.
func (s *OrderStore) Load(id int64) (engine.Document, error) {
	var row models.OrderDocument
	err := s.db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("TaxRows", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.Document{}, ErrDocumentNotFound
		}
		return engine.Document{}, err
	}
	return toEngine(&row), nil
}

// List returns persisted documents filtered by kind and status.
func (s *OrderStore) List(kind, status string, limit, offset int) ([]models.OrderDocument, int64, error) {
	dbq := s.db.Model(&models.OrderDocument{})
	if kind != "" {
		dbq = dbq.Where("kind = ?", kind)
	}
	if status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var docs []models.OrderDocument
	if err := dbq.Preload("Customer").Order("id desc").Limit(limit).Offset(offset).Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Get loads one persisted document row with its child rows.
func (s *OrderStore) Get(id int64) (*models.OrderDocument, error) {
	var row models.OrderDocument
	err := s.db.
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("TaxRows", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &row, nil
}

func headerFromEngine(doc *engine.Document) models.OrderDocument {
	return models.OrderDocument{
		ID:           uint(doc.ID),
		Kind:         string(doc.Kind),
		Status:       string(doc.Status),
		Picked:       doc.Picked,
		CustomerID:   uint(doc.CustomerID),
		OrderDate:    doc.OrderDate,
		DeliveryDate: doc.DeliveryDate,
	}
}

func linesFromEngine(doc *engine.Document, documentID uint) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(doc.Lines))
	for i, l := range doc.Lines {
		lines = append(lines, models.OrderLine{
			ID:           l.ID,
			DocumentID:   documentID,
			ProductCode:  l.ProductCode,
			ProductName:  l.ProductName,
			Unit:         l.Unit,
			Quantity:     l.Quantity,
			UnitSellRate: l.UnitSellRate,
			UnitBuyRate:  l.UnitBuyRate,
			LineTotal:    l.LineTotal,
			RateIsAuto:   l.RateIsAuto,
			Position:     i,
		})
	}
	return lines
}

func taxRowsFromEngine(doc *engine.Document, documentID uint) []models.OrderTaxRow {
	rows := make([]models.OrderTaxRow, 0, len(doc.TaxRows))
	for i, r := range doc.TaxRows {
		rows = append(rows, models.OrderTaxRow{
			ID:           r.ID,
			DocumentID:   documentID,
			Kind:         string(r.Kind),
			AccountLabel: r.AccountLabel,
			Rate:         r.Rate,
			Amount:       r.Amount,
			Position:     i,
		})
	}
	return rows
}

func toEngine(row *models.OrderDocument) engine.Document {
	doc := engine.Document{
		ID:           int64(row.ID),
		Kind:         engine.Kind(row.Kind),
		Status:       engine.Status(row.Status),
		Picked:       row.Picked,
		CustomerID:   int64(row.CustomerID),
		OrderDate:    row.OrderDate,
		DeliveryDate: row.DeliveryDate,
	}
	for _, l := range row.Lines {
		doc.Lines = append(doc.Lines, engine.LineItem{
			ID:           l.ID,
			ProductCode:  l.ProductCode,
			ProductName:  l.ProductName,
			Unit:         l.Unit,
			Quantity:     l.Quantity,
			UnitSellRate: l.UnitSellRate,
			UnitBuyRate:  l.UnitBuyRate,
			LineTotal:    l.LineTotal,
			RateIsAuto:   l.RateIsAuto,
		})
	}
	for _, r := range row.TaxRows {
		doc.TaxRows = append(doc.TaxRows, engine.TaxRow{
			ID:           r.ID,
			Kind:         engine.TaxKind(r.Kind),
			AccountLabel: r.AccountLabel,
			Rate:         r.Rate,
			Amount:       r.Amount,
		})
	}
	return doc
}
