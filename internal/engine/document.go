// Package engine implements the order-document core shared by sales orders
// and purchase quotations: the line item ledger, the tax ledger, derived
// totals, and the document lifecycle. It is free of any database or HTTP
// concern; persistence, catalog lookup and user confirmation are ports
// supplied by the caller.
package engine

import "time"

// Kind tags which document family an aggregate belongs to. Both kinds share
// the same ledgers and lifecycle; they differ only in which product rate
// feeds the auto-derived line total.
type Kind string

const (
	KindSalesOrder        Kind = "sales_order"
	KindPurchaseQuotation Kind = "purchase_quotation"
)

// Status is the lifecycle state of a document. Picked is tracked as a flag
// on the document rather than a status value: a picked order is presented
// as "delivered" but keeps its submitted status underneath.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSaved     Status = "saved"
	StatusSubmitted Status = "submitted"
	StatusCancelled Status = "cancelled"
)

// StatusDelivered is the presentation label for a picked document.
const StatusDelivered = "delivered"

// Product is the engine's read-only view of a catalog entry.
type Product struct {
	Code         string
	Name         string
	UnitSellRate float64
	UnitBuyRate  float64
	Unit         string
	Image        string
}

// Catalog resolves product codes. Implementations are read-only; the engine
// never mutates catalog data.
type Catalog interface {
	LookupProduct(code string) (*Product, bool)
}

// Confirmer is the synchronous yes/no collaborator gating every lifecycle
// transition. Over HTTP the answer arrives as a boolean on the request, so
// callers may bypass this interface and pass the flag directly.
type Confirmer interface {
	Confirm(message string) bool
}

// Persister stores a document and returns its assigned id. It is invoked
// only by the Save transition; a failure leaves the document untouched in
// Draft.
type Persister interface {
	Save(doc *Document) (int64, error)
}

// LineItem is one orderable row: a product, a quantity, and the total price
// for the line (not a per-unit rate). The product's rates are snapshotted at
// add/edit time so derived margins stay stable even if callers drop the
// catalog afterwards.
type LineItem struct {
	ID           int64   `json:"id"`
	ProductCode  string  `json:"product_code"`
	ProductName  string  `json:"product_name"`
	Unit         string  `json:"unit"`
	Quantity     int     `json:"quantity"`
	UnitSellRate float64 `json:"unit_sell_rate"`
	UnitBuyRate  float64 `json:"unit_buy_rate"`
	LineTotal    float64 `json:"line_total"`
	// RateIsAuto is true while LineTotal tracks quantity × unit rate.
	// A manual total clears it; only re-adding the line restores it.
	RateIsAuto bool `json:"rate_is_auto"`
}

// BuyingCost is the procurement cost of the line.
func (l LineItem) BuyingCost() float64 {
	return l.UnitBuyRate * float64(l.Quantity)
}

// MarginAmount is the sell total minus the buying cost.
func (l LineItem) MarginAmount() float64 {
	return l.LineTotal - l.BuyingCost()
}

// MarginPercent is the margin relative to buying cost, 0 when the cost is 0.
func (l LineItem) MarginPercent() float64 {
	cost := l.BuyingCost()
	if cost <= 0 {
		return 0
	}
	return l.MarginAmount() / cost * 100
}

// TaxKind selects how a tax row's amount is determined.
type TaxKind string

const (
	// TaxOnNetTotal rows derive their amount from the document net total and
	// the row rate; the amount is never directly editable.
	TaxOnNetTotal TaxKind = "on_net_total"
	// TaxActual rows carry a manually entered amount; the rate is ignored.
	TaxActual TaxKind = "actual"
)

// TaxRow is one tax or charge line on the document.
type TaxRow struct {
	ID           int64   `json:"id"`
	Kind         TaxKind `json:"kind"`
	AccountLabel string  `json:"account_label"`
	Rate         float64 `json:"rate"`
	Amount       float64 `json:"amount"`
}

// Document is the order aggregate: header fields plus the two ledgers.
// ID is zero until the first successful Save.
type Document struct {
	ID           int64      `json:"id"`
	Kind         Kind       `json:"kind"`
	Status       Status     `json:"status"`
	Picked       bool       `json:"picked"`
	CustomerID   int64      `json:"customer_id"`
	OrderDate    time.Time  `json:"order_date"`
	DeliveryDate time.Time  `json:"delivery_date"`
	Lines        []LineItem `json:"lines"`
	TaxRows      []TaxRow   `json:"tax_rows"`
}

// StatusLabel is the presentation status: "delivered" once picked,
// otherwise the lifecycle status itself.
func (d *Document) StatusLabel() string {
	if d.Picked {
		return StatusDelivered
	}
	return string(d.Status)
}

// Saved reports whether the document has been persisted at least once.
func (d *Document) Saved() bool { return d.ID != 0 }

// Clone returns a deep copy, so snapshots handed to callers cannot alias
// the engine's owned ledgers.
func (d *Document) Clone() Document {
	out := *d
	out.Lines = make([]LineItem, len(d.Lines))
	copy(out.Lines, d.Lines)
	out.TaxRows = make([]TaxRow, len(d.TaxRows))
	copy(out.TaxRows, d.TaxRows)
	return out
}
