package engine

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Engine owns one document for the duration of an editing session.
// Single-writer: all mutations run to completion before the next one, so no
// locking lives here. Every ledger mutation is followed by an explicit tax
// recompute; there is no reactive machinery to get the ordering wrong.
type Engine struct {
	catalog   Catalog
	persister Persister
	ids       *snowflake.Node
	doc       Document
}

// New starts a fresh Draft of the given kind. The document has no id until
// the first successful Save transition.
func New(catalog Catalog, persister Persister, ids *snowflake.Node, kind Kind) *Engine {
	now := time.Now()
	return &Engine{
		catalog:   catalog,
		persister: persister,
		ids:       ids,
		doc: Document{
			Kind:         kind,
			Status:       StatusDraft,
			OrderDate:    now,
			DeliveryDate: now,
		},
	}
}

// Resume wraps an already persisted document for further editing.
func Resume(catalog Catalog, persister Persister, ids *snowflake.Node, doc Document) *Engine {
	return &Engine{catalog: catalog, persister: persister, ids: ids, doc: doc.Clone()}
}

// Document returns a snapshot of the current state.
func (e *Engine) Document() Document { return e.doc.Clone() }

// Totals re-derives the document totals from the two ledgers.
func (e *Engine) Totals() Totals { return ComputeTotals(&e.doc) }

// SetCustomer assigns the customer the document is for.
func (e *Engine) SetCustomer(customerID int64) error {
	if err := e.editable(); err != nil {
		return err
	}
	e.doc.CustomerID = customerID
	return nil
}

// SetDates assigns order and delivery dates. The pair is validated together
// so a rejected update leaves both untouched.
func (e *Engine) SetDates(orderDate, deliveryDate time.Time) error {
	if err := e.editable(); err != nil {
		return err
	}
	if deliveryDate.Before(orderDate) {
		return validationErr(ErrDateOrder, "delivery_date", "delivery %s before order %s",
			deliveryDate.Format("2006-01-02"), orderDate.Format("2006-01-02"))
	}
	e.doc.OrderDate = orderDate
	e.doc.DeliveryDate = deliveryDate
	return nil
}

// editable gates every ledger mutation: a cancelled document must be
// amended back to Draft before any row can change.
func (e *Engine) editable() error {
	if e.doc.Status == StatusCancelled {
		return validationErr(ErrDocumentCancelled, "status", "document %d", e.doc.ID)
	}
	return nil
}

// autoRate is the per-unit rate feeding auto-derived line totals: the sell
// rate for sales orders, the buying rate for purchase quotations.
func (e *Engine) autoRate(p *Product) float64 {
	if e.doc.Kind == KindPurchaseQuotation {
		return p.UnitBuyRate
	}
	return p.UnitSellRate
}

func (e *Engine) newID() int64 { return e.ids.Generate().Int64() }
