package export_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"

	"github.com/sukanfresh/orderdesk/internal/engine"
	"github.com/sukanfresh/orderdesk/internal/export"
)

type fakeCatalog map[string]engine.Product

func (c fakeCatalog) LookupProduct(code string) (*engine.Product, bool) {
	p, ok := c[code]
	if !ok {
		return nil, false
	}
	return &p, true
}

type nopPersister struct{}

func (nopPersister) Save(*engine.Document) (int64, error) { return 1, nil }

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	catalog := fakeCatalog{
		"MNG-01": {Code: "MNG-01", Name: "Alphonso Mango", UnitSellRate: 10, UnitBuyRate: 6, Unit: "kg"},
		"PNP-01": {Code: "PNP-01", Name: "Pineapple", UnitSellRate: 4, UnitBuyRate: 2.5, Unit: "kg"},
	}
	return engine.New(catalog, nopPersister{}, node, engine.KindSalesOrder)
}

func f64(v float64) *float64 { return &v }

func TestExportImportRoundTrip(t *testing.T) {
	src := newEngine(t)
	if _, err := src.AddLine("MNG-01", 5, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := src.AddLine("PNP-01", 2, f64(9)); err != nil {
		t.Fatalf("add manual: %v", err)
	}

	var buf bytes.Buffer
	doc := src.Document()
	if err := export.WriteLines(&buf, &doc); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := export.ParseLines(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	dst := newEngine(t)
	result := export.ImportLines(dst, rows)
	if len(result.Added) != 2 || len(result.Rejected) != 0 {
		t.Fatalf("import result: %+v", result)
	}
	totals := dst.Totals()
	if totals.NetTotal != 59 {
		t.Fatalf("net total = %v, want 59", totals.NetTotal)
	}
	// The manual total survives; the auto flag survives too.
	lines := dst.Document().Lines
	if !lines[0].RateIsAuto || lines[1].RateIsAuto {
		t.Fatalf("auto flags: %v %v", lines[0].RateIsAuto, lines[1].RateIsAuto)
	}
	if lines[1].LineTotal != 9 {
		t.Fatalf("manual total = %v, want 9", lines[1].LineTotal)
	}
}

func TestImportAutoRowsRederive(t *testing.T) {
	// An auto row imported with a stale total gets re-derived from the
	// current catalog rate; the file's number is ignored.
	dst := newEngine(t)
	rows := []export.LineRow{
		{ProductCode: "MNG-01", Quantity: 3, LineTotal: 999, AutoRate: true},
	}
	result := export.ImportLines(dst, rows)
	if len(result.Added) != 1 {
		t.Fatalf("import result: %+v", result)
	}
	if result.Added[0].LineTotal != 30 {
		t.Fatalf("line total = %v, want 30", result.Added[0].LineTotal)
	}
}

func TestImportRejectsBadRowsAndContinues(t *testing.T) {
	dst := newEngine(t)
	rows := []export.LineRow{
		{ProductCode: "MNG-01", Quantity: 1, AutoRate: true},
		{ProductCode: "NOPE-99", Quantity: 1, AutoRate: true},
		{ProductCode: "PNP-01", Quantity: 1, LineTotal: -4},
		{ProductCode: "PNP-01", Quantity: 2, AutoRate: true},
	}
	result := export.ImportLines(dst, rows)
	if len(result.Added) != 2 {
		t.Fatalf("added = %d, want 2", len(result.Added))
	}
	if len(result.Rejected) != 2 {
		t.Fatalf("rejected = %d, want 2", len(result.Rejected))
	}
	if result.Rejected[0].Row != 2 || result.Rejected[1].Row != 3 {
		t.Fatalf("row numbers: %+v", result.Rejected)
	}
	if !strings.Contains(result.Rejected[0].Error, "not found") {
		t.Fatalf("unexpected error text: %s", result.Rejected[0].Error)
	}
}
