// Package export is the spreadsheet glue around the order engine: it dumps
// a document's line rows to CSV and loads rows back in through the ledger's
// own Add operation, so imported rows face exactly the same validation as
// hand-entered ones.
package export

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/sukanfresh/orderdesk/internal/engine"
)

// LineRow is the flat CSV shape of one line item.
type LineRow struct {
	ProductCode string  `csv:"product_code"`
	ProductName string  `csv:"product_name"`
	Unit        string  `csv:"unit"`
	Quantity    int     `csv:"quantity"`
	LineTotal   float64 `csv:"line_total"`
	AutoRate    bool    `csv:"auto_rate"`
}

// WriteLines writes the document's line rows as CSV.
func WriteLines(w io.Writer, doc *engine.Document) error {
	rows := make([]LineRow, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		rows = append(rows, LineRow{
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
			LineTotal:   l.LineTotal,
			AutoRate:    l.RateIsAuto,
		})
	}
	return gocsv.Marshal(&rows, w)
}

// ParseLines reads CSV rows in the WriteLines shape.
func ParseLines(r io.Reader) ([]LineRow, error) {
	var rows []LineRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// RowError reports one rejected import row. Row numbering starts at 1 for
// the first data row, matching what a spreadsheet user sees.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult summarizes an import: rows that made it into the ledger and
// rows the engine rejected.
type ImportResult struct {
	Added    []engine.LineItem `json:"added"`
	Rejected []RowError        `json:"rejected,omitempty"`
}

// ImportLines feeds rows through AddLine one by one. A rejected row is
// recorded and skipped; it never blocks the rows after it. A row flagged
// auto re-derives its total from the catalog rate, so a stale total in the
// file cannot override the current rate.
func ImportLines(e *engine.Engine, rows []LineRow) ImportResult {
	var result ImportResult
	for i, row := range rows {
		var explicit *float64
		if !row.AutoRate {
			total := row.LineTotal
			explicit = &total
		}
		line, err := e.AddLine(row.ProductCode, row.Quantity, explicit)
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Row: i + 1, Error: err.Error()})
			continue
		}
		result.Added = append(result.Added, line)
	}
	return result
}
