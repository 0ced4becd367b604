package engine

// Totals are always re-derived from the ledgers; nothing is cached between
// calls, so they cannot drift from the rows. No rounding is applied here;
// two-decimal presentation is the caller's concern and must never feed back
// into stored values.
type Totals struct {
	NetTotal    float64 `json:"net_total"`
	MarginTotal float64 `json:"margin_total"`
	TaxTotal    float64 `json:"tax_total"`
	GrandTotal  float64 `json:"grand_total"`
}

// ComputeTotals derives the document totals from the two ledgers.
func ComputeTotals(doc *Document) Totals {
	t := Totals{NetTotal: netTotal(doc.Lines)}
	for _, line := range doc.Lines {
		t.MarginTotal += line.MarginAmount()
	}
	for _, row := range doc.TaxRows {
		t.TaxTotal += row.Amount
	}
	t.GrandTotal = t.NetTotal + t.TaxTotal
	return t
}

func netTotal(lines []LineItem) float64 {
	var net float64
	for _, line := range lines {
		net += line.LineTotal
	}
	return net
}
