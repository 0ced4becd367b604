package engine

// Tax ledger. OnNetTotal rows are a reactive dependency on the line ledger:
// recomputeTaxRows is called from every line mutation, not only from direct
// tax edits, so their amounts can never go stale.

// AddTaxRow appends an OnNetTotal row with rate 0. Its amount is derived
// from the current net total, which makes it 0 until a rate is set.
func (e *Engine) AddTaxRow() (TaxRow, error) {
	if err := e.editable(); err != nil {
		return TaxRow{}, err
	}
	row := TaxRow{
		ID:   e.newID(),
		Kind: TaxOnNetTotal,
	}
	row.Amount = e.Totals().NetTotal * row.Rate / 100
	e.doc.TaxRows = append(e.doc.TaxRows, row)
	return row, nil
}

// SetTaxRowKind switches a row between derived and manual amounts.
// Switching to OnNetTotal recomputes the amount immediately; switching to
// Actual freezes the last computed amount until the user edits it.
func (e *Engine) SetTaxRowKind(id int64, kind TaxKind) (TaxRow, error) {
	if err := e.editable(); err != nil {
		return TaxRow{}, err
	}
	if kind != TaxOnNetTotal && kind != TaxActual {
		return TaxRow{}, validationErr(ErrUnknownTaxKind, "kind", "%q", kind)
	}
	idx := e.taxRowIndex(id)
	if idx < 0 {
		return TaxRow{}, validationErr(ErrTaxRowNotFound, "id", "%d", id)
	}
	row := &e.doc.TaxRows[idx]
	row.Kind = kind
	if kind == TaxOnNetTotal {
		row.Amount = e.Totals().NetTotal * row.Rate / 100
	}
	return *row, nil
}

// SetTaxRowRate sets the percentage rate. For OnNetTotal rows the amount is
// re-derived at once from the current net total; for Actual rows the rate is
// stored but takes no part in the amount until the kind switches back.
func (e *Engine) SetTaxRowRate(id int64, rate float64) (TaxRow, error) {
	if err := e.editable(); err != nil {
		return TaxRow{}, err
	}
	idx := e.taxRowIndex(id)
	if idx < 0 {
		return TaxRow{}, validationErr(ErrTaxRowNotFound, "id", "%d", id)
	}
	row := &e.doc.TaxRows[idx]
	row.Rate = rate
	if row.Kind == TaxOnNetTotal {
		row.Amount = e.Totals().NetTotal * row.Rate / 100
	}
	return *row, nil
}

// SetTaxRowAmount sets a manual amount on an Actual row. It is rejected on
// OnNetTotal rows, where the amount is derived rather than stored.
func (e *Engine) SetTaxRowAmount(id int64, amount float64) (TaxRow, error) {
	if err := e.editable(); err != nil {
		return TaxRow{}, err
	}
	idx := e.taxRowIndex(id)
	if idx < 0 {
		return TaxRow{}, validationErr(ErrTaxRowNotFound, "id", "%d", id)
	}
	row := &e.doc.TaxRows[idx]
	if row.Kind == TaxOnNetTotal {
		return TaxRow{}, validationErr(ErrDerivedAmount, "amount", "row %d", id)
	}
	row.Amount = amount
	return *row, nil
}

// SetTaxRowLabel assigns the free-text account label.
func (e *Engine) SetTaxRowLabel(id int64, label string) (TaxRow, error) {
	if err := e.editable(); err != nil {
		return TaxRow{}, err
	}
	idx := e.taxRowIndex(id)
	if idx < 0 {
		return TaxRow{}, validationErr(ErrTaxRowNotFound, "id", "%d", id)
	}
	row := &e.doc.TaxRows[idx]
	row.AccountLabel = label
	return *row, nil
}

// RemoveTaxRow deletes a row unconditionally.
func (e *Engine) RemoveTaxRow(id int64) error {
	if err := e.editable(); err != nil {
		return err
	}
	idx := e.taxRowIndex(id)
	if idx < 0 {
		return validationErr(ErrTaxRowNotFound, "id", "%d", id)
	}
	e.doc.TaxRows = append(e.doc.TaxRows[:idx], e.doc.TaxRows[idx+1:]...)
	return nil
}

// recomputeTaxRows re-derives every OnNetTotal amount from the current net
// total, leaving Actual rows untouched. Called after each line mutation.
func (e *Engine) recomputeTaxRows() {
	net := netTotal(e.doc.Lines)
	for i := range e.doc.TaxRows {
		if e.doc.TaxRows[i].Kind == TaxOnNetTotal {
			e.doc.TaxRows[i].Amount = net * e.doc.TaxRows[i].Rate / 100
		}
	}
}

func (e *Engine) taxRowIndex(id int64) int {
	for i := range e.doc.TaxRows {
		if e.doc.TaxRows[i].ID == id {
			return i
		}
	}
	return -1
}
