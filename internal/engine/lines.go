package engine

// Line item ledger: add/edit/remove with auto-rate derivation. The ledger is
// append-only ordered; rows keep their insertion position for display.
// Duplicate product codes across lines are permitted (distinct batches of
// the same produce). Every mutation ends with a tax recompute.

// AddLine appends a line for the given product. With explicitTotal nil the
// line total derives from quantity × unit rate and stays auto; a supplied
// total is a manual override from the start. Quantities below 1 are clamped
// to 1. The add is rejected when the product does not resolve or the
// resulting total is not positive.
func (e *Engine) AddLine(productCode string, quantity int, explicitTotal *float64) (LineItem, error) {
	if err := e.editable(); err != nil {
		return LineItem{}, err
	}
	product, ok := e.catalog.LookupProduct(productCode)
	if !ok {
		return LineItem{}, validationErr(ErrUnknownProduct, "product_code", "%q", productCode)
	}
	if quantity < 1 {
		quantity = 1
	}
	line := LineItem{
		ID:           e.newID(),
		ProductCode:  product.Code,
		ProductName:  product.Name,
		Unit:         product.Unit,
		Quantity:     quantity,
		UnitSellRate: product.UnitSellRate,
		UnitBuyRate:  product.UnitBuyRate,
	}
	if explicitTotal != nil {
		line.LineTotal = *explicitTotal
		line.RateIsAuto = false
	} else {
		line.LineTotal = e.autoRate(product) * float64(quantity)
		line.RateIsAuto = true
	}
	if line.LineTotal <= 0 {
		return LineItem{}, validationErr(ErrNonPositiveTotal, "line_total", "%.2f", line.LineTotal)
	}
	e.doc.Lines = append(e.doc.Lines, line)
	e.recomputeTaxRows()
	return line, nil
}

// LinePatch carries the fields of an edit; nil fields are left alone.
type LinePatch struct {
	ProductCode *string  `json:"product_code,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	LineTotal   *float64 `json:"line_total,omitempty"`
}

// EditLine applies a patch to one line. Changing product or quantity while
// the rate is auto re-derives the total from the (possibly new) unit rate;
// setting the total directly makes the override stick until the line is
// re-added. The patch is validated in full before anything is applied.
func (e *Engine) EditLine(id int64, patch LinePatch) (LineItem, error) {
	if err := e.editable(); err != nil {
		return LineItem{}, err
	}
	idx := e.lineIndex(id)
	if idx < 0 {
		return LineItem{}, validationErr(ErrLineNotFound, "id", "%d", id)
	}
	line := e.doc.Lines[idx]

	product := &Product{
		Code:         line.ProductCode,
		Name:         line.ProductName,
		Unit:         line.Unit,
		UnitSellRate: line.UnitSellRate,
		UnitBuyRate:  line.UnitBuyRate,
	}
	rateInputsChanged := false
	if patch.ProductCode != nil && *patch.ProductCode != line.ProductCode {
		p, ok := e.catalog.LookupProduct(*patch.ProductCode)
		if !ok {
			return LineItem{}, validationErr(ErrUnknownProduct, "product_code", "%q", *patch.ProductCode)
		}
		product = p
		rateInputsChanged = true
	}
	quantity := line.Quantity
	if patch.Quantity != nil {
		quantity = *patch.Quantity
		if quantity < 1 {
			quantity = 1
		}
		if quantity != line.Quantity {
			rateInputsChanged = true
		}
	}
	if patch.LineTotal != nil && *patch.LineTotal < 0 {
		return LineItem{}, validationErr(ErrNegativeTotal, "line_total", "%.2f", *patch.LineTotal)
	}

	line.ProductCode = product.Code
	line.ProductName = product.Name
	line.Unit = product.Unit
	line.UnitSellRate = product.UnitSellRate
	line.UnitBuyRate = product.UnitBuyRate
	line.Quantity = quantity
	switch {
	case patch.LineTotal != nil:
		line.LineTotal = *patch.LineTotal
		line.RateIsAuto = false
	case rateInputsChanged && line.RateIsAuto:
		line.LineTotal = e.autoRate(product) * float64(quantity)
	}

	e.doc.Lines[idx] = line
	e.recomputeTaxRows()
	return line, nil
}

// RemoveLine deletes a line unconditionally; tax rows never reference
// individual lines, so no referential check is needed.
func (e *Engine) RemoveLine(id int64) error {
	if err := e.editable(); err != nil {
		return err
	}
	idx := e.lineIndex(id)
	if idx < 0 {
		return validationErr(ErrLineNotFound, "id", "%d", id)
	}
	e.doc.Lines = append(e.doc.Lines[:idx], e.doc.Lines[idx+1:]...)
	e.recomputeTaxRows()
	return nil
}

func (e *Engine) lineIndex(id int64) int {
	for i := range e.doc.Lines {
		if e.doc.Lines[i].ID == id {
			return i
		}
	}
	return -1
}
