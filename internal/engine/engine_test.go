package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukanfresh/orderdesk/internal/engine"
)

type fakeCatalog map[string]engine.Product

func (c fakeCatalog) LookupProduct(code string) (*engine.Product, bool) {
	p, ok := c[code]
	if !ok {
		return nil, false
	}
	return &p, true
}

type fakePersister struct {
	nextID int64
	fail   error
	saves  int
}

func (p *fakePersister) Save(doc *engine.Document) (int64, error) {
	if p.fail != nil {
		return 0, p.fail
	}
	p.saves++
	if doc.ID != 0 {
		return doc.ID, nil
	}
	p.nextID++
	return p.nextID, nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		"MNG-01": {Code: "MNG-01", Name: "Alphonso Mango", UnitSellRate: 10, UnitBuyRate: 6, Unit: "kg"},
		"PNP-01": {Code: "PNP-01", Name: "Pineapple", UnitSellRate: 4, UnitBuyRate: 2.5, Unit: "kg"},
		"BAN-02": {Code: "BAN-02", Name: "Cavendish Banana", UnitSellRate: 1.5, UnitBuyRate: 1, Unit: "crate"},
	}
}

func newTestEngine(t *testing.T, kind engine.Kind) (*engine.Engine, *fakePersister) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	p := &fakePersister{}
	return engine.New(testCatalog(), p, node, kind), p
}

func f64(v float64) *float64 { return &v }

func TestAddLineAutoRate(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)

	line, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 50.0, line.LineTotal)
	assert.True(t, line.RateIsAuto)
	assert.Equal(t, "kg", line.Unit)
	assert.NotZero(t, line.ID)
}

func TestAddLineExplicitTotal(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)

	line, err := e.AddLine("MNG-01", 5, f64(42))
	require.NoError(t, err)
	assert.Equal(t, 42.0, line.LineTotal)
	assert.False(t, line.RateIsAuto)
}

func TestAddLineUnknownProduct(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)

	_, err := e.AddLine("NOPE", 1, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrUnknownProduct))
	assert.True(t, engine.IsValidation(err))
	assert.Empty(t, e.Document().Lines)
}

func TestAddLineClampsQuantity(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)

	line, err := e.AddLine("MNG-01", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, 10.0, line.LineTotal)

	line, err = e.AddLine("MNG-01", -3, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}

func TestAddLineNonPositiveTotalRejected(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)

	_, err := e.AddLine("MNG-01", 2, f64(0))
	assert.True(t, errors.Is(err, engine.ErrNonPositiveTotal))
	_, err = e.AddLine("MNG-01", 2, f64(-5))
	assert.True(t, errors.Is(err, engine.ErrNonPositiveTotal))
	assert.Empty(t, e.Document().Lines)
}

func TestAddLineDuplicateProductAllowed(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)

	a, err := e.AddLine("MNG-01", 2, nil)
	require.NoError(t, err)
	b, err := e.AddLine("MNG-01", 7, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, e.Document().Lines, 2)
}

func TestAutoRateIdempotence(t *testing.T) {
	// Editing only the quantity of an auto-rated line re-derives the total
	// from the unit rate every time.
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	line, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)

	for _, qty := range []int{10, 3, 8, 1} {
		got, err := e.EditLine(line.ID, engine.LinePatch{Quantity: &qty})
		require.NoError(t, err)
		assert.Equal(t, 10.0*float64(qty), got.LineTotal)
		assert.True(t, got.RateIsAuto)
	}
}

func TestOverrideStickiness(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	line, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)

	got, err := e.EditLine(line.ID, engine.LinePatch{LineTotal: f64(37.5)})
	require.NoError(t, err)
	assert.False(t, got.RateIsAuto)

	qty := 20
	got, err = e.EditLine(line.ID, engine.LinePatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 37.5, got.LineTotal, "manual override must survive quantity edits")
	assert.False(t, got.RateIsAuto)

	// Only re-adding the line restores the auto rate.
	require.NoError(t, e.RemoveLine(line.ID))
	fresh, err := e.AddLine("MNG-01", 20, nil)
	require.NoError(t, err)
	assert.True(t, fresh.RateIsAuto)
	assert.Equal(t, 200.0, fresh.LineTotal)
}

func TestEditLineProductChangeRederives(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	line, err := e.AddLine("MNG-01", 4, nil)
	require.NoError(t, err)

	code := "PNP-01"
	got, err := e.EditLine(line.ID, engine.LinePatch{ProductCode: &code})
	require.NoError(t, err)
	assert.Equal(t, "Pineapple", got.ProductName)
	assert.Equal(t, 16.0, got.LineTotal)
	assert.True(t, got.RateIsAuto)
}

func TestEditLineNegativeTotalRejectedWithoutPartialApply(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	line, err := e.AddLine("MNG-01", 4, nil)
	require.NoError(t, err)

	qty := 9
	_, err = e.EditLine(line.ID, engine.LinePatch{Quantity: &qty, LineTotal: f64(-1)})
	assert.True(t, errors.Is(err, engine.ErrNegativeTotal))

	doc := e.Document()
	assert.Equal(t, 4, doc.Lines[0].Quantity, "rejected edit must not apply any field")
	assert.Equal(t, 40.0, doc.Lines[0].LineTotal)
}

func TestPurchaseQuotationUsesBuyingRate(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindPurchaseQuotation)

	line, err := e.AddLine("MNG-01", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 60.0, line.LineTotal, "purchase lines derive from the buying rate")
	assert.Equal(t, 0.0, line.MarginAmount())
}

func TestLineMargin(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	line, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)

	assert.Equal(t, 30.0, line.BuyingCost())
	assert.Equal(t, 20.0, line.MarginAmount())
	assert.InDelta(t, 66.6666, line.MarginPercent(), 0.001)
}

func TestReactiveTaxRecompute(t *testing.T) {
	// The worked example: 5 kg at rate 10 = 50 net, 20% tax = 10; after the
	// quantity edit to 10 the tax follows to 20 with no direct tax edit.
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	line, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)

	row, err := e.AddTaxRow()
	require.NoError(t, err)
	assert.Equal(t, engine.TaxOnNetTotal, row.Kind)
	assert.Equal(t, 0.0, row.Amount)

	row, err = e.SetTaxRowRate(row.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 10.0, row.Amount)

	qty := 10
	_, err = e.EditLine(line.ID, engine.LinePatch{Quantity: &qty})
	require.NoError(t, err)

	doc := e.Document()
	assert.Equal(t, 20.0, doc.TaxRows[0].Amount)
	totals := e.Totals()
	assert.Equal(t, 100.0, totals.NetTotal)
	assert.Equal(t, 20.0, totals.TaxTotal)
	assert.Equal(t, 120.0, totals.GrandTotal)
}

func TestTaxRecomputeOnRemove(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	a, _ := e.AddLine("MNG-01", 5, nil)
	_, err := e.AddLine("PNP-01", 10, nil)
	require.NoError(t, err)

	row, err := e.AddTaxRow()
	require.NoError(t, err)
	_, err = e.SetTaxRowRate(row.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 9.0, e.Document().TaxRows[0].Amount)

	require.NoError(t, e.RemoveLine(a.ID))
	assert.Equal(t, 4.0, e.Document().TaxRows[0].Amount)
}

func TestActualRowsUntouchedByRecompute(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	_, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)

	row, err := e.AddTaxRow()
	require.NoError(t, err)
	_, err = e.SetTaxRowKind(row.ID, engine.TaxActual)
	require.NoError(t, err)
	row, err = e.SetTaxRowAmount(row.ID, 7.25)
	require.NoError(t, err)
	assert.Equal(t, 7.25, row.Amount)

	_, err = e.AddLine("BAN-02", 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 7.25, e.Document().TaxRows[0].Amount)
}

func TestSetAmountRejectedOnDerivedRow(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	_, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)
	row, err := e.AddTaxRow()
	require.NoError(t, err)
	_, err = e.SetTaxRowRate(row.ID, 20)
	require.NoError(t, err)

	_, err = e.SetTaxRowAmount(row.ID, 999)
	assert.True(t, errors.Is(err, engine.ErrDerivedAmount))
	assert.Equal(t, 10.0, e.Document().TaxRows[0].Amount)
}

func TestSwitchKindSemantics(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	_, err := e.AddLine("MNG-01", 5, nil)
	require.NoError(t, err)
	row, err := e.AddTaxRow()
	require.NoError(t, err)
	_, err = e.SetTaxRowRate(row.ID, 20)
	require.NoError(t, err)

	// To Actual: the last computed amount is frozen.
	row, err = e.SetTaxRowKind(row.ID, engine.TaxActual)
	require.NoError(t, err)
	assert.Equal(t, 10.0, row.Amount)
	_, err = e.AddLine("PNP-01", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, e.Document().TaxRows[0].Amount)

	// Back to OnNetTotal: recomputed immediately from the current net.
	row, err = e.SetTaxRowKind(row.ID, engine.TaxOnNetTotal)
	require.NoError(t, err)
	assert.Equal(t, 18.0, row.Amount)
}

func TestTotalConsistencyAcrossMutations(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	a, _ := e.AddLine("MNG-01", 3, nil)
	b, _ := e.AddLine("PNP-01", 2, f64(9))
	_, _ = e.AddLine("BAN-02", 4, nil)

	qty := 6
	_, err := e.EditLine(a.ID, engine.LinePatch{Quantity: &qty})
	require.NoError(t, err)
	require.NoError(t, e.RemoveLine(b.ID))

	doc := e.Document()
	var want float64
	for _, line := range doc.Lines {
		want += line.LineTotal
	}
	assert.Equal(t, want, e.Totals().NetTotal, "net total must equal the sum of current line totals")
}

func saveValid(t *testing.T, e *engine.Engine) {
	t.Helper()
	require.NoError(t, e.SetCustomer(7))
	now := time.Now()
	require.NoError(t, e.SetDates(now, now.AddDate(0, 0, 14)))
	if len(e.Document().Lines) == 0 {
		_, err := e.AddLine("MNG-01", 5, nil)
		require.NoError(t, err)
	}
	status, err := e.Transition(engine.EventSave, true)
	require.NoError(t, err)
	require.Equal(t, engine.StatusSaved, status)
}

func TestSaveGuards(t *testing.T) {
	t.Run("no customer", func(t *testing.T) {
		e, _ := newTestEngine(t, engine.KindSalesOrder)
		_, err := e.AddLine("MNG-01", 1, nil)
		require.NoError(t, err)
		status, err := e.Transition(engine.EventSave, true)
		assert.True(t, errors.Is(err, engine.ErrCustomerRequired))
		assert.Equal(t, engine.StatusDraft, status)
	})
	t.Run("no lines", func(t *testing.T) {
		e, _ := newTestEngine(t, engine.KindSalesOrder)
		require.NoError(t, e.SetCustomer(7))
		status, err := e.Transition(engine.EventSave, true)
		assert.True(t, errors.Is(err, engine.ErrNoLines))
		assert.Equal(t, engine.StatusDraft, status)
	})
	t.Run("delivery before order", func(t *testing.T) {
		e, _ := newTestEngine(t, engine.KindSalesOrder)
		now := time.Now()
		err := e.SetDates(now, now.AddDate(0, 0, -1))
		assert.True(t, errors.Is(err, engine.ErrDateOrder))
	})
	t.Run("persister failure is non-fatal", func(t *testing.T) {
		e, p := newTestEngine(t, engine.KindSalesOrder)
		p.fail = errors.New("disk full")
		require.NoError(t, e.SetCustomer(7))
		_, err := e.AddLine("MNG-01", 1, nil)
		require.NoError(t, err)
		status, err := e.Transition(engine.EventSave, true)
		assert.Error(t, err)
		assert.Equal(t, engine.StatusDraft, status)
		assert.Zero(t, e.Document().ID)

		p.fail = nil
		status, err = e.Transition(engine.EventSave, true)
		require.NoError(t, err)
		assert.Equal(t, engine.StatusSaved, status)
		assert.NotZero(t, e.Document().ID)
	})
}

func TestSubmitRequiresSave(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	_, err := e.AddLine("MNG-01", 1, nil)
	require.NoError(t, err)

	status, err := e.Transition(engine.EventSubmit, true)
	assert.True(t, errors.Is(err, engine.ErrNotSaved))
	assert.True(t, engine.IsGuard(err))
	assert.Equal(t, engine.StatusDraft, status)
}

func TestConfirmationGate(t *testing.T) {
	e, p := newTestEngine(t, engine.KindSalesOrder)
	require.NoError(t, e.SetCustomer(7))
	_, err := e.AddLine("MNG-01", 1, nil)
	require.NoError(t, err)

	status, err := e.Transition(engine.EventSave, false)
	assert.True(t, errors.Is(err, engine.ErrNotConfirmed))
	assert.Equal(t, engine.StatusDraft, status)
	assert.Zero(t, p.saves)
}

func TestCancelAfterPickBlocked(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	saveValid(t, e)
	_, err := e.Transition(engine.EventSubmit, true)
	require.NoError(t, err)
	_, err = e.Transition(engine.EventCreatePick, true)
	require.NoError(t, err)
	require.True(t, e.Document().Picked)
	assert.Equal(t, engine.StatusDelivered, func() string { d := e.Document(); return d.StatusLabel() }())

	status, err := e.Transition(engine.EventCancel, true)
	assert.True(t, errors.Is(err, engine.ErrAlreadyPicked))
	assert.Equal(t, engine.StatusSubmitted, status)
}

func TestCreatePickGuards(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	saveValid(t, e)

	_, err := e.Transition(engine.EventCreatePick, true)
	assert.True(t, errors.Is(err, engine.ErrBadTransition), "pick before submit must be rejected")

	_, err = e.Transition(engine.EventCancel, true)
	require.NoError(t, err)
	_, err = e.Transition(engine.EventCreatePick, true)
	assert.True(t, errors.Is(err, engine.ErrBadTransition), "pick after cancel must be rejected")
}

func TestAmendReopensWithLedgersIntact(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	saveValid(t, e)
	row, err := e.AddTaxRow()
	require.NoError(t, err)
	_, err = e.SetTaxRowRate(row.ID, 5)
	require.NoError(t, err)

	_, err = e.Transition(engine.EventSubmit, true)
	require.NoError(t, err)
	_, err = e.Transition(engine.EventCancel, true)
	require.NoError(t, err)

	status, err := e.Transition(engine.EventAmend, true)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusDraft, status)

	doc := e.Document()
	assert.False(t, doc.Picked)
	assert.Len(t, doc.Lines, 1, "amend must not clear the ledgers")
	assert.Len(t, doc.TaxRows, 1)
	assert.NotZero(t, doc.ID, "amend keeps the persisted id")
}

func TestEditingBlockedWhileCancelled(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	saveValid(t, e)
	doc := e.Document()
	_, err := e.Transition(engine.EventCancel, true)
	require.NoError(t, err)

	_, err = e.AddLine("PNP-01", 1, nil)
	assert.True(t, errors.Is(err, engine.ErrDocumentCancelled))
	qty := 3
	_, err = e.EditLine(doc.Lines[0].ID, engine.LinePatch{Quantity: &qty})
	assert.True(t, errors.Is(err, engine.ErrDocumentCancelled))
	_, err = e.AddTaxRow()
	assert.True(t, errors.Is(err, engine.ErrDocumentCancelled))

	// Amend lifts the block.
	_, err = e.Transition(engine.EventAmend, true)
	require.NoError(t, err)
	_, err = e.AddLine("PNP-01", 1, nil)
	assert.NoError(t, err)
}

func TestEditingAllowedWhileSubmitted(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	saveValid(t, e)
	_, err := e.Transition(engine.EventSubmit, true)
	require.NoError(t, err)

	_, err = e.AddLine("BAN-02", 2, nil)
	assert.NoError(t, err)
}

type yesman struct{ asked string }

func (y *yesman) Confirm(message string) bool { y.asked = message; return true }

func TestTransitionConfirmed(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	require.NoError(t, e.SetCustomer(7))
	_, err := e.AddLine("MNG-01", 2, nil)
	require.NoError(t, err)

	c := &yesman{}
	status, err := e.TransitionConfirmed(engine.EventSave, c, "save this order?")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusSaved, status)
	assert.Equal(t, "save this order?", c.asked)
}

func TestResumeIsIndependentCopy(t *testing.T) {
	e, _ := newTestEngine(t, engine.KindSalesOrder)
	saveValid(t, e)
	doc := e.Document()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	resumed := engine.Resume(testCatalog(), &fakePersister{}, node, doc)
	_, err = resumed.AddLine("PNP-01", 3, nil)
	require.NoError(t, err)

	assert.Len(t, e.Document().Lines, 1, "editing a resumed copy must not leak into the original")
	assert.Len(t, resumed.Document().Lines, 2)
}
