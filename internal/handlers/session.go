package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sukanfresh/orderdesk/internal/engine"
	"github.com/sukanfresh/orderdesk/internal/export"
	"github.com/sukanfresh/orderdesk/internal/httpx"
	"github.com/sukanfresh/orderdesk/internal/services"
)

const dateLayout = "2006-01-02"

// SessionHandler is the editing surface: every route resolves a session
// token, locks that session, and applies one engine operation. The lock is
// per session; operations on different documents never contend.
type SessionHandler struct {
	Sessions *services.SessionManager
}

func NewSessionHandler(sessions *services.SessionManager) *SessionHandler {
	return &SessionHandler{Sessions: sessions}
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_token", nil)
		return nil, false
	}
	s, ok := h.Sessions.Get(token)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "session_not_found", nil)
		return nil, false
	}
	return s, true
}

// Open: POST /orders/sessions. {"kind": "..."} for a fresh draft or
// {"document_id": n} to edit a persisted document.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind       string `json:"kind,omitempty"`
		DocumentID int64  `json:"document_id,omitempty"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var (
		s   *services.Session
		err error
	)
	switch {
	case req.DocumentID != 0:
		s, err = h.Sessions.OpenExisting(req.DocumentID)
	case req.Kind != "":
		s, err = h.Sessions.Open(engine.Kind(req.Kind))
	default:
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"kind": "required"})
		return
	}
	if err != nil {
		if err == services.ErrUnknownKind {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"kind": "unknown"})
			return
		}
		writeEngineError(w, err)
		return
	}
	doc := s.Engine.Document()
	httpx.JSON(w, http.StatusCreated, map[string]any{"token": s.Token, "document": doc, "status_label": doc.StatusLabel()})
}

// Close: POST /orders/sessions/close?token= drops the session. Unsaved
// edits are discarded; that is the point of a draft.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.Sessions.Close(s.Token)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// Header: POST /orders/sessions/header?token= sets customer and date fields.
func (h *SessionHandler) Header(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		CustomerID   *int64  `json:"customer_id,omitempty"`
		OrderDate    *string `json:"order_date,omitempty"`
		DeliveryDate *string `json:"delivery_date,omitempty"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s.Lock()
	defer s.Unlock()
	if req.CustomerID != nil {
		if err := s.Engine.SetCustomer(*req.CustomerID); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	if req.OrderDate != nil || req.DeliveryDate != nil {
		doc := s.Engine.Document()
		orderDate, deliveryDate := doc.OrderDate, doc.DeliveryDate
		var err error
		if req.OrderDate != nil {
			if orderDate, err = time.Parse(dateLayout, *req.OrderDate); err != nil {
				httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"order_date": "invalid_date"})
				return
			}
		}
		if req.DeliveryDate != nil {
			if deliveryDate, err = time.Parse(dateLayout, *req.DeliveryDate); err != nil {
				httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"delivery_date": "invalid_date"})
				return
			}
		}
		if err := s.Engine.SetDates(orderDate, deliveryDate); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, s.Engine.Document())
}

// AddLine: POST /orders/sessions/lines?token=
func (h *SessionHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductCode string   `json:"product_code"`
		Quantity    int      `json:"quantity"`
		LineTotal   *float64 `json:"line_total,omitempty"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s.Lock()
	defer s.Unlock()
	line, err := s.Engine.AddLine(req.ProductCode, req.Quantity, req.LineTotal)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"line": line, "totals": s.Engine.Totals()})
}

// UpdateLine: POST /orders/sessions/lines/update?token=
func (h *SessionHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		ID int64 `json:"id"`
		engine.LinePatch
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s.Lock()
	defer s.Unlock()
	line, err := s.Engine.EditLine(req.ID, req.LinePatch)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"line": line, "totals": s.Engine.Totals()})
}

// DeleteLine: POST /orders/sessions/lines/delete?token=
func (h *SessionHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		ID int64 `json:"id"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s.Lock()
	defer s.Unlock()
	if err := s.Engine.RemoveLine(req.ID); err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"totals": s.Engine.Totals()})
}

// AddTaxRow: POST /orders/sessions/tax?token=
func (h *SessionHandler) AddTaxRow(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	row, err := s.Engine.AddTaxRow()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"tax_row": row, "totals": s.Engine.Totals()})
}

// UpdateTaxRow: POST /orders/sessions/tax/update?token=. The kind, rate,
// amount and label are each optional and applied in that order, so one call
// can switch a row to actual and set its amount. The combination is checked
// as a whole first; a rejected request applies none of it.
func (h *SessionHandler) UpdateTaxRow(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		ID           int64    `json:"id"`
		Kind         *string  `json:"kind,omitempty"`
		Rate         *float64 `json:"rate,omitempty"`
		Amount       *float64 `json:"amount,omitempty"`
		AccountLabel *string  `json:"account_label,omitempty"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Kind == nil && req.Rate == nil && req.Amount == nil && req.AccountLabel == nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"fields": "no_op"})
		return
	}
	s.Lock()
	defer s.Unlock()
	// Validate the combination against the row before touching it, so a
	// rejected request leaves the session exactly as it was.
	current, ok := findTaxRow(s.Engine.Document(), req.ID)
	if !ok {
		writeEngineError(w, &engine.ValidationError{Err: engine.ErrTaxRowNotFound, Field: "id"})
		return
	}
	effectiveKind := current.Kind
	if req.Kind != nil {
		k := engine.TaxKind(*req.Kind)
		if k != engine.TaxOnNetTotal && k != engine.TaxActual {
			writeEngineError(w, &engine.ValidationError{Err: engine.ErrUnknownTaxKind, Field: "kind"})
			return
		}
		effectiveKind = k
	}
	if req.Amount != nil && effectiveKind == engine.TaxOnNetTotal {
		writeEngineError(w, &engine.ValidationError{Err: engine.ErrDerivedAmount, Field: "amount"})
		return
	}
	var (
		row engine.TaxRow
		err error
	)
	if req.Kind != nil {
		if row, err = s.Engine.SetTaxRowKind(req.ID, effectiveKind); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	if req.Rate != nil {
		if row, err = s.Engine.SetTaxRowRate(req.ID, *req.Rate); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	if req.Amount != nil {
		if row, err = s.Engine.SetTaxRowAmount(req.ID, *req.Amount); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	if req.AccountLabel != nil {
		if row, err = s.Engine.SetTaxRowLabel(req.ID, *req.AccountLabel); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tax_row": row, "totals": s.Engine.Totals()})
}

func findTaxRow(doc engine.Document, id int64) (engine.TaxRow, bool) {
	for _, r := range doc.TaxRows {
		if r.ID == id {
			return r, true
		}
	}
	return engine.TaxRow{}, false
}

// DeleteTaxRow: POST /orders/sessions/tax/delete?token=
func (h *SessionHandler) DeleteTaxRow(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		ID int64 `json:"id"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s.Lock()
	defer s.Unlock()
	if err := s.Engine.RemoveTaxRow(req.ID); err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"totals": s.Engine.Totals()})
}

// Totals: GET /orders/sessions/totals?token=
func (h *SessionHandler) Totals(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	doc := s.Engine.Document()
	type lineMargin struct {
		ID            int64   `json:"id"`
		BuyingCost    float64 `json:"buying_cost"`
		MarginAmount  float64 `json:"margin_amount"`
		MarginPercent float64 `json:"margin_percent"`
	}
	margins := make([]lineMargin, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		margins = append(margins, lineMargin{
			ID:            l.ID,
			BuyingCost:    l.BuyingCost(),
			MarginAmount:  l.MarginAmount(),
			MarginPercent: l.MarginPercent(),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"totals": s.Engine.Totals(), "lines": margins})
}

// Transition: POST /orders/sessions/transition?token= takes {"event","confirmed"}.
func (h *SessionHandler) Transition(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Event     string `json:"event"`
		Confirmed bool   `json:"confirmed"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s.Lock()
	defer s.Unlock()
	status, err := h.Sessions.Transition(s, engine.Event(req.Event), req.Confirmed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	doc := s.Engine.Document()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"status_label": doc.StatusLabel(),
		"document_id":  doc.ID,
	})
}

// Document: GET /orders/sessions/document?token= is the ad hoc JSON dump of
// the current state; ?download=1 serves it as an attachment.
func (h *SessionHandler) Document(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	doc := s.Engine.Document()
	totals := s.Engine.Totals()
	s.Unlock()
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%d.json", doc.Kind, doc.ID)))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"document": doc, "status_label": doc.StatusLabel(), "totals": totals})
}

// Export: GET /orders/sessions/export?token= serves the line rows as CSV.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	doc := s.Engine.Document()
	s.Unlock()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%d-lines.csv", doc.Kind, doc.ID)))
	if err := export.WriteLines(w, &doc); err != nil {
		// headers already went out, nothing left to send but a log line
		zap.L().Error("csv export failed", zap.Error(err))
	}
}

// Import: POST /orders/sessions/import?token= takes CSV rows in the export
// shape, loaded through AddLine row by row.
func (h *SessionHandler) Import(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rows, err := export.ParseLines(r.Body)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_csv", err.Error())
		return
	}
	s.Lock()
	defer s.Unlock()
	result := export.ImportLines(s.Engine, rows)
	httpx.JSON(w, http.StatusOK, map[string]any{"result": result, "totals": s.Engine.Totals()})
}
