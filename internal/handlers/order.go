package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sukanfresh/orderdesk/internal/engine"
	"github.com/sukanfresh/orderdesk/internal/httpx"
	"github.com/sukanfresh/orderdesk/internal/services"
)

// OrderHandler serves persisted documents; editing goes through the session
// surface in session.go.
type OrderHandler struct {
	Store *services.OrderStore
}

func NewOrderHandler(store *services.OrderStore) *OrderHandler {
	return &OrderHandler{Store: store}
}

// List: GET /orders with kind/status/limit/page.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	kind := strings.TrimSpace(r.URL.Query().Get("kind"))
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	docs, total, err := h.Store.List(kind, status, limit, offset)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_orders", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": docs, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /orders/get?id= returns the stored rows plus freshly derived totals.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	row, err := h.Store.Get(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	doc, err := h.Store.Load(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"document":     row,
		"status_label": doc.StatusLabel(),
		"totals":       engine.ComputeTotals(&doc),
	})
}
