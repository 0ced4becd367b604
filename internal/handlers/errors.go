package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sukanfresh/orderdesk/internal/engine"
	"github.com/sukanfresh/orderdesk/internal/httpx"
	"github.com/sukanfresh/orderdesk/internal/services"
)

// writeEngineError maps the engine's error taxonomy onto response codes:
// validation errors are the user's to fix (400), guard violations reject a
// transition and leave state unchanged (409), anything else is ours (500).
func writeEngineError(w http.ResponseWriter, err error) {
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{ve.Field: ve.Err.Error()})
		return
	}
	var gv *engine.GuardViolation
	if errors.As(err, &gv) {
		httpx.JSONError(w, http.StatusConflict, "transition_rejected", gv.Error())
		return
	}
	if errors.Is(err, services.ErrDocumentNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	zap.L().Error("engine operation failed", zap.Error(err))
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}
