package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sukanfresh/orderdesk/internal/handlers"
	"github.com/sukanfresh/orderdesk/internal/httpx"
	"github.com/sukanfresh/orderdesk/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares
// applied.
func New(db *gorm.DB, node *snowflake.Node) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Catalog
	ph := handlers.NewProductHandler(db)
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r)
		case http.MethodPost:
			ph.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})

	// Persisted documents
	store := services.NewOrderStore(db)
	oh := handlers.NewOrderHandler(store)
	mux.HandleFunc("/orders", requireMethod(http.MethodGet, oh.List))
	mux.HandleFunc("/orders/get", requireMethod(http.MethodGet, oh.Get))

	// Editing sessions
	catalog := services.NewCatalogService(db)
	sessions := services.NewSessionManager(catalog, store, node)
	sh := handlers.NewSessionHandler(sessions)
	mux.HandleFunc("/orders/sessions", requireMethod(http.MethodPost, sh.Open))
	mux.HandleFunc("/orders/sessions/close", requireMethod(http.MethodPost, sh.Close))
	mux.HandleFunc("/orders/sessions/header", requireMethod(http.MethodPost, sh.Header))
	mux.HandleFunc("/orders/sessions/lines", requireMethod(http.MethodPost, sh.AddLine))
	mux.HandleFunc("/orders/sessions/lines/update", requireMethod(http.MethodPost, sh.UpdateLine))
	mux.HandleFunc("/orders/sessions/lines/delete", requireMethod(http.MethodPost, sh.DeleteLine))
	mux.HandleFunc("/orders/sessions/tax", requireMethod(http.MethodPost, sh.AddTaxRow))
	mux.HandleFunc("/orders/sessions/tax/update", requireMethod(http.MethodPost, sh.UpdateTaxRow))
	mux.HandleFunc("/orders/sessions/tax/delete", requireMethod(http.MethodPost, sh.DeleteTaxRow))
	mux.HandleFunc("/orders/sessions/totals", requireMethod(http.MethodGet, sh.Totals))
	mux.HandleFunc("/orders/sessions/transition", requireMethod(http.MethodPost, sh.Transition))
	mux.HandleFunc("/orders/sessions/document", requireMethod(http.MethodGet, sh.Document))
	mux.HandleFunc("/orders/sessions/export", requireMethod(http.MethodGet, sh.Export))
	mux.HandleFunc("/orders/sessions/import", requireMethod(http.MethodPost, sh.Import))

	return withRecover(withLogging(mux))
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the status code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
