package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/sukanfresh/orderdesk/internal/httpx"
	"github.com/sukanfresh/orderdesk/internal/models"
	"github.com/sukanfresh/orderdesk/internal/validation"
)

var likeSafe = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// ProductHandler serves the product catalog. The order engine only ever
// reads it; create exists for back-office upkeep.
type ProductHandler struct {
	DB *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler { return &ProductHandler{DB: db} }

// List: GET /products with q/limit/page.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
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
	dbq := h.DB.Model(&models.Product{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(likeSafe.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(code) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var products []models.Product
	if err := dbq.Order("code asc").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "limit": limit, "offset": offset})
}

type productReq struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	UnitSellRate float64 `json:"unit_sell_rate"`
	UnitBuyRate  float64 `json:"unit_buy_rate"`
	Unit         string  `json:"unit"`
	Image        string  `json:"image"`
}

// Create: POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("code", req.Code, v)
	validation.Required("name", req.Name, v)
	validation.PositiveFloat("unit_sell_rate", req.UnitSellRate, v)
	validation.NonNegativeFloat("unit_buy_rate", req.UnitBuyRate, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if req.Unit == "" {
		req.Unit = "kg"
	}
	product := models.Product{
		Code:         strings.TrimSpace(req.Code),
		Name:         strings.TrimSpace(req.Name),
		UnitSellRate: req.UnitSellRate,
		UnitBuyRate:  req.UnitBuyRate,
		Unit:         req.Unit,
		Image:        req.Image,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "duplicate_code", map[string]string{"code": req.Code})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_product", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}
