package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/service"
)

// CouponHandler handles HTTP requests for coupons
type CouponHandler struct {
	coupons *service.CouponService
	logger  logrus.FieldLogger
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(coupons *service.CouponService, logger logrus.FieldLogger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

type couponRequest struct {
	Code          string            `json:"code"`
	Type          models.CouponType `json:"type"`
	Value         decimal.Decimal   `json:"value"`
	MinimumAmount *decimal.Decimal  `json:"minimum_amount"`
	UsageLimit    *int              `json:"usage_limit"`
	Active        *bool             `json:"active"`
	ExpiresAt     *time.Time        `json:"expires_at"`
}

type couponPatchRequest struct {
	Code          *string            `json:"code"`
	Type          *models.CouponType `json:"type"`
	Value         *decimal.Decimal   `json:"value"`
	MinimumAmount *decimal.Decimal   `json:"minimum_amount"`
	UsageLimit    *int               `json:"usage_limit"`
	Active        *bool              `json:"active"`
	ExpiresAt     *time.Time         `json:"expires_at"`
}

type validateCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Create handles POST /api/coupons
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	c, err := h.coupons.Create(r.Context(), actor(r), service.CouponInput(req))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, c, h.logger)
}

// List handles GET /api/coupons
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	active, err := queryBool(r, "active")
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	coupons, err := h.coupons.List(r.Context(), repository.CouponFilter{
		Active: active,
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, coupons, h.logger)
}

// Get handles GET /api/coupons/{id}
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, c, h.logger)
}

// GetByCode handles GET /api/coupons/code/{code}
func (h *CouponHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, c, h.logger)
}

// Validate handles POST /api/coupons/validate
// Checks a code against a subtotal without redeeming it.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	quote, err := h.coupons.Quote(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, quote, h.logger)
}

// Update handles PUT /api/coupons/{id}
func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req couponPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	c, err := h.coupons.Update(r.Context(), actor(r), chi.URLParam(r, "id"), service.CouponPatch(req))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, c, h.logger)
}

// Toggle handles PATCH /api/coupons/{id}/toggle
func (h *CouponHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Toggle(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, c, h.logger)
}

// Delete handles DELETE /api/coupons/{id}
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
