package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/service"
)

// ProductHandler handles product and variant HTTP requests
type ProductHandler struct {
	catalog *service.CatalogService
	logger  logrus.FieldLogger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *service.CatalogService, logger logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

type productRequest struct {
	TypeID      string                 `json:"type_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	BasePrice   decimal.Decimal        `json:"base_price"`
	Currency    string                 `json:"currency"`
	SKUBase     string                 `json:"sku_base"`
	Status      models.ProductStatus   `json:"status"`
	Attributes  map[string]interface{} `json:"attributes"`
}

type productPatchRequest struct {
	TypeID      *string                `json:"type_id"`
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	BasePrice   *decimal.Decimal       `json:"base_price"`
	SKUBase     *string                `json:"sku_base"`
	Status      *models.ProductStatus  `json:"status"`
	Attributes  map[string]interface{} `json:"attributes"`
}

type variantRequest struct {
	SKU           string           `json:"sku"`
	Title         string           `json:"title"`
	PriceOverride *decimal.Decimal `json:"price_override"`
	InventoryQty  int              `json:"inventory_qty"`
	Active        *bool            `json:"active"`
}

type variantPatchRequest struct {
	SKU           *string          `json:"sku"`
	Title         *string          `json:"title"`
	PriceOverride *decimal.Decimal `json:"price_override"`
	InventoryQty  *int             `json:"inventory_qty"`
	Active        *bool            `json:"active"`
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), actor(r), service.ProductInput(req))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, p, h.logger)
}

// List handles GET /api/products
// Staff listing across every status.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilter(r)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	filter.Status = models.ProductStatus(r.URL.Query().Get("status"))

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, products, h.logger)
}

// Search handles GET /api/products/search
// Storefront listing of published products.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilter(r)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	products, err := h.catalog.SearchProducts(r.Context(), filter)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, products, h.logger)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, p, h.logger)
}

// GetBySlug handles GET /api/products/slug/{typeSlug}/{slug}
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProductBySlug(r.Context(), chi.URLParam(r, "typeSlug"), chi.URLParam(r, "slug"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, p, h.logger)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req productPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	p, err := h.catalog.UpdateProduct(r.Context(), actor(r), chi.URLParam(r, "id"), service.ProductPatch(req))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, p, h.logger)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateVariant handles POST /api/products/{id}/variants
func (h *ProductHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req variantRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	v, err := h.catalog.CreateVariant(r.Context(), actor(r), chi.URLParam(r, "id"), service.VariantInput(req))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, v, h.logger)
}

// ListVariants handles GET /api/products/{id}/variants
func (h *ProductHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := h.catalog.ListVariants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, variants, h.logger)
}

// GetVariant handles GET /api/variants/{id}
func (h *ProductHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	v, err := h.catalog.GetVariant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, v, h.logger)
}

// UpdateVariant handles PUT /api/variants/{id}
func (h *ProductHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	var req variantPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	v, err := h.catalog.UpdateVariant(r.Context(), actor(r), chi.URLParam(r, "id"), service.VariantPatch(req))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, v, h.logger)
}

func productFilter(r *http.Request) (repository.ProductFilter, error) {
	limit, offset, err := page(r)
	if err != nil {
		return repository.ProductFilter{}, err
	}
	minPrice, err := queryDecimal(r, "min_price")
	if err != nil {
		return repository.ProductFilter{}, err
	}
	maxPrice, err := queryDecimal(r, "max_price")
	if err != nil {
		return repository.ProductFilter{}, err
	}
	if minPrice != nil && minPrice.IsNegative() {
		return repository.ProductFilter{}, apperror.New(apperror.KindInvalidRequest, "min_price", "min_price cannot be negative")
	}

	q := r.URL.Query()
	return repository.ProductFilter{
		TypeID:   q.Get("type_id"),
		Search:   q.Get("search"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Limit:    limit,
		Offset:   offset,
	}, nil
}
