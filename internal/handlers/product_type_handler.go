package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/service"
)

// ProductTypeHandler handles product type HTTP requests
type ProductTypeHandler struct {
	catalog *service.CatalogService
	logger  logrus.FieldLogger
}

// NewProductTypeHandler creates a new product type handler
func NewProductTypeHandler(catalog *service.CatalogService, logger logrus.FieldLogger) *ProductTypeHandler {
	return &ProductTypeHandler{catalog: catalog, logger: logger}
}

type productTypeRequest struct {
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Schema    json.RawMessage `json:"schema"`
	SortOrder int             `json:"sort_order"`
}

type productTypePatchRequest struct {
	Name      *string         `json:"name"`
	Slug      *string         `json:"slug"`
	Schema    json.RawMessage `json:"schema"`
	SortOrder *int            `json:"sort_order"`
}

// Create handles POST /api/product-types
func (h *ProductTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	candidate, err := decodeSchema(req.Schema)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	pt, err := h.catalog.CreateProductType(r.Context(), actor(r), service.ProductTypeInput{
		Name:      req.Name,
		Slug:      req.Slug,
		Schema:    candidate,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, pt, h.logger)
}

// List handles GET /api/product-types
func (h *ProductTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.ListProductTypes(r.Context())
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, types, h.logger)
}

// Get handles GET /api/product-types/{id}
func (h *ProductTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	pt, err := h.catalog.GetProductType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, pt, h.logger)
}

// GetBySlug handles GET /api/product-types/slug/{slug}
func (h *ProductTypeHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	pt, err := h.catalog.GetProductTypeBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, pt, h.logger)
}

// Update handles PUT /api/product-types/{id}
func (h *ProductTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req productTypePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	patch := service.ProductTypePatch{Name: req.Name, Slug: req.Slug, SortOrder: req.SortOrder}
	if len(req.Schema) > 0 {
		candidate, err := decodeSchema(req.Schema)
		if err != nil {
			WriteAppError(w, r, err, h.logger)
			return
		}
		patch.Schema = candidate
	}

	pt, err := h.catalog.UpdateProductType(r.Context(), actor(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, pt, h.logger)
}

// Delete handles DELETE /api/product-types/{id}
func (h *ProductTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProductType(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeSchema turns a raw schema document into the generic form the schema
// validator inspects. A missing document yields nil, which fails validation.
func decodeSchema(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var candidate interface{}
	if err := dec.Decode(&candidate); err != nil {
		return nil, apperror.New(apperror.KindSchemaInvalid, "", "schema must be valid JSON: %v", err)
	}
	return candidate, nil
}
