package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/models"
)

const shoeSchema = `{
	"name": "Shoes",
	"schema": {"fields": [
		{"key": "size", "label": "Size", "type": "number", "required": true, "min": 35, "max": 48},
		{"key": "color", "label": "Color", "type": "enum", "options": ["black", "white"]}
	]}
}`

func TestProductTypeHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		key            string
		expectedStatus int
		expectedCode   string
	}{
		{name: "valid schema", body: shoeSchema, key: ownerKey, expectedStatus: http.StatusCreated},
		{name: "viewer cannot create", body: shoeSchema, key: viewerKey, expectedStatus: http.StatusForbidden, expectedCode: "FORBIDDEN"},
		{
			name:           "missing schema",
			body:           `{"name": "Hats"}`,
			key:            ownerKey,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "SCHEMA_INVALID",
		},
		{
			name:           "unknown field type",
			body:           `{"name": "Hats", "schema": {"fields": [{"key": "k", "label": "K", "type": "color"}]}}`,
			key:            ownerKey,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "SCHEMA_INVALID",
		},
		{
			name:           "duplicate slug",
			body:           `{"name": "Tees", "schema": {"fields": []}}`,
			key:            ownerKey,
			expectedStatus: http.StatusConflict,
			expectedCode:   "CONFLICT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(t, http.MethodPost, "/api/product-types", tt.key, tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedCode != "" {
				var body ErrorResponse
				decodeBody(t, w, &body)
				assert.Equal(t, tt.expectedCode, body.Code)
				return
			}
			var pt models.ProductType
			decodeBody(t, w, &pt)
			assert.Equal(t, "shoes", pt.Slug)
			assert.Len(t, pt.Schema.Fields, 2)
		})
	}
}

func TestProductHandler_CreateValidatesAttributes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/product-types", ownerKey, shoeSchema)
	require.Equal(t, http.StatusCreated, w.Code)
	var pt models.ProductType
	decodeBody(t, w, &pt)

	tests := []struct {
		name           string
		attributes     map[string]interface{}
		expectedStatus int
		expectedField  string
	}{
		{name: "valid", attributes: map[string]interface{}{"size": 42, "color": "black"}, expectedStatus: http.StatusCreated},
		{name: "numeric string", attributes: map[string]interface{}{"size": "41"}, expectedStatus: http.StatusCreated},
		{name: "missing required", attributes: map[string]interface{}{"color": "black"}, expectedStatus: http.StatusBadRequest, expectedField: "size"},
		{name: "out of range", attributes: map[string]interface{}{"size": 50}, expectedStatus: http.StatusBadRequest, expectedField: "size"},
		{name: "bad option", attributes: map[string]interface{}{"size": 40, "color": "red"}, expectedStatus: http.StatusBadRequest, expectedField: "color"},
		{name: "unknown key", attributes: map[string]interface{}{"size": 40, "lace": "long"}, expectedStatus: http.StatusBadRequest, expectedField: "lace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/products", ownerKey, map[string]interface{}{
				"type_id":    pt.ID,
				"title":      "Runner " + tt.name,
				"base_price": "89.90",
				"status":     "PUBLISHED",
				"attributes": tt.attributes,
			})
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedField != "" {
				var body ErrorResponse
				decodeBody(t, w, &body)
				assert.Equal(t, "ATTRIBUTE_VALIDATION_FAILED", body.Code)
				assert.Equal(t, tt.expectedField, body.Field)
			}
		})
	}
}

func TestProductHandler_SearchAndSlug(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/products", ownerKey, map[string]interface{}{
		"type_id": "pt-1", "title": "Hidden Draft", "base_price": "5.00", "attributes": map[string]interface{}{},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/products/search", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	decodeBody(t, w, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "prod-1", products[0].ID)

	w = s.do(t, http.MethodGet, "/api/products/search?min_price=25", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &products)
	assert.Empty(t, products)

	w = s.do(t, http.MethodGet, "/api/products/search?min_price=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/products", viewerKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &products)
	assert.Len(t, products, 2)

	w = s.do(t, http.MethodGet, "/api/products/slug/tees/tee", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/products/slug/tees/hidden-draft", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_Variants(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/products/prod-1/variants", ownerKey, map[string]interface{}{
		"sku": "TEE-2", "price_override": "15.00", "inventory_qty": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var v models.Variant
	decodeBody(t, w, &v)
	assert.True(t, v.Active)

	w = s.do(t, http.MethodGet, "/api/variants/"+v.ID, viewerKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var priced models.PricedVariant
	decodeBody(t, w, &priced)
	assert.Equal(t, "15", priced.UnitPrice().String())

	w = s.do(t, http.MethodPut, "/api/variants/"+v.ID, ownerKey, map[string]interface{}{"active": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/orders", viewerKey, models.OrderRequest{
		Items: []models.OrderLine{{VariantID: v.ID, Quantity: 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodGet, "/api/products/prod-1/variants", viewerKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var variants []models.Variant
	decodeBody(t, w, &variants)
	assert.Len(t, variants, 2)
}

func TestProductHandler_DeleteBlockedByOrders(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/orders", viewerKey, models.OrderRequest{
		Items: []models.OrderLine{{VariantID: "var-1", Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodDelete, "/api/products/prod-1", ownerKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/api/product-types/pt-1", ownerKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
