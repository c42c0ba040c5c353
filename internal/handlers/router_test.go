package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/middleware"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/policy"
	"github.com/shopforge/commerce-api/internal/pricing"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/service"
	"github.com/shopforge/commerce-api/internal/telemetry"
	"github.com/shopforge/commerce-api/pkg/logger"
)

const (
	ownerKey   = "owner-key"
	supportKey = "support-key"
	viewerKey  = "viewer-key"
)

type testServer struct {
	handler http.Handler
	store   *repository.InMemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := repository.NewInMemoryStore()
	require.NoError(t, store.CreateProductType(ctx, &models.ProductType{ID: "pt-1", Name: "Tees", Slug: "tees"}))
	require.NoError(t, store.CreateProduct(ctx, &models.Product{
		ID: "prod-1", TypeID: "pt-1", Title: "Tee", Slug: "tee",
		BasePrice: decimal.RequireFromString("20.00"), Currency: "USD", Status: models.ProductPublished,
	}))
	require.NoError(t, store.CreateVariant(ctx, &models.Variant{ID: "var-1", ProductID: "prod-1", SKU: "TEE-1", InventoryQty: 5, Active: true}))
	require.NoError(t, store.CreateCoupon(ctx, &models.Coupon{
		ID: "cp-1", Code: "TEN", Type: models.CouponPercentage, Value: decimal.NewFromInt(10), Active: true,
	}))

	log := logger.Discard()
	audit := telemetry.NewAuditLogger(store, log)
	tracker := telemetry.NewTracker(store, log)
	engine := pricing.NewEngine(store, pricing.DefaultOptions(), log)

	handler := NewRouter(RouterConfig{
		Catalog: service.NewCatalogService(store, audit, log),
		Coupons: service.NewCouponService(store, audit, log),
		Orders:  service.NewOrderService(engine, store, audit, tracker, log),
		Tracker: tracker,
		Audit:   audit,
		APIKeys: map[string]policy.Role{
			ownerKey:   policy.Owner,
			supportKey: policy.Support,
			viewerKey:  policy.Viewer,
		},
		CORSOrigins: []string{"*"},
		Version:     "test",
		Logger:      log,
	})
	return &testServer{handler: handler, store: store}
}

func (s *testServer) do(t *testing.T, method, path, key string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind   apperror.Kind
		status int
	}{
		{apperror.KindSchemaInvalid, http.StatusBadRequest},
		{apperror.KindAttributeValidationFailed, http.StatusBadRequest},
		{apperror.KindInvalidCouponConfiguration, http.StatusBadRequest},
		{apperror.KindEntityNotFound, http.StatusNotFound},
		{apperror.KindInsufficientInventory, http.StatusConflict},
		{apperror.KindCouponExpired, http.StatusUnprocessableEntity},
		{apperror.KindEntityInactive, http.StatusUnprocessableEntity},
		{apperror.KindForbidden, http.StatusForbidden},
		{apperror.KindInternal, http.StatusInternalServerError},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.kind), tt.kind)
	}
}

func TestWriteAppError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)

	WriteAppError(w, r, errors.New("dial tcp 10.0.0.5:3306: connection refused"), logger.Discard())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.NotContains(t, body.Message, "10.0.0.5")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body HealthResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test", body.Version)
}

type downPinger struct{}

func (downPinger) Ping() error { return errors.New("connection refused") }

func TestHealth_DatabaseDown(t *testing.T) {
	h := NewHealthHandler(downPinger{}, "test", logger.Discard())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body HealthResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "down", body.Database)
}

func TestRouter_Authorization(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		status int
	}{
		{name: "public search", method: http.MethodGet, path: "/api/products/search", status: http.StatusOK},
		{name: "guest on staff listing", method: http.MethodGet, path: "/api/orders", status: http.StatusUnauthorized},
		{name: "viewer on staff listing", method: http.MethodGet, path: "/api/orders", key: viewerKey, status: http.StatusForbidden},
		{name: "support on staff listing", method: http.MethodGet, path: "/api/orders", key: supportKey, status: http.StatusOK},
		{name: "unknown key", method: http.MethodGet, path: "/api/products/search", key: "stolen", status: http.StatusForbidden},
		{name: "audit needs admin", method: http.MethodGet, path: "/api/audit/orders/x", key: supportKey, status: http.StatusForbidden},
		{name: "audit as owner", method: http.MethodGet, path: "/api/audit/orders/x", key: ownerKey, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.key, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestTrackEvent(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/analytics/events", "", map[string]interface{}{
		"type": "PRODUCT_VIEW", "session_id": "s-1", "payload": map[string]interface{}{"product_id": "prod-1"},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, s.store.Events(), 1)
	assert.Equal(t, models.EventProductView, s.store.Events()[0].Type)

	w = s.do(t, http.MethodPost, "/api/analytics/events", "", map[string]interface{}{"type": "CLICK"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
