package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/policy"
)

func TestAPIKeyAuth(t *testing.T) {
	keys := map[string]policy.Role{
		"apitest":    policy.Owner,
		"testkey123": policy.Viewer,
	}

	var seen Principal
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	authHandler := APIKeyAuth(keys)(testHandler)

	tests := []struct {
		name           string
		apiKey         string
		expectedStatus int
		expectedRole   policy.Role
	}{
		{
			name:           "valid API key - apitest",
			apiKey:         "apitest",
			expectedStatus: http.StatusOK,
			expectedRole:   policy.Owner,
		},
		{
			name:           "valid API key - testkey123",
			apiKey:         "testkey123",
			expectedStatus: http.StatusOK,
			expectedRole:   policy.Viewer,
		},
		{
			name:           "missing API key continues as guest",
			apiKey:         "",
			expectedStatus: http.StatusOK,
			expectedRole:   policy.Guest,
		},
		{
			name:           "invalid API key",
			apiKey:         "wrongkey",
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Principal{}
			req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}

			w := httptest.NewRecorder()
			authHandler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedRole, seen.Role)
			}
		})
	}
}

func TestAPIKeyAuth_StableUserID(t *testing.T) {
	keys := map[string]policy.Role{"k1": policy.Viewer, "k2": policy.Viewer}
	var ids []string
	h := APIKeyAuth(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, PrincipalFrom(r.Context()).UserID)
	}))

	for _, key := range []string{"k1", "k1", "k2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(APIKeyHeader, key)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[1])
	assert.NotEqual(t, ids[0], ids[2])
	assert.NotContains(t, ids[0], "k1")
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		role   policy.Role
		op     policy.Operation
		status int
	}{
		{name: "guest on public op", role: policy.Guest, op: policy.ProductSearch, status: http.StatusNoContent},
		{name: "guest on protected op", role: policy.Guest, op: policy.OrderList, status: http.StatusUnauthorized},
		{name: "viewer below required role", role: policy.Viewer, op: policy.OrderList, status: http.StatusForbidden},
		{name: "support allowed", role: policy.Support, op: policy.OrderList, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: "u", Role: tt.role}))
			w := httptest.NewRecorder()

			Require(tt.op)(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 404, entry.Data["status"])
	assert.Equal(t, "/missing", entry.Data["path"])
}
