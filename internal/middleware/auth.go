package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shopforge/commerce-api/internal/policy"
)

// APIKeyHeader carries the caller's API key, as in the original API.
const APIKeyHeader = "api_key"

var principalNamespace = uuid.MustParse("5b7c4f7e-0c55-4c39-9d0b-8f6c9a1f2e40")

type ctxKey int

const principalKey ctxKey = iota

// Principal is the authenticated caller. The zero Principal is a guest.
type Principal struct {
	UserID string
	Role   policy.Role
}

// Authenticated reports whether the caller presented a valid key.
func (p Principal) Authenticated() bool {
	return p.Role != policy.Guest
}

// PrincipalFrom returns the caller stored by APIKeyAuth.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey).(Principal)
	return p
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// APIKeyAuth middleware resolves the API key from the "api_key" header to a
// role. Requests without a key continue as guests; an unknown key is rejected.
// Each key maps to a stable user id derived from the key.
func APIKeyAuth(keys map[string]policy.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			role, ok := keys[apiKey]
			if !ok {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Invalid API key")
				return
			}

			p := Principal{
				UserID: uuid.NewSHA1(principalNamespace, []byte(apiKey)).String(),
				Role:   role,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Require rejects callers whose role may not run op: guests get 401,
// authenticated callers 403.
func Require(op policy.Operation) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if policy.Allows(p.Role, op) {
				next.ServeHTTP(w, r)
				return
			}
			if !p.Authenticated() {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key required")
				return
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient role for this operation")
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
