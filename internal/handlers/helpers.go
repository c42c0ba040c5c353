package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/middleware"
	"github.com/shopforge/commerce-api/internal/policy"
	"github.com/shopforge/commerce-api/internal/service"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return apperror.New(apperror.KindInvalidRequest, "", "Invalid request body: %v", err)
	}
	return nil
}

// actor builds the service actor for the request caller. Staff are the
// roles allowed to list every order.
func actor(r *http.Request) service.Actor {
	p := middleware.PrincipalFrom(r.Context())
	return service.Actor{
		UserID:    p.UserID,
		Staff:     policy.Allows(p.Role, policy.OrderList),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

// page reads limit and offset query parameters.
func page(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultLimit, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit <= 0 {
			return 0, 0, apperror.New(apperror.KindInvalidRequest, "limit", "limit must be a positive integer")
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, apperror.New(apperror.KindInvalidRequest, "offset", "offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// queryDecimal parses an optional decimal query parameter.
func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidRequest, name, "%s must be a decimal number", name)
	}
	return &d, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidRequest, name, "%s must be true or false", name)
	}
	return &b, nil
}
