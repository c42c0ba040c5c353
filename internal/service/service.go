// Package service holds the catalog, coupon and order use cases that sit
// between the HTTP handlers and the storage layer.
package service

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/repository"
)

// Actor identifies who performs a change, for authorization checks and the
// audit trail.
type Actor struct {
	UserID    string
	Staff     bool
	IPAddress string
	UserAgent string
}

// Audit entity names.
const (
	entityProductType = "product_types"
	entityProduct     = "products"
	entityVariant     = "variants"
	entityCoupon      = "coupons"
	entityOrder       = "orders"
)

func notFound(entity, id string) error {
	return apperror.New(apperror.KindEntityNotFound, id, "%s %s not found", singular(entity), id)
}

// storeError classifies a repository failure for entity id.
func storeError(err error, entity, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(entity, id)
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.New(apperror.KindConflict, id, "%s %s already exists", singular(entity), id)
	case errors.Is(err, repository.ErrStatusChanged):
		return apperror.New(apperror.KindConflict, id, "%s %s was changed by another request, retry", singular(entity), id)
	case errors.Is(err, repository.ErrReferenced):
		return invalid(id, "cannot delete %s %s while other records reference it", singular(entity), id)
	}
	return errors.Wrapf(err, "%s %s", singular(entity), id)
}

func singular(entity string) string {
	return strings.ReplaceAll(strings.TrimSuffix(entity, "s"), "_", " ")
}

func invalid(field, format string, args ...interface{}) error {
	return apperror.New(apperror.KindInvalidRequest, field, format, args...)
}

// slugify lower-cases s and joins its alphanumeric runs with hyphens.
func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
