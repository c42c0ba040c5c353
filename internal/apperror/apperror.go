// Package apperror defines the failure taxonomy shared by the catalog, coupon
// and pricing engines. Every failure surfaced to a caller carries a Kind so the
// transport layer can map it without string matching.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindSchemaInvalid              Kind = "SCHEMA_INVALID"
	KindAttributeValidationFailed  Kind = "ATTRIBUTE_VALIDATION_FAILED"
	KindEntityNotFound             Kind = "ENTITY_NOT_FOUND"
	KindEntityInactive             Kind = "ENTITY_INACTIVE"
	KindInsufficientInventory      Kind = "INSUFFICIENT_INVENTORY"
	KindCouponExpired              Kind = "COUPON_EXPIRED"
	KindCouponExhausted            Kind = "COUPON_EXHAUSTED"
	KindCouponMinimumNotMet        Kind = "COUPON_MINIMUM_NOT_MET"
	KindInvalidCouponConfiguration Kind = "INVALID_COUPON_CONFIGURATION"
	KindConflict                   Kind = "CONFLICT"
	KindInvalidRequest             Kind = "INVALID_REQUEST"
	KindForbidden                  Kind = "FORBIDDEN"
	KindInternal                   Kind = "INTERNAL"
)

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrSchemaInvalid              = &Error{Kind: KindSchemaInvalid}
	ErrAttributeValidationFailed  = &Error{Kind: KindAttributeValidationFailed}
	ErrEntityNotFound             = &Error{Kind: KindEntityNotFound}
	ErrEntityInactive             = &Error{Kind: KindEntityInactive}
	ErrInsufficientInventory      = &Error{Kind: KindInsufficientInventory}
	ErrCouponExpired              = &Error{Kind: KindCouponExpired}
	ErrCouponExhausted            = &Error{Kind: KindCouponExhausted}
	ErrCouponMinimumNotMet        = &Error{Kind: KindCouponMinimumNotMet}
	ErrInvalidCouponConfiguration = &Error{Kind: KindInvalidCouponConfiguration}
	ErrConflict                   = &Error{Kind: KindConflict}
	ErrInvalidRequest             = &Error{Kind: KindInvalidRequest}
	ErrForbidden                  = &Error{Kind: KindForbidden}
)

// Error is a classified failure. Field names the offending schema field,
// attribute, entity id or coupon code when there is one.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

// New builds an Error with a formatted message.
func New(kind Kind, field string, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Field == ""
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As unwraps err to an *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
