package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// State is the effective state of a coupon at a point in time. Only the
// active flag is stored; expired and exhausted are derived.
type State string

const (
	StateActive    State = "ACTIVE"
	StateInactive  State = "INACTIVE"
	StateExpired   State = "EXPIRED"
	StateExhausted State = "EXHAUSTED"
)

// Validator checks coupons against an order subtotal and computes discounts.
type Validator struct {
	now func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a new coupon validator
func NewValidator(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the discount c grants on subtotal.
// A coupon is applicable if:
// 1. It exists and is active
// 2. It has not expired
// 3. Its usage limit has not been reached
// 4. The subtotal meets its minimum amount
// The discount is clamped to [0, subtotal].
func (v *Validator) Validate(c *models.Coupon, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, apperror.New(apperror.KindEntityNotFound, "", "coupon not found")
	}
	if !c.Active {
		return decimal.Zero, apperror.New(apperror.KindEntityInactive, c.Code, "coupon %s is inactive", c.Code)
	}
	if isExpired(c, v.now()) {
		return decimal.Zero, apperror.New(apperror.KindCouponExpired, c.Code, "coupon %s has expired", c.Code)
	}
	if isExhausted(c) {
		return decimal.Zero, apperror.New(apperror.KindCouponExhausted, c.Code, "coupon %s usage limit exceeded", c.Code)
	}
	if c.MinimumAmount != nil && subtotal.LessThan(*c.MinimumAmount) {
		return decimal.Zero, apperror.New(apperror.KindCouponMinimumNotMet, c.Code,
			"minimum order amount of %s required for coupon %s", c.MinimumAmount.StringFixed(2), c.Code)
	}

	return Discount(c.Type, c.Value, subtotal), nil
}

// StateOf reports the effective state of c at the validator's current time.
func (v *Validator) StateOf(c *models.Coupon) State {
	switch {
	case !c.Active:
		return StateInactive
	case isExpired(c, v.now()):
		return StateExpired
	case isExhausted(c):
		return StateExhausted
	default:
		return StateActive
	}
}

// Discount computes the raw discount for a coupon type and value, clamped to
// [0, subtotal] and rounded to cents.
func Discount(t models.CouponType, value, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch t {
	case models.CouponPercentage:
		d = subtotal.Mul(value).Div(hundred).Round(2)
	default:
		d = value
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

// Config is the writable configuration of a coupon.
type Config struct {
	Type          models.CouponType
	Value         decimal.Decimal
	MinimumAmount *decimal.Decimal
	UsageLimit    *int
}

// ValidateConfig checks coupon configuration bounds.
func ValidateConfig(cfg Config) error {
	switch cfg.Type {
	case models.CouponPercentage, models.CouponFixedAmount:
	default:
		return apperror.New(apperror.KindInvalidCouponConfiguration, "type",
			"invalid coupon type %q. Must be one of: PERCENTAGE, FIXED_AMOUNT", cfg.Type)
	}
	if !cfg.Value.IsPositive() {
		return apperror.New(apperror.KindInvalidCouponConfiguration, "value", "coupon value must be greater than 0")
	}
	if cfg.Type == models.CouponPercentage && cfg.Value.GreaterThan(hundred) {
		return apperror.New(apperror.KindInvalidCouponConfiguration, "value", "percentage discount cannot exceed 100%%")
	}
	if cfg.MinimumAmount != nil && cfg.MinimumAmount.IsNegative() {
		return apperror.New(apperror.KindInvalidCouponConfiguration, "minimum_amount", "minimum amount cannot be negative")
	}
	if cfg.UsageLimit != nil && *cfg.UsageLimit <= 0 {
		return apperror.New(apperror.KindInvalidCouponConfiguration, "usage_limit", "usage limit must be greater than 0")
	}
	return nil
}

// NormalizeCode returns the canonical (trimmed, upper-cased) form of a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isExpired(c *models.Coupon, now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

func isExhausted(c *models.Coupon) bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}
