package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponType selects how a coupon's value is applied.
type CouponType string

const (
	CouponPercentage  CouponType = "PERCENTAGE"
	CouponFixedAmount CouponType = "FIXED_AMOUNT"
)

// Coupon is a discount code. Code is stored upper-cased.
type Coupon struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	Type          CouponType       `json:"type"`
	Value         decimal.Decimal  `json:"value"`
	MinimumAmount *decimal.Decimal `json:"minimum_amount,omitempty"`
	UsageLimit    *int             `json:"usage_limit,omitempty"`
	UsageCount    int              `json:"usage_count"`
	Active        bool             `json:"active"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
