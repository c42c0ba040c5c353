// Package pricing prices an order request and commits it, together with the
// inventory and coupon counter updates it implies, in one atomic store scope.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/coupon"
	"github.com/shopforge/commerce-api/internal/metrics"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
)

// Options are the injectable pricing parameters.
type Options struct {
	TaxRate           decimal.Decimal
	FlatShipping      decimal.Decimal
	Currency          string
	MaxNumberAttempts int
	Clock             func() time.Time
	Numbers           NumberSource
}

// DefaultOptions returns a 10% tax rate and 10.00 flat shipping in USD.
func DefaultOptions() Options {
	return Options{
		TaxRate:           decimal.RequireFromString("0.10"),
		FlatShipping:      decimal.RequireFromString("10.00"),
		Currency:          "USD",
		MaxNumberAttempts: 3,
	}
}

// Request is an order submission.
type Request struct {
	Items           []models.OrderLine
	CouponCode      string
	Currency        string
	UserID          string
	ShippingAddress string
	BillingAddress  string
	Notes           string
}

// Engine prices and commits orders.
type Engine struct {
	store   repository.OrderStore
	coupons *coupon.Validator
	opts    Options
	log     logrus.FieldLogger
}

// NewEngine creates a pricing engine. Zero Clock, Numbers, Currency and
// MaxNumberAttempts fall back to their defaults.
func NewEngine(store repository.OrderStore, opts Options, log logrus.FieldLogger) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Numbers == nil {
		opts.Numbers = NewNumberGenerator(0)
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.MaxNumberAttempts <= 0 {
		opts.MaxNumberAttempts = 3
	}
	return &Engine{
		store:   store,
		coupons: coupon.NewValidator(coupon.WithClock(opts.Clock)),
		opts:    opts,
		log:     log,
	}
}

// PriceAndCommit validates every line, prices the order, applies the coupon
// and persists the result. Either every write lands or none does. An order
// number clash with another process retries the whole commit with a fresh
// number.
func (e *Engine) PriceAndCommit(ctx context.Context, req Request) (*models.Order, error) {
	if err := validateRequest(req); err != nil {
		metrics.OrdersTotal.WithLabelValues(string(apperror.KindOf(err))).Inc()
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		now := e.opts.Clock().UTC()
		number, err := e.opts.Numbers.Next(now)
		if err != nil {
			return nil, fmt.Errorf("generate order number: %w", err)
		}

		order, err := e.commit(ctx, req, number, now)
		if err == nil {
			e.observe(order)
			return order, nil
		}

		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			if attempt < e.opts.MaxNumberAttempts {
				e.log.WithFields(logrus.Fields{
					"order_number": number,
					"attempt":      attempt,
				}).Warn("order number already taken, retrying")
				continue
			}
			err = apperror.New(apperror.KindConflict, "order_number",
				"could not allocate a unique order number after %d attempts", attempt)
		}

		metrics.OrdersTotal.WithLabelValues(string(apperror.KindOf(err))).Inc()
		return nil, err
	}
}

type stockLevel struct {
	sku       string
	remaining int
}

func (e *Engine) commit(ctx context.Context, req Request, number string, now time.Time) (*models.Order, error) {
	var (
		placed *models.Order
		levels []stockLevel
	)

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx repository.OrderTx) error {
		order := &models.Order{
			ID:              uuid.NewString(),
			OrderNumber:     number,
			UserID:          req.UserID,
			Status:          models.OrderPending,
			Currency:        e.currency(req),
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			Notes:           req.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		subtotal := decimal.Zero
		reserved := make(map[string]int, len(req.Items))
		items := make([]models.OrderItem, 0, len(req.Items))
		levels = levels[:0]

		for _, line := range req.Items {
			v, err := tx.GetVariantForUpdate(ctx, line.VariantID)
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.New(apperror.KindEntityNotFound, line.VariantID,
					"product variant %s not found", line.VariantID)
			}
			if err != nil {
				return fmt.Errorf("load variant %s: %w", line.VariantID, err)
			}
			if !v.Active {
				return apperror.New(apperror.KindEntityInactive, v.ID,
					"product variant %s is not active", v.ID)
			}

			available := v.InventoryQty - reserved[v.ID]
			if available < line.Quantity {
				return apperror.New(apperror.KindInsufficientInventory, v.ID,
					"insufficient inventory for variant %s. Available: %d, Requested: %d",
					v.SKU, available, line.Quantity)
			}
			reserved[v.ID] += line.Quantity

			unit := v.UnitPrice()
			lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
			items = append(items, models.OrderItem{
				ID:         uuid.NewString(),
				OrderID:    order.ID,
				VariantID:  v.ID,
				SKU:        v.SKU,
				Quantity:   line.Quantity,
				UnitPrice:  unit,
				TotalPrice: lineTotal,
			})
			levels = append(levels, stockLevel{sku: v.SKU, remaining: available - line.Quantity})
			subtotal = subtotal.Add(lineTotal)
		}

		tax := subtotal.Mul(e.opts.TaxRate).Round(2)
		shipping := e.opts.FlatShipping.Round(2)

		discount := decimal.Zero
		var applied *models.Coupon
		if code := coupon.NormalizeCode(req.CouponCode); code != "" {
			c, err := tx.GetCouponByCodeForUpdate(ctx, code)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("load coupon %s: %w", code, err)
			}
			if discount, err = e.coupons.Validate(c, subtotal); err != nil {
				return err
			}
			applied = c
		}

		order.Subtotal = subtotal
		order.TaxAmount = tax
		order.ShippingAmount = shipping
		order.DiscountAmount = discount
		order.TotalAmount = subtotal.Add(tax).Add(shipping).Sub(discount)
		if applied != nil {
			order.CouponID = applied.ID
			order.CouponCode = applied.Code
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for i := range items {
			if err := tx.InsertOrderItem(ctx, &items[i]); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		for _, it := range items {
			if err := tx.DecrementInventory(ctx, it.VariantID, it.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockConflict) {
					return apperror.New(apperror.KindInsufficientInventory, it.VariantID,
						"insufficient inventory for variant %s", it.SKU)
				}
				return fmt.Errorf("decrement inventory: %w", err)
			}
		}
		if applied != nil {
			if err := tx.IncrementCouponUsage(ctx, applied.ID); err != nil {
				if errors.Is(err, repository.ErrUsageLimitReached) {
					return apperror.New(apperror.KindCouponExhausted, applied.Code,
						"coupon %s usage limit exceeded", applied.Code)
				}
				return fmt.Errorf("increment coupon usage: %w", err)
			}
		}

		order.Items = items
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, l := range levels {
		metrics.InventoryLevel.WithLabelValues(l.sku).Set(float64(l.remaining))
	}
	return placed, nil
}

func (e *Engine) observe(order *models.Order) {
	metrics.OrdersTotal.WithLabelValues("placed").Inc()
	total, _ := order.TotalAmount.Float64()
	metrics.OrderAmount.Observe(total)
	if order.CouponID != "" {
		metrics.CouponRedemptions.WithLabelValues(order.CouponCode).Inc()
	}
}

func (e *Engine) currency(req Request) string {
	if c := strings.TrimSpace(req.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return e.opts.Currency
}

func validateRequest(req Request) error {
	if len(req.Items) == 0 {
		return apperror.New(apperror.KindInvalidRequest, "items", "order must contain at least one item")
	}
	for i, line := range req.Items {
		if strings.TrimSpace(line.VariantID) == "" {
			return apperror.New(apperror.KindInvalidRequest, fmt.Sprintf("items[%d].variant_id", i),
				"item %d is missing a variant id", i)
		}
		if line.Quantity <= 0 {
			return apperror.New(apperror.KindInvalidRequest, fmt.Sprintf("items[%d].quantity", i),
				"item %d quantity must be greater than 0", i)
		}
	}
	if c := strings.TrimSpace(req.Currency); c != "" && len(c) != 3 {
		return apperror.New(apperror.KindInvalidRequest, "currency", "currency must be a 3-letter code")
	}
	return nil
}
