package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/coupon"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/telemetry"
	"github.com/shopforge/commerce-api/pkg/logger"
)

func newCouponService(t *testing.T) (*CouponService, *repository.InMemoryStore) {
	t.Helper()
	store := repository.NewInMemoryStore()
	log := logger.Discard()
	return NewCouponService(store, telemetry.NewAuditLogger(store, log), log), store
}

func intPtr(i int) *int { return &i }

func TestCouponService_Create(t *testing.T) {
	svc, _ := newCouponService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, staff, CouponInput{Code: " save10 ", Type: models.CouponPercentage, Value: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)
	assert.True(t, c.Active)
	assert.Equal(t, coupon.StateActive, c.State)

	byCode, err := svc.GetByCode(ctx, "Save10")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byCode.ID)

	_, err = svc.Create(ctx, staff, CouponInput{Code: "SAVE10", Type: models.CouponFixedAmount, Value: dec("5")})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestCouponService_Create_InvalidConfiguration(t *testing.T) {
	svc, _ := newCouponService(t)
	negative := dec("-1")

	tests := []struct {
		name string
		in   CouponInput
	}{
		{name: "empty code", in: CouponInput{Code: "  ", Type: models.CouponPercentage, Value: dec("10")}},
		{name: "unknown type", in: CouponInput{Code: "X", Type: "BOGO", Value: dec("10")}},
		{name: "zero value", in: CouponInput{Code: "X", Type: models.CouponFixedAmount, Value: dec("0")}},
		{name: "percentage over 100", in: CouponInput{Code: "X", Type: models.CouponPercentage, Value: dec("100.01")}},
		{name: "negative minimum", in: CouponInput{Code: "X", Type: models.CouponFixedAmount, Value: dec("5"), MinimumAmount: &negative}},
		{name: "zero usage limit", in: CouponInput{Code: "X", Type: models.CouponFixedAmount, Value: dec("5"), UsageLimit: intPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), staff, tt.in)
			require.Error(t, err)
			assert.Equal(t, apperror.KindInvalidCouponConfiguration, apperror.KindOf(err))
		})
	}
}

func TestCouponService_UpdateValidatesMergedConfig(t *testing.T) {
	svc, _ := newCouponService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, staff, CouponInput{Code: "FLAT150", Type: models.CouponFixedAmount, Value: dec("150")})
	require.NoError(t, err)

	// switching the type alone would leave a 150% discount
	percentage := models.CouponPercentage
	_, err = svc.Update(ctx, staff, c.ID, CouponPatch{Type: &percentage})
	assert.Equal(t, apperror.KindInvalidCouponConfiguration, apperror.KindOf(err))

	value := dec("15")
	updated, err := svc.Update(ctx, staff, c.ID, CouponPatch{Type: &percentage, Value: &value})
	require.NoError(t, err)
	assert.Equal(t, models.CouponPercentage, updated.Type)
	assert.Equal(t, "FLAT150", updated.Code)
}

func TestCouponService_Toggle(t *testing.T) {
	svc, _ := newCouponService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, staff, CouponInput{Code: "ONOFF", Type: models.CouponFixedAmount, Value: dec("5")})
	require.NoError(t, err)

	off, err := svc.Toggle(ctx, staff, c.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)
	assert.Equal(t, coupon.StateInactive, off.State)

	on, err := svc.Toggle(ctx, staff, c.ID)
	require.NoError(t, err)
	assert.True(t, on.Active)
}

func TestCouponService_DeleteBlockedWhenReferenced(t *testing.T) {
	svc, store := newCouponService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, staff, CouponInput{Code: "USED", Type: models.CouponFixedAmount, Value: dec("5")})
	require.NoError(t, err)
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repository.OrderTx) error {
		return tx.InsertOrder(ctx, &models.Order{ID: "o1", OrderNumber: "ORD-250314-AAAAAAAA", CouponID: c.ID, Status: models.OrderPending})
	}))

	err = svc.Delete(ctx, staff, c.ID)
	assert.Equal(t, apperror.KindInvalidRequest, apperror.KindOf(err))

	unused, err := svc.Create(ctx, staff, CouponInput{Code: "UNUSED", Type: models.CouponFixedAmount, Value: dec("5")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, staff, unused.ID))
	_, err = svc.Get(ctx, unused.ID)
	assert.Equal(t, apperror.KindEntityNotFound, apperror.KindOf(err))
}

// racingCouponStore lets an order reference the coupon after the reference
// count was taken, so only the store's foreign key catches it.
type racingCouponStore struct {
	*repository.InMemoryStore
}

func (racingCouponStore) DeleteCoupon(ctx context.Context, id string) error {
	return repository.ErrReferenced
}

func TestCouponService_DeleteReferencedConcurrently(t *testing.T) {
	store := repository.NewInMemoryStore()
	log := logger.Discard()
	svc := NewCouponService(racingCouponStore{store}, telemetry.NewAuditLogger(store, log), log)
	ctx := context.Background()

	c, err := svc.Create(ctx, staff, CouponInput{Code: "LATE", Type: models.CouponFixedAmount, Value: dec("5")})
	require.NoError(t, err)

	err = svc.Delete(ctx, staff, c.ID)
	assert.Equal(t, apperror.KindInvalidRequest, apperror.KindOf(err))

	history, err := store.ListAuditEntries(ctx, entityCoupon, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.AuditCreate, history[0].Action)
}

func TestCouponService_Quote(t *testing.T) {
	svc, store := newCouponService(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	minimum := dec("50")

	require.NoError(t, store.CreateCoupon(ctx, &models.Coupon{ID: "c1", Code: "TEN", Type: models.CouponPercentage, Value: dec("10"), Active: true}))
	require.NoError(t, store.CreateCoupon(ctx, &models.Coupon{ID: "c2", Code: "OLD", Type: models.CouponFixedAmount, Value: dec("5"), Active: true, ExpiresAt: &past}))
	require.NoError(t, store.CreateCoupon(ctx, &models.Coupon{ID: "c3", Code: "BIG", Type: models.CouponFixedAmount, Value: dec("5"), Active: true, MinimumAmount: &minimum}))
	require.NoError(t, store.CreateCoupon(ctx, &models.Coupon{ID: "c4", Code: "GONE", Type: models.CouponFixedAmount, Value: dec("5"), Active: true, UsageLimit: intPtr(1), UsageCount: 1}))

	tests := []struct {
		name     string
		code     string
		subtotal string
		discount string
		kind     apperror.Kind
	}{
		{name: "percentage", code: "ten", subtotal: "60.00", discount: "6"},
		{name: "expired", code: "OLD", subtotal: "60.00", kind: apperror.KindCouponExpired},
		{name: "minimum not met", code: "BIG", subtotal: "49.99", kind: apperror.KindCouponMinimumNotMet},
		{name: "exhausted", code: "GONE", subtotal: "60.00", kind: apperror.KindCouponExhausted},
		{name: "unknown code", code: "NOPE", subtotal: "60.00", kind: apperror.KindEntityNotFound},
		{name: "negative subtotal", code: "TEN", subtotal: "-1", kind: apperror.KindInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.Quote(ctx, tt.code, dec(tt.subtotal))
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.discount, q.Discount.String())
		})
	}
}
