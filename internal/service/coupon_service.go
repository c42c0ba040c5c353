package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/coupon"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/telemetry"
)

const maxCodeLength = 50

// CouponInput creates a coupon. Active defaults to true.
type CouponInput struct {
	Code          string
	Type          models.CouponType
	Value         decimal.Decimal
	MinimumAmount *decimal.Decimal
	UsageLimit    *int
	Active        *bool
	ExpiresAt     *time.Time
}

// CouponPatch updates a coupon. Nil fields are left unchanged.
type CouponPatch struct {
	Code          *string
	Type          *models.CouponType
	Value         *decimal.Decimal
	MinimumAmount *decimal.Decimal
	UsageLimit    *int
	Active        *bool
	ExpiresAt     *time.Time
}

// CouponView is a coupon with its effective state.
type CouponView struct {
	models.Coupon
	State coupon.State `json:"state"`
}

// CouponQuote is the discount a coupon grants on a subtotal.
type CouponQuote struct {
	Coupon   CouponView      `json:"coupon"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount_amount"`
}

// CouponService manages discount codes.
type CouponService struct {
	store     repository.CouponStore
	validator *coupon.Validator
	audit     *telemetry.AuditLogger
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewCouponService creates a new coupon service
func NewCouponService(store repository.CouponStore, audit *telemetry.AuditLogger, log logrus.FieldLogger) *CouponService {
	return &CouponService{
		store:     store,
		validator: coupon.NewValidator(),
		audit:     audit,
		log:       log,
		now:       time.Now,
	}
}

// Create stores a new coupon under its normalized code.
func (s *CouponService) Create(ctx context.Context, actor Actor, in CouponInput) (*CouponView, error) {
	code, err := checkCode(in.Code)
	if err != nil {
		return nil, err
	}
	if err := coupon.ValidateConfig(coupon.Config{
		Type:          in.Type,
		Value:         in.Value,
		MinimumAmount: in.MinimumAmount,
		UsageLimit:    in.UsageLimit,
	}); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &models.Coupon{
		ID:            uuid.NewString(),
		Code:          code,
		Type:          in.Type,
		Value:         in.Value,
		MinimumAmount: in.MinimumAmount,
		UsageLimit:    in.UsageLimit,
		Active:        in.Active == nil || *in.Active,
		ExpiresAt:     in.ExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateCoupon(ctx, c); err != nil {
		return nil, storeError(err, entityCoupon, code)
	}

	s.record(ctx, actor, models.AuditCreate, c.ID, nil, c)
	return s.view(c), nil
}

// Get returns a coupon by id.
func (s *CouponService) Get(ctx context.Context, id string) (*CouponView, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// GetByCode returns a coupon by code, case-insensitively.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*CouponView, error) {
	code = coupon.NormalizeCode(code)
	c, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, storeError(err, entityCoupon, code)
	}
	return s.view(c), nil
}

// List returns coupons matching filter.
func (s *CouponService) List(ctx context.Context, filter repository.CouponFilter) ([]CouponView, error) {
	coupons, err := s.store.ListCoupons(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]CouponView, 0, len(coupons))
	for i := range coupons {
		out = append(out, *s.view(&coupons[i]))
	}
	return out, nil
}

// Update applies patch. The merged configuration is validated as a whole.
// The usage counter is never written here.
func (s *CouponService) Update(ctx context.Context, actor Actor, id string, patch CouponPatch) (*CouponView, error) {
	old, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	c := *old
	if patch.Code != nil {
		if c.Code, err = checkCode(*patch.Code); err != nil {
			return nil, err
		}
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.Value != nil {
		c.Value = *patch.Value
	}
	if patch.MinimumAmount != nil {
		c.MinimumAmount = patch.MinimumAmount
	}
	if patch.UsageLimit != nil {
		c.UsageLimit = patch.UsageLimit
	}
	if patch.Active != nil {
		c.Active = *patch.Active
	}
	if patch.ExpiresAt != nil {
		c.ExpiresAt = patch.ExpiresAt
	}
	if err := coupon.ValidateConfig(coupon.Config{
		Type:          c.Type,
		Value:         c.Value,
		MinimumAmount: c.MinimumAmount,
		UsageLimit:    c.UsageLimit,
	}); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCoupon(ctx, &c); err != nil {
		return nil, storeError(err, entityCoupon, c.Code)
	}

	s.record(ctx, actor, models.AuditUpdate, id, old, &c)
	return s.view(&c), nil
}

// Toggle flips the active flag.
func (s *CouponService) Toggle(ctx context.Context, actor Actor, id string) (*CouponView, error) {
	old, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !old.Active
	return s.Update(ctx, actor, id, CouponPatch{Active: &active})
}

// Delete removes a coupon that no order references.
func (s *CouponService) Delete(ctx context.Context, actor Actor, id string) error {
	old, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.store.CountOrdersByCoupon(ctx, id)
	if err != nil {
		return storeError(err, entityCoupon, id)
	}
	if n > 0 {
		return invalid(id, "cannot delete coupon with %d associated orders, deactivate it instead", n)
	}
	if err := s.store.DeleteCoupon(ctx, id); err != nil {
		return storeError(err, entityCoupon, id)
	}

	s.record(ctx, actor, models.AuditDelete, id, old, nil)
	return nil
}

// Quote checks a code against an order subtotal without redeeming it.
func (s *CouponService) Quote(ctx context.Context, code string, subtotal decimal.Decimal) (*CouponQuote, error) {
	if subtotal.IsNegative() {
		return nil, invalid("subtotal", "subtotal cannot be negative")
	}
	code = coupon.NormalizeCode(code)
	if code == "" {
		return nil, invalid("code", "coupon code is required")
	}
	c, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, storeError(err, entityCoupon, code)
	}
	discount, err := s.validator.Validate(c, subtotal)
	if err != nil {
		return nil, err
	}
	return &CouponQuote{Coupon: *s.view(c), Subtotal: subtotal, Discount: discount}, nil
}

func (s *CouponService) get(ctx context.Context, id string) (*models.Coupon, error) {
	c, err := s.store.GetCoupon(ctx, id)
	if err != nil {
		return nil, storeError(err, entityCoupon, id)
	}
	return c, nil
}

func (s *CouponService) view(c *models.Coupon) *CouponView {
	return &CouponView{Coupon: *c, State: s.validator.StateOf(c)}
}

func (s *CouponService) record(ctx context.Context, actor Actor, action models.AuditAction, id string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, telemetry.Entry{
		ActorUserID: actor.UserID,
		Action:      action,
		Entity:      entityCoupon,
		EntityID:    id,
		OldValues:   oldValues,
		NewValues:   newValues,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
	})
}

func checkCode(raw string) (string, error) {
	code := coupon.NormalizeCode(raw)
	if code == "" {
		return "", apperror.New(apperror.KindInvalidCouponConfiguration, "code", "coupon code is required")
	}
	if len(code) > maxCodeLength {
		return "", apperror.New(apperror.KindInvalidCouponConfiguration, "code",
			"coupon code cannot exceed %d characters", maxCodeLength)
	}
	return code, nil
}
