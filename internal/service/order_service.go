package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/pricing"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/telemetry"
)

const maxPageSize = 100

// OrderPlacer prices and commits an order.
type OrderPlacer interface {
	PriceAndCommit(ctx context.Context, req pricing.Request) (*models.Order, error)
}

// statusTransitions lists the statuses reachable from each status.
var statusTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending: {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:    {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped: {models.OrderDelivered},
}

// OrderService handles order business logic
type OrderService struct {
	placer  OrderPlacer
	store   repository.OrderStore
	audit   *telemetry.AuditLogger
	tracker *telemetry.Tracker
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(placer OrderPlacer, store repository.OrderStore, audit *telemetry.AuditLogger,
	tracker *telemetry.Tracker, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		placer:  placer,
		store:   store,
		audit:   audit,
		tracker: tracker,
		log:     log,
		now:     time.Now,
	}
}

// CreateOrder prices and commits req for actor. Guests have an empty UserID.
// The audit entry and the ORDER_PLACED event are written after the commit
// and never fail the order.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req models.OrderRequest) (*models.Order, error) {
	order, err := s.placer.PriceAndCommit(ctx, pricing.Request{
		Items:           req.Items,
		CouponCode:      req.CouponCode,
		Currency:        req.Currency,
		UserID:          actor.UserID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, telemetry.Entry{
			ActorUserID: actor.UserID,
			Action:      models.AuditCreate,
			Entity:      entityOrder,
			EntityID:    order.ID,
			NewValues:   order,
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
		})
	}
	if s.tracker != nil {
		err := s.tracker.Track(ctx, telemetry.Event{
			Type:   models.EventOrderPlaced,
			UserID: actor.UserID,
			Payload: map[string]interface{}{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"total_amount": order.TotalAmount.StringFixed(2),
				"currency":     order.Currency,
				"item_count":   len(order.Items),
			},
			IPAddress: actor.IPAddress,
			UserAgent: actor.UserAgent,
		})
		if err != nil {
			s.log.WithError(err).WithField("order_id", order.ID).Warn("order placed event rejected")
		}
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.StringFixed(2),
	}).Info("order placed")
	return order, nil
}

// GetOrder returns an order by id. Non-staff callers only see their own.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, storeError(err, entityOrder, id)
	}
	if !visible(actor, order) {
		return nil, notFound(entityOrder, id)
	}
	return order, nil
}

// GetOrderByNumber returns an order by its order number. Non-staff callers
// only see their own.
func (s *OrderService) GetOrderByNumber(ctx context.Context, actor Actor, number string) (*models.Order, error) {
	order, err := s.store.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, storeError(err, entityOrder, number)
	}
	if !visible(actor, order) {
		return nil, notFound(entityOrder, number)
	}
	return order, nil
}

// ListOrders returns orders matching filter.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", "invalid order status %q", filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	return s.store.ListOrders(ctx, filter)
}

// ListMyOrders returns the actor's own orders.
func (s *OrderService) ListMyOrders(ctx context.Context, actor Actor, filter models.OrderFilter) ([]models.Order, error) {
	if actor.UserID == "" {
		return nil, apperror.New(apperror.KindForbidden, "", "an authenticated user is required")
	}
	filter.UserID = actor.UserID
	return s.ListOrders(ctx, filter)
}

// UpdateStatus moves an order forward in its lifecycle and stamps the time
// of the transition. The write only lands if the order is still in the
// status the transition was checked against.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalid("status", "invalid order status %q", status)
	}
	old, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, storeError(err, entityOrder, id)
	}
	if !canTransition(old.Status, status) {
		return nil, invalid("status", "cannot change order status from %s to %s", old.Status, status)
	}

	order, err := s.store.UpdateOrderStatus(ctx, id, old.Status, status, s.now().UTC())
	if err != nil {
		return nil, storeError(err, entityOrder, id)
	}

	if s.audit != nil {
		s.audit.Record(ctx, telemetry.Entry{
			ActorUserID: actor.UserID,
			Action:      models.AuditUpdate,
			Entity:      entityOrder,
			EntityID:    id,
			OldValues:   map[string]models.OrderStatus{"status": old.Status},
			NewValues:   map[string]models.OrderStatus{"status": order.Status},
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
		})
	}
	return order, nil
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func visible(actor Actor, order *models.Order) bool {
	return actor.Staff || (actor.UserID != "" && order.UserID == actor.UserID)
}
