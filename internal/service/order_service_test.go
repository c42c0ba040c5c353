package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/pricing"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/telemetry"
	"github.com/shopforge/commerce-api/pkg/logger"
)

var (
	alice = Actor{UserID: "alice"}
	bob   = Actor{UserID: "bob"}
)

func newOrderService(t *testing.T) (*OrderService, *repository.InMemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewInMemoryStore()
	require.NoError(t, store.CreateProductType(ctx, &models.ProductType{ID: "pt", Name: "Tees", Slug: "tees"}))
	require.NoError(t, store.CreateProduct(ctx, &models.Product{
		ID: "prod", TypeID: "pt", Title: "Tee", Slug: "tee", BasePrice: dec("20.00"), Currency: "USD", Status: models.ProductPublished,
	}))
	require.NoError(t, store.CreateVariant(ctx, &models.Variant{ID: "v1", ProductID: "prod", SKU: "TEE-1", InventoryQty: 10, Active: true}))
	require.NoError(t, store.CreateCoupon(ctx, &models.Coupon{ID: "c1", Code: "TEN", Type: models.CouponPercentage, Value: dec("10"), Active: true}))

	log := logger.Discard()
	engine := pricing.NewEngine(store, pricing.DefaultOptions(), log)
	svc := NewOrderService(engine, store, telemetry.NewAuditLogger(store, log), telemetry.NewTracker(store, log), log)
	return svc, store
}

func orderFor(qty int) models.OrderRequest {
	return models.OrderRequest{Items: []models.OrderLine{{VariantID: "v1", Quantity: qty}}}
}

func TestOrderService_CreateOrder(t *testing.T) {
	svc, store := newOrderService(t)
	ctx := context.Background()

	req := orderFor(3)
	req.CouponCode = "ten"
	order, err := svc.CreateOrder(ctx, alice, req)
	require.NoError(t, err)

	assert.Equal(t, "alice", order.UserID)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "60.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "6.00", order.DiscountAmount.StringFixed(2))
	assert.Equal(t, "70.00", order.TotalAmount.StringFixed(2))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOrderPlaced, events[0].Type)
	assert.Contains(t, string(events[0].Payload), order.OrderNumber)

	history, err := store.ListAuditEntries(ctx, entityOrder, order.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.AuditCreate, history[0].Action)
}

func TestOrderService_CreateOrder_Errors(t *testing.T) {
	svc, store := newOrderService(t)

	tests := []struct {
		name string
		req  models.OrderRequest
		kind apperror.Kind
	}{
		{name: "empty order", req: models.OrderRequest{}, kind: apperror.KindInvalidRequest},
		{name: "zero quantity", req: orderFor(0), kind: apperror.KindInvalidRequest},
		{name: "unknown variant", req: models.OrderRequest{Items: []models.OrderLine{{VariantID: "nope", Quantity: 1}}}, kind: apperror.KindEntityNotFound},
		{name: "insufficient inventory", req: orderFor(11), kind: apperror.KindInsufficientInventory},
		{name: "unknown coupon", req: models.OrderRequest{Items: orderFor(1).Items, CouponCode: "NOPE"}, kind: apperror.KindEntityNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), alice, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	assert.Empty(t, store.Events())
}

func TestOrderService_Visibility(t *testing.T) {
	svc, _ := newOrderService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, alice, orderFor(1))
	require.NoError(t, err)
	guestOrder, err := svc.CreateOrder(ctx, Actor{}, orderFor(1))
	require.NoError(t, err)
	assert.Empty(t, guestOrder.UserID)

	got, err := svc.GetOrder(ctx, alice, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)

	_, err = svc.GetOrder(ctx, bob, order.ID)
	assert.Equal(t, apperror.KindEntityNotFound, apperror.KindOf(err))

	_, err = svc.GetOrderByNumber(ctx, staff, guestOrder.OrderNumber)
	require.NoError(t, err)

	_, err = svc.GetOrderByNumber(ctx, Actor{}, guestOrder.OrderNumber)
	assert.Equal(t, apperror.KindEntityNotFound, apperror.KindOf(err))

	mine, err := svc.ListMyOrders(ctx, alice, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)

	all, err := svc.ListOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListMyOrders(ctx, Actor{}, models.OrderFilter{})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestOrderService_UpdateStatus(t *testing.T) {
	svc, _ := newOrderService(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	order, err := svc.CreateOrder(ctx, alice, orderFor(1))
	require.NoError(t, err)

	steps := []struct {
		status models.OrderStatus
		ok     bool
	}{
		{status: models.OrderDelivered, ok: false},
		{status: models.OrderPaid, ok: true},
		{status: models.OrderPending, ok: false},
		{status: models.OrderShipped, ok: true},
		{status: models.OrderCancelled, ok: false},
		{status: models.OrderDelivered, ok: true},
		{status: "LOST", ok: false},
	}

	for _, step := range steps {
		updated, err := svc.UpdateStatus(ctx, staff, order.ID, step.status)
		if !step.ok {
			assert.Equal(t, apperror.KindInvalidRequest, apperror.KindOf(err), step.status)
			continue
		}
		require.NoError(t, err, step.status)
		assert.Equal(t, step.status, updated.Status)
	}

	final, err := svc.GetOrder(ctx, staff, order.ID)
	require.NoError(t, err)
	require.NotNil(t, final.PaidAt)
	require.NotNil(t, final.ShippedAt)
	require.NotNil(t, final.DeliveredAt)
	assert.Nil(t, final.CancelledAt)
	assert.True(t, final.DeliveredAt.Equal(at))

	_, err = svc.UpdateStatus(ctx, staff, "missing", models.OrderPaid)
	assert.Equal(t, apperror.KindEntityNotFound, apperror.KindOf(err))
}

func TestOrderService_ConcurrentStatusUpdates(t *testing.T) {
	svc, _ := newOrderService(t)
	ctx := context.Background()

	// The fixture variant holds 10 units, one per order.
	for i := 0; i < 10; i++ {
		order, err := svc.CreateOrder(ctx, alice, orderFor(1))
		require.NoError(t, err)
		_, err = svc.UpdateStatus(ctx, staff, order.ID, models.OrderPaid)
		require.NoError(t, err)

		targets := []models.OrderStatus{models.OrderShipped, models.OrderCancelled}
		errs := make([]error, len(targets))
		start := make(chan struct{})
		var wg sync.WaitGroup
		for j, target := range targets {
			wg.Add(1)
			go func(j int, target models.OrderStatus) {
				defer wg.Done()
				<-start
				_, errs[j] = svc.UpdateStatus(ctx, staff, order.ID, target)
			}(j, target)
		}
		close(start)
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.Contains(t, []apperror.Kind{apperror.KindConflict, apperror.KindInvalidRequest}, apperror.KindOf(err))
		}
		require.Equal(t, 1, succeeded, "exactly one transition out of PAID wins")

		final, err := svc.GetOrder(ctx, staff, order.ID)
		require.NoError(t, err)
		switch final.Status {
		case models.OrderShipped:
			assert.NotNil(t, final.ShippedAt)
			assert.Nil(t, final.CancelledAt)
		case models.OrderCancelled:
			assert.NotNil(t, final.CancelledAt)
			assert.Nil(t, final.ShippedAt)
		default:
			t.Fatalf("unexpected status %s", final.Status)
		}
	}
}

// staleOrderStore serves a fixed snapshot from GetOrder, as if another
// request changed the order right after it was read.
type staleOrderStore struct {
	repository.OrderStore
	snapshot models.Order
}

func (s staleOrderStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o := s.snapshot
	return &o, nil
}

func TestOrderService_UpdateStatusRejectsStaleRead(t *testing.T) {
	svc, store := newOrderService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, alice, orderFor(1))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, staff, order.ID, models.OrderPaid)
	require.NoError(t, err)
	paid, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, staff, order.ID, models.OrderShipped)
	require.NoError(t, err)

	svc.store = staleOrderStore{OrderStore: store, snapshot: *paid}
	_, err = svc.UpdateStatus(ctx, staff, order.ID, models.OrderCancelled)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	final, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, final.Status)
	assert.Nil(t, final.CancelledAt)
}

func TestOrderService_CreateOrderLogsPlacement(t *testing.T) {
	_, store := newOrderService(t)
	log, hook := test.NewNullLogger()
	engine := pricing.NewEngine(store, pricing.DefaultOptions(), log)
	svc := NewOrderService(engine, store, telemetry.NewAuditLogger(store, log), telemetry.NewTracker(store, log), log)

	order, err := svc.CreateOrder(context.Background(), alice, orderFor(1))
	require.NoError(t, err)

	require.Len(t, store.Events(), 1)
	assert.Equal(t, models.EventOrderPlaced, store.Events()[0].Type)
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, entry.Level, entry.Message)
	}
	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "order placed", last.Message)
	assert.Equal(t, order.ID, last.Data["order_id"])
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(models.OrderPending, models.OrderCancelled))
	assert.True(t, canTransition(models.OrderPaid, models.OrderCancelled))
	assert.False(t, canTransition(models.OrderShipped, models.OrderCancelled))
	assert.False(t, canTransition(models.OrderCancelled, models.OrderPaid))
	assert.False(t, canTransition(models.OrderDelivered, models.OrderDelivered))
}
