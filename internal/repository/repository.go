package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-api/internal/models"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicate            = errors.New("duplicate record")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	// ErrStockConflict is returned when a conditional inventory decrement
	// would drive the counter below zero.
	ErrStockConflict = errors.New("inventory changed concurrently")
	// ErrUsageLimitReached is returned when a conditional coupon usage
	// increment would exceed the usage limit.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrStatusChanged is returned when an order is no longer in the status
	// a transition was checked against.
	ErrStatusChanged = errors.New("order status changed concurrently")
	// ErrReferenced is returned when a delete is blocked by rows that still
	// point at the record.
	ErrReferenced = errors.New("record is still referenced")
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	TypeID   string
	Status   models.ProductStatus
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Limit    int
	Offset   int
}

// CouponFilter narrows coupon listings.
type CouponFilter struct {
	Active *bool
	Search string
	Limit  int
	Offset int
}

// OrderTx is the set of reads and writes available inside an order commit.
// Reads lock the rows they return until the transaction ends.
type OrderTx interface {
	GetVariantForUpdate(ctx context.Context, id string) (*models.PricedVariant, error)
	GetCouponByCodeForUpdate(ctx context.Context, code string) (*models.Coupon, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItem(ctx context.Context, item *models.OrderItem) error
	DecrementInventory(ctx context.Context, variantID string, qty int) error
	IncrementCouponUsage(ctx context.Context, couponID string) error
}

// Store is the full storage collaborator.
type Store interface {
	ProductTypeStore
	ProductStore
	CouponStore
	OrderStore
	AuditStore
	EventStore
	Close() error
}

// ProductTypeStore persists product types.
type ProductTypeStore interface {
	CreateProductType(ctx context.Context, pt *models.ProductType) error
	UpdateProductType(ctx context.Context, pt *models.ProductType) error
	DeleteProductType(ctx context.Context, id string) error
	GetProductType(ctx context.Context, id string) (*models.ProductType, error)
	GetProductTypeBySlug(ctx context.Context, slug string) (*models.ProductType, error)
	ListProductTypes(ctx context.Context) ([]models.ProductType, error)
	CountProductsByType(ctx context.Context, typeID string) (int, error)
}

// ProductStore persists products and their variants.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductBySlug(ctx context.Context, typeID, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	CountOrderItemsByProduct(ctx context.Context, productID string) (int, error)

	CreateVariant(ctx context.Context, v *models.Variant) error
	UpdateVariant(ctx context.Context, v *models.Variant) error
	GetVariant(ctx context.Context, id string) (*models.PricedVariant, error)
	ListVariants(ctx context.Context, productID string) ([]models.Variant, error)
}

// CouponStore persists coupons.
type CouponStore interface {
	CreateCoupon(ctx context.Context, c *models.Coupon) error
	UpdateCoupon(ctx context.Context, c *models.Coupon) error
	DeleteCoupon(ctx context.Context, id string) error
	GetCoupon(ctx context.Context, id string) (*models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListCoupons(ctx context.Context, filter CouponFilter) ([]models.Coupon, error)
	CountOrdersByCoupon(ctx context.Context, couponID string) (int, error)
}

// OrderStore persists orders. WithinTx runs fn in one atomic scope: if fn
// returns an error every write made through tx is undone.
type OrderStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (*models.Order, error)
}

// AuditStore persists audit log entries.
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
	ListAuditEntries(ctx context.Context, entity, entityID string, limit int) ([]models.AuditEntry, error)
}

// EventStore persists analytics events.
type EventStore interface {
	InsertEvent(ctx context.Context, e *models.Event) error
}
