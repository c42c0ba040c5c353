package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/schema"
)

// InMemoryStore implements Store with in-memory maps. Order commits are
// serialized behind a single write lock, which gives the same all-or-nothing
// behaviour a serializable database transaction would.
type InMemoryStore struct {
	mu sync.RWMutex

	productTypes map[string]models.ProductType
	products     map[string]models.Product
	variants     map[string]models.Variant
	coupons      map[string]models.Coupon
	couponCodes  map[string]string
	orders       map[string]models.Order
	orderNumbers map[string]string
	audit        []models.AuditEntry
	events       []models.Event
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		productTypes: make(map[string]models.ProductType),
		products:     make(map[string]models.Product),
		variants:     make(map[string]models.Variant),
		coupons:      make(map[string]models.Coupon),
		couponCodes:  make(map[string]string),
		orders:       make(map[string]models.Order),
		orderNumbers: make(map[string]string),
	}
}

var _ Store = (*InMemoryStore)(nil)

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }

// Product types

func (s *InMemoryStore) CreateProductType(ctx context.Context, pt *models.ProductType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productTypes[pt.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range s.productTypes {
		if existing.Slug == pt.Slug {
			return ErrDuplicate
		}
	}
	s.productTypes[pt.ID] = cloneProductType(*pt)
	return nil
}

func (s *InMemoryStore) UpdateProductType(ctx context.Context, pt *models.ProductType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productTypes[pt.ID]; !exists {
		return ErrNotFound
	}
	for id, existing := range s.productTypes {
		if id != pt.ID && existing.Slug == pt.Slug {
			return ErrDuplicate
		}
	}
	s.productTypes[pt.ID] = cloneProductType(*pt)
	return nil
}

func (s *InMemoryStore) DeleteProductType(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productTypes[id]; !exists {
		return ErrNotFound
	}
	delete(s.productTypes, id)
	return nil
}

func (s *InMemoryStore) GetProductType(ctx context.Context, id string) (*models.ProductType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pt, exists := s.productTypes[id]
	if !exists {
		return nil, ErrNotFound
	}
	return s.withProductCount(pt), nil
}

func (s *InMemoryStore) GetProductTypeBySlug(ctx context.Context, slug string) (*models.ProductType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pt := range s.productTypes {
		if pt.Slug == slug {
			return s.withProductCount(pt), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) ListProductTypes(ctx context.Context) ([]models.ProductType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProductType, 0, len(s.productTypes))
	for _, pt := range s.productTypes {
		out = append(out, *s.withProductCount(pt))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemoryStore) CountProductsByType(ctx context.Context, typeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countProducts(typeID), nil
}

func (s *InMemoryStore) withProductCount(pt models.ProductType) *models.ProductType {
	out := cloneProductType(pt)
	out.ProductCount = s.countProducts(pt.ID)
	return &out
}

func (s *InMemoryStore) countProducts(typeID string) int {
	n := 0
	for _, p := range s.products {
		if p.TypeID == typeID {
			n++
		}
	}
	return n
}

// Products

func (s *InMemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range s.products {
		if existing.TypeID == p.TypeID && existing.Slug == p.Slug {
			return ErrDuplicate
		}
	}
	s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (s *InMemoryStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; !exists {
		return ErrNotFound
	}
	for id, existing := range s.products {
		if id != p.ID && existing.TypeID == p.TypeID && existing.Slug == p.Slug {
			return ErrDuplicate
		}
	}
	s.products[p.ID] = cloneProduct(*p)
	return nil
}

// DeleteProduct removes a product together with its variants.
func (s *InMemoryStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ErrNotFound
	}
	for vid, v := range s.variants {
		if v.ProductID == id {
			delete(s.variants, vid)
		}
	}
	delete(s.products, id)
	return nil
}

func (s *InMemoryStore) CountOrderItemsByProduct(ctx context.Context, productID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, o := range s.orders {
		for _, it := range o.Items {
			if v, ok := s.variants[it.VariantID]; ok && v.ProductID == productID {
				n++
			}
		}
	}
	return n, nil
}

func (s *InMemoryStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

func (s *InMemoryStore) GetProductBySlug(ctx context.Context, typeID, slug string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.TypeID == typeID && p.Slug == slug {
			out := cloneProduct(p)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.TypeID != "" && p.TypeID != filter.TypeID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.MinPrice != nil && p.BasePrice.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.BasePrice.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) &&
			!strings.Contains(strings.ToLower(p.SKUBase), search) {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *InMemoryStore) CreateVariant(ctx context.Context, v *models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[v.ProductID]; !exists {
		return ErrNotFound
	}
	if _, exists := s.variants[v.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range s.variants {
		if existing.SKU == v.SKU {
			return ErrDuplicate
		}
	}
	s.variants[v.ID] = *v
	return nil
}

func (s *InMemoryStore) UpdateVariant(ctx context.Context, v *models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.variants[v.ID]; !exists {
		return ErrNotFound
	}
	for id, existing := range s.variants {
		if id != v.ID && existing.SKU == v.SKU {
			return ErrDuplicate
		}
	}
	s.variants[v.ID] = *v
	return nil
}

func (s *InMemoryStore) GetVariant(ctx context.Context, id string) (*models.PricedVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pricedVariant(id)
}

func (s *InMemoryStore) ListVariants(ctx context.Context, productID string) ([]models.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Variant, 0)
	for _, v := range s.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (s *InMemoryStore) pricedVariant(id string) (*models.PricedVariant, error) {
	v, exists := s.variants[id]
	if !exists {
		return nil, ErrNotFound
	}
	p, exists := s.products[v.ProductID]
	if !exists {
		return nil, ErrNotFound
	}
	return &models.PricedVariant{
		Variant:          v,
		ProductTitle:     p.Title,
		ProductBasePrice: p.BasePrice,
		ProductCurrency:  p.Currency,
	}, nil
}

// Coupons

func (s *InMemoryStore) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.coupons[c.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := s.couponCodes[c.Code]; exists {
		return ErrDuplicate
	}
	s.coupons[c.ID] = *c
	s.couponCodes[c.Code] = c.ID
	return nil
}

func (s *InMemoryStore) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.coupons[c.ID]
	if !exists {
		return ErrNotFound
	}
	if owner, taken := s.couponCodes[c.Code]; taken && owner != c.ID {
		return ErrDuplicate
	}
	updated := *c
	updated.UsageCount = old.UsageCount
	delete(s.couponCodes, old.Code)
	s.coupons[c.ID] = updated
	s.couponCodes[c.Code] = c.ID
	return nil
}

func (s *InMemoryStore) DeleteCoupon(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.coupons[id]
	if !exists {
		return ErrNotFound
	}
	delete(s.couponCodes, c.Code)
	delete(s.coupons, id)
	return nil
}

func (s *InMemoryStore) GetCoupon(ctx context.Context, id string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.coupons[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.couponByCode(code)
}

func (s *InMemoryStore) couponByCode(code string) (*models.Coupon, error) {
	id, exists := s.couponCodes[strings.ToUpper(code)]
	if !exists {
		return nil, ErrNotFound
	}
	c := s.coupons[id]
	return &c, nil
}

func (s *InMemoryStore) ListCoupons(ctx context.Context, filter CouponFilter) ([]models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToUpper(filter.Search)
	out := make([]models.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		if search != "" && !strings.Contains(c.Code, search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *InMemoryStore) CountOrdersByCoupon(ctx context.Context, couponID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, o := range s.orders {
		if o.CouponID == couponID {
			n++
		}
	}
	return n, nil
}

// Orders

func (s *InMemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{s: s}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *InMemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *InMemoryStore) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.orderNumbers[number]
	if !exists {
		return nil, ErrNotFound
	}
	out := cloneOrder(s.orders[id])
	return &out, nil
}

func (s *InMemoryStore) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderNumber < out[j].OrderNumber
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *InMemoryStore) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, exists := s.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	if o.Status != from {
		return nil, ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = at
	stamp := at
	switch to {
	case models.OrderPaid:
		o.PaidAt = &stamp
	case models.OrderShipped:
		o.ShippedAt = &stamp
	case models.OrderDelivered:
		o.DeliveredAt = &stamp
	case models.OrderCancelled:
		o.CancelledAt = &stamp
	}
	s.orders[id] = o

	out := cloneOrder(o)
	return &out, nil
}

// Telemetry

func (s *InMemoryStore) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *e)
	return nil
}

func (s *InMemoryStore) ListAuditEntries(ctx context.Context, entity, entityID string, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AuditEntry, 0)
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if entity != "" && e.Entity != entity {
			continue
		}
		if entityID != "" && e.EntityID != entityID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) InsertEvent(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

// Events returns a copy of every tracked event, oldest first.
func (s *InMemoryStore) Events() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Event(nil), s.events...)
}

// memoryTx applies writes directly to the store maps while the store write
// lock is held, recording an undo step for each one.
type memoryTx struct {
	s    *InMemoryStore
	undo []func()
}

func (tx *memoryTx) GetVariantForUpdate(ctx context.Context, id string) (*models.PricedVariant, error) {
	return tx.s.pricedVariant(id)
}

func (tx *memoryTx) GetCouponByCodeForUpdate(ctx context.Context, code string) (*models.Coupon, error) {
	return tx.s.couponByCode(code)
}

func (tx *memoryTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if _, taken := tx.s.orderNumbers[order.OrderNumber]; taken {
		return ErrDuplicateOrderNumber
	}
	if _, exists := tx.s.orders[order.ID]; exists {
		return ErrDuplicate
	}

	header := cloneOrder(*order)
	header.Items = nil
	tx.s.orders[order.ID] = header
	tx.s.orderNumbers[order.OrderNumber] = order.ID

	tx.undo = append(tx.undo, func() {
		delete(tx.s.orders, order.ID)
		delete(tx.s.orderNumbers, order.OrderNumber)
	})
	return nil
}

func (tx *memoryTx) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	o, exists := tx.s.orders[item.OrderID]
	if !exists {
		return ErrNotFound
	}
	o.Items = append(o.Items, *item)
	tx.s.orders[item.OrderID] = o

	tx.undo = append(tx.undo, func() {
		o := tx.s.orders[item.OrderID]
		o.Items = o.Items[:len(o.Items)-1]
		tx.s.orders[item.OrderID] = o
	})
	return nil
}

func (tx *memoryTx) DecrementInventory(ctx context.Context, variantID string, qty int) error {
	v, exists := tx.s.variants[variantID]
	if !exists {
		return ErrNotFound
	}
	if v.InventoryQty < qty {
		return ErrStockConflict
	}
	v.InventoryQty -= qty
	tx.s.variants[variantID] = v

	tx.undo = append(tx.undo, func() {
		v := tx.s.variants[variantID]
		v.InventoryQty += qty
		tx.s.variants[variantID] = v
	})
	return nil
}

func (tx *memoryTx) IncrementCouponUsage(ctx context.Context, couponID string) error {
	c, exists := tx.s.coupons[couponID]
	if !exists {
		return ErrNotFound
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return ErrUsageLimitReached
	}
	c.UsageCount++
	tx.s.coupons[couponID] = c

	tx.undo = append(tx.undo, func() {
		c := tx.s.coupons[couponID]
		c.UsageCount--
		tx.s.coupons[couponID] = c
	})
	return nil
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func cloneProductType(pt models.ProductType) models.ProductType {
	fields := make([]schema.FieldDefinition, len(pt.Schema.Fields))
	for i, f := range pt.Schema.Fields {
		f.Options = append([]string(nil), f.Options...)
		fields[i] = f
	}
	pt.Schema.Fields = fields
	return pt
}

func cloneProduct(p models.Product) models.Product {
	if p.Attributes != nil {
		attrs := make(schema.Attributes, len(p.Attributes))
		for k, v := range p.Attributes {
			attrs[k] = v
		}
		p.Attributes = attrs
	}
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
