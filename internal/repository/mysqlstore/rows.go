package mysqlstore

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/schema"
)

type productTypeRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Slug         string    `db:"slug"`
	SchemaJSON   []byte    `db:"schema_json"`
	SortOrder    int       `db:"sort_order"`
	ProductCount int       `db:"product_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func newProductTypeRow(pt *models.ProductType) (productTypeRow, error) {
	raw, err := json.Marshal(pt.Schema)
	if err != nil {
		return productTypeRow{}, errors.Wrap(err, "encode schema")
	}
	return productTypeRow{
		ID:         pt.ID,
		Name:       pt.Name,
		Slug:       pt.Slug,
		SchemaJSON: raw,
		SortOrder:  pt.SortOrder,
		CreatedAt:  pt.CreatedAt,
		UpdatedAt:  pt.UpdatedAt,
	}, nil
}

func (r productTypeRow) model() (*models.ProductType, error) {
	var s schema.Schema
	if err := json.Unmarshal(r.SchemaJSON, &s); err != nil {
		return nil, errors.Wrapf(err, "decode schema of product type %s", r.ID)
	}
	return &models.ProductType{
		ID:           r.ID,
		Name:         r.Name,
		Slug:         r.Slug,
		Schema:       s,
		SortOrder:    r.SortOrder,
		ProductCount: r.ProductCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

type productRow struct {
	ID          string          `db:"id"`
	TypeID      string          `db:"type_id"`
	Title       string          `db:"title"`
	Slug        string          `db:"slug"`
	Description string          `db:"description"`
	BasePrice   decimal.Decimal `db:"base_price"`
	Currency    string          `db:"currency"`
	SKUBase     string          `db:"sku_base"`
	Status      string          `db:"status"`
	Attributes  []byte          `db:"attributes"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func newProductRow(p *models.Product) (productRow, error) {
	attrs := p.Attributes
	if attrs == nil {
		attrs = schema.Attributes{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return productRow{}, errors.Wrap(err, "encode attributes")
	}
	return productRow{
		ID:          p.ID,
		TypeID:      p.TypeID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		BasePrice:   p.BasePrice,
		Currency:    p.Currency,
		SKUBase:     p.SKUBase,
		Status:      string(p.Status),
		Attributes:  raw,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (r productRow) model() (*models.Product, error) {
	var attrs schema.Attributes
	if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
		return nil, errors.Wrapf(err, "decode attributes of product %s", r.ID)
	}
	return &models.Product{
		ID:          r.ID,
		TypeID:      r.TypeID,
		Title:       r.Title,
		Slug:        r.Slug,
		Description: r.Description,
		BasePrice:   r.BasePrice,
		Currency:    r.Currency,
		SKUBase:     r.SKUBase,
		Status:      models.ProductStatus(r.Status),
		Attributes:  attrs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

type variantRow struct {
	ID            string              `db:"id"`
	ProductID     string              `db:"product_id"`
	SKU           string              `db:"sku"`
	Title         string              `db:"title"`
	PriceOverride decimal.NullDecimal `db:"price_override"`
	InventoryQty  int                 `db:"inventory_qty"`
	Active        bool                `db:"active"`
	CreatedAt     time.Time           `db:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at"`
}

func newVariantRow(v *models.Variant) variantRow {
	return variantRow{
		ID:            v.ID,
		ProductID:     v.ProductID,
		SKU:           v.SKU,
		Title:         v.Title,
		PriceOverride: nullDecimal(v.PriceOverride),
		InventoryQty:  v.InventoryQty,
		Active:        v.Active,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

func (r variantRow) model() models.Variant {
	return models.Variant{
		ID:            r.ID,
		ProductID:     r.ProductID,
		SKU:           r.SKU,
		Title:         r.Title,
		PriceOverride: decimalPtr(r.PriceOverride),
		InventoryQty:  r.InventoryQty,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type pricedVariantRow struct {
	variantRow
	ProductTitle     string          `db:"product_title"`
	ProductBasePrice decimal.Decimal `db:"product_base_price"`
	ProductCurrency  string          `db:"product_currency"`
}

func (r pricedVariantRow) model() *models.PricedVariant {
	return &models.PricedVariant{
		Variant:          r.variantRow.model(),
		ProductTitle:     r.ProductTitle,
		ProductBasePrice: r.ProductBasePrice,
		ProductCurrency:  r.ProductCurrency,
	}
}

type couponRow struct {
	ID            string              `db:"id"`
	Code          string              `db:"code"`
	Type          string              `db:"type"`
	Value         decimal.Decimal     `db:"value"`
	MinimumAmount decimal.NullDecimal `db:"minimum_amount"`
	UsageLimit    sql.NullInt64       `db:"usage_limit"`
	UsageCount    int                 `db:"usage_count"`
	Active        bool                `db:"active"`
	ExpiresAt     sql.NullTime        `db:"expires_at"`
	CreatedAt     time.Time           `db:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at"`
}

func newCouponRow(c *models.Coupon) couponRow {
	row := couponRow{
		ID:            c.ID,
		Code:          c.Code,
		Type:          string(c.Type),
		Value:         c.Value,
		MinimumAmount: nullDecimal(c.MinimumAmount),
		UsageCount:    c.UsageCount,
		Active:        c.Active,
		ExpiresAt:     nullTime(c.ExpiresAt),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.UsageLimit != nil {
		row.UsageLimit = sql.NullInt64{Int64: int64(*c.UsageLimit), Valid: true}
	}
	return row
}

func (r couponRow) model() *models.Coupon {
	c := &models.Coupon{
		ID:            r.ID,
		Code:          r.Code,
		Type:          models.CouponType(r.Type),
		Value:         r.Value,
		MinimumAmount: decimalPtr(r.MinimumAmount),
		UsageCount:    r.UsageCount,
		Active:        r.Active,
		ExpiresAt:     timePtr(r.ExpiresAt),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.UsageLimit.Valid {
		limit := int(r.UsageLimit.Int64)
		c.UsageLimit = &limit
	}
	return c
}

type orderRow struct {
	ID              string          `db:"id"`
	OrderNumber     string          `db:"order_number"`
	UserID          sql.NullString  `db:"user_id"`
	Status          string          `db:"status"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	TaxAmount       decimal.Decimal `db:"tax_amount"`
	ShippingAmount  decimal.Decimal `db:"shipping_amount"`
	DiscountAmount  decimal.Decimal `db:"discount_amount"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	Currency        string          `db:"currency"`
	CouponID        sql.NullString  `db:"coupon_id"`
	CouponCode      string          `db:"coupon_code"`
	ShippingAddress string          `db:"shipping_address"`
	BillingAddress  string          `db:"billing_address"`
	Notes           string          `db:"notes"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
	PaidAt          sql.NullTime    `db:"paid_at"`
	ShippedAt       sql.NullTime    `db:"shipped_at"`
	DeliveredAt     sql.NullTime    `db:"delivered_at"`
	CancelledAt     sql.NullTime    `db:"cancelled_at"`
}

func newOrderRow(o *models.Order) orderRow {
	return orderRow{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          nullString(o.UserID),
		Status:          string(o.Status),
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		ShippingAmount:  o.ShippingAmount,
		DiscountAmount:  o.DiscountAmount,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		CouponID:        nullString(o.CouponID),
		CouponCode:      o.CouponCode,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		PaidAt:          nullTime(o.PaidAt),
		ShippedAt:       nullTime(o.ShippedAt),
		DeliveredAt:     nullTime(o.DeliveredAt),
		CancelledAt:     nullTime(o.CancelledAt),
	}
}

func (r orderRow) model() *models.Order {
	return &models.Order{
		ID:              r.ID,
		OrderNumber:     r.OrderNumber,
		UserID:          r.UserID.String,
		Status:          models.OrderStatus(r.Status),
		Subtotal:        r.Subtotal,
		TaxAmount:       r.TaxAmount,
		ShippingAmount:  r.ShippingAmount,
		DiscountAmount:  r.DiscountAmount,
		TotalAmount:     r.TotalAmount,
		Currency:        r.Currency,
		CouponID:        r.CouponID.String,
		CouponCode:      r.CouponCode,
		ShippingAddress: r.ShippingAddress,
		BillingAddress:  r.BillingAddress,
		Notes:           r.Notes,
		Items:           []models.OrderItem{},
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		PaidAt:          timePtr(r.PaidAt),
		ShippedAt:       timePtr(r.ShippedAt),
		DeliveredAt:     timePtr(r.DeliveredAt),
		CancelledAt:     timePtr(r.CancelledAt),
	}
}

type orderItemRow struct {
	ID         string          `db:"id"`
	OrderID    string          `db:"order_id"`
	VariantID  string          `db:"variant_id"`
	SKU        string          `db:"sku"`
	Quantity   int             `db:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price"`
}

func (r orderItemRow) model() models.OrderItem {
	return models.OrderItem(r)
}

type auditRow struct {
	ID          string    `db:"id"`
	ActorUserID string    `db:"actor_user_id"`
	Action      string    `db:"action"`
	Entity      string    `db:"entity"`
	EntityID    string    `db:"entity_id"`
	OldValues   []byte    `db:"old_values"`
	NewValues   []byte    `db:"new_values"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
	CreatedAt   time.Time `db:"created_at"`
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
