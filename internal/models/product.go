package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-api/internal/schema"
)

// ProductType groups products that share a custom attribute schema.
type ProductType struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Schema       schema.Schema `json:"schema"`
	SortOrder    int           `json:"sort_order"`
	ProductCount int           `json:"product_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ProductStatus is the publication state of a product.
type ProductStatus string

const (
	ProductDraft     ProductStatus = "DRAFT"
	ProductPublished ProductStatus = "PUBLISHED"
	ProductArchived  ProductStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductPublished, ProductArchived:
		return true
	}
	return false
}

// Product is a catalog entry of a given type.
type Product struct {
	ID          string            `json:"id"`
	TypeID      string            `json:"type_id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description,omitempty"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	Currency    string            `json:"currency"`
	SKUBase     string            `json:"sku_base,omitempty"`
	Status      ProductStatus     `json:"status"`
	Attributes  schema.Attributes `json:"attributes"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Variant is a purchasable SKU under a product.
type Variant struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	SKU           string           `json:"sku"`
	Title         string           `json:"title"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
	InventoryQty  int              `json:"inventory_qty"`
	Active        bool             `json:"active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// PricedVariant is a variant joined with the pricing fields of its product.
type PricedVariant struct {
	Variant
	ProductTitle     string          `json:"product_title"`
	ProductBasePrice decimal.Decimal `json:"product_base_price"`
	ProductCurrency  string          `json:"product_currency"`
}

// UnitPrice returns the price override when set, else the product base price.
func (v PricedVariant) UnitPrice() decimal.Decimal {
	if v.PriceOverride != nil {
		return *v.PriceOverride
	}
	return v.ProductBasePrice
}
