package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/schema"
	"github.com/shopforge/commerce-api/internal/telemetry"
)

// CatalogStore is the storage the catalog service needs.
type CatalogStore interface {
	repository.ProductTypeStore
	repository.ProductStore
}

// ProductTypeInput creates a product type. Schema is decoded JSON or a
// schema.Schema. An empty Slug is derived from Name.
type ProductTypeInput struct {
	Name      string
	Slug      string
	Schema    interface{}
	SortOrder int
}

// ProductTypePatch updates a product type. Nil fields are left unchanged.
type ProductTypePatch struct {
	Name      *string
	Slug      *string
	Schema    interface{}
	SortOrder *int
}

// ProductInput creates a product.
type ProductInput struct {
	TypeID      string
	Title       string
	Description string
	BasePrice   decimal.Decimal
	Currency    string
	SKUBase     string
	Status      models.ProductStatus
	Attributes  map[string]interface{}
}

// ProductPatch updates a product. Nil fields are left unchanged; a nil
// Attributes map re-validates the stored attributes.
type ProductPatch struct {
	TypeID      *string
	Title       *string
	Description *string
	BasePrice   *decimal.Decimal
	SKUBase     *string
	Status      *models.ProductStatus
	Attributes  map[string]interface{}
}

// VariantInput creates a variant. Active defaults to true.
type VariantInput struct {
	SKU           string
	Title         string
	PriceOverride *decimal.Decimal
	InventoryQty  int
	Active        *bool
}

// VariantPatch updates a variant. Nil fields are left unchanged.
type VariantPatch struct {
	SKU           *string
	Title         *string
	PriceOverride *decimal.Decimal
	InventoryQty  *int
	Active        *bool
}

// CatalogService manages product types, products and variants.
type CatalogService struct {
	store CatalogStore
	audit *telemetry.AuditLogger
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, audit *telemetry.AuditLogger, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{
		store: store,
		audit: audit,
		log:   log,
		now:   time.Now,
	}
}

// CreateProductType validates the schema and stores a new product type.
func (s *CatalogService) CreateProductType(ctx context.Context, actor Actor, in ProductTypeInput) (*models.ProductType, error) {
	if in.Name == "" {
		return nil, invalid("name", "name is required")
	}
	slug := slugify(in.Slug)
	if slug == "" {
		slug = slugify(in.Name)
	}
	if slug == "" {
		return nil, invalid("slug", "slug must contain letters or digits")
	}
	sch, err := schema.ValidateSchema(in.Schema)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	pt := &models.ProductType{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Slug:      slug,
		Schema:    sch,
		SortOrder: in.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateProductType(ctx, pt); err != nil {
		return nil, storeError(err, entityProductType, slug)
	}

	s.record(ctx, actor, models.AuditCreate, entityProductType, pt.ID, nil, pt)
	return pt, nil
}

// GetProductType returns a product type by id.
func (s *CatalogService) GetProductType(ctx context.Context, id string) (*models.ProductType, error) {
	pt, err := s.store.GetProductType(ctx, id)
	if err != nil {
		return nil, storeError(err, entityProductType, id)
	}
	return pt, nil
}

// GetProductTypeBySlug returns a product type by slug.
func (s *CatalogService) GetProductTypeBySlug(ctx context.Context, slug string) (*models.ProductType, error) {
	pt, err := s.store.GetProductTypeBySlug(ctx, slug)
	if err != nil {
		return nil, storeError(err, entityProductType, slug)
	}
	return pt, nil
}

// ListProductTypes returns every product type.
func (s *CatalogService) ListProductTypes(ctx context.Context) ([]models.ProductType, error) {
	return s.store.ListProductTypes(ctx)
}

// UpdateProductType applies patch. A new schema is validated before it is
// stored; products already stored are not re-validated.
func (s *CatalogService) UpdateProductType(ctx context.Context, actor Actor, id string, patch ProductTypePatch) (*models.ProductType, error) {
	old, err := s.GetProductType(ctx, id)
	if err != nil {
		return nil, err
	}

	pt := *old
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, invalid("name", "name is required")
		}
		pt.Name = *patch.Name
	}
	if patch.Slug != nil {
		pt.Slug = slugify(*patch.Slug)
		if pt.Slug == "" {
			return nil, invalid("slug", "slug must contain letters or digits")
		}
	}
	if patch.Schema != nil {
		sch, err := schema.ValidateSchema(patch.Schema)
		if err != nil {
			return nil, err
		}
		pt.Schema = sch
	}
	if patch.SortOrder != nil {
		pt.SortOrder = *patch.SortOrder
	}
	pt.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateProductType(ctx, &pt); err != nil {
		return nil, storeError(err, entityProductType, pt.Slug)
	}

	s.record(ctx, actor, models.AuditUpdate, entityProductType, id, old, &pt)
	return &pt, nil
}

// DeleteProductType removes a product type that no product references.
func (s *CatalogService) DeleteProductType(ctx context.Context, actor Actor, id string) error {
	old, err := s.GetProductType(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.store.CountProductsByType(ctx, id)
	if err != nil {
		return storeError(err, entityProductType, id)
	}
	if n > 0 {
		return invalid(id, "cannot delete product type with %d associated products", n)
	}
	if err := s.store.DeleteProductType(ctx, id); err != nil {
		return storeError(err, entityProductType, id)
	}

	s.record(ctx, actor, models.AuditDelete, entityProductType, id, old, nil)
	return nil
}

// CreateProduct validates the attributes against the type schema and stores
// the product under a slug derived from its title.
func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*models.Product, error) {
	pt, err := s.GetProductType(ctx, in.TypeID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Product{
		ID:          uuid.NewString(),
		TypeID:      pt.ID,
		Title:       in.Title,
		Description: in.Description,
		BasePrice:   in.BasePrice,
		Currency:    in.Currency,
		SKUBase:     in.SKUBase,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.Status == "" {
		p.Status = models.ProductDraft
	}
	if err := checkProduct(p); err != nil {
		return nil, err
	}
	if p.Attributes, err = schema.ValidateAttributes(pt.Schema, in.Attributes); err != nil {
		return nil, err
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, storeError(err, entityProduct, p.Slug)
	}

	s.record(ctx, actor, models.AuditCreate, entityProduct, p.ID, nil, p)
	return p, nil
}

// GetProduct returns a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, storeError(err, entityProduct, id)
	}
	return p, nil
}

// GetProductBySlug is the storefront lookup: it resolves the type slug and
// only returns published products.
func (s *CatalogService) GetProductBySlug(ctx context.Context, typeSlug, slug string) (*models.Product, error) {
	pt, err := s.GetProductTypeBySlug(ctx, typeSlug)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProductBySlug(ctx, pt.ID, slug)
	if err != nil {
		return nil, storeError(err, entityProduct, slug)
	}
	if p.Status != models.ProductPublished {
		return nil, notFound(entityProduct, slug)
	}
	return p, nil
}

// ListProducts returns products matching filter, any status.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", "invalid product status %q", filter.Status)
	}
	if err := checkPriceRange(filter); err != nil {
		return nil, err
	}
	return s.store.ListProducts(ctx, filter)
}

// SearchProducts is the storefront listing: published products only.
func (s *CatalogService) SearchProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	filter.Status = models.ProductPublished
	return s.ListProducts(ctx, filter)
}

// UpdateProduct applies patch and re-validates the attributes against the
// (possibly new) type schema.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, id string, patch ProductPatch) (*models.Product, error) {
	old, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	p := *old
	if patch.TypeID != nil {
		p.TypeID = *patch.TypeID
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.BasePrice != nil {
		p.BasePrice = *patch.BasePrice
	}
	if patch.SKUBase != nil {
		p.SKUBase = *patch.SKUBase
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if err := checkProduct(&p); err != nil {
		return nil, err
	}

	pt, err := s.GetProductType(ctx, p.TypeID)
	if err != nil {
		return nil, err
	}
	raw := patch.Attributes
	if raw == nil {
		raw = old.Attributes.Raw()
	}
	if p.Attributes, err = schema.ValidateAttributes(pt.Schema, raw); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateProduct(ctx, &p); err != nil {
		return nil, storeError(err, entityProduct, p.Slug)
	}

	s.record(ctx, actor, models.AuditUpdate, entityProduct, id, old, &p)
	return &p, nil
}

// DeleteProduct removes a product and its variants unless an order line
// references one of them.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	old, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.store.CountOrderItemsByProduct(ctx, id)
	if err != nil {
		return storeError(err, entityProduct, id)
	}
	if n > 0 {
		return invalid(id, "cannot delete product with %d associated order items", n)
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return storeError(err, entityProduct, id)
	}

	s.record(ctx, actor, models.AuditDelete, entityProduct, id, old, nil)
	return nil
}

// CreateVariant adds a purchasable SKU to a product.
func (s *CatalogService) CreateVariant(ctx context.Context, actor Actor, productID string, in VariantInput) (*models.Variant, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	v := &models.Variant{
		ID:            uuid.NewString(),
		ProductID:     productID,
		SKU:           in.SKU,
		Title:         in.Title,
		PriceOverride: in.PriceOverride,
		InventoryQty:  in.InventoryQty,
		Active:        in.Active == nil || *in.Active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := checkVariant(v); err != nil {
		return nil, err
	}
	if err := s.store.CreateVariant(ctx, v); err != nil {
		return nil, storeError(err, entityVariant, v.SKU)
	}

	s.record(ctx, actor, models.AuditCreate, entityVariant, v.ID, nil, v)
	return v, nil
}

// GetVariant returns a variant joined with its product's pricing fields.
func (s *CatalogService) GetVariant(ctx context.Context, id string) (*models.PricedVariant, error) {
	v, err := s.store.GetVariant(ctx, id)
	if err != nil {
		return nil, storeError(err, entityVariant, id)
	}
	return v, nil
}

// ListVariants returns the variants of a product.
func (s *CatalogService) ListVariants(ctx context.Context, productID string) ([]models.Variant, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.ListVariants(ctx, productID)
}

// UpdateVariant applies patch to a variant.
func (s *CatalogService) UpdateVariant(ctx context.Context, actor Actor, id string, patch VariantPatch) (*models.Variant, error) {
	pv, err := s.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}

	old := pv.Variant
	v := old
	if patch.SKU != nil {
		v.SKU = *patch.SKU
	}
	if patch.Title != nil {
		v.Title = *patch.Title
	}
	if patch.PriceOverride != nil {
		v.PriceOverride = patch.PriceOverride
	}
	if patch.InventoryQty != nil {
		v.InventoryQty = *patch.InventoryQty
	}
	if patch.Active != nil {
		v.Active = *patch.Active
	}
	if err := checkVariant(&v); err != nil {
		return nil, err
	}
	v.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateVariant(ctx, &v); err != nil {
		return nil, storeError(err, entityVariant, v.SKU)
	}

	s.record(ctx, actor, models.AuditUpdate, entityVariant, id, old, &v)
	return &v, nil
}

func (s *CatalogService) record(ctx context.Context, actor Actor, action models.AuditAction, entity, id string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, telemetry.Entry{
		ActorUserID: actor.UserID,
		Action:      action,
		Entity:      entity,
		EntityID:    id,
		OldValues:   oldValues,
		NewValues:   newValues,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
	})
}

// checkProduct validates the scalar product fields and refreshes the slug.
func checkProduct(p *models.Product) error {
	if p.Title == "" {
		return invalid("title", "title is required")
	}
	p.Slug = slugify(p.Title)
	if p.Slug == "" {
		return invalid("title", "title must contain letters or digits")
	}
	if p.BasePrice.IsNegative() {
		return invalid("base_price", "base price cannot be negative")
	}
	if !validCurrency(p.Currency) {
		return invalid("currency", "currency must be a 3-letter code")
	}
	if !p.Status.Valid() {
		return invalid("status", "invalid product status %q", p.Status)
	}
	return nil
}

func checkVariant(v *models.Variant) error {
	if v.SKU == "" {
		return invalid("sku", "sku is required")
	}
	if v.PriceOverride != nil && v.PriceOverride.IsNegative() {
		return invalid("price_override", "price override cannot be negative")
	}
	if v.InventoryQty < 0 {
		return invalid("inventory_qty", "inventory cannot be negative")
	}
	return nil
}

func checkPriceRange(f repository.ProductFilter) error {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return invalid("min_price", "min_price cannot exceed max_price")
	}
	return nil
}
