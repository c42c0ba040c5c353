// Package seed loads a YAML catalog fixture through the service layer, so
// seeded data passes the same schema and coupon validation as API writes.
package seed

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/schema"
	"github.com/shopforge/commerce-api/internal/service"
)

// File is the top-level seed document.
type File struct {
	ProductTypes []ProductType `yaml:"product_types"`
	Coupons      []Coupon      `yaml:"coupons"`
}

type ProductType struct {
	Name      string        `yaml:"name"`
	Slug      string        `yaml:"slug"`
	SortOrder int           `yaml:"sort_order"`
	Schema    schema.Schema `yaml:"schema"`
	Products  []Product     `yaml:"products"`
}

type Product struct {
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	BasePrice   decimal.Decimal        `yaml:"base_price"`
	Currency    string                 `yaml:"currency"`
	SKUBase     string                 `yaml:"sku_base"`
	Status      models.ProductStatus   `yaml:"status"`
	Attributes  map[string]interface{} `yaml:"attributes"`
	Variants    []Variant              `yaml:"variants"`
}

type Variant struct {
	SKU           string           `yaml:"sku"`
	Title         string           `yaml:"title"`
	PriceOverride *decimal.Decimal `yaml:"price_override"`
	InventoryQty  int              `yaml:"inventory_qty"`
	Active        *bool            `yaml:"active"`
}

type Coupon struct {
	Code          string            `yaml:"code"`
	Type          models.CouponType `yaml:"type"`
	Value         decimal.Decimal   `yaml:"value"`
	MinimumAmount *decimal.Decimal  `yaml:"minimum_amount"`
	UsageLimit    *int              `yaml:"usage_limit"`
	Active        *bool             `yaml:"active"`
}

// Summary counts what a load created and what already existed.
type Summary struct {
	ProductTypes int
	Products     int
	Variants     int
	Coupons      int
	Skipped      int
}

// Loader applies seed files.
type Loader struct {
	catalog *service.CatalogService
	coupons *service.CouponService
	log     logrus.FieldLogger
}

func NewLoader(catalog *service.CatalogService, coupons *service.CouponService, log logrus.FieldLogger) *Loader {
	return &Loader{catalog: catalog, coupons: coupons, log: log}
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode seed file")
	}
	return &f, nil
}

// LoadFile parses path and applies it.
func (l *Loader) LoadFile(ctx context.Context, path string) (Summary, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Summary{}, errors.Wrapf(err, "open seed file %s", path)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return Summary{}, err
	}
	return l.Apply(ctx, f)
}

// Apply creates everything in f. Entries whose unique key already exists are
// skipped, so a file can be applied to a store more than once. Product types
// need an explicit slug for that. Products of a skipped product type are
// still attached to the existing type. Variants of a skipped product are not.
func (l *Loader) Apply(ctx context.Context, f *File) (Summary, error) {
	var sum Summary
	actor := service.Actor{Staff: true, UserAgent: "seed"}

	for _, t := range f.ProductTypes {
		pt, err := l.catalog.CreateProductType(ctx, actor, service.ProductTypeInput{
			Name:      t.Name,
			Slug:      t.Slug,
			Schema:    t.Schema,
			SortOrder: t.SortOrder,
		})
		switch {
		case err == nil:
			sum.ProductTypes++
		case apperror.KindOf(err) == apperror.KindConflict && t.Slug != "":
			sum.Skipped++
			if pt, err = l.catalog.GetProductTypeBySlug(ctx, t.Slug); err != nil {
				return sum, errors.Wrapf(err, "product type %s", t.Slug)
			}
		default:
			return sum, errors.Wrapf(err, "product type %s", t.Name)
		}

		for _, p := range t.Products {
			if err := l.applyProduct(ctx, actor, pt.ID, p, &sum); err != nil {
				return sum, errors.Wrapf(err, "product %s", p.Title)
			}
		}
	}

	for _, c := range f.Coupons {
		_, err := l.coupons.Create(ctx, actor, service.CouponInput{
			Code:          c.Code,
			Type:          c.Type,
			Value:         c.Value,
			MinimumAmount: c.MinimumAmount,
			UsageLimit:    c.UsageLimit,
			Active:        c.Active,
		})
		switch {
		case err == nil:
			sum.Coupons++
		case apperror.KindOf(err) == apperror.KindConflict:
			sum.Skipped++
		default:
			return sum, errors.Wrapf(err, "coupon %s", c.Code)
		}
	}

	l.log.WithFields(logrus.Fields{
		"product_types": sum.ProductTypes,
		"products":      sum.Products,
		"variants":      sum.Variants,
		"coupons":       sum.Coupons,
		"skipped":       sum.Skipped,
	}).Info("seed applied")
	return sum, nil
}

func (l *Loader) applyProduct(ctx context.Context, actor service.Actor, typeID string, p Product, sum *Summary) error {
	created, err := l.catalog.CreateProduct(ctx, actor, service.ProductInput{
		TypeID:      typeID,
		Title:       p.Title,
		Description: p.Description,
		BasePrice:   p.BasePrice,
		Currency:    p.Currency,
		SKUBase:     p.SKUBase,
		Status:      p.Status,
		Attributes:  p.Attributes,
	})
	if apperror.KindOf(err) == apperror.KindConflict {
		sum.Skipped++
		return nil
	}
	if err != nil {
		return err
	}
	sum.Products++

	for _, v := range p.Variants {
		_, err := l.catalog.CreateVariant(ctx, actor, created.ID, service.VariantInput{
			SKU:           v.SKU,
			Title:         v.Title,
			PriceOverride: v.PriceOverride,
			InventoryQty:  v.InventoryQty,
			Active:        v.Active,
		})
		switch {
		case err == nil:
			sum.Variants++
		case apperror.KindOf(err) == apperror.KindConflict:
			sum.Skipped++
		default:
			return errors.Wrapf(err, "variant %s", v.SKU)
		}
	}
	return nil
}
