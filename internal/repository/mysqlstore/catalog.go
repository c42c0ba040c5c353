package mysqlstore

import (
	"context"
	"strings"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
)

const productTypeColumns = `pt.id, pt.name, pt.slug, pt.schema_json, pt.sort_order, pt.created_at, pt.updated_at,
	(SELECT COUNT(*) FROM products p WHERE p.type_id = pt.id) AS product_count`

const productColumns = `id, type_id, title, slug, description, base_price, currency, sku_base, status, attributes, created_at, updated_at`

const variantColumns = `v.id, v.product_id, v.sku, v.title, v.price_override, v.inventory_qty, v.active, v.created_at, v.updated_at`

const pricedVariantQuery = `SELECT ` + variantColumns + `,
	p.title AS product_title, p.base_price AS product_base_price, p.currency AS product_currency
	FROM variants v JOIN products p ON p.id = v.product_id
	WHERE v.id = ?`

func (s *Store) CreateProductType(ctx context.Context, pt *models.ProductType) error {
	row, err := newProductTypeRow(pt)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `INSERT INTO product_types
		(id, name, slug, schema_json, sort_order, created_at, updated_at)
		VALUES (:id, :name, :slug, :schema_json, :sort_order, :created_at, :updated_at)`, row)
	return translate(err, "insert product type")
}

func (s *Store) UpdateProductType(ctx context.Context, pt *models.ProductType) error {
	row, err := newProductTypeRow(pt)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx, `UPDATE product_types SET
		name = :name, slug = :slug, schema_json = :schema_json, sort_order = :sort_order, updated_at = :updated_at
		WHERE id = :id`, row)
	return expectRow(res, err, "update product type")
}

func (s *Store) DeleteProductType(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM product_types WHERE id = ?`, id)
	return expectRow(res, err, "delete product type")
}

func (s *Store) GetProductType(ctx context.Context, id string) (*models.ProductType, error) {
	var row productTypeRow
	err := s.db.GetContext(ctx, &row, `SELECT `+productTypeColumns+` FROM product_types pt WHERE pt.id = ?`, id)
	if err != nil {
		return nil, translate(err, "get product type")
	}
	return row.model()
}

func (s *Store) GetProductTypeBySlug(ctx context.Context, slug string) (*models.ProductType, error) {
	var row productTypeRow
	err := s.db.GetContext(ctx, &row, `SELECT `+productTypeColumns+` FROM product_types pt WHERE pt.slug = ?`, slug)
	if err != nil {
		return nil, translate(err, "get product type by slug")
	}
	return row.model()
}

func (s *Store) ListProductTypes(ctx context.Context) ([]models.ProductType, error) {
	var rows []productTypeRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+productTypeColumns+` FROM product_types pt ORDER BY pt.sort_order, pt.name`)
	if err != nil {
		return nil, translate(err, "list product types")
	}
	out := make([]models.ProductType, 0, len(rows))
	for _, r := range rows {
		pt, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, *pt)
	}
	return out, nil
}

func (s *Store) CountProductsByType(ctx context.Context, typeID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE type_id = ?`, typeID)
	return n, translate(err, "count products")
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	row, err := newProductRow(p)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES (:id, :type_id, :title, :slug, :description, :base_price, :currency, :sku_base, :status, :attributes, :created_at, :updated_at)`, row)
	return translate(err, "insert product")
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	row, err := newProductRow(p)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx, `UPDATE products SET
		title = :title, slug = :slug, description = :description, base_price = :base_price, currency = :currency,
		sku_base = :sku_base, status = :status, attributes = :attributes, updated_at = :updated_at
		WHERE id = :id`, row)
	return expectRow(res, err, "update product")
}

// DeleteProduct removes a product; its variants go with it by cascade.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return expectRow(res, err, "delete product")
}

func (s *Store) CountOrderItemsByProduct(ctx context.Context, productID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM order_items oi
		JOIN variants v ON v.id = oi.variant_id WHERE v.product_id = ?`, productID)
	return n, translate(err, "count product order items")
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var row productRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = ?`, id); err != nil {
		return nil, translate(err, "get product")
	}
	return row.model()
}

func (s *Store) GetProductBySlug(ctx context.Context, typeID, slug string) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE type_id = ? AND slug = ?`, typeID, slug)
	if err != nil {
		return nil, translate(err, "get product by slug")
	}
	return row.model()
}

func (s *Store) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.TypeID != "" {
		where = append(where, "type_id = ?")
		args = append(args, filter.TypeID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.MinPrice != nil {
		where = append(where, "base_price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "base_price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		where = append(where, "(title LIKE ? OR description LIKE ? OR sku_base LIKE ?)")
		args = append(args, like, like, like)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	query, args = withPage(query, args, filter.Limit, filter.Offset)

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list products")
	}
	out := make([]models.Product, 0, len(rows))
	for _, r := range rows {
		p, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *Store) CreateVariant(ctx context.Context, v *models.Variant) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO variants
		(id, product_id, sku, title, price_override, inventory_qty, active, created_at, updated_at)
		VALUES (:id, :product_id, :sku, :title, :price_override, :inventory_qty, :active, :created_at, :updated_at)`,
		newVariantRow(v))
	return translate(err, "insert variant")
}

func (s *Store) UpdateVariant(ctx context.Context, v *models.Variant) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE variants SET
		sku = :sku, title = :title, price_override = :price_override, inventory_qty = :inventory_qty,
		active = :active, updated_at = :updated_at
		WHERE id = :id`, newVariantRow(v))
	return expectRow(res, err, "update variant")
}

func (s *Store) GetVariant(ctx context.Context, id string) (*models.PricedVariant, error) {
	var row pricedVariantRow
	if err := s.db.GetContext(ctx, &row, pricedVariantQuery, id); err != nil {
		return nil, translate(err, "get variant")
	}
	return row.model(), nil
}

func (s *Store) ListVariants(ctx context.Context, productID string) ([]models.Variant, error) {
	var rows []variantRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+variantColumns+` FROM variants v WHERE v.product_id = ? ORDER BY v.sku`, productID)
	if err != nil {
		return nil, translate(err, "list variants")
	}
	out := make([]models.Variant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func withPage(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	} else if offset > 0 {
		query += " LIMIT 18446744073709551615 OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}
