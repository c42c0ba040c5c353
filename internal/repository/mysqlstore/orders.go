package mysqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
)

const orderColumns = `id, order_number, user_id, status, subtotal, tax_amount, shipping_amount, discount_amount,
	total_amount, currency, coupon_id, coupon_code, shipping_address, billing_address, notes,
	created_at, updated_at, paid_at, shipped_at, delivered_at, cancelled_at`

const orderItemColumns = `id, order_id, variant_id, sku, quantity, unit_price, total_price`

// WithinTx runs fn inside a READ COMMITTED transaction. Row locks taken by
// the ForUpdate reads serialize competing commits on the same variants and
// coupons.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.OrderTx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &orderTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return translate(err, "commit transaction")
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id); err != nil {
		return nil, translate(err, "get order")
	}
	return s.withItems(ctx, row.model())
}

func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var row orderRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, number); err != nil {
		return nil, translate(err, "get order by number")
	}
	return s.withItems(ctx, row.model())
}

func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, order_number"
	query, args = withPage(query, args, filter.Limit, filter.Offset)

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list orders")
	}
	if len(rows) == 0 {
		return []models.Order{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	itemQuery, itemArgs, err := sqlx.In(`SELECT `+orderItemColumns+` FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build order items query")
	}
	var items []orderItemRow
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(itemQuery), itemArgs...); err != nil {
		return nil, translate(err, "list order items")
	}
	byOrder := make(map[string][]models.OrderItem, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it.model())
	}

	out := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		o := r.model()
		if its, ok := byOrder[o.ID]; ok {
			o.Items = its
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (*models.Order, error) {
	stampColumn := ""
	switch to {
	case models.OrderPaid:
		stampColumn = ", paid_at = ?"
	case models.OrderShipped:
		stampColumn = ", shipped_at = ?"
	case models.OrderDelivered:
		stampColumn = ", delivered_at = ?"
	case models.OrderCancelled:
		stampColumn = ", cancelled_at = ?"
	}

	args := []interface{}{string(to), at}
	if stampColumn != "" {
		args = append(args, at)
	}
	args = append(args, id, string(from))

	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ?`+stampColumn+` WHERE id = ? AND status = ?`, args...)
	err = expectRow(res, err, "update order status")
	if errors.Is(err, repository.ErrNotFound) {
		// Zero matched rows: either the order is gone or it left from.
		if _, getErr := s.GetOrder(ctx, id); getErr == nil {
			return nil, repository.ErrStatusChanged
		}
	}
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) withItems(ctx context.Context, o *models.Order) (*models.Order, error) {
	var items []orderItemRow
	err := s.db.SelectContext(ctx, &items, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY id`, o.ID)
	if err != nil {
		return nil, translate(err, "get order items")
	}
	for _, it := range items {
		o.Items = append(o.Items, it.model())
	}
	return o, nil
}

// orderTx implements repository.OrderTx on a sqlx transaction.
type orderTx struct {
	tx *sqlx.Tx
}

func (t *orderTx) GetVariantForUpdate(ctx context.Context, id string) (*models.PricedVariant, error) {
	var row pricedVariantRow
	if err := t.tx.GetContext(ctx, &row, pricedVariantQuery+` FOR UPDATE`, id); err != nil {
		return nil, translate(err, "lock variant")
	}
	return row.model(), nil
}

func (t *orderTx) GetCouponByCodeForUpdate(ctx context.Context, code string) (*models.Coupon, error) {
	var row couponRow
	err := t.tx.GetContext(ctx, &row, `SELECT `+couponColumns+` FROM coupons WHERE code = ? FOR UPDATE`, strings.ToUpper(code))
	if err != nil {
		return nil, translate(err, "lock coupon")
	}
	return row.model(), nil
}

func (t *orderTx) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (
		:id, :order_number, :user_id, :status, :subtotal, :tax_amount, :shipping_amount, :discount_amount,
		:total_amount, :currency, :coupon_id, :coupon_code, :shipping_address, :billing_address, :notes,
		:created_at, :updated_at, :paid_at, :shipped_at, :delivered_at, :cancelled_at)`, newOrderRow(order))
	return translate(err, "insert order")
}

func (t *orderTx) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO order_items (`+orderItemColumns+`)
		VALUES (:id, :order_id, :variant_id, :sku, :quantity, :unit_price, :total_price)`, orderItemRow(*item))
	return translate(err, "insert order item")
}

// DecrementInventory only succeeds while enough stock remains.
func (t *orderTx) DecrementInventory(ctx context.Context, variantID string, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE variants SET inventory_qty = inventory_qty - ? WHERE id = ? AND inventory_qty >= ?`,
		qty, variantID, qty)
	if err := expectRow(res, err, "decrement inventory"); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrStockConflict
		}
		return err
	}
	return nil
}

// IncrementCouponUsage only succeeds while the usage limit is not reached.
func (t *orderTx) IncrementCouponUsage(ctx context.Context, couponID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)`, couponID)
	if err := expectRow(res, err, "increment coupon usage"); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrUsageLimitReached
		}
		return err
	}
	return nil
}
