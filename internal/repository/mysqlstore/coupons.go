package mysqlstore

import (
	"context"
	"strings"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
)

const couponColumns = `id, code, type, value, minimum_amount, usage_limit, usage_count, active, expires_at, created_at, updated_at`

func (s *Store) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO coupons (`+couponColumns+`)
		VALUES (:id, :code, :type, :value, :minimum_amount, :usage_limit, :usage_count, :active, :expires_at, :created_at, :updated_at)`,
		newCouponRow(c))
	return translate(err, "insert coupon")
}

// UpdateCoupon writes the configuration columns. usage_count is owned by
// order commits and never overwritten here.
func (s *Store) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE coupons SET
		code = :code, type = :type, value = :value, minimum_amount = :minimum_amount, usage_limit = :usage_limit,
		active = :active, expires_at = :expires_at, updated_at = :updated_at
		WHERE id = :id`, newCouponRow(c))
	return expectRow(res, err, "update coupon")
}

func (s *Store) DeleteCoupon(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = ?`, id)
	return expectRow(res, err, "delete coupon")
}

func (s *Store) GetCoupon(ctx context.Context, id string) (*models.Coupon, error) {
	var row couponRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+couponColumns+` FROM coupons WHERE id = ?`, id); err != nil {
		return nil, translate(err, "get coupon")
	}
	return row.model(), nil
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var row couponRow
	err := s.db.GetContext(ctx, &row, `SELECT `+couponColumns+` FROM coupons WHERE code = ?`, strings.ToUpper(code))
	if err != nil {
		return nil, translate(err, "get coupon by code")
	}
	return row.model(), nil
}

func (s *Store) ListCoupons(ctx context.Context, filter repository.CouponFilter) ([]models.Coupon, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Active != nil {
		where = append(where, "active = ?")
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		where = append(where, "code LIKE ?")
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
	}

	query := `SELECT ` + couponColumns + ` FROM coupons`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, code"
	query, args = withPage(query, args, filter.Limit, filter.Offset)

	var rows []couponRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list coupons")
	}
	out := make([]models.Coupon, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.model())
	}
	return out, nil
}

func (s *Store) CountOrdersByCoupon(ctx context.Context, couponID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM orders WHERE coupon_id = ?`, couponID)
	return n, translate(err, "count coupon orders")
}
