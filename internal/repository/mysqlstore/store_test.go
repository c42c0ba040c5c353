package mysqlstore

import (
	"database/sql"
	"io"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/schema"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: repository.ErrNotFound},
		{name: "wrapped no rows", err: errors.Wrap(sql.ErrNoRows, "get"), want: repository.ErrNotFound},
		{
			name: "duplicate order number",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ORD-1' for key 'orders.uq_orders_order_number'"},
			want: repository.ErrDuplicateOrderNumber,
		},
		{
			name: "duplicate slug",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'shirts' for key 'product_types.uq_product_types_slug'"},
			want: repository.ErrDuplicate,
		},
		{
			name: "coupon still referenced",
			err:  &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row: a foreign key constraint fails (`shop`.`orders`, CONSTRAINT `fk_orders_coupon` ...)"},
			want: repository.ErrReferenced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.err, "op"), tt.want)
		})
	}

	assert.NoError(t, translate(nil, "op"))

	other := translate(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, "lock variant")
	assert.Contains(t, other.Error(), "lock variant")
}

func TestWithPage(t *testing.T) {
	q, args := withPage("SELECT 1", nil, 10, 20)
	assert.Equal(t, "SELECT 1 LIMIT ? OFFSET ?", q)
	assert.Equal(t, []interface{}{10, 20}, args)

	q, args = withPage("SELECT 1", nil, 0, 0)
	assert.Equal(t, "SELECT 1", q)
	assert.Empty(t, args)

	q, _ = withPage("SELECT 1", nil, 0, 5)
	assert.Contains(t, q, "OFFSET ?")
}

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	up, _, err := src.ReadUp(version)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "uq_orders_order_number")
	assert.Contains(t, string(body), "inventory_qty >= 0")
}

func TestRowRoundTrip(t *testing.T) {
	limit := 3
	min := decimal.RequireFromString("50")
	c := &models.Coupon{ID: "c", Code: "SAVE", Type: models.CouponPercentage, Value: decimal.NewFromInt(10), UsageLimit: &limit, MinimumAmount: &min, Active: true}
	back := newCouponRow(c).model()
	require.NotNil(t, back.UsageLimit)
	assert.Equal(t, 3, *back.UsageLimit)
	assert.True(t, min.Equal(*back.MinimumAmount))
	assert.Nil(t, back.ExpiresAt)

	p := &models.Product{ID: "p", Attributes: schema.Attributes{"size": schema.StringValue("M"), "weight": schema.NumberValue(1.5)}}
	row, err := newProductRow(p)
	require.NoError(t, err)
	decoded, err := row.model()
	require.NoError(t, err)
	assert.Equal(t, schema.StringValue("M"), decoded.Attributes["size"])
	assert.Equal(t, schema.NumberValue(1.5), decoded.Attributes["weight"])

	o := newOrderRow(&models.Order{ID: "o"}).model()
	assert.Empty(t, o.UserID)
	assert.NotNil(t, o.Items)
}
