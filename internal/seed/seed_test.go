package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/repository"
	"github.com/shopforge/commerce-api/internal/service"
	"github.com/shopforge/commerce-api/internal/telemetry"
	"github.com/shopforge/commerce-api/pkg/logger"
)

func newLoader(store *repository.InMemoryStore) *Loader {
	log := logger.Discard()
	audit := telemetry.NewAuditLogger(store, log)
	return NewLoader(
		service.NewCatalogService(store, audit, log),
		service.NewCouponService(store, audit, log),
		log,
	)
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryStore()
	loader := newLoader(store)

	sum, err := loader.LoadFile(ctx, "testdata/catalog.yaml")
	require.NoError(t, err)
	assert.Equal(t, Summary{ProductTypes: 2, Products: 2, Variants: 3, Coupons: 2}, sum)

	pt, err := store.GetProductTypeBySlug(ctx, "running-shoes")
	require.NoError(t, err)
	require.Len(t, pt.Schema.Fields, 3)
	assert.Equal(t, "g", pt.Schema.Fields[2].Unit)

	c, err := store.GetCouponByCode(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.True(t, c.Active)

	again, err := loader.LoadFile(ctx, "testdata/catalog.yaml")
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 6}, again)
}

func TestApply_InvalidAttributes(t *testing.T) {
	f, err := Parse(strings.NewReader(`
product_types:
  - name: Hats
    schema:
      fields:
        - {key: size, label: Size, type: enum, options: [S, M]}
    products:
      - title: Cap
        base_price: "9.99"
        attributes: {size: XL}
`))
	require.NoError(t, err)

	_, err = newLoader(repository.NewInMemoryStore()).Apply(context.Background(), f)
	require.Error(t, err)
	assert.Equal(t, apperror.KindAttributeValidationFailed, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "product Cap")
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("products: []\n"))
	assert.Error(t, err)
}
