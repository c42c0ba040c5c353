package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllows(t *testing.T) {
	tests := []struct {
		role Role
		op   Operation
		want bool
	}{
		{Guest, ProductTypeList, true},
		{Guest, ProductSearch, true},
		{Guest, OrderCreateGuest, true},
		{Guest, CouponGetByCode, true},
		{Guest, OrderCreate, false},
		{Guest, ProductTypeCreate, false},
		{Viewer, OrderCreate, true},
		{Viewer, OrderGet, true},
		{Viewer, OrderList, false},
		{Viewer, CouponList, false},
		{Support, CouponList, true},
		{Support, CouponUpdate, false},
		{Manager, CouponUpdate, true},
		{Manager, OrderUpdateStatus, true},
		{Manager, CouponDelete, false},
		{Manager, ProductTypeDelete, false},
		{Admin, CouponDelete, true},
		{Owner, ProductDelete, true},
		{Owner, AuditHistory, true},
		{Support, AuditHistory, false},
		{Owner, Operation("unknown.op"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.role, tt.op))
		})
	}
}

func TestEveryOperationIsListed(t *testing.T) {
	for op, roles := range table {
		for _, r := range roles {
			_, ok := ParseRole(string(r))
			assert.True(t, ok, "%s lists unknown role %q", op, r)
		}
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" manager ")
	assert.True(t, ok)
	assert.Equal(t, Manager, r)

	_, ok = ParseRole("CUSTOMER")
	assert.False(t, ok)
}

func TestRolesReturnsCopy(t *testing.T) {
	roles := Roles(CouponDelete)
	roles[0] = Viewer
	assert.False(t, Allows(Viewer, CouponDelete))
	assert.True(t, IsPublic(AnalyticsTrack))
	assert.False(t, IsPublic(OrderList))
}
