// Package policy holds the role table that decides which callers may run
// which operation.
package policy

import "strings"

// Role is a staff or customer role. The zero Role is an anonymous guest.
type Role string

const (
	Guest   Role = ""
	Owner   Role = "OWNER"
	Admin   Role = "ADMIN"
	Manager Role = "MANAGER"
	Support Role = "SUPPORT"
	Viewer  Role = "VIEWER"
)

// ParseRole returns the role named by s, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case Owner, Admin, Manager, Support, Viewer:
		return r, true
	}
	return Guest, false
}

// Operation names a guarded action.
type Operation string

const (
	ProductTypeCreate    Operation = "product_type.create"
	ProductTypeList      Operation = "product_type.list"
	ProductTypeGet       Operation = "product_type.get"
	ProductTypeGetBySlug Operation = "product_type.get_by_slug"
	ProductTypeUpdate    Operation = "product_type.update"
	ProductTypeDelete    Operation = "product_type.delete"

	ProductCreate    Operation = "product.create"
	ProductSearch    Operation = "product.search"
	ProductList      Operation = "product.list"
	ProductGet       Operation = "product.get"
	ProductGetBySlug Operation = "product.get_by_slug"
	ProductUpdate    Operation = "product.update"
	ProductDelete    Operation = "product.delete"

	VariantCreate Operation = "variant.create"
	VariantList   Operation = "variant.list"
	VariantUpdate Operation = "variant.update"

	CouponCreate    Operation = "coupon.create"
	CouponList      Operation = "coupon.list"
	CouponGet       Operation = "coupon.get"
	CouponGetByCode Operation = "coupon.get_by_code"
	CouponValidate  Operation = "coupon.validate"
	CouponUpdate    Operation = "coupon.update"
	CouponDelete    Operation = "coupon.delete"

	OrderCreate       Operation = "order.create"
	OrderCreateGuest  Operation = "order.create_guest"
	OrderList         Operation = "order.list"
	OrderListMine     Operation = "order.list_mine"
	OrderGet          Operation = "order.get"
	OrderGetByNumber  Operation = "order.get_by_number"
	OrderUpdateStatus Operation = "order.update_status"

	AnalyticsTrack Operation = "analytics.track"
	AuditHistory   Operation = "audit.history"
)

var (
	public        = []Role{}
	authenticated = []Role{Owner, Admin, Manager, Support, Viewer}
	staff         = []Role{Owner, Admin, Manager, Support}
	editors       = []Role{Owner, Admin, Manager}
	admins        = []Role{Owner, Admin}
)

// table maps each operation to the roles allowed to run it. An empty list
// marks a public operation.
var table = map[Operation][]Role{
	ProductTypeCreate:    editors,
	ProductTypeList:      public,
	ProductTypeGet:       authenticated,
	ProductTypeGetBySlug: public,
	ProductTypeUpdate:    editors,
	ProductTypeDelete:    admins,

	ProductCreate:    editors,
	ProductSearch:    public,
	ProductList:      authenticated,
	ProductGet:       authenticated,
	ProductGetBySlug: public,
	ProductUpdate:    editors,
	ProductDelete:    admins,

	VariantCreate: editors,
	VariantList:   authenticated,
	VariantUpdate: editors,

	CouponCreate:    editors,
	CouponList:      staff,
	CouponGet:       staff,
	CouponGetByCode: public,
	CouponValidate:  public,
	CouponUpdate:    editors,
	CouponDelete:    admins,

	OrderCreate:       authenticated,
	OrderCreateGuest:  public,
	OrderList:         staff,
	OrderListMine:     authenticated,
	OrderGet:          authenticated,
	OrderGetByNumber:  authenticated,
	OrderUpdateStatus: editors,

	AnalyticsTrack: public,
	AuditHistory:   admins,
}

// Allows reports whether role may run op. Unknown operations are denied.
func Allows(role Role, op Operation) bool {
	roles, ok := table[op]
	if !ok {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsPublic reports whether op needs no authenticated caller.
func IsPublic(op Operation) bool {
	roles, ok := table[op]
	return ok && len(roles) == 0
}

// Roles returns a copy of the roles allowed to run op.
func Roles(op Operation) []Role {
	return append([]Role(nil), table[op]...)
}
