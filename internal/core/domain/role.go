package domain

import "time"

// Role is the capability set a staff member works with in the back office.
type Role string

const (
	RoleOwner         Role = "owner"
	RoleCentralOffice Role = "central_office"
	RoleDispatcher    Role = "dispatcher"
)

// RoleFor picks the widest back-office role a user holds.
func RoleFor(u User) (Role, bool) {
	switch {
	case !u.IsActive:
		return "", false
	case u.IsSuperuser:
		return RoleOwner, true
	case u.IsEmployee():
		return RoleCentralOffice, true
	case u.IsDispatcher():
		return RoleDispatcher, true
	}
	return "", false
}

// CanSee reports whether the role may look at the order at all. Dispatchers
// only handle orders that are ready to ship.
func (r Role) CanSee(o Order) bool {
	switch r {
	case RoleOwner, RoleCentralOffice:
		return true
	case RoleDispatcher:
		return o.Status == OrderStatusPaid
	}
	return false
}

func (r Role) CanSetOrderStatus() bool {
	return r == RoleOwner || r == RoleCentralOffice
}

func (r Role) CanSetLineStatus() bool {
	return r == RoleOwner || r == RoleCentralOffice || r == RoleDispatcher
}

// CanEditProductDetails is false for dispatchers, who may only flip stock.
func (r Role) CanEditProductDetails() bool {
	return r == RoleOwner || r == RoleCentralOffice
}

func (r Role) CanViewReports() bool {
	return r == RoleOwner || r == RoleCentralOffice
}

type OrderView struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id,omitempty"`
	Status    OrderStatus      `json:"status"`
	Billing   *AddressSnapshot `json:"billing,omitempty"`
	Shipping  AddressSnapshot  `json:"shipping"`
	Lines     []OrderLineView  `json:"lines"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type OrderLineView struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Status    OrderLineStatus `json:"status"`
}

// ProjectOrder renders the fields of o that role is allowed to see. The
// second result is false when the order is hidden from the role.
func ProjectOrder(o Order, role Role) (OrderView, bool) {
	if !role.CanSee(o) {
		return OrderView{}, false
	}
	v := projectCommon(o)
	if role != RoleDispatcher {
		billing := o.Billing
		v.UserID = o.UserID
		v.Billing = &billing
	}
	return v, true
}

// ProjectOwnOrder renders an order for the customer who placed it.
func ProjectOwnOrder(o Order, userID string) (OrderView, bool) {
	if o.UserID != userID {
		return OrderView{}, false
	}
	v := projectCommon(o)
	billing := o.Billing
	v.UserID = o.UserID
	v.Billing = &billing
	return v, true
}

func projectCommon(o Order) OrderView {
	v := OrderView{
		ID:        o.ID,
		Status:    o.Status,
		Shipping:  o.Shipping,
		Lines:     make([]OrderLineView, 0, len(o.Lines)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, l := range o.Lines {
		v.Lines = append(v.Lines, OrderLineView{ID: l.ID, ProductID: l.ProductID, Status: l.Status})
	}
	return v
}
