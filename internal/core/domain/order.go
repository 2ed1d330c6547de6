package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderStatusNew  OrderStatus = "new"
	OrderStatusPaid OrderStatus = "paid"
	OrderStatusDone OrderStatus = "done"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusNew:  0,
	OrderStatusPaid: 1,
	OrderStatusDone: 2,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransitionTo reports whether an order may move from s to next.
// Orders only move forward.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	return ok && to > from
}

type OrderLineStatus string

const (
	OrderLineStatusNew        OrderLineStatus = "new"
	OrderLineStatusProcessing OrderLineStatus = "processing"
	OrderLineStatusSent       OrderLineStatus = "sent"
	OrderLineStatusCancelled  OrderLineStatus = "cancelled"
)

func (s OrderLineStatus) Valid() bool {
	switch s {
	case OrderLineStatusNew, OrderLineStatusProcessing, OrderLineStatusSent, OrderLineStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a line may move from s to next. Sent and
// cancelled lines are final.
func (s OrderLineStatus) CanTransitionTo(next OrderLineStatus) bool {
	switch s {
	case OrderLineStatusNew:
		return next == OrderLineStatusProcessing || next == OrderLineStatusSent || next == OrderLineStatusCancelled
	case OrderLineStatusProcessing:
		return next == OrderLineStatusSent || next == OrderLineStatusCancelled
	}
	return false
}

type Order struct {
	ID           string
	UserID       string
	Status       OrderStatus
	Billing      AddressSnapshot
	Shipping     AddressSnapshot
	LastSpokenTo string
	Lines        []OrderLine
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type OrderLine struct {
	ID        string
	OrderID   string
	ProductID string
	Status    OrderLineStatus
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Since  time.Time
	Limit  int
}

// OrderLineFilter narrows order line listings.
type OrderLineFilter struct {
	OrderID     string
	Status      OrderLineStatus
	OrderStatus OrderStatus
}

var (
	ErrNoOwner     = errors.New("basket has no owner")
	ErrEmptyBasket = errors.New("basket is empty")
	ErrNotOpen     = errors.New("basket is not open")
)

// NewOrderFromBasket builds the order for a basket. Every basket line with
// quantity n becomes n order lines, and both addresses are copied so later
// edits to them do not reach the order.
func NewOrderFromBasket(b Basket, billing, shipping Address, newID func() string, now time.Time) (Order, error) {
	if b.IsAnonymous() {
		return Order{}, ErrNoOwner
	}
	if !b.IsOpen() {
		return Order{}, ErrNotOpen
	}
	if b.Count() == 0 {
		return Order{}, ErrEmptyBasket
	}

	order := Order{
		ID:        newID(),
		UserID:    b.UserID,
		Status:    OrderStatusNew,
		Billing:   billing.Snapshot(),
		Shipping:  shipping.Snapshot(),
		Lines:     make([]OrderLine, 0, b.Count()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, l := range b.Lines {
		for i := 0; i < l.Quantity; i++ {
			order.Lines = append(order.Lines, OrderLine{
				ID:        newID(),
				OrderID:   order.ID,
				ProductID: l.ProductID,
				Status:    OrderLineStatusNew,
			})
		}
	}
	return order, nil
}
