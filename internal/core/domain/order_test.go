package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestNewOrderFromBasket_ExpandsQuantities(t *testing.T) {
	basket := Basket{
		ID:     "b1",
		UserID: "u1",
		Status: BasketStatusOpen,
		Lines: []BasketLine{
			{ID: "l1", BasketID: "b1", ProductID: "product-a", Quantity: 2},
			{ID: "l2", BasketID: "b1", ProductID: "product-b", Quantity: 1},
		},
	}
	billing := Address{ID: "a1", UserID: "u1", Name: "John Kimball", Address1: "127 Strudel road", City: "London", PostalCode: "WC2H 9AA", Country: "GB"}
	shipping := Address{ID: "a2", UserID: "u1", Name: "John Kimball", Address1: "123 Deacon road", City: "London", PostalCode: "SW1 4AA", Country: "GB"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	order, err := NewOrderFromBasket(basket, billing, shipping, seqID(), now)
	require.NoError(t, err)

	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, OrderStatusNew, order.Status)
	assert.Equal(t, "John Kimball", order.Billing.Name)
	assert.Equal(t, "127 Strudel road", order.Billing.Address1)
	assert.Equal(t, "123 Deacon road", order.Shipping.Address1)
	assert.Equal(t, now, order.CreatedAt)
	require.Len(t, order.Lines, 3)

	perProduct := map[string]int{}
	for _, l := range order.Lines {
		assert.Equal(t, order.ID, l.OrderID)
		assert.Equal(t, OrderLineStatusNew, l.Status)
		perProduct[l.ProductID]++
	}
	assert.Equal(t, map[string]int{"product-a": 2, "product-b": 1}, perProduct)
}

func TestNewOrderFromBasket_SnapshotIsACopy(t *testing.T) {
	basket := Basket{ID: "b1", UserID: "u1", Status: BasketStatusOpen, Lines: []BasketLine{{ProductID: "p", Quantity: 1}}}
	addr := Address{ID: "a1", UserID: "u1", Name: "Before", Address1: "1 Road", City: "Leeds", PostalCode: "LS1", Country: "GB"}

	order, err := NewOrderFromBasket(basket, addr, addr, seqID(), time.Now())
	require.NoError(t, err)

	addr.Name = "After"
	addr.City = "York"
	assert.Equal(t, "Before", order.Billing.Name)
	assert.Equal(t, "Leeds", order.Shipping.City)
}

func TestNewOrderFromBasket_Rejections(t *testing.T) {
	addr := Address{ID: "a1", UserID: "u1"}
	lines := []BasketLine{{ProductID: "p", Quantity: 1}}

	tests := []struct {
		name   string
		basket Basket
		want   error
	}{
		{"no owner", Basket{ID: "b", Status: BasketStatusOpen, Lines: lines}, ErrNoOwner},
		{"submitted", Basket{ID: "b", UserID: "u1", Status: BasketStatusSubmitted, Lines: lines}, ErrNotOpen},
		{"empty", Basket{ID: "b", UserID: "u1", Status: BasketStatusOpen}, ErrEmptyBasket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrderFromBasket(tt.basket, addr, addr, seqID(), time.Now())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOrderStatus_ForwardOnly(t *testing.T) {
	assert.True(t, OrderStatusNew.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusNew.CanTransitionTo(OrderStatusDone))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusDone))
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusNew))
	assert.False(t, OrderStatusDone.CanTransitionTo(OrderStatusDone))
	assert.False(t, OrderStatusNew.CanTransitionTo("refunded"))
}

func TestOrderLineStatus_Transitions(t *testing.T) {
	assert.True(t, OrderLineStatusNew.CanTransitionTo(OrderLineStatusProcessing))
	assert.True(t, OrderLineStatusProcessing.CanTransitionTo(OrderLineStatusSent))
	assert.True(t, OrderLineStatusProcessing.CanTransitionTo(OrderLineStatusCancelled))
	assert.False(t, OrderLineStatusSent.CanTransitionTo(OrderLineStatusCancelled))
	assert.False(t, OrderLineStatusCancelled.CanTransitionTo(OrderLineStatusNew))
}
