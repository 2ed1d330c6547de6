package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestMyOrders_OnlyOwn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	p := env.product(t, "product-a", "1.00")
	mine := env.placeOrder(t, alice, p, 1)
	env.placeOrder(t, bob, p, 1)

	views, err := env.orders.MyOrders(ctx, Actor{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, mine.ID, views[0].ID)

	_, err = env.orders.MyOrder(ctx, Actor{UserID: bob.ID}, mine.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = env.orders.MyOrders(ctx, Actor{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestList_RoleProjections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, "alice@example.com")
	owner := env.superuser(t)
	office := env.user(t, "office@example.com", domain.GroupEmployees)
	dispatcher := env.user(t, "dispatch@example.com", domain.GroupDispatchers)
	p := env.product(t, "product-a", "1.00")

	fresh := env.placeOrder(t, customer, p, 1)
	paid := env.placeOrder(t, customer, p, 2)
	_, err := env.orders.SetStatus(ctx, Actor{UserID: office.ID}, paid.ID, domain.OrderStatusPaid)
	require.NoError(t, err)

	all, err := env.orders.List(ctx, Actor{UserID: owner.ID}, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, v := range all {
		assert.NotNil(t, v.Billing)
		assert.Equal(t, customer.ID, v.UserID)
	}

	visible, err := env.orders.List(ctx, Actor{UserID: dispatcher.ID}, "")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, paid.ID, visible[0].ID)
	assert.Nil(t, visible[0].Billing)
	assert.Empty(t, visible[0].UserID)

	_, err = env.orders.Get(ctx, Actor{UserID: dispatcher.ID}, fresh.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = env.orders.List(ctx, Actor{UserID: customer.ID}, "")
	assert.ErrorIs(t, err, ErrForbidden)

	lines, err := env.orders.PaidOrderLines(ctx, Actor{UserID: dispatcher.ID})
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestSetStatus_ForwardOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, "alice@example.com")
	office := env.user(t, "office@example.com", domain.GroupEmployees)
	dispatcher := env.user(t, "dispatch@example.com", domain.GroupDispatchers)
	p := env.product(t, "product-a", "1.00")
	order := env.placeOrder(t, customer, p, 1)
	actor := Actor{UserID: office.ID}

	_, err := env.orders.SetStatus(ctx, Actor{UserID: dispatcher.ID}, order.ID, domain.OrderStatusPaid)
	assert.ErrorIs(t, err, ErrForbidden)

	v, err := env.orders.SetStatus(ctx, actor, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, v.Status)

	_, err = env.orders.SetStatus(ctx, actor, order.ID, domain.OrderStatusNew)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.orders.SetStatus(ctx, actor, order.ID, domain.OrderStatusDone)
	assert.NoError(t, err)
}

func TestSetLineStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, "alice@example.com")
	office := env.user(t, "office@example.com", domain.GroupEmployees)
	dispatcher := env.user(t, "dispatch@example.com", domain.GroupDispatchers)
	p := env.product(t, "product-a", "1.00")
	order := env.placeOrder(t, customer, p, 2)
	lineID := order.Lines[0].ID
	dispatch := Actor{UserID: dispatcher.ID}

	// dispatchers cannot reach lines of unpaid orders
	_, err := env.orders.SetLineStatus(ctx, dispatch, lineID, domain.OrderLineStatusProcessing)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = env.orders.SetStatus(ctx, Actor{UserID: office.ID}, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)

	v, err := env.orders.SetLineStatus(ctx, dispatch, lineID, domain.OrderLineStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderLineStatusProcessing, v.Status)

	_, err = env.orders.SetLineStatus(ctx, dispatch, lineID, domain.OrderLineStatusSent)
	require.NoError(t, err)

	_, err = env.orders.SetLineStatus(ctx, dispatch, lineID, domain.OrderLineStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.orders.SetLineStatus(ctx, Actor{UserID: customer.ID}, lineID, domain.OrderLineStatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReports(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, "alice@example.com")
	owner := env.superuser(t)
	dispatcher := env.user(t, "dispatch@example.com", domain.GroupDispatchers)
	a := env.product(t, "product-a", "1.00")
	b := env.product(t, "product-b", "1.00")
	env.placeOrder(t, customer, a, 3)
	env.placeOrder(t, customer, b, 1)

	days, err := env.reports.OrdersPerDay(ctx, Actor{UserID: owner.ID})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 2, days[0].Count)

	top, err := env.reports.MostBought(ctx, Actor{UserID: owner.ID}, 30)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, domain.ProductCount{ProductName: "product-a", Count: 3}, top[0])

	_, err = env.reports.MostBought(ctx, Actor{UserID: owner.ID}, 45)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.reports.OrdersPerDay(ctx, Actor{UserID: dispatcher.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}
