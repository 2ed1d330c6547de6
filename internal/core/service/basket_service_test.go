package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestAddProduct_AnonymousCreatesSessionBasket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "product-a", "10.00")
	actor := Actor{SessionID: "session-1"}

	b, err := env.baskets.AddProduct(ctx, actor, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, b.IsAnonymous())
	assert.Equal(t, 2, b.Count())

	bound, err := env.cache.SessionBasket(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, bound)

	b, err = env.baskets.AddProduct(ctx, actor, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	assert.Equal(t, 5, b.Lines[0].Quantity)
}

func TestAddProduct_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	actor := Actor{UserID: user.ID}
	active := env.product(t, "active", "1.00")
	inactive := env.product(t, "inactive", "1.00")
	_, err := env.db.SetProductState(ctx, []string{inactive.ID}, domain.CatalogStateInactive)
	require.NoError(t, err)
	soldOut := env.product(t, "sold-out", "1.00")
	soldOut.InStock = false
	require.NoError(t, env.db.UpdateProduct(ctx, soldOut))

	_, err = env.baskets.AddProduct(ctx, actor, inactive.ID, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = env.baskets.AddProduct(ctx, actor, soldOut.ID, 1)
	assert.ErrorIs(t, err, ErrOutOfStock)
	_, err = env.baskets.AddProduct(ctx, actor, active.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = env.baskets.AddProduct(ctx, actor, active.ID, MaxLineQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = env.baskets.AddProduct(ctx, Actor{}, active.ID, 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSummary_Totals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	actor := Actor{UserID: user.ID}
	a := env.product(t, "product-a", "10.25")
	b := env.product(t, "product-b", "0.10")
	env.basketWith(t, actor, item{a, 2}, item{b, 3})

	sum, err := env.baskets.Summary(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Count)
	assert.True(t, sum.Total.Equal(decimal.RequireFromString("20.80")), sum.Total.String())

	empty, err := env.baskets.Summary(ctx, Actor{SessionID: "nobody"})
	require.NoError(t, err)
	assert.Nil(t, empty.Basket)
	assert.True(t, empty.Total.IsZero())
}

func TestSetQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	actor := Actor{UserID: user.ID}
	p := env.product(t, "product-a", "1.00")
	b := env.basketWith(t, actor, item{p, 1})
	lineID := b.Lines[0].ID

	b, err := env.baskets.SetQuantity(ctx, actor, lineID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, b.Count())

	_, err = env.baskets.SetQuantity(ctx, Actor{UserID: env.user(t, "bob@example.com").ID}, lineID, 1)
	assert.ErrorIs(t, err, ErrBasketNotFound)

	b, err = env.baskets.SetQuantity(ctx, actor, lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, b.Lines)
}

func TestMerge_IntoExistingBasket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	a := env.product(t, "product-a", "1.00")
	b := env.product(t, "product-b", "1.00")

	owned := env.basketWith(t, Actor{UserID: user.ID}, item{a, 3})
	anon := env.basketWith(t, Actor{SessionID: "session-1"}, item{a, 2}, item{b, 1})
	total := owned.Count() + anon.Count()

	require.NoError(t, env.baskets.Merge(ctx, anon.ID, user.ID))

	gone, err := env.db.GetBasket(ctx, anon.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	merged, err := env.db.GetBasket(ctx, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, total, merged.Count())
	require.Len(t, merged.Lines, 2)
	la, ok := merged.LineFor(a.ID)
	require.True(t, ok)
	assert.Equal(t, 5, la.Quantity)
	lb, ok := merged.LineFor(b.ID)
	require.True(t, ok)
	assert.Equal(t, 1, lb.Quantity)
}

func TestMerge_KeepsQuantityAboveLineLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	p := env.product(t, "product-a", "1.00")
	actor := Actor{UserID: user.ID}

	owned := env.basketWith(t, actor, item{p, 80})
	anon := env.basketWith(t, Actor{SessionID: "session-1"}, item{p, 80})
	require.NoError(t, env.baskets.Merge(ctx, anon.ID, user.ID))

	merged, err := env.db.GetBasket(ctx, owned.ID)
	require.NoError(t, err)
	line, ok := merged.LineFor(p.ID)
	require.True(t, ok)
	assert.Equal(t, 160, line.Quantity)

	_, err = env.baskets.AddProduct(ctx, actor, p.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	b, err := env.baskets.SetQuantity(ctx, actor, line.ID, MaxLineQuantity)
	require.NoError(t, err)
	assert.Equal(t, MaxLineQuantity, b.Count())
	_, err = env.baskets.AddProduct(ctx, actor, p.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMerge_AssignsOwnerWhenNoOpenBasket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	p := env.product(t, "product-a", "1.00")
	anon := env.basketWith(t, Actor{SessionID: "session-1"}, item{p, 2})

	require.NoError(t, env.baskets.Merge(ctx, anon.ID, user.ID))

	b, err := env.db.FindOpenBasket(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, anon.ID, b.ID)
	assert.Equal(t, 2, b.Count())
}

func TestMerge_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	p := env.product(t, "product-a", "1.00")
	owned := env.basketWith(t, Actor{UserID: user.ID}, item{p, 1})
	anon := env.basketWith(t, Actor{SessionID: "session-1"}, item{p, 2})

	require.NoError(t, env.baskets.Merge(ctx, anon.ID, user.ID))
	require.NoError(t, env.baskets.Merge(ctx, anon.ID, user.ID))
	require.NoError(t, env.baskets.Merge(ctx, "", user.ID))
	require.NoError(t, env.baskets.Merge(ctx, "missing", user.ID))

	b, err := env.db.GetBasket(ctx, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Count())
}

func TestMergeSession_ClearsBinding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "alice@example.com")
	p := env.product(t, "product-a", "1.00")
	env.basketWith(t, Actor{SessionID: "session-1"}, item{p, 1})

	require.NoError(t, env.baskets.MergeSession(ctx, "session-1", user.ID))

	bound, err := env.cache.SessionBasket(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, bound)

	current, err := env.baskets.Current(ctx, Actor{UserID: user.ID, SessionID: "session-1"})
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 1, current.Count())
}
