package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/adapter/imagestore"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
)

type testEnv struct {
	db       *storage.MemoryAdapter
	cache    *storage.MemoryCache
	notifier *NotificationService

	baskets  *BasketService
	checkout *CheckoutService
	catalog  *CatalogService
	orders   *OrderService
	reports  *ReportService
	chat     *ChatService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storage.NewMemoryAdapter()
	cache := storage.NewMemoryCache()
	notifier := NewNotificationService(16)
	t.Cleanup(notifier.Close)

	return &testEnv{
		db:       db,
		cache:    cache,
		notifier: notifier,
		baskets:  NewBasketService(db, cache),
		checkout: NewCheckoutService(db, cache, notifier, time.Minute),
		catalog:  NewCatalogService(db, imagestore.NewDiskStore(t.TempDir()), 2),
		orders:   NewOrderService(db),
		reports:  NewReportService(db),
		chat:     NewChatService(db, cache),
		auth:     NewAuthService(db, "test-secret", time.Hour),
	}
}

func (e *testEnv) user(t *testing.T, email string, groups ...string) domain.User {
	t.Helper()
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
		Groups:    groups,
		CreatedAt: time.Now(),
	}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) superuser(t *testing.T) domain.User {
	t.Helper()
	u := domain.User{
		ID:          uuid.NewString(),
		Email:       "owner@example.com",
		IsActive:    true,
		IsSuperuser: true,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) product(t *testing.T, name, price string, tags ...domain.ProductTag) domain.Product {
	t.Helper()
	ctx := context.Background()
	p := domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Slug:      name,
		State:     domain.CatalogStateActive,
		InStock:   true,
		UpdatedAt: time.Now(),
	}
	require.NoError(t, e.db.CreateProduct(ctx, p))
	if len(tags) > 0 {
		ids := make([]string, 0, len(tags))
		for _, tag := range tags {
			ids = append(ids, tag.ID)
		}
		require.NoError(t, e.db.SetProductTags(ctx, p.ID, ids))
	}
	return p
}

func (e *testEnv) tag(t *testing.T, name string, state domain.CatalogState) domain.ProductTag {
	t.Helper()
	tag := domain.ProductTag{ID: uuid.NewString(), Name: name, Slug: name, State: state}
	require.NoError(t, e.db.CreateTag(context.Background(), tag))
	return tag
}

func (e *testEnv) address(t *testing.T, userID, name string) domain.Address {
	t.Helper()
	a := domain.Address{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		Address1:   "1 Main Street",
		PostalCode: "12345",
		City:       "Springfield",
		Country:    "US",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, e.db.CreateAddress(context.Background(), a))
	return a
}

type item struct {
	product domain.Product
	qty     int
}

// basketWith fills the open basket of the actor.
func (e *testEnv) basketWith(t *testing.T, actor Actor, items ...item) *domain.Basket {
	t.Helper()
	var b *domain.Basket
	for _, it := range items {
		var err error
		b, err = e.baskets.AddProduct(context.Background(), actor, it.product.ID, it.qty)
		require.NoError(t, err)
	}
	return b
}

// placeOrder converts a fresh basket of one product into an order.
func (e *testEnv) placeOrder(t *testing.T, user domain.User, p domain.Product, qty int) *domain.Order {
	t.Helper()
	actor := Actor{UserID: user.ID}
	b := e.basketWith(t, actor, item{p, qty})
	addr := e.address(t, user.ID, user.FullName())
	o, err := e.checkout.Convert(context.Background(), ConvertInput{
		BasketID:          b.ID,
		BillingAddressID:  addr.ID,
		ShippingAddressID: addr.ID,
	})
	require.NoError(t, err)
	return o
}
