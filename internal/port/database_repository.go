package port

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// ErrConflict is returned by conditional writes that matched no row, e.g. a
// basket that is no longer open or already has an owner.
var ErrConflict = errors.New("conflicting update")

// Getters return (nil, nil) when the record does not exist.

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type AddressRepository interface {
	CreateAddress(ctx context.Context, addr domain.Address) error
	GetAddress(ctx context.Context, id string) (*domain.Address, error)
	UpdateAddress(ctx context.Context, addr domain.Address) error
	ListAddresses(ctx context.Context, userID string) ([]domain.Address, error)
}

type CatalogRepository interface {
	CreateProduct(ctx context.Context, p domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetProductBySlug returns the lowest-id product with the slug. Slugs are not
	// unique, so customer lookups pass activeOnly to skip retired duplicates.
	GetProductBySlug(ctx context.Context, slug string, activeOnly bool) (*domain.Product, error)
	FindProduct(ctx context.Context, name string, price decimal.Decimal) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	SetProductState(ctx context.Context, ids []string, state domain.CatalogState) (int, error)
	SetProductTags(ctx context.Context, productID string, tagIDs []string) error

	AddProductImage(ctx context.Context, img domain.ProductImage) error
	// ListProductImages returns the images of a product, oldest first.
	ListProductImages(ctx context.Context, productID string) ([]domain.ProductImage, error)

	CreateTag(ctx context.Context, tag domain.ProductTag) error
	GetTagBySlug(ctx context.Context, slug string) (*domain.ProductTag, error)
	GetTagByName(ctx context.Context, name string) (*domain.ProductTag, error)
	ListTags(ctx context.Context, activeOnly bool) ([]domain.ProductTag, error)
}

type BasketRepository interface {
	CreateBasket(ctx context.Context, b domain.Basket) error
	// GetBasket loads the basket with its lines.
	GetBasket(ctx context.Context, id string) (*domain.Basket, error)
	FindOpenBasket(ctx context.Context, userID string) (*domain.Basket, error)
	// AssignBasketOwner sets the owner of an open anonymous basket, or
	// returns ErrConflict.
	AssignBasketOwner(ctx context.Context, basketID, userID string) error
	// SetBasketStatus moves a basket from one status to another, or returns
	// ErrConflict when the basket is not in from.
	SetBasketStatus(ctx context.Context, basketID string, from, to domain.BasketStatus) error
	DeleteBasket(ctx context.Context, id string) error

	AddBasketLine(ctx context.Context, line domain.BasketLine) error
	UpdateBasketLine(ctx context.Context, line domain.BasketLine) error
	MoveBasketLine(ctx context.Context, lineID, basketID string) error
	DeleteBasketLine(ctx context.Context, lineID string) error
}

type OrderRepository interface {
	// CreateOrder persists the order together with its lines.
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	SetLastSpokenTo(ctx context.Context, orderID, userID string) error

	GetOrderLine(ctx context.Context, id string) (*domain.OrderLine, error)
	ListOrderLines(ctx context.Context, filter domain.OrderLineFilter) ([]domain.OrderLine, error)
	UpdateOrderLineStatus(ctx context.Context, id string, status domain.OrderLineStatus) error

	OrdersPerDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error)
	MostBoughtProducts(ctx context.Context, since time.Time) ([]domain.ProductCount, error)
}

type Repository interface {
	UserRepository
	AddressRepository
	CatalogRepository
	BasketRepository
	OrderRepository
}

type DatabaseRepository interface {
	Repository

	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error
}
