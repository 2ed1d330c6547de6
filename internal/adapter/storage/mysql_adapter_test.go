package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

func getMySQLAdapter(t *testing.T) (*MySQLAdapter, *sql.DB) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/storefront?parseTime=true&clientFoundRows=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter := NewMySQLAdapter(db)
	if err := adapter.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return adapter, db
}

// seedMySQL creates a user, a product and an open basket holding two of
// the product. Everything is removed again through the user cascade.
func seedMySQL(t *testing.T, a *MySQLAdapter, db *sql.DB) (domain.User, domain.Product, domain.Basket) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	u := domain.User{
		ID:        uuid.NewString(),
		Email:     uuid.NewString() + "@example.com",
		IsActive:  true,
		Groups:    []string{domain.GroupEmployees},
		CreatedAt: now,
	}
	if err := a.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	p := domain.Product{
		ID:        uuid.NewString(),
		Name:      "Lamp",
		Price:     decimal.RequireFromString("12.50"),
		Slug:      "lamp",
		State:     domain.CatalogStateActive,
		InStock:   true,
		UpdatedAt: now,
	}
	if err := a.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	b := domain.Basket{ID: uuid.NewString(), UserID: u.ID, Status: domain.BasketStatusOpen, CreatedAt: now, UpdatedAt: now}
	if err := a.CreateBasket(ctx, b); err != nil {
		t.Fatalf("create basket: %v", err)
	}
	if err := a.AddBasketLine(ctx, domain.BasketLine{ID: uuid.NewString(), BasketID: b.ID, ProductID: p.ID, Quantity: 2}); err != nil {
		t.Fatalf("add line: %v", err)
	}

	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM orders WHERE user_id = ?`, u.ID)
		db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, u.ID)
		db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, p.ID)
	})
	return u, p, b
}

func TestMySQL_UserRoundTrip(t *testing.T) {
	a, db := getMySQLAdapter(t)
	u, _, _ := seedMySQL(t, a, db)

	got, err := a.GetUserByEmail(context.Background(), u.Email)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.ID != u.ID || !got.IsEmployee() {
		t.Errorf("unexpected user %+v", got)
	}

	err = a.CreateUser(context.Background(), domain.User{ID: uuid.NewString(), Email: u.Email, CreatedAt: time.Now()})
	if !errors.Is(err, port.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestMySQL_SetBasketStatusIsConditional(t *testing.T) {
	a, db := getMySQLAdapter(t)
	_, _, b := seedMySQL(t, a, db)
	ctx := context.Background()

	if err := a.SetBasketStatus(ctx, b.ID, domain.BasketStatusOpen, domain.BasketStatusSubmitted); err != nil {
		t.Fatalf("first flip: %v", err)
	}
	err := a.SetBasketStatus(ctx, b.ID, domain.BasketStatusOpen, domain.BasketStatusSubmitted)
	if !errors.Is(err, port.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestMySQL_WithinTxRollsBack(t *testing.T) {
	a, db := getMySQLAdapter(t)
	_, _, b := seedMySQL(t, a, db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := a.WithinTx(ctx, func(tx port.Repository) error {
		if err := tx.SetBasketStatus(ctx, b.ID, domain.BasketStatusOpen, domain.BasketStatusSubmitted); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := a.GetBasket(ctx, b.ID)
	if err != nil {
		t.Fatalf("get basket: %v", err)
	}
	if got.Status != domain.BasketStatusOpen {
		t.Errorf("expected open basket after rollback, got %s", got.Status)
	}
}

func TestMySQL_CreateOrderWithLines(t *testing.T) {
	a, db := getMySQLAdapter(t)
	u, _, b := seedMySQL(t, a, db)
	ctx := context.Background()

	basket, err := a.GetBasket(ctx, b.ID)
	if err != nil {
		t.Fatalf("get basket: %v", err)
	}
	addr := domain.Address{ID: uuid.NewString(), UserID: u.ID, Name: "Jane", Address1: "1 Main Street", PostalCode: "12345", City: "Springfield", Country: "US"}
	order, err := domain.NewOrderFromBasket(*basket, addr, addr, uuid.NewString, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		t.Fatalf("build order: %v", err)
	}
	if err := a.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	got, err := a.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got == nil {
		t.Fatal("order not found")
	}
	if len(got.Lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(got.Lines))
	}
	if got.Shipping != addr.Snapshot() {
		t.Errorf("shipping snapshot mismatch: %+v", got.Shipping)
	}

	lines, err := a.ListOrderLines(ctx, domain.OrderLineFilter{OrderStatus: domain.OrderStatusNew})
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	found := 0
	for _, l := range lines {
		if l.OrderID == order.ID {
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected 2 listed lines, got %d", found)
	}
}

func TestMySQL_ProductBySlugSkipsInactive(t *testing.T) {
	a, db := getMySQLAdapter(t)
	ctx := context.Background()
	slug := "dune-" + uuid.NewString()[:8]

	var ids []string
	for _, price := range []string{"10.00", "12.00"} {
		p := domain.Product{
			ID:        uuid.NewString(),
			Name:      "Dune",
			Price:     decimal.RequireFromString(price),
			Slug:      slug,
			State:     domain.CatalogStateActive,
			InStock:   true,
			UpdatedAt: time.Now(),
		}
		if err := a.CreateProduct(ctx, p); err != nil {
			t.Fatalf("create product: %v", err)
		}
		ids = append(ids, p.ID)
	}
	t.Cleanup(func() {
		for _, id := range ids {
			db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
		}
	})

	for _, retired := range ids {
		if _, err := a.SetProductState(ctx, []string{retired}, domain.CatalogStateInactive); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		got, err := a.GetProductBySlug(ctx, slug, true)
		if err != nil {
			t.Fatalf("get by slug: %v", err)
		}
		if got == nil || got.ID == retired {
			t.Errorf("expected the active product, got %+v", got)
		}
		if _, err := a.SetProductState(ctx, []string{retired}, domain.CatalogStateActive); err != nil {
			t.Fatalf("reactivate: %v", err)
		}
	}
}

func TestMySQL_ProductImages(t *testing.T) {
	a, db := getMySQLAdapter(t)
	_, p, _ := seedMySQL(t, a, db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	for i, name := range []string{"front", "back"} {
		img := domain.ProductImage{
			ID:            uuid.NewString(),
			ProductID:     p.ID,
			ImagePath:     "product-images/" + name + ".jpg",
			ThumbnailPath: "product-thumbnails/" + name + ".thumb.jpg",
			CreatedAt:     now.Add(time.Duration(i) * time.Second),
		}
		if err := a.AddProductImage(ctx, img); err != nil {
			t.Fatalf("add image: %v", err)
		}
	}

	images, err := a.ListProductImages(ctx, p.ID)
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	if len(images) != 2 || images[0].ImagePath != "product-images/front.jpg" {
		t.Errorf("unexpected images %+v", images)
	}
}
