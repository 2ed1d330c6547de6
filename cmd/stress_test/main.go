package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

const (
	totalRequests = 50
	lineQuantity  = 3
)

// Fires many concurrent conversions of the same basket. Exactly one may
// produce an order; the rest must see the basket locked or already
// submitted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	var (
		db    port.DatabaseRepository
		cache port.CacheRepository
	)
	if cfg.StoreDriver == config.DriverMemory {
		db = storage.NewMemoryAdapter()
		cache = storage.NewMemoryCache()
	} else {
		sqlDB, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		defer sqlDB.Close()
		mysqlAdapter := storage.NewMySQLAdapter(sqlDB)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		db = mysqlAdapter
		cache = storage.NewRedisAdapter(rdb, cfg.SessionTTL)
	}

	notifier := service.NewNotificationService(totalRequests)
	defer notifier.Close()
	go func() {
		for range notifier.Queue() {
		}
	}()

	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.SessionTTL)
	user, err := auth.Register(ctx, service.RegisterInput{
		Email:    fmt.Sprintf("stress-%s@example.com", uuid.NewString()[:8]),
		Password: uuid.NewString(),
	})
	if err != nil {
		log.Fatalf("failed to register user: %v", err)
	}
	actor := service.Actor{UserID: user.ID}

	product := domain.Product{
		ID:        uuid.NewString(),
		Name:      "Stress Lamp",
		Price:     decimal.RequireFromString("9.99"),
		Slug:      "stress-lamp-" + uuid.NewString()[:8],
		State:     domain.CatalogStateActive,
		InStock:   true,
		UpdatedAt: time.Now(),
	}
	if err := db.CreateProduct(ctx, product); err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	addr, err := service.NewAddressService(db).Create(ctx, actor, service.AddressInput{
		Name:       "Stress Test",
		Address1:   "1 Main Street",
		PostalCode: "12345",
		City:       "Springfield",
		Country:    "US",
	})
	if err != nil {
		log.Fatalf("failed to create address: %v", err)
	}

	basket, err := service.NewBasketService(db, cache).AddProduct(ctx, actor, product.ID, lineQuantity)
	if err != nil {
		log.Fatalf("failed to fill basket: %v", err)
	}

	checkout := service.NewCheckoutService(db, cache, notifier, cfg.CheckoutLockTTL)
	in := service.ConvertInput{
		BasketID:          basket.ID,
		BillingAddressID:  addr.ID,
		ShippingAddressID: addr.ID,
		UserID:            user.ID,
	}

	var successCount, lockedCount, closedCount, otherCount atomic.Int32
	var orderID atomic.Value

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := checkout.Convert(ctx, in)
			switch {
			case err == nil:
				successCount.Add(1)
				orderID.Store(order.ID)
			case errors.Is(err, service.ErrCheckoutInProgress):
				lockedCount.Add(1)
			case errors.Is(err, service.ErrBasketNotOpen):
				closedCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store:            %s\n", cfg.StoreDriver)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Locked Out:       %d\n", lockedCount.Load())
	fmt.Printf("Already Closed:   %d\n", closedCount.Load())
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if successCount.Load() == 1 && otherCount.Load() == 0 {
		fmt.Println("PASS: Exactly 1 conversion succeeded")
	} else {
		fmt.Printf("FAIL: Expected 1 success and no other errors, got %d/%d\n", successCount.Load(), otherCount.Load())
	}

	id, _ := orderID.Load().(string)
	if id == "" {
		return
	}
	order, err := db.GetOrder(ctx, id)
	if err != nil || order == nil {
		fmt.Printf("FAIL: order %s not readable: %v\n", id, err)
		return
	}
	if len(order.Lines) == lineQuantity {
		fmt.Printf("PASS: Order has %d lines\n", lineQuantity)
	} else {
		fmt.Printf("FAIL: Expected %d order lines, got %d\n", lineQuantity, len(order.Lines))
	}
}
