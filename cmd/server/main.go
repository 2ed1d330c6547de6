package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/imagestore"
	"github.com/rl1809/storefront/internal/adapter/mail"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

// cacheStore is what the services need from the cache: locks, session
// baskets and chat fan-out.
type cacheStore interface {
	port.CacheRepository
	port.ChatBroker
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		db      port.DatabaseRepository
		cache   cacheStore
		closers []func() error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		db = storage.NewMemoryAdapter()
		cache = storage.NewMemoryCache()
		log.Println("using in-memory storage")
	default:
		sqlDB, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		log.Println("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(sqlDB)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Println("connected to redis")

		db = mysqlAdapter
		cache = storage.NewRedisAdapter(rdb, cfg.SessionTTL)
		closers = append(closers, rdb.Close, sqlDB.Close)
	}

	var mailer port.Mailer = mail.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	}
	notifier := service.NewNotificationService(cfg.MailQueue)
	waitMail := notifier.Run(cfg.MailWorkers, mailer)
	log.Printf("started %d mail workers", cfg.MailWorkers)

	baskets := service.NewBasketService(db, cache)
	checkout := service.NewCheckoutService(db, cache, notifier, cfg.CheckoutLockTTL)
	svc := handler.Services{
		Auth:      service.NewAuthService(db, cfg.JWTSecret, cfg.SessionTTL),
		Addresses: service.NewAddressService(db),
		Catalog:   service.NewCatalogService(db, imagestore.NewDiskStore(cfg.MediaDir), cfg.PageSize),
		Baskets:   baskets,
		Checkout:  checkout,
		Orders:    service.NewOrderService(db),
		Reports:   service.NewReportService(db),
		Chat:      service.NewChatService(db, cache),
		Contact:   service.NewContactService(notifier, cfg.CustomerServiceEmail),
	}

	grpcServer := grpc.NewServer()
	handler.NewGRPCHandler(checkout, baskets).Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	httpHandler := handler.NewHTTPHandler(svc, handler.HTTPOptions{
		SessionTTL:  cfg.SessionTTL,
		CORSOrigins: cfg.CORSOrigins,
		Secure:      cfg.IsProd(),
		MediaDir:    cfg.MediaDir,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	// Stop intake, then let the workers drain what is queued.
	notifier.Close()
	waitMail()
	log.Println("mail workers stopped")

	for _, c := range closers {
		if err := c(); err != nil {
			log.Printf("close: %v", err)
		}
	}
	log.Println("connections closed")
}
