package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	Env      string
	HTTPAddr string
	GRPCAddr string

	StoreDriver string
	MySQLDSN    string
	RedisAddr   string

	JWTSecret       string
	SessionTTL      time.Duration
	CheckoutLockTTL time.Duration

	SMTPHost             string
	SMTPPort             string
	SMTPFrom             string
	CustomerServiceEmail string

	MediaDir string

	PageSize    int
	MailWorkers int
	MailQueue   int
	CORSOrigins []string
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getDuration(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return parsed, nil
}

func getInt(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return parsed, nil
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:                  getEnv("APP_ENV", "dev"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:             getEnv("GRPC_ADDR", ":50051"),
		StoreDriver:          getEnv("STORE_DRIVER", DriverMySQL),
		MySQLDSN:             getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true&clientFoundRows=true"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnv("SMTP_PORT", "1025"),
		SMTPFrom:             getEnv("SMTP_FROM", "shop@localhost"),
		CustomerServiceEmail: getEnv("EMAIL_CUSTOMER_SERVICE", "customerservice@localhost"),
		MediaDir:             getEnv("MEDIA_DIR", "media"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 14*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CheckoutLockTTL, err = getDuration("CHECKOUT_LOCK_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PageSize, err = getInt("PAGE_SIZE", 12); err != nil {
		return Config{}, err
	}
	if cfg.MailWorkers, err = getInt("MAIL_WORKERS", 2); err != nil {
		return Config{}, err
	}
	if cfg.MailQueue, err = getInt("MAIL_QUEUE", 1000); err != nil {
		return Config{}, err
	}
	for _, o := range strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if cfg.StoreDriver != DriverMySQL && cfg.StoreDriver != DriverMemory {
		return Config{}, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver)
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set in prod")
		}
		cfg.JWTSecret = "dev-secret"
	}
	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}
