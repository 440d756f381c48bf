package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	SiteURL     string
	NodeID      int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Store     StoreConfig
	Stripe    StripeConfig
	RateLimit RateLimitConfig
}

type StoreConfig struct {
	// Backend is "sql" (gorm over DBType) or "bolt".
	Backend  string
	BoltPath string
}

type StripeConfig struct {
	SecretKey       string
	ConnectClientID string
	WebhookSecrets  []string
	ChargeMode      string
	Currency        string
	APIBase         string
	ConnectBase     string
	TimeoutSeconds  int
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CheckoutBuyerRate     float64
	CheckoutBuyerBurst    int
	CheckoutEndpointRate  float64
	CheckoutEndpointBurst int
	CheckoutLockTTLSecond int
}

const (
	StoreBackendSQL  = "sql"
	StoreBackendBolt = "bolt"

	ChargeModeDestination = "destination"
	ChargeModeDirect      = "direct"
)

var (
	ErrMissingStripeSecret = errors.New("config: STRIPE_SECRET_KEY is required")
	ErrInvalidChargeMode   = errors.New("config: STRIPE_CHARGE_MODE must be destination or direct")
	ErrInvalidStoreBackend = errors.New("config: STORE_BACKEND must be sql or bolt")
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "flashmarket"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		SiteURL:      strings.TrimRight(strings.TrimSpace(getenv("SITE_URL", "")), "/"),
		NodeID:       getenvInt64("SNOWFLAKE_NODE", 1),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "flashmarket"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "flashmarket.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Store: StoreConfig{
			Backend:  strings.ToLower(strings.TrimSpace(getenv("STORE_BACKEND", StoreBackendSQL))),
			BoltPath: getenv("BOLT_PATH", "flashmarket.bolt"),
		},
		Stripe: StripeConfig{
			SecretKey:       strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			ConnectClientID: strings.TrimSpace(getenv("STRIPE_CONNECT_CLIENT_ID", "")),
			WebhookSecrets:  ParseList(getenv("STRIPE_WEBHOOK_SECRET", "")),
			ChargeMode:      strings.ToLower(strings.TrimSpace(getenv("STRIPE_CHARGE_MODE", ChargeModeDestination))),
			Currency:        strings.ToLower(strings.TrimSpace(getenv("CHECKOUT_CURRENCY", "sgd"))),
			APIBase:         strings.TrimRight(getenv("STRIPE_API_BASE", "https://api.stripe.com"), "/"),
			ConnectBase:     strings.TrimRight(getenv("STRIPE_CONNECT_BASE", "https://connect.stripe.com"), "/"),
			TimeoutSeconds:  getenvInt("STRIPE_TIMEOUT_SECONDS", 12),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getenvBool("RATE_LIMIT_ENABLED", true),
			RedisAddr:             strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:         getenv("REDIS_PASSWORD", ""),
			RedisDB:               getenvInt("REDIS_DB", 0),
			CheckoutBuyerRate:     getenvFloat("RATE_LIMIT_CHECKOUT_BUYER_RATE", 0.2),
			CheckoutBuyerBurst:    getenvInt("RATE_LIMIT_CHECKOUT_BUYER_BURST", 5),
			CheckoutEndpointRate:  getenvFloat("RATE_LIMIT_CHECKOUT_ENDPOINT_RATE", 50),
			CheckoutEndpointBurst: getenvInt("RATE_LIMIT_CHECKOUT_ENDPOINT_BURST", 100),
			CheckoutLockTTLSecond: getenvInt("RATE_LIMIT_CHECKOUT_LOCK_TTL_SECONDS", 10),
		},
	}

	return cfg
}

// Validate enforces the settings the service cannot start without.
func (c Config) Validate() error {
	if c.Stripe.SecretKey == "" {
		return ErrMissingStripeSecret
	}
	switch c.Stripe.ChargeMode {
	case ChargeModeDestination, ChargeModeDirect:
	default:
		return ErrInvalidChargeMode
	}
	switch c.Store.Backend {
	case StoreBackendSQL, StoreBackendBolt:
	default:
		return ErrInvalidStoreBackend
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// ParseList splits a comma-separated value, dropping blanks.
func ParseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
