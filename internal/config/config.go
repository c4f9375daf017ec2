package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	Gateway     GatewayConfig
	Checkout    CheckoutConfig
	Auth        AuthConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig is used for guest (anonymous session) carts
type RedisConfig struct {
	URL          string // e.g. redis://localhost:6379/0
	GuestCartTTL time.Duration
}

// GatewayConfig selects and tunes the payment gateway
type GatewayConfig struct {
	Provider        string        // "mock" or "stripe"
	Timeout         time.Duration // bound on a single gateway call
	StripeSecretKey string
}

// CheckoutConfig carries the order-total arithmetic constants
type CheckoutConfig struct {
	TaxRate               float64 // fraction of subtotal, e.g. 0.15
	FreeShippingThreshold float64 // shipping waived when subtotal exceeds this
	ShippingFee           float64 // flat fee below the threshold
}

type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	AdminKeyHash string // bcrypt hash of the admin API key
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "storefront"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:          strings.TrimSpace(getEnvOrViper("REDIS_URL", "redis://localhost:6379/0")),
			GuestCartTTL: getDuration("GUEST_CART_TTL", 72*time.Hour),
		},
		Gateway: GatewayConfig{
			Provider:        getEnvOrViper("PAYMENT_GATEWAY", "mock"),
			Timeout:         getDuration("GATEWAY_TIMEOUT", 5*time.Second),
			StripeSecretKey: strings.TrimSpace(getEnvOrViper("STRIPE_SECRET_KEY", "")),
		},
		Checkout: CheckoutConfig{
			TaxRate:               getFloat("TAX_RATE", 0.15),
			FreeShippingThreshold: getFloat("FREE_SHIPPING_THRESHOLD", 100),
			ShippingFee:           getFloat("SHIPPING_FEE", 10),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnvOrViper("JWT_SECRET", "dev-secret-change-in-production"),
			TokenTTL:     getDuration("TOKEN_TTL", 24*time.Hour),
			AdminKeyHash: strings.TrimSpace(getEnvOrViper("ADMIN_KEY_HASH", "")),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Gateway.Provider == "stripe" && cfg.Gateway.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_GATEWAY=stripe")
	}
	if cfg.Checkout.TaxRate < 0 || cfg.Checkout.TaxRate >= 1 {
		return nil, fmt.Errorf("TAX_RATE must be in [0, 1)")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}

func getFloat(key string, defaultValue float64) float64 {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
