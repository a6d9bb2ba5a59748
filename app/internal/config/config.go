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
	LogLevel    string
	Storefront  StorefrontConfig
	Store       StoreConfig
	JWTSecret   string
	Checkout    CheckoutConfig
}

type StorefrontConfig struct {
	BaseURL string
	Timeout time.Duration
}

type StoreConfig struct {
	Driver   string
	MySQLDSN string
	PGDSN    string
}

type CheckoutConfig struct {
	RevalidateDiscount bool
	PriceDecimals      int32
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("UPSTREAM_TIMEOUT", "10s")
	viper.SetDefault("STORE_DRIVER", "memory")
	viper.SetDefault("REVALIDATE_DISCOUNT_AT_CHECKOUT", "true")
	viper.SetDefault("PRICE_DECIMALS", "2")

	viper.AutomaticEnv()

	// .env is optional; plain environment variables are enough.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	timeout, err := time.ParseDuration(getEnvOrViper("UPSTREAM_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}
	revalidate, err := strconv.ParseBool(getEnvOrViper("REVALIDATE_DISCOUNT_AT_CHECKOUT", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid REVALIDATE_DISCOUNT_AT_CHECKOUT: %w", err)
	}
	decimals, err := strconv.ParseInt(getEnvOrViper("PRICE_DECIMALS", "2"), 10, 32)
	if err != nil || decimals < 0 {
		return nil, fmt.Errorf("invalid PRICE_DECIMALS: %q", getEnvOrViper("PRICE_DECIMALS", "2"))
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Storefront: StorefrontConfig{
			BaseURL: strings.TrimSuffix(getEnvOrViper("STOREFRONT_API_URL", ""), "/"),
			Timeout: timeout,
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getEnvOrViper("STORE_DRIVER", "memory")),
			MySQLDSN: getEnvOrViper("MYSQL_DSN", ""),
			PGDSN:    getEnvOrViper("PG_DSN", ""),
		},
		JWTSecret: getEnvOrViper("JWT_SECRET", ""),
		Checkout: CheckoutConfig{
			RevalidateDiscount: revalidate,
			PriceDecimals:      int32(decimals),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storefront.BaseURL == "" {
		return fmt.Errorf("STOREFRONT_API_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Storefront.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	switch c.Store.Driver {
	case "memory":
	case "mysql":
		if c.Store.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when STORE_DRIVER=mysql")
		}
	case "postgres":
		if c.Store.PGDSN == "" {
			return fmt.Errorf("PG_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
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
