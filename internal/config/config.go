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
	Port           string
	Environment    string
	Database       DatabaseConfig
	Redis          RedisConfig
	Shopify        ShopifyConfig
	ERP            ERPConfig
	Sync           SyncConfig
	Email          EmailConfig
	SMS            SMSConfig
	Delivery       DeliveryConfig
	API            APIConfig
	WorkerPoolSize int
	LogLevel       string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	URL string // e.g. redis://localhost:6379/0
}

type ShopifyConfig struct {
	ShopDomain    string
	AccessToken   string
	APIVersion    string
	WebhookSecret string // SHOPIFY_WEBHOOK_SECRET: verify incoming order webhooks (X-Shopify-Hmac-Sha256)
}

// ERPConfig is used to call the ERP/POS item and sales-order APIs
type ERPConfig struct {
	BaseURL        string
	AuthToken      string // sent as X-Auth-Token
	PageSize       int    // full sweep page size, max 10000
	UpsertChunk    int    // mirror upsert chunk, 250
	OutletUniverse []int  // outlets swept by the full sync
	RequestTimeout time.Duration
}

// SyncConfig drives the scheduler and the storefront pipeline
type SyncConfig struct {
	ERPCron        string // */15 * * * *
	StorefrontCron string // */15 2-17 * * *
	// StorefrontBoundaryCron covers the minutes past the end of the UTC window
	// that still fall inside the store's business day.
	StorefrontBoundaryCron string
	Timezone               string
	Timeout                time.Duration // 900000ms
	LeaseTTL               time.Duration
	BatchSize              int // storefront bulk mutation ceiling, 50
	Enabled                bool
}

// EmailConfig is used for transactional email through SendGrid dynamic templates
type EmailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	Templates      map[string]string // on_hold / delivered / canceled -> template id
}

// SMSConfig is used for customer SMS
type SMSConfig struct {
	BaseURL   string
	APIKey    string
	SenderID  string
	Templates map[string]string // split status -> template id
}

// DeliveryConfig is used for third-party rider dispatch and geocoding
type DeliveryConfig struct {
	RiderBaseURL     string // e.g. https://riderapi.vendor.in
	RiderAccessToken string
	GeocodeBaseURL   string
	GeocodeAPIKey    string
}

type APIConfig struct {
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
			DBName:   getEnvOrViper("DB_NAME", "retailsync"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL: getEnvOrViper("REDIS_URL", "redis://localhost:6379/0"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:    strings.TrimSpace(getEnvOrViper("SHOPIFY_SHOP_DOMAIN", "")),
			AccessToken:   strings.TrimSpace(getEnvOrViper("SHOPIFY_ACCESS_TOKEN", "")),
			APIVersion:    getEnvOrViper("SHOPIFY_API_VERSION", "2024-10"),
			WebhookSecret: strings.TrimSpace(getEnvOrViper("SHOPIFY_WEBHOOK_SECRET", "")),
		},
		ERP: ERPConfig{
			BaseURL:        strings.TrimSpace(getEnvOrViper("ERP_BASE_URL", "")),
			AuthToken:      strings.TrimSpace(getEnvOrViper("ERP_AUTH_TOKEN", "")),
			PageSize:       getIntOrViper("ERP_PAGE_SIZE", 10000),
			UpsertChunk:    getIntOrViper("ERP_UPSERT_CHUNK", 250),
			OutletUniverse: parseIntList(getEnvOrViper("ERP_OUTLET_UNIVERSE", "")),
			RequestTimeout: getDurationOrViper("ERP_REQUEST_TIMEOUT", 60*time.Second),
		},
		Sync: SyncConfig{
			ERPCron:                getEnvOrViper("SYNC_ERP_CRON", "*/15 * * * *"),
			StorefrontCron:         getEnvOrViper("SYNC_STOREFRONT_CRON", "*/15 2-17 * * *"),
			StorefrontBoundaryCron: getEnvOrViper("SYNC_STOREFRONT_BOUNDARY_CRON", "30,45 18 * * *"),
			Timezone:               getEnvOrViper("SYNC_TIMEZONE", "UTC"),
			Timeout:                getDurationOrViper("SYNC_TIMEOUT", 900000*time.Millisecond),
			LeaseTTL:               getDurationOrViper("SYNC_LEASE_TTL", 2*time.Minute),
			BatchSize:              getIntOrViper("SYNC_BATCH_SIZE", 50),
			Enabled:                getEnvOrViper("SYNC_ENABLED", "true") == "true",
		},
		Email: EmailConfig{
			SendGridAPIKey: strings.TrimSpace(getEnvOrViper("SENDGRID_API_KEY", "")),
			FromAddress:    getEnvOrViper("EMAIL_FROM_ADDRESS", ""),
			FromName:       getEnvOrViper("EMAIL_FROM_NAME", "Orders"),
			Templates: map[string]string{
				"on_hold":   getEnvOrViper("EMAIL_TEMPLATE_ON_HOLD", ""),
				"delivered": getEnvOrViper("EMAIL_TEMPLATE_DELIVERED", ""),
				"canceled":  getEnvOrViper("EMAIL_TEMPLATE_CANCELED", ""),
			},
		},
		SMS: SMSConfig{
			BaseURL:  strings.TrimSpace(getEnvOrViper("SMS_BASE_URL", "")),
			APIKey:   strings.TrimSpace(getEnvOrViper("SMS_API_KEY", "")),
			SenderID: getEnvOrViper("SMS_SENDER_ID", ""),
			Templates: map[string]string{
				"on_hold":   getEnvOrViper("SMS_TEMPLATE_ON_HOLD", ""),
				"delivered": getEnvOrViper("SMS_TEMPLATE_DELIVERED", ""),
				"canceled":  getEnvOrViper("SMS_TEMPLATE_CANCELED", ""),
			},
		},
		Delivery: DeliveryConfig{
			RiderBaseURL:     strings.TrimSpace(getEnvOrViper("RIDER_API_URL", "")),
			RiderAccessToken: strings.TrimSpace(getEnvOrViper("RIDER_ACCESS_TOKEN", "")),
			GeocodeBaseURL:   strings.TrimSpace(getEnvOrViper("GEOCODE_API_URL", "")),
			GeocodeAPIKey:    strings.TrimSpace(getEnvOrViper("GEOCODE_API_KEY", "")),
		},
		API: APIConfig{
			AdminKeyHash: strings.TrimSpace(getEnvOrViper("ADMIN_API_KEY_HASH", "")),
		},
		WorkerPoolSize: getIntOrViper("WORKER_POOL_SIZE", 3),
		LogLevel:       getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Shopify.ShopDomain == "" {
		return nil, fmt.Errorf("SHOPIFY_SHOP_DOMAIN is required")
	}
	if cfg.Shopify.AccessToken == "" {
		return nil, fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}
	if cfg.ERP.BaseURL == "" {
		return nil, fmt.Errorf("ERP_BASE_URL is required")
	}
	if cfg.ERP.AuthToken == "" {
		return nil, fmt.Errorf("ERP_AUTH_TOKEN is required")
	}
	if cfg.ERP.PageSize <= 0 || cfg.ERP.PageSize > 10000 {
		cfg.ERP.PageSize = 10000
	}
	if cfg.ERP.UpsertChunk <= 0 {
		cfg.ERP.UpsertChunk = 250
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = 50
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

func getIntOrViper(key string, defaultValue int) int {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return n
}

func getDurationOrViper(key string, defaultValue time.Duration) time.Duration {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return d
}

// parseIntList parses "1,2,3"; entries that are not numbers are dropped.
func parseIntList(raw string) []int {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}
