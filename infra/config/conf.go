package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mstgnz/cardgate/signing"
)

type CKey string

type Config struct {
	Validator *validator.Validate
	// InstanceID identifies this process in logs and audit events.
	InstanceID string
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port                string
	AppURL              string
	Environment         string
	GatewaySharedSecret string
	WebhookSecret       string
	DefaultProvider     string
	StripeSecretKey     string
	StripePublicKey     string
	StripeWebhookSecret string
	SQLitePath          string
	OpenSearchURL       string
	OpenSearchUser      string
	OpenSearchPass      string
	EnableLogging       bool
	LoggingLevel        string
	APIKey              string
	RateLimitPerMinute  int
}

var (
	instance     *Config
	instanceOnce sync.Once

	appConfigInstance *AppConfig
	appConfigOnce     sync.Once
)

func App() *Config {
	instanceOnce.Do(func() {
		instance = &Config{
			Validator:  validator.New(),
			InstanceID: uuid.NewString(),
		}
	})
	return instance
}

// GetAppConfig returns the application configuration, read from the environment once.
func GetAppConfig() *AppConfig {
	appConfigOnce.Do(func() {
		appConfigInstance = LoadAppConfig()
	})
	return appConfigInstance
}

// LoadAppConfig reads a fresh AppConfig from the environment.
func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Port:                GetEnv("APP_PORT", "9999"),
		AppURL:              GetEnv("APP_URL", "http://localhost:9999"),
		Environment:         GetEnv("ENVIRONMENT", "development"),
		GatewaySharedSecret: GetEnv("GATEWAY_SHARED_SECRET", ""),
		WebhookSecret:       GetEnv("WEBHOOK_SECRET", ""),
		DefaultProvider:     strings.ToLower(GetEnv("DEFAULT_PROVIDER", "stripe")),
		StripeSecretKey:     GetEnv("STRIPE_SECRET_KEY", ""),
		StripePublicKey:     GetEnv("STRIPE_PUBLIC_KEY", ""),
		StripeWebhookSecret: GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		SQLitePath:          GetEnv("SQLITE_PATH", "./data/cardgate.db"),
		OpenSearchURL:       GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchUser:      GetEnv("OPENSEARCH_USER", ""),
		OpenSearchPass:      GetEnv("OPENSEARCH_PASSWORD", ""),
		EnableLogging:       GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
		LoggingLevel:        GetEnv("LOGGING_LEVEL", "info"),
		APIKey:              GetEnv("API_KEY", ""),
		RateLimitPerMinute:  GetIntEnv("RATE_LIMIT_PER_MINUTE", 100),
	}
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// SigningConfig is the secret used for outbound verification hashes.
func (c *AppConfig) SigningConfig() signing.Config {
	return signing.Config{SharedSecret: c.GatewaySharedSecret}
}

// WebhookSigningConfig is the secret used to authenticate inbound webhooks.
// It falls back to the gateway shared secret when WEBHOOK_SECRET is unset.
func (c *AppConfig) WebhookSigningConfig() signing.Config {
	if c.WebhookSecret != "" {
		return signing.Config{SharedSecret: c.WebhookSecret}
	}
	return c.SigningConfig()
}

// ProviderEnvironment maps ENVIRONMENT onto the gateway environment names
// ("production" or "sandbox").
func (c *AppConfig) ProviderEnvironment() string {
	if c.IsProduction() {
		return "production"
	}
	return "sandbox"
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
