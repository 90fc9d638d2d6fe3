package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ReconcileReload = "reload"
	ReconcileMerge  = "merge"
)

// Config holds runtime configuration. Values come from an optional YAML file
// named by STOREFRONT_CONFIG, then environment variables override them.
type Config struct {
	HTTPAddr         string        `yaml:"http_addr"`
	DBConnString     string        `yaml:"db_dsn"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	LogMode          string        `yaml:"log_mode"`
	CORSAllowOrigins []string      `yaml:"cors_allow_origins"`
	CookieSecure     bool          `yaml:"cookie_secure"`

	Shopify ShopifyConfig `yaml:"shopify"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Cart    CartConfig    `yaml:"cart"`
	OTel    OTelConfig    `yaml:"otel"`
}

type ShopifyConfig struct {
	StoreDomain        string        `yaml:"store_domain"`
	AccessToken        string        `yaml:"access_token"`
	RevalidationSecret string        `yaml:"revalidation_secret"`
	APIVersion         string        `yaml:"api_version"`
	Timeout            time.Duration `yaml:"timeout"`
}

// Endpoint is the Storefront GraphQL URL for the configured store.
func (s ShopifyConfig) Endpoint() string {
	domain := strings.TrimRight(s.StoreDomain, "/")
	if domain == "" {
		return ""
	}
	if !strings.HasPrefix(domain, "https://") && !strings.HasPrefix(domain, "http://") {
		domain = "https://" + domain
	}
	return fmt.Sprintf("%s/api/%s/graphql.json", domain, s.APIVersion)
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type CartConfig struct {
	ReconcileMode     string        `yaml:"reconcile_mode"`
	RollbackOnFailure bool          `yaml:"rollback_on_failure"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,
		LogMode:         "development",
		Shopify: ShopifyConfig{
			APIVersion: "2023-01",
			Timeout:    10 * time.Second,
		},
		Redis: RedisConfig{
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Topic: "storefront.cart",
		},
		Cart: CartConfig{
			ReconcileMode: ReconcileReload,
			SessionTTL:    30 * time.Minute,
		},
		OTel: OTelConfig{
			ServiceName: "storefront",
			SampleRatio: 0.1,
		},
	}
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	cfg := defaults()
	applyEnv(&cfg)
	return cfg
}

// Load reads the optional YAML file, applies environment overrides and validates the result.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Cart.ReconcileMode {
	case ReconcileReload, ReconcileMerge:
	default:
		return fmt.Errorf("config: cart reconcile mode %q must be %q or %q", c.Cart.ReconcileMode, ReconcileReload, ReconcileMerge)
	}
	if c.Shopify.Timeout <= 0 {
		return fmt.Errorf("config: shopify timeout must be positive")
	}
	for _, origin := range c.CORSAllowOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("config: cors origin %q must include a scheme", origin)
		}
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DBConnString = envOrDefault("DB_DSN", cfg.DBConnString)
	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeout)
	cfg.LogMode = envOrDefault("LOG_MODE", cfg.LogMode)
	cfg.CORSAllowOrigins = envList("CORS_ALLOW_ORIGINS", cfg.CORSAllowOrigins)
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)

	cfg.Shopify.StoreDomain = envOrDefault("SHOPIFY_STORE_DOMAIN", cfg.Shopify.StoreDomain)
	cfg.Shopify.AccessToken = envOrDefault("SHOPIFY_STOREFRONT_ACCESS_TOKEN", cfg.Shopify.AccessToken)
	cfg.Shopify.RevalidationSecret = envOrDefault("SHOPIFY_REVALIDATION_SECRET", cfg.Shopify.RevalidationSecret)
	cfg.Shopify.APIVersion = envOrDefault("SHOPIFY_API_VERSION", cfg.Shopify.APIVersion)
	cfg.Shopify.Timeout = envDuration("SHOPIFY_TIMEOUT_SECONDS", cfg.Shopify.Timeout)

	cfg.Redis.Addr = envOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.CacheTTL = envDuration("CACHE_TTL_SECONDS", cfg.Redis.CacheTTL)

	cfg.Kafka.Brokers = envList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = envOrDefault("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Cart.ReconcileMode = strings.ToLower(envOrDefault("CART_RECONCILE_MODE", cfg.Cart.ReconcileMode))
	cfg.Cart.RollbackOnFailure = envBool("CART_ROLLBACK_ON_FAILURE", cfg.Cart.RollbackOnFailure)
	cfg.Cart.SessionTTL = envDuration("CART_SESSION_TTL_SECONDS", cfg.Cart.SessionTTL)

	cfg.OTel.Enabled = envBool("OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.Endpoint = envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.ServiceName = envOrDefault("OTEL_SERVICE_NAME", cfg.OTel.ServiceName)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
