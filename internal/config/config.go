package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is built once at process start and handed to the components that
// need it.
type Config struct {
	HTTP     HTTPConfig
	DB       DBConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Checkout CheckoutConfig
	Storage  StorageConfig
}

type HTTPConfig struct {
	Addr      string
	RateLimit float64 // requests per second per client
	RateBurst int
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Pass         string
	Name         string
	Retries      int
	MaxOpenConns int
}

type RedisConfig struct {
	Addr             string
	IdempotencyTTL   time.Duration
	ProductCacheTTL  time.Duration
	FeeRulesCacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type CheckoutConfig struct {
	CartTTL             time.Duration
	DefaultShipping     decimal.Decimal
	DefaultTaxRate      decimal.Decimal
	OrderNumberPrefix   string
	NotificationTimeout time.Duration
}

type StorageConfig struct {
	Driver        string // "local" | "s3"
	LocalRoot     string
	PublicBaseURL string
	S3Bucket      string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	S3Endpoint    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8082")
	v.SetDefault("http.rate_limit", 5)
	v.SetDefault("http.rate_burst", 10)

	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.user", "root")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.name", "marketplace")
	v.SetDefault("db.retries", 10)
	v.SetDefault("db.max_open_conns", 25)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.idempotency_ttl", "24h")
	v.SetDefault("redis.product_cache_ttl", "1m")
	v.SetDefault("redis.fee_rules_cache_ttl", "5m")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.order_topic", "order-topic")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("checkout.cart_ttl", "720h")
	v.SetDefault("checkout.default_shipping", "0")
	v.SetDefault("checkout.default_tax_rate", "0")
	v.SetDefault("checkout.order_number_prefix", "ORD")
	v.SetDefault("checkout.notification_timeout", "10s")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_root", "./uploads")
	v.SetDefault("storage.public_base_url", "http://localhost:8082/uploads")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.s3_endpoint", "")
}

// Load reads an optional .env file, then environment variables such as
// DB_HOST or CHECKOUT_DEFAULT_TAX_RATE, over built-in defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	shipping, err := decimal.NewFromString(v.GetString("checkout.default_shipping"))
	if err != nil {
		return nil, fmt.Errorf("config: checkout.default_shipping: %w", err)
	}
	taxRate, err := decimal.NewFromString(v.GetString("checkout.default_tax_rate"))
	if err != nil {
		return nil, fmt.Errorf("config: checkout.default_tax_rate: %w", err)
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:      v.GetString("http.addr"),
			RateLimit: v.GetFloat64("http.rate_limit"),
			RateBurst: v.GetInt("http.rate_burst"),
		},
		DB: DBConfig{
			Host:         v.GetString("db.host"),
			Port:         v.GetString("db.port"),
			User:         v.GetString("db.user"),
			Pass:         v.GetString("db.pass"),
			Name:         v.GetString("db.name"),
			Retries:      v.GetInt("db.retries"),
			MaxOpenConns: v.GetInt("db.max_open_conns"),
		},
		Redis: RedisConfig{
			Addr:             v.GetString("redis.addr"),
			IdempotencyTTL:   v.GetDuration("redis.idempotency_ttl"),
			ProductCacheTTL:  v.GetDuration("redis.product_cache_ttl"),
			FeeRulesCacheTTL: v.GetDuration("redis.fee_rules_cache_ttl"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("kafka.brokers")),
			OrderTopic: v.GetString("kafka.order_topic"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Checkout: CheckoutConfig{
			CartTTL:             v.GetDuration("checkout.cart_ttl"),
			DefaultShipping:     shipping,
			DefaultTaxRate:      taxRate,
			OrderNumberPrefix:   v.GetString("checkout.order_number_prefix"),
			NotificationTimeout: v.GetDuration("checkout.notification_timeout"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			LocalRoot:     v.GetString("storage.local_root"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			S3Bucket:      v.GetString("storage.s3_bucket"),
			S3Region:      v.GetString("storage.s3_region"),
			S3AccessKey:   v.GetString("storage.s3_access_key"),
			S3SecretKey:   v.GetString("storage.s3_secret_key"),
			S3Endpoint:    v.GetString("storage.s3_endpoint"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: AUTH_JWT_SECRET is required")
	}
	if c.Checkout.DefaultTaxRate.IsNegative() || c.Checkout.DefaultShipping.IsNegative() {
		return fmt.Errorf("config: checkout defaults must not be negative")
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("config: STORAGE_S3_BUCKET is required for the s3 driver")
		}
	default:
		return fmt.Errorf("config: unsupported storage driver %q", c.Storage.Driver)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
