package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Upstream UpstreamConfig
	PayPal   PayPalConfig
	Business BusinessConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	PrometheusPort string
}

// UpstreamConfig points at the external PHP shop API that owns all
// order/product/user persistence.
type UpstreamConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// PayPalConfig drives the hosted-checkout redirect.
type PayPalConfig struct {
	BaseURL   string
	Business  string
	Currency  string
	ReturnURL string
	CancelURL string
}

type BusinessConfig struct {
	ShippingCost     float64
	MinOrderAmount   float64
	MarkerTTLMinutes int
	CatalogTTLSecs   int
	MaxChatHistory   int
}

type AuthConfig struct {
	JWTSecret string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	upstreamTimeout, _ := strconv.Atoi(getEnv("UPSTREAM_TIMEOUT_SECONDS", "10"))
	shippingCost, _ := strconv.ParseFloat(getEnv("SHIPPING_COST", "0"), 64)
	minOrder, _ := strconv.ParseFloat(getEnv("MIN_ORDER_AMOUNT", "0"), 64)
	markerTTL, _ := strconv.Atoi(getEnv("PAYMENT_MARKER_TTL_MINUTES", "5"))
	catalogTTL, _ := strconv.Atoi(getEnv("CATALOG_CACHE_TTL_SECONDS", "300"))
	maxChat, _ := strconv.Atoi(getEnv("MAX_CHAT_HISTORY", "100"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "storefront-order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-service-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			PrometheusPort: getEnv("PROMETHEUS_PORT", "9090"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getEnv("SHOP_API_BASE_URL", "https://shop.example.ch/api"),
			TimeoutSeconds: upstreamTimeout,
		},
		PayPal: PayPalConfig{
			BaseURL:   getEnv("PAYPAL_BASE_URL", "https://www.paypal.com/cgi-bin/webscr"),
			Business:  getEnv("PAYPAL_BUSINESS", "shop@example.ch"),
			Currency:  getEnv("PAYPAL_CURRENCY", "CHF"),
			ReturnURL: getEnv("PAYPAL_RETURN_URL", "http://localhost:8080/payment/return"),
			CancelURL: getEnv("PAYPAL_CANCEL_URL", "http://localhost:8080/payment/cancel"),
		},
		Business: BusinessConfig{
			ShippingCost:     shippingCost,
			MinOrderAmount:   minOrder,
			MarkerTTLMinutes: markerTTL,
			CatalogTTLSecs:   catalogTTL,
			MaxChatHistory:   maxChat,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
