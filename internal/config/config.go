package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Pricing  PricingConfig
	Checkout CheckoutConfig
	Voucher  VoucherConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Dir   string
	Level string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderCreated       string
	OrderStatusChanged string
	TransactionUpdated string
}

// DatabaseConfig points bun at sqlite. The default DSN is a shared in-memory
// database, so nothing outlives the process.
type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
}

type PricingConfig struct {
	Currency         string
	PricePerKm       decimal.Decimal
	TaxRateDefault   decimal.Decimal
	SurchargeWeekend decimal.Decimal
	SurchargeEvening decimal.Decimal
	InsuranceRate    decimal.Decimal
}

type CheckoutConfig struct {
	SettlementDelay time.Duration
	LockTTL         time.Duration
	BookingSlots    []string
	MinLeadDays     int
	Installments    int
	PaymentMethods  []string
}

type VoucherConfig struct {
	Size   int
	Secret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8084"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				OrderCreated:       getEnv("KAFKA_TOPIC_ORDER_CREATED", "artipol.order.created"),
				OrderStatusChanged: getEnv("KAFKA_TOPIC_ORDER_STATUS", "artipol.order.status"),
				TransactionUpdated: getEnv("KAFKA_TOPIC_TRANSACTION", "artipol.transaction.updated"),
			},
		},
		Database: DatabaseConfig{
			DSN:          getEnv("SQLITE_DSN", "file::memory:?cache=shared"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 1),
		},
		Pricing: PricingConfig{
			Currency:         getEnv("CURRENCY", "EUR"),
			PricePerKm:       getEnvDecimal("PRICE_PER_KM", "0.95"),
			TaxRateDefault:   getEnvDecimal("TVA_RATE_DEFAULT", "20"),
			SurchargeWeekend: getEnvDecimal("SURCHARGE_WEEKEND", "45"),
			SurchargeEvening: getEnvDecimal("SURCHARGE_EVENING", "25"),
			InsuranceRate:    getEnvDecimal("INSURANCE_RATE", "0.03"),
		},
		Checkout: CheckoutConfig{
			SettlementDelay: getEnvDuration("SETTLEMENT_DELAY", 4*time.Second),
			LockTTL:         getEnvDuration("CHECKOUT_LOCK_TTL", 5*time.Minute),
			BookingSlots:    getEnvList("BOOKING_SLOTS", []string{"08:30", "10:30", "14:00", "16:00"}),
			MinLeadDays:     getEnvInt("MIN_LEAD_DAYS", 2),
			Installments:    getEnvInt("SPLIT_INSTALLMENTS", 3),
			PaymentMethods:  getEnvList("PAYMENT_METHODS", []string{"CARD", "APPLE_PAY", "SPLIT"}),
		},
		Voucher: VoucherConfig{
			Size:   getEnvInt("VOUCHER_SIZE", 256),
			Secret: getEnv("VOUCHER_SECRET", "artipol-voucher-dev-secret"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return decimal.RequireFromString(defaultValue)
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
