package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/retry"
	"gopkg.in/yaml.v3"
)

// AppConfig aggregates the settings of every subsystem.
type AppConfig struct {
	App      AppSettings    `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Retry    RetryConfig    `yaml:"retry"`
}

type AppSettings struct {
	Env      string `yaml:"env"`       // development, production or test
	LogLevel string `yaml:"log_level"` // zerolog level name
}

type ServerConfig struct {
	Port      string  `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client
	RateBurst int     `yaml:"rate_burst"`
}

type DatabaseConfig struct {
	Driver         string `yaml:"driver"` // mysql or memory
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	ConnectRetries int    `yaml:"connect_retries"`
}

type RedisConfig struct {
	Addr                string `yaml:"addr"`
	IdempotencyTTLHours int    `yaml:"idempotency_ttl_hours"`
	CartTTLHours        int    `yaml:"cart_ttl_hours"`
	StockCacheTTLSecs   int    `yaml:"stock_cache_ttl_seconds"`
}

type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type PricingConfig struct {
	VATRate float64 `yaml:"vat_rate"`
}

type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialDelayMs int     `yaml:"initial_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		App: AppSettings{
			Env:      "development",
			LogLevel: "info",
		},
		Server: ServerConfig{
			Port:      "8082",
			RateLimit: 5,
			RateBurst: 10,
		},
		Database: DatabaseConfig{
			Driver:         "mysql",
			Host:           "127.0.0.1",
			Port:           "3306",
			User:           "root",
			Name:           "pneushop",
			ConnectRetries: 10,
		},
		Redis: RedisConfig{
			Addr:                "localhost:6379",
			IdempotencyTTLHours: 24,
			CartTTLHours:        24 * 7,
			StockCacheTTLSecs:   60,
		},
		Kafka: KafkaConfig{
			Enabled:       true,
			Brokers:       []string{"localhost:9092", "localhost:9093", "localhost:9094"},
			Topic:         "pneushop-lifecycle",
			ConsumerGroup: "pneushop-stock-cache",
		},
		Auth: AuthConfig{
			JWTSecret:     "secret",
			TokenTTLHours: 24,
		},
		Pricing: PricingConfig{
			VATRate: 0.19,
		},
		Retry: RetryConfig{
			MaxAttempts:    5,
			InitialDelayMs: 20,
			MaxDelayMs:     500,
			Multiplier:     2.0,
		},
	}
}

// Load reads the YAML file at configPath, if any, over the defaults and then
// applies environment overrides. A missing file is not an error.
func Load(configPath string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFromYAML(configPath, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error loading config file: %w", err)
			}
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromYAML(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing YAML: %w", err)
	}
	return nil
}

func loadFromEnv(cfg *AppConfig) {
	if v := os.Getenv("ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASS"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("VAT_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pricing.VATRate = f
		}
	}
	if v := os.Getenv("RETRY_MAX_ATTEMPTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxAttempts = i
		}
	}

	// The test environment never needs external services.
	if cfg.App.Env == "test" {
		cfg.Database.Driver = "memory"
		cfg.Kafka.Enabled = false
	}
}

func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Pricing.VATRate < 0 || c.Pricing.VATRate >= 1 {
		return fmt.Errorf("vat_rate must be in [0, 1), got %v", c.Pricing.VATRate)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka is enabled but no brokers are configured")
	}
	return nil
}

// DSN is the go-sql-driver/mysql data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC", d.User, d.Password, d.Host, d.Port, d.Name)
}

func (r RedisConfig) IdempotencyTTL() time.Duration {
	return time.Duration(r.IdempotencyTTLHours) * time.Hour
}

func (r RedisConfig) CartTTL() time.Duration {
	return time.Duration(r.CartTTLHours) * time.Hour
}

func (r RedisConfig) StockCacheTTL() time.Duration {
	return time.Duration(r.StockCacheTTLSecs) * time.Second
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// RetryPolicy converts the YAML settings to a retry.Config.
func (r RetryConfig) RetryPolicy() retry.Config {
	return retry.Config{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: time.Duration(r.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(r.MaxDelayMs) * time.Millisecond,
		Multiplier:   r.Multiplier,
	}
}
