package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Domenick1991/servicehub/internal/money"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. SERVICEHUB_DATABASE_HOST.
const EnvPrefix = "SERVICEHUB"

type Config struct {
	Env        string           `yaml:"env"`
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Auth       AuthConfig       `yaml:"auth"`
	Commission CommissionConfig `yaml:"commission"`
	Settlement SettlementConfig `yaml:"settlement"`
	Earnings   EarningsConfig   `yaml:"earnings"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Worker     WorkerConfig     `yaml:"worker"`
	Tracing    TracingConfig    `yaml:"tracing"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver"`
	// SeedPath optionally names a YAML file of users and services loaded
	// into the memory driver at startup.
	SeedPath string `yaml:"seed_path" split_words:"true"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic" split_words:"true"`
	PaymentEventsTopic string   `yaml:"payment_events_topic" split_words:"true"`
	NotificationsTopic string   `yaml:"notifications_topic" split_words:"true"`
	GroupID            string   `yaml:"group_id" split_words:"true"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" split_words:"true"`
}

type CommissionConfig struct {
	Rate string `yaml:"rate"`
}

// ParsedRate returns the commission rate as a decimal.
func (c CommissionConfig) ParsedRate() (decimal.Decimal, error) {
	return money.ParseRate(c.Rate)
}

type SettlementConfig struct {
	LockTTLSeconds    int    `yaml:"lock_ttl_seconds" split_words:"true"`
	PendingTTLMinutes int    `yaml:"pending_ttl_minutes" split_words:"true"`
	// CallbackSecret authenticates the payment gateway on the confirm and
	// fail callbacks. Empty disables both.
	CallbackSecret    string `yaml:"callback_secret" split_words:"true"`
}

func (s SettlementConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLSeconds) * time.Second
}

func (s SettlementConfig) PendingTTL() time.Duration {
	return time.Duration(s.PendingTTLMinutes) * time.Minute
}

type EarningsConfig struct {
	RecentLimit int `yaml:"recent_limit" split_words:"true"`
}

type DirectoryConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" split_words:"true"`
}

func (d DirectoryConfig) CacheTTL() time.Duration {
	return time.Duration(d.CacheTTLSeconds) * time.Second
}

type WorkerConfig struct {
	SweepMinutes int `yaml:"sweep_minutes" split_words:"true"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name" split_words:"true"`
}

type RateLimitConfig struct {
	PaymentsPerMinute int `yaml:"payments_per_minute" split_words:"true"`
	Burst             int `yaml:"burst"`
}

// Default returns the configuration used for keys the file and environment leave unset.
func Default() Config {
	return Config{
		Env:        "development",
		Log:        LogConfig{Level: "info"},
		HTTP:       HTTPConfig{Address: ":8080"},
		GRPC:       GRPCConfig{Address: ":9090"},
		Storage:    StorageConfig{Driver: "postgres"},
		Database:   DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable"},
		Redis:      RedisConfig{Addr: "localhost:6379"},
		Commission: CommissionConfig{Rate: "0.10"},
		Settlement: SettlementConfig{LockTTLSeconds: 30, PendingTTLMinutes: 30},
		Earnings:   EarningsConfig{RecentLimit: 10},
		Directory:  DirectoryConfig{CacheTTLSeconds: 300},
		Worker:     WorkerConfig{SweepMinutes: 5},
		Tracing:    TracingConfig{ServiceName: "servicehub"},
		RateLimit:  RateLimitConfig{PaymentsPerMinute: 30, Burst: 5},
	}
}

// LoadConfig reads the YAML file at path on top of Default and then applies
// SERVICEHUB_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Commission.ParsedRate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Earnings.RecentLimit < 0 {
		return fmt.Errorf("invalid config: earnings.recent_limit must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
