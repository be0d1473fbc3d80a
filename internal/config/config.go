package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "RESERVATION"

// ConfigFileEnv names an optional YAML file with the same keys.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI      string
	Database string
	LockTTL  time.Duration
}

// KafkaConfig holds Kafka settings. No brokers disables messaging.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	CatalogTopic string
	GroupPrefix  string
}

// HTTPConfig holds server and middleware settings.
type HTTPConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	StoreDriver string
	SQLitePath  string
	DBConfig    DatabaseConfig
	MongoConfig MongoConfig
	KafkaConfig KafkaConfig
	HTTPConfig  HTTPConfig
}

var defaults = map[string]any{
	"SERVICE_PORT":        "8080",
	"APP_ENV":             "development",
	"STORE_DRIVER":        StoreMemory,
	"DB_HOST":             "localhost",
	"DB_PORT":             "5432",
	"DB_USER":             "postgres",
	"DB_PASSWORD":         "postgres",
	"DB_NAME":             "reservations",
	"DB_SSLMODE":          "disable",
	"SQLITE_PATH":         "reservations.db",
	"MONGO_URI":           "mongodb://localhost:27017",
	"MONGO_DATABASE":      "reservations",
	"MONGO_LOCK_TTL":      "10s",
	"KAFKA_BROKERS":       "",
	"KAFKA_TOPIC":         "reservation.events",
	"KAFKA_CATALOG_TOPIC": "room.catalog",
	"KAFKA_GROUP_PREFIX":  "",
	"RATE_LIMIT_PER_SEC":  20.0,
	"RATE_LIMIT_BURST":    40,
	"CACHE_TTL":           "5s",
	"REQUEST_TIMEOUT":     "10s",
	"SHUTDOWN_TIMEOUT":    "10s",
}

// Load reads configuration from the environment and, when RESERVATION_CONFIG_FILE is
// set, from that YAML file. Environment variables win over the file.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &ServiceConfig{
		Port:        normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:      v.GetString("APP_ENV"),
		StoreDriver: strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		SQLitePath:  v.GetString("SQLITE_PATH"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		MongoConfig: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
			LockTTL:  v.GetDuration("MONGO_LOCK_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:      splitList(v.GetString("KAFKA_BROKERS")),
			Topic:        v.GetString("KAFKA_TOPIC"),
			CatalogTopic: v.GetString("KAFKA_CATALOG_TOPIC"),
			GroupPrefix:  v.GetString("KAFKA_GROUP_PREFIX"),
		},
		HTTPConfig: HTTPConfig{
			RateLimitPerSec: v.GetFloat64("RATE_LIMIT_PER_SEC"),
			RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
			CacheTTL:        v.GetDuration("CACHE_TTL"),
			RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *ServiceConfig) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DBConfig.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required for the postgres store"))
		}
		if c.DBConfig.DBName == "" {
			errs = append(errs, errors.New("DB_NAME is required for the postgres store"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case StoreMongo:
		if !strings.HasPrefix(c.MongoConfig.URI, "mongodb://") && !strings.HasPrefix(c.MongoConfig.URI, "mongodb+srv://") {
			errs = append(errs, fmt.Errorf("MONGO_URI %q must start with mongodb:// or mongodb+srv://", c.MongoConfig.URI))
		}
		if c.MongoConfig.Database == "" {
			errs = append(errs, errors.New("MONGO_DATABASE is required for the mongo store"))
		}
		if c.MongoConfig.LockTTL <= 0 {
			errs = append(errs, errors.New("MONGO_LOCK_TTL must be positive"))
		} else if c.MongoConfig.LockTTL < c.HTTPConfig.RequestTimeout {
			errs = append(errs, fmt.Errorf("MONGO_LOCK_TTL (%s) must not be shorter than REQUEST_TIMEOUT (%s)",
				c.MongoConfig.LockTTL, c.HTTPConfig.RequestTimeout))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of memory, postgres, sqlite, mongo", c.StoreDriver))
	}

	if len(c.KafkaConfig.Brokers) > 0 {
		if c.KafkaConfig.Topic == "" {
			errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
		}
		if c.KafkaConfig.CatalogTopic == "" {
			errs = append(errs, errors.New("KAFKA_CATALOG_TOPIC is required when KAFKA_BROKERS is set"))
		}
	}
	if c.HTTPConfig.RateLimitPerSec < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_SEC must not be negative"))
	}
	if c.HTTPConfig.RateLimitPerSec > 0 && c.HTTPConfig.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be at least 1 when rate limiting is on"))
	}
	if c.HTTPConfig.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must not be negative"))
	}
	if c.HTTPConfig.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// CacheEnabled reports whether GET responses may be cached. The cache is process-local
// and only flushed by local writes, so it is used with the in-memory store only.
func (c *ServiceConfig) CacheEnabled() bool {
	return c.HTTPConfig.CacheTTL > 0 && c.StoreDriver == StoreMemory
}

// IsDevelopment reports whether APP_ENV is development.
func (c *ServiceConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
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
