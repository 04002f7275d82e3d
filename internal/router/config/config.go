package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Режимы подключаемых компонентов.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	LockLocal = "local"
	LockRedis = "redis"

	NotifierNoop     = "noop"
	NotifierRabbitMQ = "rabbitmq"

	SettlementInstant = "instant"
	SettlementHTTP    = "http"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn   string        `mapstructure:"POSTGRES_CONN"`
	PostgresUser   string        `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass   string        `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost   string        `mapstructure:"POSTGRES_HOST"`
	PostgresPort   string        `mapstructure:"POSTGRES_PORT"`
	PostgresDB     string        `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL   string        `mapstructure:"MIGRATION_URL"`
	StorageMode    string        `mapstructure:"STORAGE_MODE"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`

	LockMode      string        `mapstructure:"LOCK_MODE"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL"`

	NotifierMode     string        `mapstructure:"NOTIFIER_MODE"`
	RabbitMQURL      string        `mapstructure:"RABBITMQ_URL"`
	NotifierExchange string        `mapstructure:"NOTIFIER_EXCHANGE"`
	NotifyTimeout    time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	SettlementMode    string        `mapstructure:"SETTLEMENT_MODE"`
	SettlementURL     string        `mapstructure:"SETTLEMENT_URL"`
	SettlementTimeout time.Duration `mapstructure:"SETTLEMENT_TIMEOUT"`
	ReconcileSchedule string        `mapstructure:"RECONCILE_SCHEDULE"`

	EnforceMaxBids bool `mapstructure:"ENFORCE_MAX_BIDS"`
	UpdateAttempts int  `mapstructure:"UPDATE_ATTEMPTS"`
}

var defaults = map[string]interface{}{
	"SERVER_ADDRESS":     "0.0.0.0:8080",
	"POSTGRES_CONN":      "",
	"POSTGRES_USERNAME":  "",
	"POSTGRES_PASSWORD":  "",
	"POSTGRES_HOST":      "",
	"POSTGRES_PORT":      "5432",
	"POSTGRES_DATABASE":  "",
	"MIGRATION_URL":      "file://migrations",
	"STORAGE_MODE":       StoragePostgres,
	"JWT_SECRET":         "",
	"REQUEST_TIMEOUT":    "5s",
	"CORS_ORIGINS":       "*",
	"LOCK_MODE":          LockLocal,
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"LOCK_TTL":           "30s",
	"NOTIFIER_MODE":      NotifierNoop,
	"RABBITMQ_URL":       "",
	"NOTIFIER_EXCHANGE":  "tender.events",
	"NOTIFY_TIMEOUT":     "3s",
	"SETTLEMENT_MODE":    SettlementInstant,
	"SETTLEMENT_URL":     "",
	"SETTLEMENT_TIMEOUT": "10s",
	"RECONCILE_SCHEDULE": "@every 1m",
	"ENFORCE_MAX_BIDS":   false,
	"UPDATE_ATTEMPTS":    3,
}

// LoadConfig загружает конфигурацию из app.env в каталоге path.
// Переменные окружения и необязательный .env имеют приоритет над файлом.
func LoadConfig(path string) (cfg Config, err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("cannot load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("cannot read app.env: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("cannot decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность выбранных режимов.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StorageMode {
	case StoragePostgres:
		if c.DatabaseURL() == "" {
			return errors.New("POSTGRES_CONN or POSTGRES_HOST is required for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_MODE %q", c.StorageMode)
	}
	switch c.LockMode {
	case LockLocal:
	case LockRedis:
		// аренда должна пережить самый долгий запрос: платёж ждёт рельс дольше остальных
		if c.LockTTL <= c.RequestTimeout+c.SettlementTimeout {
			return fmt.Errorf("LOCK_TTL %s must exceed REQUEST_TIMEOUT + SETTLEMENT_TIMEOUT (%s)", c.LockTTL, c.RequestTimeout+c.SettlementTimeout)
		}
	default:
		return fmt.Errorf("unknown LOCK_MODE %q", c.LockMode)
	}
	switch c.NotifierMode {
	case NotifierNoop:
	case NotifierRabbitMQ:
		if c.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL is required for rabbitmq notifier")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER_MODE %q", c.NotifierMode)
	}
	switch c.SettlementMode {
	case SettlementInstant:
	case SettlementHTTP:
		if c.SettlementURL == "" {
			return errors.New("SETTLEMENT_URL is required for http settlement")
		}
	default:
		return fmt.Errorf("unknown SETTLEMENT_MODE %q", c.SettlementMode)
	}
	if c.UpdateAttempts < 1 {
		return errors.New("UPDATE_ATTEMPTS must be at least 1")
	}
	return nil
}

// DatabaseURL возвращает строку подключения к Postgres.
// POSTGRES_CONN имеет приоритет; иначе строка собирается из POSTGRES_HOST и соседних ключей.
func (c Config) DatabaseURL() string {
	if c.PostgresConn != "" {
		return c.PostgresConn
	}
	if c.PostgresHost == "" {
		return ""
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}
	dsn := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.PostgresHost, port),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	if c.PostgresUser != "" {
		dsn.User = url.UserPassword(c.PostgresUser, c.PostgresPass)
	}
	return dsn.String()
}
