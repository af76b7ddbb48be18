package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

var (
	// ErrReadConfig возвращается, когда файл конфигурации не удалось прочитать
	ErrReadConfig = errors.New("config: failed to read config file")

	// ErrParseEnv возвращается при некорректных переменных окружения
	ErrParseEnv = errors.New("config: failed to parse environment")

	// ErrInvalidConfig возвращается при невалидных значениях
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	UserService UserServiceConfig `toml:"user_service"`
	Ledger      LedgerConfig      `toml:"ledger"`
	Queue       QueueConfig       `toml:"queue"`
	Scheduling  SchedulingConfig  `toml:"scheduling"`
	RateLimit   RateLimitConfig   `toml:"rate_limit"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     int `toml:"read_timeout"`     // секунды
	WriteTimeout    int `toml:"write_timeout"`    // секунды
	IdleTimeout     int `toml:"idle_timeout"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"` // секунды
}

type DatabaseConfig struct {
	Host            string `toml:"host" env:"DB_HOST"`
	Port            int    `toml:"port" env:"DB_PORT"`
	User            string `toml:"user" env:"DB_USER"`
	Password        string `toml:"password" env:"DB_PASSWORD"`
	DBName          string `toml:"dbname" env:"DB_NAME"`
	SSLMode         string `toml:"sslmode" env:"DB_SSLMODE"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LogsConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
	File  string `toml:"file" env:"LOG_FILE"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled" env:"METRICS_ENABLED"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

type UserServiceConfig struct {
	URL       string `toml:"url" env:"USER_SERVICE_URL"`
	Timeout   int    `toml:"timeout"`    // секунды
	CacheSize int    `toml:"cache_size"` // 0 - без кэша
	CacheTTL  int    `toml:"cache_ttl"`  // секунды
}

// LedgerConfig внешняя учетная система (ERP)
type LedgerConfig struct {
	Enabled   bool    `toml:"enabled" env:"LEDGER_ENABLED"`
	URL       string  `toml:"url" env:"LEDGER_URL"`
	APIKey    string  `toml:"api_key" env:"LEDGER_API_KEY"`
	Timeout   int     `toml:"timeout"`    // секунды
	RateLimit float64 `toml:"rate_limit"` // запросов в секунду, 0 - без ограничения
}

// QueueConfig очередь фоновой доставки проводок (asynq поверх Redis)
type QueueConfig struct {
	Enabled       bool   `toml:"enabled" env:"QUEUE_ENABLED"`
	RedisAddr     string `toml:"redis_addr" env:"QUEUE_REDIS_ADDR"`
	RedisPassword string `toml:"redis_password" env:"QUEUE_REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" env:"QUEUE_REDIS_DB"`
	Concurrency   int    `toml:"concurrency"`
	MaxRetry      int    `toml:"max_retry"`
	Queue         string `toml:"queue"`
}

type SchedulingConfig struct {
	BreakBufferMinutes int `toml:"break_buffer_minutes" env:"BREAK_BUFFER_MINUTES"`
}

// RateLimitConfig ограничение частоты изменяющих запросов на пользователя
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Load читает toml-файл, применяет значения по умолчанию и переопределения из окружения
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseEnv, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default значения, которые используются, если в файле ничего не указано
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "counseling_service",
		},
		UserService: UserServiceConfig{
			Timeout:   5,
			CacheSize: 1000,
			CacheTTL:  60,
		},
		Ledger: LedgerConfig{
			Timeout:   10,
			RateLimit: 20,
		},
		Queue: QueueConfig{
			RedisAddr:   "localhost:6379",
			Concurrency: 5,
			MaxRetry:    10,
			Queue:       "ledger",
		},
		Scheduling: SchedulingConfig{
			BreakBufferMinutes: domain.DefaultBreakBufferMinutes,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port %d", ErrInvalidConfig, c.Server.HTTPPort)
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("%w: database host, dbname and user are required", ErrInvalidConfig)
	}
	if c.UserService.URL == "" {
		return fmt.Errorf("%w: user_service.url is required", ErrInvalidConfig)
	}
	if c.Ledger.Enabled && c.Ledger.URL == "" {
		return fmt.Errorf("%w: ledger.url is required when ledger is enabled", ErrInvalidConfig)
	}
	if c.Queue.Enabled && c.Queue.RedisAddr == "" {
		return fmt.Errorf("%w: queue.redis_addr is required when queue is enabled", ErrInvalidConfig)
	}
	if c.Scheduling.BreakBufferMinutes < 0 {
		return fmt.Errorf("%w: scheduling.break_buffer_minutes must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: rate_limit requires positive requests_per_second and burst", ErrInvalidConfig)
	}
	return nil
}
