package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	Environment   string
	MigrationsDir string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	ClassTypeCacheTTL time.Duration

	AMQPURL      string
	AMQPExchange string

	TelegramToken string
	JWTSecret     string

	TxMaxRetries       int
	StatusTickInterval time.Duration
	NotifyQueueSize    int
	NotifyWorkers      int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфиг из переменных окружения без загрузки .env
func FromEnv() (*Config, error) {
	var err error

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   getString("ENV", "development"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"), // пусто - встроенные миграции
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getString("AMQP_EXCHANGE", "studio.events"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
	}

	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ClassTypeCacheTTL, err = getDuration("CLASS_TYPE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TxMaxRetries, err = getInt("TX_MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.StatusTickInterval, err = getDuration("STATUS_TICK_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyQueueSize, err = getInt("NOTIFY_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.NotifyWorkers, err = getInt("NOTIFY_WORKERS", 2); err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if cfg.TxMaxRetries < 0 {
		return nil, fmt.Errorf("TX_MAX_RETRIES must not be negative")
	}
	if cfg.StatusTickInterval <= 0 {
		return nil, fmt.Errorf("STATUS_TICK_INTERVAL must be positive")
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
