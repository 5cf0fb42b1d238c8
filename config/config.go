package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL       string
	JWTSecretKey      string
	AdminPasswordHash string
	ServerPort        int
	TokenTTL          time.Duration

	// Кеш состояний на конец раунда.
	CacheEnabled   bool
	CacheMaxKeys   int
	CacheIdleEvict time.Duration

	// Архив итоговых таблиц в R2. Пустой bucket выключает архивирование.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	adminHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if adminHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	tokenTTL, err := durationEnv("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cacheEnabled := os.Getenv("CACHE_ENABLED") != "false"
	cacheMaxKeys, err := intEnv("CACHE_MAX_KEYS", 256)
	if err != nil {
		return nil, err
	}
	cacheIdleEvict, err := durationEnv("CACHE_IDLE_EVICT", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		JWTSecretKey:      jwtKey,
		AdminPasswordHash: adminHash,
		ServerPort:        port,
		TokenTTL:          tokenTTL,
		CacheEnabled:      cacheEnabled,
		CacheMaxKeys:      cacheMaxKeys,
		CacheIdleEvict:    cacheIdleEvict,
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2Bucket:          os.Getenv("R2_BUCKET"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// ArchiveConfigured сообщает, заданы ли реквизиты R2-архива.
func (c *Config) ArchiveConfigured() bool {
	return c.R2Bucket != "" && c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != ""
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
