package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	defaultUsers = "admin:admin123:admin,user:user123:user"
)

// Config reúne a configuração injetada na inicialização do serviço
type Config struct {
	Port            string
	JWTSecret       string
	TokenTTL        time.Duration
	Users           []User
	StorageDriver   string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	LoginRateLimit  int
	LoginRateWindow time.Duration
	OTLPEndpoint    string
	ServiceName     string
	LogLevel        string
	CORSOrigin      string
}

// loadConfig lê a configuração das variáveis de ambiente
func loadConfig() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "5000"),
		JWTSecret:     getEnv("JWT_SECRET", "secret_key"),
		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverMemory),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:   getEnv("SERVICE_NAME", "inventory-service"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.LoginRateWindow, err = time.ParseDuration(getEnv("LOGIN_RATE_WINDOW", "1m")); err != nil {
		return Config{}, fmt.Errorf("invalid LOGIN_RATE_WINDOW: %w", err)
	}
	if cfg.LoginRateLimit, err = strconv.Atoi(getEnv("LOGIN_RATE_LIMIT", "5")); err != nil {
		return Config{}, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.Users, err = parseUsers(getEnv("AUTH_USERS", defaultUsers)); err != nil {
		return Config{}, err
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", StorageDriverPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

// parseUsers lê a lista "usuario:senha:papel" separada por vírgulas
func parseUsers(raw string) ([]User, error) {
	var users []User
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid AUTH_USERS entry %q: expected username:password:role", entry)
		}
		role := Role(parts[2])
		if !role.Valid() {
			return nil, fmt.Errorf("invalid role %q for user %q", parts[2], parts[0])
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("duplicate user %q in AUTH_USERS", parts[0])
		}
		seen[parts[0]] = true
		users = append(users, User{Username: parts[0], Password: parts[1], Role: role})
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("AUTH_USERS must define at least one user")
	}
	return users, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
