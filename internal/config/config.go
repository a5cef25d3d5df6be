package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config hospital-ops (HTTP API) configuration.
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Audit    AuditConfig
	Pharmacy PharmacyConfig
}

// DatabaseConfig PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// AuditConfig audit sink settings.
type AuditConfig struct {
	Stream        string // Redis Stream the audit trail is mirrored to
	StreamEnabled bool
}

// PharmacyConfig external pharmacy prescription feed (optional).
type PharmacyConfig struct {
	Enabled     bool
	HTTPAddress string
	AppID       string
	SecretKey   string
	CacheTTL    int // seconds
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, hospital-ops falls
	// back to the in-memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "hospital_ops")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Audit.Stream = getEnv("AUDIT_STREAM", "hospital-ops:audit")
	cfg.Audit.StreamEnabled = getEnv("AUDIT_STREAM_ENABLED", "true") == "true"

	// Pharmacy feed is disabled by default; prescriptions come from the DB.
	cfg.Pharmacy.Enabled = getEnv("PHARMACY_ENABLED", "false") == "true"
	cfg.Pharmacy.HTTPAddress = getEnv("PHARMACY_HTTP_ADDRESS", "http://localhost:9090")
	cfg.Pharmacy.AppID = getEnv("PHARMACY_APP_ID", "")
	cfg.Pharmacy.SecretKey = getEnv("PHARMACY_SECRET_KEY", "")
	cfg.Pharmacy.CacheTTL = parseInt(getEnv("PHARMACY_CACHE_TTL", "60"), 60)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
