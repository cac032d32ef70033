package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Payroll  PayrollConfig
	Authz    AuthzConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// PayrollConfig holds the payroll and salary advance settings.
type PayrollConfig struct {
	TaxTablePath           string // empty uses the embedded reference table
	TaxTableReloadInterval time.Duration
	BatchConcurrency       int
	DefaultRepaymentMonths int
	MaxRepaymentMonths     int
}

// AuthzConfig points at optional casbin model and policy files. Empty paths
// use the embedded defaults.
type AuthzConfig struct {
	ModelPath  string
	PolicyPath string
	Mode       string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbMaxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	dbMinConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	dbMaxConnLife, err := time.ParseDuration(getEnv("DB_MAX_CONN_LIFETIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONN_LIFETIME: %w", err)
	}
	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "payroll_engine"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		MaxConns:    int32(dbMaxConns),
		MinConns:    int32(dbMinConns),
		MaxConnLife: dbMaxConnLife,
		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Payroll configuration
	reloadInterval, err := time.ParseDuration(getEnv("TAX_TABLE_RELOAD_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_TABLE_RELOAD_INTERVAL: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnv("PAYROLL_BATCH_CONCURRENCY", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_BATCH_CONCURRENCY: %w", err)
	}
	defaultMonths, err := strconv.Atoi(getEnv("ADVANCE_DEFAULT_REPAYMENT_MONTHS", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADVANCE_DEFAULT_REPAYMENT_MONTHS: %w", err)
	}
	maxMonths, err := strconv.Atoi(getEnv("ADVANCE_MAX_REPAYMENT_MONTHS", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADVANCE_MAX_REPAYMENT_MONTHS: %w", err)
	}

	config.Payroll = PayrollConfig{
		TaxTablePath:           getEnv("TAX_TABLE_PATH", ""),
		TaxTableReloadInterval: reloadInterval,
		BatchConcurrency:       concurrency,
		DefaultRepaymentMonths: defaultMonths,
		MaxRepaymentMonths:     maxMonths,
	}

	config.Authz = AuthzConfig{
		ModelPath:  getEnv("AUTHZ_MODEL_PATH", ""),
		PolicyPath: getEnv("AUTHZ_POLICY_PATH", ""),
		Mode:       getEnv("AUTHZ_MODE", "enforce"),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if c.Payroll.BatchConcurrency < 1 {
		return fmt.Errorf("PAYROLL_BATCH_CONCURRENCY must be at least 1")
	}
	if c.Payroll.DefaultRepaymentMonths < 1 {
		return fmt.Errorf("ADVANCE_DEFAULT_REPAYMENT_MONTHS must be at least 1")
	}
	if c.Payroll.MaxRepaymentMonths < c.Payroll.DefaultRepaymentMonths {
		return fmt.Errorf("ADVANCE_MAX_REPAYMENT_MONTHS must not be below ADVANCE_DEFAULT_REPAYMENT_MONTHS")
	}
	if c.Payroll.TaxTableReloadInterval < 0 {
		return fmt.Errorf("TAX_TABLE_RELOAD_INTERVAL must not be negative")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback []string) []string {
	value := getEnv(env, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
