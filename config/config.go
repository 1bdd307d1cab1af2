package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/stellar/go/keypair"
	"github.com/yourusername/trade-invoices/logger"
	"github.com/yourusername/trade-invoices/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTRefreshSecret string

	// Action lock; empty RedisURL selects the in-process lock.
	RedisURL      string
	ActionLockTTL time.Duration

	// Settlement rail
	HorizonURL        string
	SettlementAccount string
	ReconcileInterval time.Duration

	LogLevel  string
	LogFormat string
	LogOutput string
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	lockTTL, err := durationEnv("ACTION_LOCK_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	interval, err := durationEnv("RECONCILE_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:  os.Getenv("JWT_REFRESH_SECRET"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ActionLockTTL:     lockTTL,
		HorizonURL:        getEnvOrDefault("HORIZON_URL", "https://horizon-testnet.stellar.org"),
		SettlementAccount: os.Getenv("SETTLEMENT_ACCOUNT"),
		ReconcileInterval: interval,
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "console"),
		LogOutput:         getEnvOrDefault("LOG_OUTPUT", "stdout"),
	}, nil
}

// Validate checks the settings the API server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ActionLockTTL <= 0 {
		return errors.New("ACTION_LOCK_TTL must be positive")
	}
	return nil
}

// ValidateSettlement checks the settings the reconciler needs.
func (c *Config) ValidateSettlement() error {
	if c.SettlementAccount == "" {
		return errors.New("SETTLEMENT_ACCOUNT is required")
	}
	if _, err := keypair.ParseAddress(c.SettlementAccount); err != nil {
		return fmt.Errorf("SETTLEMENT_ACCOUNT is not a valid Stellar address: %w", err)
	}
	if c.ReconcileInterval <= 0 {
		return errors.New("RECONCILE_INTERVAL must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	cfg := logger.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	cfg.Output = c.LogOutput
	return cfg
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Invoice{},
		&models.LineItem{},
		&models.Exposure{},
		&models.InvoicePayment{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
