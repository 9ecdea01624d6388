// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // store time zone must resolve on minimal images
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Dispatch   DispatchConfig
	Validation ValidationConfig
}

type ServerConfig struct {
	GRPCPort         string
	Environment      string
	AutoMigrate      bool
	EnableReflection bool
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret        string
	AccessTokenDuration time.Duration
	Issuer              string
}

// DispatchConfig tunes task routing.
type DispatchConfig struct {
	// AutoTaskAssignment is used when the parameter store has no AUTO_TASK_ASSIGNMENT row.
	AutoTaskAssignment bool
	ParameterCacheTTL  time.Duration
	Timezone           string
	DefaultPageSize    int
	MaxPageSize        int
}

type ValidationConfig struct {
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxNotesLength       int
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	return &Config{
		Server: ServerConfig{
			GRPCPort:         getEnv("GRPC_PORT", "50051"),
			Environment:      env,
			AutoMigrate:      getEnvAsBool("AUTO_MIGRATE", true),
			EnableReflection: getEnvAsBool("ENABLE_REFLECTION", env == "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "storeflow"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			AccessSecret:        getEnv("JWT_ACCESS_SECRET", getEnv("JWT_SECRET", "")),
			AccessTokenDuration: getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute),
			Issuer:              getEnv("JWT_ISSUER", "storeflow"),
		},
		Dispatch: DispatchConfig{
			AutoTaskAssignment: getEnvAsBool("AUTO_TASK_ASSIGNMENT", false),
			ParameterCacheTTL:  getEnvAsDuration("PARAMETER_CACHE_TTL", 30*time.Second),
			Timezone:           getEnv("STORE_TIMEZONE", "Europe/Istanbul"),
			DefaultPageSize:    getEnvAsInt("DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:        getEnvAsInt("MAX_PAGE_SIZE", 100),
		},
		Validation: ValidationConfig{
			MaxTitleLength:       getEnvAsInt("MAX_TITLE_LENGTH", 200),
			MaxDescriptionLength: getEnvAsInt("MAX_DESCRIPTION_LENGTH", 5000),
			MaxNotesLength:       getEnvAsInt("MAX_NOTES_LENGTH", 2000),
		},
	}, nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.JWT.AccessSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_ACCESS_SECRET must be set outside development")
		}
		c.JWT.AccessSecret = "dev-access-secret-change-in-production"
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid STORE_TIMEZONE: %w", err)
	}

	if c.Dispatch.DefaultPageSize <= 0 || c.Dispatch.DefaultPageSize > c.Dispatch.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be between 1 and MAX_PAGE_SIZE (%d)", c.Dispatch.MaxPageSize)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Location resolves the store time zone used for "today" windows.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Dispatch.Timezone)
}

// DSN builds the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return fmt.Sprintf("file:%s?cache=shared&_fk=1", d.DBName)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}
