package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// ScheduleConfig holds the civil time zone and the periodic sweep knobs.
// All day-boundary logic in the route lifecycle uses TimeZone; timestamps
// themselves are stored as UTC instants.
type ScheduleConfig struct {
	TimeZone              string
	RouteSweepInterval    time.Duration
	ReminderInterval      time.Duration
	TrackingSweepInterval time.Duration
	ExpireAfter           time.Duration
	AbandonAfter          time.Duration
	TrackingStaleAfter    time.Duration
	ReminderLead          time.Duration
}

// Location resolves the configured civil time zone.
func (c *ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

// NotifyConfig holds the push delivery API settings
type NotifyConfig struct {
	APIURL   string
	APIToken string
	Timeout  time.Duration
}

// PolicyConfig holds authorization policy toggles
type PolicyConfig struct {
	// CustomerDriverVisibility widens the Admin "direct" scope to include
	// drivers assigned to the admin's active routes.
	CustomerDriverVisibility bool
}

// Config holds all configuration
type Config struct {
	DB       DBConfig
	Server   ServerConfig
	JWT      JWTConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Schedule ScheduleConfig
	Notify   NotifyConfig
	Policy   PolicyConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	// Initialize config struct with values from environment
	config := &Config{
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "fleet_service"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Info),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "fleetservicesecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "fleet"),
		},
		Schedule: ScheduleConfig{
			TimeZone:              getEnv("SCHEDULE_TIMEZONE", "America/Mexico_City"),
			RouteSweepInterval:    getEnvAsDuration("ROUTE_SWEEP_INTERVAL", 1*time.Hour),
			ReminderInterval:      getEnvAsDuration("REMINDER_INTERVAL", 1*time.Minute),
			TrackingSweepInterval: getEnvAsDuration("TRACKING_SWEEP_INTERVAL", 30*time.Second),
			ExpireAfter:           getEnvAsDuration("ROUTE_EXPIRE_AFTER", 12*time.Hour),
			AbandonAfter:          getEnvAsDuration("ROUTE_ABANDON_AFTER", 72*time.Hour),
			TrackingStaleAfter:    getEnvAsDuration("TRACKING_STALE_AFTER", 90*time.Second),
			ReminderLead:          getEnvAsDuration("REMINDER_LEAD", 5*time.Minute),
		},
		Notify: NotifyConfig{
			APIURL:   getEnv("PUSH_API_URL", ""),
			APIToken: getEnv("PUSH_API_TOKEN", ""),
			Timeout:  getEnvAsDuration("PUSH_TIMEOUT", 10*time.Second),
		},
		Policy: PolicyConfig{
			CustomerDriverVisibility: getEnvAsBool("POLICY_CUSTOMER_DRIVER_VISIBILITY", true),
		},
	}

	return config, nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("time_zone", c.Schedule.TimeZone),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as booleans
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
