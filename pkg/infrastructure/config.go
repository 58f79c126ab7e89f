package infrastructure

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Events        EventsConfig        `mapstructure:"events"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Permission    PermissionConfig    `mapstructure:"permission"`
	FederatedAuth FederatedAuthConfig `mapstructure:"federated_auth"`
	Projections   ProjectionsConfig   `mapstructure:"projections"`
}

// EventsConfig holds event system configuration
type EventsConfig struct {
	Publisher string `mapstructure:"publisher"` // channel, pubsub
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error, fatal
	Format string `mapstructure:"format"` // json, text
}

// PermissionConfig points the casbin-backed PermissionMiddleware at its
// model and policy files.
type PermissionConfig struct {
	ModelPath  string `mapstructure:"model_path"`
	PolicyPath string `mapstructure:"policy_path"`
}

// FederatedAuthConfig bounds the outbound HTTP calls FedAuthCommands makes
// to external IDPs during token exchange, userinfo, and JWKS fetches.
type FederatedAuthConfig struct {
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds"`
}

// ProjectionsConfig holds batch size/interval for internal/projection.Runner
// instances, plus connection info for the optional BigQuery/Bigtable
// projections.
type ProjectionsConfig struct {
	BatchSize           int    `mapstructure:"batch_size"`
	IntervalMilliseconds int   `mapstructure:"interval_milliseconds"`
	BigQueryProject     string `mapstructure:"bigquery_project"`
	BigQueryDataset     string `mapstructure:"bigquery_dataset"`
	BigtableProject     string `mapstructure:"bigtable_project"`
	BigtableInstance    string `mapstructure:"bigtable_instance"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("PERICARP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults()

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Database defaults
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "file:events.db?cache=shared&mode=rwc")

	// Events defaults
	viper.SetDefault("events.publisher", "channel")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Permission defaults
	viper.SetDefault("permission.model_path", "configs/permission_model.conf")
	viper.SetDefault("permission.policy_path", "configs/permission_policy.csv")

	// FederatedAuth defaults
	viper.SetDefault("federated_auth.http_timeout_seconds", 30)

	// Projections defaults
	viper.SetDefault("projections.batch_size", 100)
	viper.SetDefault("projections.interval_milliseconds", 500)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	// Validate database driver
	switch config.Database.Driver {
	case "sqlite", "postgres":
		// Valid drivers
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", config.Database.Driver)
	}

	// Validate DSN is not empty
	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	// Validate events publisher
	switch config.Events.Publisher {
	case "channel", "pubsub":
		// Valid publishers
	default:
		return fmt.Errorf("unsupported events publisher: %s (supported: channel, pubsub)", config.Events.Publisher)
	}

	// Validate logging level
	switch config.Logging.Level {
	case "debug", "info", "warn", "error", "fatal":
		// Valid levels
	default:
		return fmt.Errorf("unsupported logging level: %s (supported: debug, info, warn, error, fatal)", config.Logging.Level)
	}

	// Validate logging format
	switch config.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("unsupported logging format: %s (supported: json, text)", config.Logging.Format)
	}

	// Validate federated auth timeout
	if config.FederatedAuth.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("federated_auth.http_timeout_seconds must be positive")
	}

	// Validate projection batch size and interval
	if config.Projections.BatchSize <= 0 {
		return fmt.Errorf("projections.batch_size must be positive")
	}
	if config.Projections.IntervalMilliseconds <= 0 {
		return fmt.Errorf("projections.interval_milliseconds must be positive")
	}

	return nil
}

// GetSQLiteDSN returns a SQLite DSN for the given database file
func GetSQLiteDSN(dbFile string) string {
	return fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbFile)
}

// GetPostgresDSN returns a PostgreSQL DSN with the given parameters
func GetPostgresDSN(host, user, password, dbname string, port int, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		host, user, password, dbname, port, sslmode)
}