package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/database"
	"github.com/oem-ev-warranty/parts-service/pkg/kafka"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/mongodb"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
)

// ServiceName is used for logs, metrics, traces and the Kafka client id
const ServiceName = "parts-service"

// Config is the full runtime configuration of the service
type Config struct {
	ServerAddr  string
	LogLevel    logging.LogLevel
	Environment string

	Database  *database.Config
	TxTimeout time.Duration

	Kafka                *kafka.Config
	NotificationTopic    string
	NotificationsEnabled bool

	MongoDB            *mongodb.Config
	ProjectionsEnabled bool

	VehicleServiceURL     string
	VehicleServiceTimeout time.Duration

	ReconcileCron string
	PolicyFile    string

	Tracing *tracing.Config
}

// Load reads an optional env file and then the process environment. A
// missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	environment := getEnv("ENVIRONMENT", "development")

	db := database.DefaultConfig()
	db.Driver = getEnv("DB_DRIVER", db.Driver)
	db.DSN = getEnv("DATABASE_DSN", db.DSN)
	db.MaxOpenConns = intVar("DB_MAX_OPEN_CONNS", db.MaxOpenConns)

	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.ClientID = ServiceName
	kafkaCfg.Brokers = splitList(getEnv("KAFKA_BROKERS", strings.Join(kafkaCfg.Brokers, ",")))

	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = getEnv("MONGODB_URI", mongoCfg.URI)
	mongoCfg.Database = getEnv("MONGODB_DATABASE", mongoCfg.Database)

	tracingCfg := tracing.DefaultConfig(ServiceName)
	tracingCfg.Environment = environment
	tracingCfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", tracingCfg.OTLPEndpoint)
	tracingCfg.Enabled = boolVar("TRACING_ENABLED", tracingCfg.Enabled)

	cfg := &Config{
		ServerAddr:            getEnv("SERVER_ADDR", ":8080"),
		LogLevel:              logging.LogLevel(strings.ToLower(getEnv("LOG_LEVEL", string(logging.LevelInfo)))),
		Environment:           environment,
		Database:              db,
		TxTimeout:             durationVar("DB_TX_TIMEOUT", 10*time.Second),
		Kafka:                 kafkaCfg,
		NotificationTopic:     getEnv("KAFKA_NOTIFICATION_TOPIC", kafka.Topics.Notifications),
		NotificationsEnabled:  boolVar("NOTIFICATIONS_ENABLED", true),
		MongoDB:               mongoCfg,
		ProjectionsEnabled:    boolVar("PROJECTIONS_ENABLED", true),
		VehicleServiceURL:     getEnv("VEHICLE_SERVICE_URL", ""),
		VehicleServiceTimeout: durationVar("VEHICLE_SERVICE_TIMEOUT", 5*time.Second),
		ReconcileCron:         getEnv("RECONCILE_CRON", "@hourly"),
		PolicyFile:            getEnv("POLICY_FILE", ""),
		Tracing:               tracingCfg,
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at startup
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error
	if c.ServerAddr == "" {
		errs = append(errs, errors.New("SERVER_ADDR must be provided"))
	}
	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", database.DriverPostgres, database.DriverSQLite, c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be provided"))
	}
	if c.TxTimeout <= 0 {
		errs = append(errs, errors.New("DB_TX_TIMEOUT must be positive"))
	}
	switch c.LogLevel {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not a known level", c.LogLevel))
	}
	if c.NotificationsEnabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must be provided when notifications are enabled"))
	}
	if c.ReconcileCron != "" {
		if _, err := cron.ParseStandard(c.ReconcileCron); err != nil {
			errs = append(errs, fmt.Errorf("RECONCILE_CRON: %w", err))
		}
	}
	return errors.Join(errs...)
}

// LoadPolicy returns the role policy from PolicyFile, or the embedded default
func (c *Config) LoadPolicy() (*domain.Policy, error) {
	return domain.LoadPolicy(c.PolicyFile)
}

// LoggingConfig derives the logger configuration
func (c *Config) LoggingConfig() *logging.Config {
	lc := logging.DefaultConfig(ServiceName)
	lc.Level = c.LogLevel
	lc.Environment = c.Environment
	return lc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
