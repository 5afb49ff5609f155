package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/database"
	"github.com/oem-ev-warranty/parts-service/pkg/kafka"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
)

var configKeys = []string{
	"SERVER_ADDR", "LOG_LEVEL", "ENVIRONMENT", "DB_DRIVER", "DATABASE_DSN",
	"DB_MAX_OPEN_CONNS", "DB_TX_TIMEOUT", "KAFKA_BROKERS", "KAFKA_NOTIFICATION_TOPIC",
	"NOTIFICATIONS_ENABLED", "MONGODB_URI", "MONGODB_DATABASE", "PROJECTIONS_ENABLED",
	"VEHICLE_SERVICE_URL", "VEHICLE_SERVICE_TIMEOUT", "RECONCILE_CRON", "POLICY_FILE",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "TRACING_ENABLED",
}

// clearEnv unsets every key for the duration of the test. godotenv never
// overrides a variable that is already set, even to an empty value.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.TxTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, ServiceName, cfg.Kafka.ClientID)
	assert.Equal(t, kafka.Topics.Notifications, cfg.NotificationTopic)
	assert.True(t, cfg.NotificationsEnabled)
	assert.True(t, cfg.ProjectionsEnabled)
	assert.Empty(t, cfg.VehicleServiceURL)
	assert.Equal(t, 5*time.Second, cfg.VehicleServiceTimeout)
	assert.Equal(t, "@hourly", cfg.ReconcileCron)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), "test.env")
	content := `SERVER_ADDR=:9090
LOG_LEVEL=DEBUG
ENVIRONMENT=staging
DB_DRIVER=sqlite
DATABASE_DSN=file::memory:
DB_MAX_OPEN_CONNS=1
DB_TX_TIMEOUT=3s
KAFKA_BROKERS="kafka-1:9092, kafka-2:9092"
KAFKA_NOTIFICATION_TOPIC=parts.events
NOTIFICATIONS_ENABLED=false
MONGODB_DATABASE=parts_read
PROJECTIONS_ENABLED=false
VEHICLE_SERVICE_URL=http://vehicles:8080
VEHICLE_SERVICE_TIMEOUT=750ms
RECONCILE_CRON="*/15 * * * *"
TRACING_ENABLED=true
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, logging.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, 3*time.Second, cfg.TxTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "parts.events", cfg.NotificationTopic)
	assert.False(t, cfg.NotificationsEnabled)
	assert.Equal(t, "parts_read", cfg.MongoDB.Database)
	assert.False(t, cfg.ProjectionsEnabled)
	assert.Equal(t, "http://vehicles:8080", cfg.VehicleServiceURL)
	assert.Equal(t, 750*time.Millisecond, cfg.VehicleServiceTimeout)
	assert.Equal(t, "*/15 * * * *", cfg.ReconcileCron)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "staging", cfg.Tracing.Environment)
	assert.Equal(t, logging.LevelDebug, cfg.LoggingConfig().Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad int":      {"DB_MAX_OPEN_CONNS": "many"},
		"bad bool":     {"TRACING_ENABLED": "sometimes"},
		"bad duration": {"DB_TX_TIMEOUT": "ten"},
		"bad driver":   {"DB_DRIVER": "mysql"},
		"bad level":    {"LOG_LEVEL": "loud"},
		"bad cron":     {"RECONCILE_CRON": "every day"},
		"zero timeout": {"DB_TX_TIMEOUT": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
		})
	}
}

func TestConfig_LoadPolicy(t *testing.T) {
	cfg := &Config{}
	policy, err := cfg.LoadPolicy()
	require.NoError(t, err)
	assert.NoError(t, policy.Authorize(domain.OpShip, domain.RolePartsCoordinatorCompany, "STR-1", domain.TransferApproved))

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rules:
  - operation: ship
    roles: [emv_staff]
    from: [APPROVED]
`), 0o600))

	cfg.PolicyFile = path
	policy, err = cfg.LoadPolicy()
	require.NoError(t, err)
	assert.NoError(t, policy.Authorize(domain.OpShip, domain.RoleEMVStaff, "STR-1", domain.TransferApproved))
	assert.Error(t, policy.Authorize(domain.OpShip, domain.RolePartsCoordinatorCompany, "STR-1", domain.TransferApproved))

	cfg.PolicyFile = filepath.Join(t.TempDir(), "absent.yaml")
	_, err = cfg.LoadPolicy()
	assert.Error(t, err)
}
