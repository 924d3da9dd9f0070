// test/helpers/helpers.go
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/finops-console/internal/adapters/db"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/pkg/config"
)

// TestNow is the fixed clock used by tests that filter on relative windows
var TestNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB creates a PostgreSQL container for integration tests
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_finops",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_finops",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		EnableQueryLogging: testing.Verbose(),
	}

	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")
	t.Cleanup(database.Close)

	err = db.RunMigrationsWithRetry(context.Background(), &db.MigrationConfig{
		DatabaseURL: dbConfig.URL(),
	}, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates an in-process Redis for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// SetupMockDB creates a mock database/sql connection for unit testing
func SetupMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock DB")

	t.Cleanup(func() {
		conn.Close()
	})

	return mock, conn
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
			FixtureRows: 40,
			FixtureSeed: 7,
		},
		Database: config.DatabaseConfig{
			Host:           "localhost",
			Port:           "5432",
			User:           "test",
			Password:       "test",
			Name:           "test_finops",
			SSLMode:        "disable",
			MaxConnections: 10,
			MinConnections: 2,
		},
		Redis: config.RedisConfig{
			Host:         "localhost",
			Port:         "6379",
			TTL:          time.Hour,
			DashboardTTL: time.Minute,
			JobTTL:       time.Hour,
			PoolSize:     10,
		},
		Asynq: config.AsynqConfig{
			RedisAddr:       "localhost:6379",
			Concurrency:     2,
			Queues:          map[string]int{"exports": 2, "maintenance": 1},
			RetryMax:        1,
			ShutdownTimeout: time.Second,
			CleanupSchedule: "@every 1h",
		},
		AWS: config.AWSConfig{
			Region:          "us-east-1",
			S3Bucket:        "test-exports",
			SecretsProvider: "env",
		},
		Export: config.ExportConfig{
			Storage:   config.ExportStorageLocal,
			LocalDir:  os.TempDir(),
			Prefix:    "exports",
			URLTTL:    time.Hour,
			Retention: 24 * time.Hour,
			Timeout:   time.Minute,
		},
		Store: config.StoreConfig{
			Resolutions: config.StoreNoop,
		},
		Security: config.SecurityConfig{
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			RequestIDHeader:   "X-Request-ID",
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// TestDataset returns a small deterministic dataset anchored at TestNow
func TestDataset() *domain.Dataset {
	hours := func(h int) time.Time { return TestNow.Add(-time.Duration(h) * time.Hour) }

	return &domain.Dataset{
		Queries: []domain.Query{
			{ID: "01a0001", Text: "SELECT * FROM orders", User: "alice", Warehouse: "ETL_WH",
				Status: domain.QuerySucceeded, DurationMs: 1200, BytesScanned: 1 << 20,
				Credits: decimal.RequireFromString("1.5"), Cost: decimal.RequireFromString("4.5"), StartedAt: hours(2)},
			{ID: "01a0002", Text: "SELECT count(*) FROM events", User: "bob", Warehouse: "BI_WH",
				Status: domain.QueryFailed, DurationMs: 300, BytesScanned: 2048,
				Credits: decimal.RequireFromString("0.25"), Cost: decimal.RequireFromString("0.75"), StartedAt: hours(30)},
			{ID: "01a0003", Text: "MERGE INTO customers", User: "alice", Warehouse: "ETL_WH",
				Status: domain.QuerySucceeded, DurationMs: 54000, BytesScanned: 1 << 30,
				Credits: decimal.RequireFromString("12"), Cost: decimal.RequireFromString("36"), StartedAt: hours(24 * 10)},
			{ID: "01a0004", Text: "SELECT * FROM sessions", User: "carol", Warehouse: "DEV_WH",
				Status: domain.QueryRunning, DurationMs: 0, BytesScanned: 0,
				Credits: decimal.Zero, Cost: decimal.Zero, StartedAt: time.Time{}},
		},
		Warehouses: []domain.Warehouse{
			{Name: "ETL_WH", Size: domain.SizeLarge, Status: domain.WarehouseRunning,
				Credits: decimal.RequireFromString("1280.25"), Cost: decimal.RequireFromString("3840.75"),
				Utilization: decimal.RequireFromString("0.88"), LastActive: hours(1)},
			{Name: "BI_WH", Size: domain.SizeMedium, Status: domain.WarehouseRunning,
				Credits: decimal.RequireFromString("410"), Cost: decimal.RequireFromString("1230"),
				Utilization: decimal.RequireFromString("0.52"), LastActive: hours(5)},
			{Name: "DEV_WH", Size: domain.SizeSmall, Status: domain.WarehouseSuspended,
				Credits: decimal.RequireFromString("64"), Cost: decimal.RequireFromString("192"),
				Utilization: decimal.RequireFromString("0.05"), LastActive: hours(24 * 20)},
		},
		Recommendations: []domain.Recommendation{
			{ID: "rec-1", Title: "Downsize ETL_WH", Category: "Warehouse", Severity: domain.SeverityHigh,
				Warehouse: "ETL_WH", EstimatedSavings: decimal.RequireFromString("900"),
				Status: domain.RecommendationOpen, CreatedAt: hours(48)},
			{ID: "rec-2", Title: "Enable auto-suspend on DEV_WH", Category: "Warehouse", Severity: domain.SeverityMedium,
				Warehouse: "DEV_WH", EstimatedSavings: decimal.RequireFromString("120"),
				Status: domain.RecommendationOpen, CreatedAt: hours(72)},
			{ID: "rec-3", Title: "Cluster events table", Category: "Query", Severity: domain.SeverityLow,
				Warehouse: "BI_WH", EstimatedSavings: decimal.RequireFromString("45.5"),
				Status: domain.RecommendationDismissed, CreatedAt: hours(24 * 40)},
		},
		AssignedQueries: []domain.AssignedQuery{
			{ID: "aq-1", QueryID: "01a0003", Assignee: "dave", AssignedBy: "alice",
				Priority: domain.PriorityHigh, Status: domain.AssignmentPending,
				Message: "Please look at the merge, it scans everything", AssignedAt: hours(6)},
			{ID: "aq-2", QueryID: "01a0002", Assignee: "erin", AssignedBy: "bob",
				Priority: domain.PriorityLow, Status: domain.AssignmentDone,
				Message: "Failing nightly", AssignedAt: hours(24 * 3)},
		},
		ActivityLogs: []domain.ActivityLog{
			{ID: "log-1", Username: "alice", Action: "resolve", Message: "Resolved rec-0", Timestamp: hours(1)},
			{ID: "log-2", Username: "bob", Action: "assign", Message: "Assigned 01a0002 to erin", Timestamp: hours(24 * 3)},
			{ID: "log-3", Username: "carol", Action: "login", Message: "Signed in", Timestamp: hours(24 * 100)},
		},
	}
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// CreateTempFile creates a temporary file for testing
func CreateTempFile(t *testing.T, content []byte, extension string) string {
	t.Helper()

	file, err := os.CreateTemp(t.TempDir(), fmt.Sprintf("test-*%s", extension))
	require.NoError(t, err, "Failed to create temp file")

	_, err = file.Write(content)
	require.NoError(t, err, "Failed to write to temp file")
	require.NoError(t, file.Close())

	return file.Name()
}
