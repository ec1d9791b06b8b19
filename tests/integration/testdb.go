// Package integration runs the engine against a real PostgreSQL started with
// testcontainers. Every test here is skipped under -short.
package integration

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foodtruck/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// engineTables are truncated between tests sharing a container.
var engineTables = []string{
	"purchase_order_lines",
	"purchase_orders",
	"franchise_agreements",
	"royalty_reports",
	"scheduler_jobs",
}

var sharedPG struct {
	mu        sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a migrated PostgreSQL database reachable through GORM.
type TestDB struct {
	DB    *gorm.DB
	sqlDB *sql.DB
}

// NewTestDB starts a dedicated container for t and migrates it. The container
// is terminated when t finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startPostgres(t, "foodtruck_test")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	tdb := open(t, dsn)
	tdb.migrate(t)
	return tdb
}

// NewSharedTestDB connects to a package-wide container, starting and
// migrating it on first use. Engine tables are emptied before returning.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedPG.mu.Lock()
	first := sharedPG.container == nil
	if first {
		sharedPG.container, sharedPG.dsn = startPostgres(t, "foodtruck_shared_test")
	}
	dsn := sharedPG.dsn
	sharedPG.mu.Unlock()

	tdb := open(t, dsn)
	if first {
		tdb.migrate(t)
	}
	tdb.Truncate(t)
	return tdb
}

// CleanupSharedContainer stops the shared container. Call it from TestMain.
func CleanupSharedContainer() {
	sharedPG.mu.Lock()
	defer sharedPG.mu.Unlock()

	if sharedPG.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedPG.container.Terminate(ctx)
	sharedPG.container, sharedPG.dsn = nil, ""
}

// Truncate empties every engine table.
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()
	stmt := "TRUNCATE TABLE " + strings.Join(engineTables, ", ") + " CASCADE"
	require.NoError(t, tdb.DB.Exec(stmt).Error, "truncate engine tables")
}

func (tdb *TestDB) migrate(t *testing.T) {
	t.Helper()
	migrator, err := migration.New(tdb.sqlDB, "", zap.NewNop())
	require.NoError(t, err, "create migrator")
	require.NoError(t, migrator.Up(), "apply migrations")
}

func startPostgres(t *testing.T, database string) (*tcpostgres.PostgresContainer, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(database),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")
	return container, dsn
}

// open connects with the same error translation the server uses. Set
// TEST_DB_DEBUG to see the SQL.
func open(t *testing.T, dsn string) *TestDB {
	t.Helper()

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	require.NoError(t, err, "connect to postgres")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{DB: db, sqlDB: sqlDB}
}
