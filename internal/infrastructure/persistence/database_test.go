package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newMockDatabase opens a postgres-dialect Database over sqlmock.
func newMockDatabase(t *testing.T, monitorPings bool) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return &Database{DB: gormDB}, mock
}

func TestGormConfig(t *testing.T) {
	cfg := gormConfig(nil, Options{LogLevel: gormlogger.Warn, SlowThreshold: time.Second})

	assert.True(t, cfg.TranslateError)
	assert.True(t, cfg.SkipDefaultTransaction)
	assert.True(t, cfg.PrepareStmt)
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, time.UTC, cfg.NowFunc().Location())
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("alive", func(t *testing.T) {
		db, mock := newMockDatabase(t, true)
		mock.ExpectPing()

		assert.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable", func(t *testing.T) {
		db, mock := newMockDatabase(t, true)
		mock.ExpectPing().WillReturnError(assert.AnError)

		assert.ErrorIs(t, db.Ping(context.Background()), assert.AnError)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t, false)
	mock.ExpectClose()

	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_QueryTimeoutIsRetryable(t *testing.T) {
	db, mock := newMockDatabase(t, false)
	mock.ExpectQuery(`SELECT \* FROM "royalty_reports"`).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewGormRoyaltyReportRepository(db.DB)
	repo.SetQueryTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := repo.FindByKey(context.Background(), uuid.New(), valueobject.MustParsePeriod("2025-08"))

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, err, shared.ErrPersistenceTimeout)
	assert.True(t, shared.IsRetryable(err))
}

func TestRepository_CallerCancellationIsNotATimeout(t *testing.T) {
	db, mock := newMockDatabase(t, false)
	mock.ExpectQuery(`SELECT \* FROM "royalty_reports"`).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewGormRoyaltyReportRepository(db.DB)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrPersistenceTimeout)
}
