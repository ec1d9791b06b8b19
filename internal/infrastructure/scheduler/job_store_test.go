package scheduler

import (
	"context"
	"testing"

	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormJobStore_Save(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SchedulerJobModel{}))

	store := NewGormJobStore(db)
	ctx := context.Background()

	job := NewJob(uuid.New(), valueobject.MustParsePeriod("2025-08"), 3)
	job.Start()
	require.NoError(t, store.Save(ctx, job))

	job.Fail("timeout")
	job.ScheduleRetry(0)
	require.NoError(t, store.Save(ctx, job))

	jobs, err := store.FindByKey(ctx, job.FranchiseeID, "2025-08")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, string(JobStatusPending), jobs[0].Status)
	assert.Equal(t, 1, jobs[0].RetryCount)
	assert.Equal(t, "timeout", jobs[0].LastError)
	assert.NotNil(t, jobs[0].StartedAt)

	other := NewJob(job.FranchiseeID, valueobject.MustParsePeriod("2025-08"), 3)
	require.NoError(t, store.Save(ctx, other))
	jobs, err = store.FindByKey(ctx, job.FranchiseeID, "2025-08")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
