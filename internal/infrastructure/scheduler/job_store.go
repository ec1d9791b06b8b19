package scheduler

import (
	"context"
	"time"

	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormJobStore persists job history in scheduler_jobs
type GormJobStore struct {
	db *gorm.DB
}

// NewGormJobStore creates a new GormJobStore
func NewGormJobStore(db *gorm.DB) *GormJobStore {
	return &GormJobStore{db: db}
}

// Save upserts the job row
func (s *GormJobStore) Save(ctx context.Context, job *Job) error {
	now := time.Now().UTC()
	model := models.SchedulerJobModel{
		ID:           job.ID,
		FranchiseeID: job.FranchiseeID,
		Period:       job.Period.String(),
		Status:       string(job.Status),
		RetryCount:   job.RetryCount,
		LastError:    job.Error,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "retry_count", "last_error", "started_at", "completed_at", "updated_at",
		}),
	}).Create(&model).Error
}

// FindByKey returns the jobs of a franchisee and period, oldest first
func (s *GormJobStore) FindByKey(ctx context.Context, franchiseeID uuid.UUID, period string) ([]models.SchedulerJobModel, error) {
	var jobs []models.SchedulerJobModel
	err := s.db.WithContext(ctx).
		Where("franchisee_id = ? AND period = ?", franchiseeID, period).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

var _ JobStore = (*GormJobStore)(nil)
