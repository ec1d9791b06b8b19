package models

import (
	"time"

	"github.com/google/uuid"
)

// SchedulerJobModel records one attempt history of a royalty batch job
type SchedulerJobModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key"`
	FranchiseeID uuid.UUID  `gorm:"type:uuid;not null;index:idx_scheduler_jobs_key,priority:1"`
	Period       string     `gorm:"type:char(7);not null;index:idx_scheduler_jobs_key,priority:2"`
	Status       string     `gorm:"type:varchar(20);not null;index"`
	RetryCount   int        `gorm:"not null;default:0"`
	LastError    string     `gorm:"type:text"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SchedulerJobModel) TableName() string {
	return "scheduler_jobs"
}
