package persistence

import (
	"context"

	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRoyaltyReportRepository implements ReportRepository using GORM.
// Reports are never updated.
type GormRoyaltyReportRepository struct {
	baseRepository
}

// NewGormRoyaltyReportRepository creates a new GormRoyaltyReportRepository
func NewGormRoyaltyReportRepository(db *gorm.DB) *GormRoyaltyReportRepository {
	return &GormRoyaltyReportRepository{baseRepository: newBaseRepository(db)}
}

// FindByID finds a report by its ID
func (r *GormRoyaltyReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*royalty.RoyaltyReport, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	var model models.RoyaltyReportModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(ctx, err)
	}
	return model.ToDomain(), nil
}

// FindByKey finds the report of a franchisee for a period
func (r *GormRoyaltyReportRepository) FindByKey(ctx context.Context, franchiseeID uuid.UUID, period valueobject.Period) (*royalty.RoyaltyReport, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	var model models.RoyaltyReportModel
	if err := db.Where("franchisee_id = ? AND period = ?", franchiseeID, period.String()).
		First(&model).Error; err != nil {
		return nil, translateError(ctx, err)
	}
	return model.ToDomain(), nil
}

// FindByFranchisee lists a franchisee's reports
func (r *GormRoyaltyReportRepository) FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) ([]royalty.RoyaltyReport, int64, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	query := db.Model(&models.RoyaltyReportModel{}).Where("franchisee_id = ?", franchiseeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(ctx, err)
	}

	var reportModels []models.RoyaltyReportModel
	query = applySort(query, filter, royaltyReportSort)
	if err := applyPage(query, filter).Find(&reportModels).Error; err != nil {
		return nil, 0, translateError(ctx, err)
	}

	reports := make([]royalty.RoyaltyReport, len(reportModels))
	for i := range reportModels {
		reports[i] = *reportModels[i].ToDomain()
	}
	return reports, total, nil
}

// Create inserts a report. The unique (franchisee_id, period) index turns a
// duplicate into shared.ErrAlreadyExists.
func (r *GormRoyaltyReportRepository) Create(ctx context.Context, report *royalty.RoyaltyReport) error {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	return translateError(ctx, db.Create(models.RoyaltyReportModelFromDomain(report)).Error)
}

// Ensure GormRoyaltyReportRepository implements ReportRepository
var _ royalty.ReportRepository = (*GormRoyaltyReportRepository)(nil)
