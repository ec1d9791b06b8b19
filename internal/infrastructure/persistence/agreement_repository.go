package persistence

import (
	"context"
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAgreementRepository implements AgreementRepository using GORM
type GormAgreementRepository struct {
	baseRepository
}

// NewGormAgreementRepository creates a new GormAgreementRepository
func NewGormAgreementRepository(db *gorm.DB) *GormAgreementRepository {
	return &GormAgreementRepository{baseRepository: newBaseRepository(db)}
}

// FindByID finds an agreement by its ID
func (r *GormAgreementRepository) FindByID(ctx context.Context, id uuid.UUID) (*franchise.Agreement, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	var model models.FranchiseAgreementModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(ctx, err)
	}
	return model.ToDomain(), nil
}

// FindByFranchisee returns all agreements of a franchisee, oldest first
func (r *GormAgreementRepository) FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID) ([]franchise.Agreement, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	var agreementModels []models.FranchiseAgreementModel
	if err := db.Where("franchisee_id = ?", franchiseeID).
		Order("start_date ASC").
		Find(&agreementModels).Error; err != nil {
		return nil, translateError(ctx, err)
	}

	agreements := make([]franchise.Agreement, len(agreementModels))
	for i := range agreementModels {
		agreements[i] = *agreementModels[i].ToDomain()
	}
	return agreements, nil
}

// FindFranchiseesWithAgreements returns the distinct franchisees holding an agreement
func (r *GormAgreementRepository) FindFranchiseesWithAgreements(ctx context.Context) ([]uuid.UUID, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	var ids []uuid.UUID
	if err := db.Model(&models.FranchiseAgreementModel{}).
		Distinct().
		Order("franchisee_id").
		Pluck("franchisee_id", &ids).Error; err != nil {
		return nil, translateError(ctx, err)
	}
	return ids, nil
}

// Create inserts a new agreement
func (r *GormAgreementRepository) Create(ctx context.Context, agreement *franchise.Agreement) error {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	return translateError(ctx, db.Create(models.FranchiseAgreementModelFromDomain(agreement)).Error)
}

// SaveWithLock updates the mutable terms of an agreement guarded by its version
func (r *GormAgreementRepository) SaveWithLock(ctx context.Context, agreement *franchise.Agreement) error {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	model := models.FranchiseAgreementModelFromDomain(agreement)
	expected := agreement.Version
	now := time.Now()

	result := db.Model(&models.FranchiseAgreementModel{}).
		Where("id = ? AND version = ?", agreement.ID, expected).
		Updates(map[string]any{
			"end_date":   model.EndDate,
			"version":    expected + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		return translateError(ctx, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.FranchiseAgreementModel{}).Where("id = ?", agreement.ID).Count(&count).Error; err != nil {
			return translateError(ctx, err)
		}
		if count == 0 {
			return shared.NewNotFoundError("agreement", agreement.ID)
		}
		return shared.NewConflictError("The agreement has been modified by another request")
	}

	agreement.Version = expected + 1
	agreement.UpdatedAt = now
	return nil
}

// Ensure GormAgreementRepository implements AgreementRepository
var _ franchise.AgreementRepository = (*GormAgreementRepository)(nil)
