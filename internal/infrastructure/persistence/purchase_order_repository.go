package persistence

import (
	"context"
	"time"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	baseRepository
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{baseRepository: newBaseRepository(db)}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds a purchase order by its ID, lines in entry order
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	var model models.PurchaseOrderModel
	if err := db.Preload("Lines", preloadLines).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(ctx, err)
	}
	return model.ToDomain(), nil
}

// FindAll lists orders matching the filter. Lines are not loaded.
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.OrderFilter) ([]procurement.PurchaseOrder, int64, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	query := db.Model(&models.PurchaseOrderModel{})
	if filter.FranchiseeID != nil {
		query = query.Where("franchisee_id = ?", *filter.FranchiseeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(ctx, err)
	}

	var orderModels []models.PurchaseOrderModel
	query = applySort(query, filter.Filter, purchaseOrderSort)
	if err := applyPage(query, filter.Filter).Find(&orderModels).Error; err != nil {
		return nil, 0, translateError(ctx, err)
	}

	orders := make([]procurement.PurchaseOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts a new order and its lines in one transaction
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *procurement.PurchaseOrder) error {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	model := models.PurchaseOrderModelFromDomain(order)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			return tx.Create(&model.Lines).Error
		}
		return nil
	})
	return translateError(ctx, err)
}

// SaveWithLock saves with optimistic locking (version check). The stored
// version must equal order.Version; on success the version is bumped.
func (r *GormPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	model := models.PurchaseOrderModelFromDomain(order)
	expected := order.Version
	now := time.Now()

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ? AND version = ?", order.ID, expected).
			Updates(map[string]any{
				"status":                   model.Status,
				"core_pct":                 model.CorePct,
				"total_excl_tax":           model.TotalExclTax,
				"tax_amount":               model.TaxAmount,
				"submitted_core_pct":       model.SubmittedCorePct,
				"submitted_total_excl_tax": model.SubmittedTotalExclTax,
				"approved_by":              model.ApprovedBy,
				"rejected_by":              model.RejectedBy,
				"rejection_reason":         model.RejectionReason,
				"submitted_at":             model.SubmittedAt,
				"approved_at":              model.ApprovedAt,
				"ready_at":                 model.ReadyAt,
				"delivered_at":             model.DeliveredAt,
				"cancelled_at":             model.CancelledAt,
				"version":                  expected + 1,
				"updated_at":               now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missingOrStale(tx, order.ID)
		}

		return syncLines(tx, order.ID, model.Lines)
	})
	if err != nil {
		return translateError(ctx, err)
	}

	order.Version = expected + 1
	order.UpdatedAt = now
	return nil
}

// missingOrStale tells a deleted row from a concurrent update after a zero-row update
func (r *GormPurchaseOrderRepository) missingOrStale(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.PurchaseOrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("purchase order", id)
	}
	return shared.NewConflictError("The order has been modified by another request")
}

// syncLines makes the stored lines of an order match lines exactly
func syncLines(tx *gorm.DB, orderID uuid.UUID, lines []models.PurchaseOrderLineModel) error {
	keep := make([]uuid.UUID, len(lines))
	for i := range lines {
		keep[i] = lines[i].ID
	}

	del := tx.Where("order_id = ?", orderID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.PurchaseOrderLineModel{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"position", "product_name", "quantity", "unit_price_excl_tax",
			"tax_rate_pct", "is_core_item", "amount_excl_tax", "updated_at",
		}),
	}).Create(&lines).Error
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
