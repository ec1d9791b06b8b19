package persistence

import (
	"context"
	"time"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSalesRepository aggregates fulfilled purchase orders for royalty generation
type GormSalesRepository struct {
	baseRepository
}

// NewGormSalesRepository creates a new GormSalesRepository
func NewGormSalesRepository(db *gorm.DB) *GormSalesRepository {
	return &GormSalesRepository{baseRepository: newBaseRepository(db)}
}

type salesAggregate struct {
	GrossSales decimal.Decimal
	OrderCount int
}

// SumFulfilledSales totals the submit-time snapshot of every DELIVERED order of
// the franchisee with delivered_at in [from, to). Each order row counts once.
func (r *GormSalesRepository) SumFulfilledSales(ctx context.Context, franchiseeID uuid.UUID, from, to time.Time) (royalty.SalesTotals, error) {
	db, ctx, cancel := r.conn(ctx)
	defer cancel()

	var agg salesAggregate
	err := db.Model(&models.PurchaseOrderModel{}).
		Select("COALESCE(SUM(COALESCE(submitted_total_excl_tax, total_excl_tax)), 0) AS gross_sales, COUNT(*) AS order_count").
		Where("franchisee_id = ? AND status = ?", franchiseeID, procurement.OrderStatusDelivered).
		Where("delivered_at >= ? AND delivered_at < ?", from.UTC(), to.UTC()).
		Scan(&agg).Error
	if err != nil {
		return royalty.SalesTotals{}, translateError(ctx, err)
	}

	return royalty.SalesTotals{GrossSales: agg.GrossSales, OrderCount: agg.OrderCount}, nil
}

// Ensure GormSalesRepository implements SalesSource
var _ royalty.SalesSource = (*GormSalesRepository)(nil)
