package royalty

import (
	"context"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ReportRepository persists royalty reports. Reports are insert-only.
type ReportRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RoyaltyReport, error)

	// FindByKey returns the report of (franchisee, period) or shared.ErrNotFound
	FindByKey(ctx context.Context, franchiseeID uuid.UUID, period valueobject.Period) (*RoyaltyReport, error)

	FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) ([]RoyaltyReport, int64, error)

	// Create inserts a report. A second report for the same key fails with shared.ErrAlreadyExists.
	Create(ctx context.Context, report *RoyaltyReport) error
}

// SalesSource aggregates fulfilled order revenue
type SalesSource interface {
	// SumFulfilledSales totals DELIVERED orders of the franchisee delivered in [from, to)
	SumFulfilledSales(ctx context.Context, franchiseeID uuid.UUID, from, to time.Time) (SalesTotals, error)
}

// GenerationLock serializes report generation for a key across processes
type GenerationLock interface {
	// Acquire blocks until the lock for key is held or ctx ends. The returned
	// release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Exporter hands a stored report to downstream rendering
type Exporter interface {
	Export(ctx context.Context, report *RoyaltyReport) error
}
