package procurement

import (
	"context"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows purchase order listings
type OrderFilter struct {
	shared.Filter
	FranchiseeID *uuid.UUID
	Status       *OrderStatus
}

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID loads an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindAll lists orders matching the filter, without lines
	FindAll(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int64, error)

	// Create inserts a new order and its lines
	Create(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLock persists the order if its stored version still equals
	// order.Version, then bumps the version. A mismatch is a CONCURRENCY_CONFLICT.
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error
}
