package franchise

import (
	"context"

	"github.com/google/uuid"
)

// AgreementRepository defines the interface for agreement persistence
type AgreementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Agreement, error)

	// FindByFranchisee returns all agreements of a franchisee ordered by start date
	FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID) ([]Agreement, error)

	// FindFranchiseesWithAgreements returns every franchisee that has at least one agreement
	FindFranchiseesWithAgreements(ctx context.Context) ([]uuid.UUID, error)

	Create(ctx context.Context, agreement *Agreement) error

	// SaveWithLock updates an agreement guarded by its version
	SaveWithLock(ctx context.Context, agreement *Agreement) error
}

// WriteLock serializes agreement changes of one franchisee across processes
type WriteLock interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LockKey names the agreement write lock of a franchisee
func LockKey(franchiseeID uuid.UUID) string {
	return "agreements:" + franchiseeID.String()
}
