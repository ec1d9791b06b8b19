package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// DefaultQueryTimeout bounds every repository call unless overridden
const DefaultQueryTimeout = 5 * time.Second

// baseRepository carries the connection and the per-call timeout shared by all repositories
type baseRepository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func newBaseRepository(db *gorm.DB) baseRepository {
	return baseRepository{db: db, queryTimeout: DefaultQueryTimeout}
}

// SetQueryTimeout sets the per-call timeout; zero or negative disables it
func (r *baseRepository) SetQueryTimeout(d time.Duration) {
	r.queryTimeout = d
}

// conn returns a session bound to a context carrying the query timeout
func (r *baseRepository) conn(ctx context.Context) (*gorm.DB, context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return r.db.WithContext(ctx), ctx, func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	return r.db.WithContext(ctx), ctx, cancel
}

// translateError maps driver errors onto domain errors. ctx is the bounded
// context of the call, used to tell a timeout from a caller cancellation.
func translateError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return shared.ErrAlreadyExists
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return shared.ErrPersistenceTimeout
	}
	return err
}

// isUniqueViolation catches drivers that do not implement gorm's error translator
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// applySort adds a whitelisted ORDER BY
func applySort(query *gorm.DB, filter shared.Filter, columns sortColumns) *gorm.DB {
	return query.Order(columns.clause(filter.OrderBy, filter.OrderDir))
}

// applyPage adds OFFSET/LIMIT for a normalized filter
func applyPage(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
