package storage

import (
	"context"

	"github.com/foodtruck/backend/internal/domain/royalty"
	"go.uber.org/zap"
)

// NoopExporter is used when S3 export is disabled. It only logs.
type NoopExporter struct {
	logger *zap.Logger
}

// NewNoopExporter creates a new NoopExporter
func NewNoopExporter(logger *zap.Logger) *NoopExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopExporter{logger: logger}
}

// Export logs the report key and succeeds
func (e *NoopExporter) Export(ctx context.Context, report *royalty.RoyaltyReport) error {
	e.logger.Debug("Report export disabled",
		zap.String("franchisee_id", report.FranchiseeID.String()),
		zap.String("period", report.Period.String()),
	)
	return nil
}

var _ royalty.Exporter = (*NoopExporter)(nil)
