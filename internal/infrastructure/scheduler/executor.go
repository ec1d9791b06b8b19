package scheduler

import (
	"context"

	royaltyapp "github.com/foodtruck/backend/internal/application/royalty"
	"go.uber.org/zap"
)

// ReportGenerator generates a single royalty report
type ReportGenerator interface {
	Generate(ctx context.Context, req royaltyapp.GenerateReportRequest) (*royaltyapp.GenerateReportResult, error)
}

// ReportExecutor executes jobs through the royalty application service
type ReportExecutor struct {
	generator ReportGenerator
	logger    *zap.Logger
}

// NewReportExecutor creates a new ReportExecutor
func NewReportExecutor(generator ReportGenerator, logger *zap.Logger) *ReportExecutor {
	return &ReportExecutor{generator: generator, logger: logger}
}

// Execute generates the job's report
func (e *ReportExecutor) Execute(ctx context.Context, job *Job) error {
	result, err := e.generator.Generate(ctx, royaltyapp.GenerateReportRequest{
		FranchiseeID: job.FranchiseeID,
		Period:       job.Period.String(),
	})
	if err != nil {
		return err
	}

	e.logger.Debug("Royalty report ready",
		zap.String("key", job.Key()),
		zap.String("report_id", result.Report.ID.String()),
		zap.Bool("created", result.Created),
	)
	return nil
}

var _ JobExecutor = (*ReportExecutor)(nil)
