// Package storage publishes royalty reports to object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	infraconfig "github.com/foodtruck/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const reportContentType = "application/json"

// S3API is the subset of the S3 client the exporter uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3ReportExporter writes each generated report as a JSON document to
// <prefix>/<franchisee>/<period>.json. Works with AWS S3 and S3 compatible
// stores such as MinIO.
type S3ReportExporter struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// S3ReportExporterOption is a functional option for configuring S3ReportExporter
type S3ReportExporterOption func(*S3ReportExporter)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ReportExporterOption {
	return func(e *S3ReportExporter) {
		e.logger = logger
	}
}

// WithClient replaces the S3 client
func WithClient(client S3API) S3ReportExporterOption {
	return func(e *S3ReportExporter) {
		e.client = client
	}
}

// NewS3ReportExporter creates an exporter from configuration. Static
// credentials are used when both keys are set, otherwise the default AWS
// credential chain applies.
func NewS3ReportExporter(ctx context.Context, cfg *infraconfig.ExportConfig, opts ...S3ReportExporterOption) (*S3ReportExporter, error) {
	if cfg == nil {
		return nil, errors.New("export configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("export bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretKey == "") {
		return nil, errors.New("export access key id and secret key must be set together")
	}

	exporter := &S3ReportExporter{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(exporter)
	}
	if exporter.client != nil {
		return exporter, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	exporter.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return exporter, nil
}

// reportDocument is the exported JSON shape. Amounts are fixed point strings.
type reportDocument struct {
	ID           string `json:"id"`
	FranchiseeID string `json:"franchisee_id"`
	AgreementID  string `json:"agreement_id"`
	Period       string `json:"period"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`
	TimeZone     string `json:"time_zone"`
	Currency     string `json:"currency"`
	GrossSales   string `json:"gross_sales"`
	SharePct     string `json:"share_pct"`
	AmountDue    string `json:"amount_due"`
	OrderCount   int    `json:"order_count"`
	GeneratedAt  string `json:"generated_at"`
}

func newReportDocument(r *royalty.RoyaltyReport) reportDocument {
	return reportDocument{
		ID:           r.ID.String(),
		FranchiseeID: r.FranchiseeID.String(),
		AgreementID:  r.AgreementID.String(),
		Period:       r.Period.String(),
		PeriodStart:  r.PeriodStart.Format(time.RFC3339),
		PeriodEnd:    r.PeriodEnd.Format(time.RFC3339),
		TimeZone:     r.TimeZone,
		Currency:     string(r.Currency),
		GrossSales:   r.GrossSales.StringFixed(valueobject.MoneyScale),
		SharePct:     r.SharePct.StringFixed(4),
		AmountDue:    r.AmountDue.StringFixed(valueobject.MoneyScale),
		OrderCount:   r.OrderCount,
		GeneratedAt:  r.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

// ObjectKey returns where the report of franchisee and period is stored
func (e *S3ReportExporter) ObjectKey(r *royalty.RoyaltyReport) string {
	key := path.Join(r.FranchiseeID.String(), r.Period.String()+".json")
	if e.prefix == "" {
		return key
	}
	return path.Join(e.prefix, key)
}

// Export uploads the report. Reports are immutable, so overwriting an
// existing object with the same key writes identical content.
func (e *S3ReportExporter) Export(ctx context.Context, report *royalty.RoyaltyReport) error {
	if report == nil {
		return errors.New("report is required")
	}

	body, err := json.Marshal(newReportDocument(report))
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	key := e.ObjectKey(report)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(reportContentType),
		Metadata: map[string]string{
			"report-id": report.ID.String(),
			"period":    report.Period.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload report %s: %w", key, err)
	}

	e.logger.Info("Royalty report exported",
		zap.String("bucket", e.bucket),
		zap.String("key", key),
		zap.String("report_id", report.ID.String()),
	)
	return nil
}

// Exists reports whether the report has already been exported
func (e *S3ReportExporter) Exists(ctx context.Context, report *royalty.RoyaltyReport) (bool, error) {
	_, err := e.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(e.ObjectKey(report)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (e *S3ReportExporter) EnsureBucket(ctx context.Context) error {
	_, err := e.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(e.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	e.logger.Info("Creating export bucket", zap.String("bucket", e.bucket))
	_, err = e.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(e.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (e *S3ReportExporter) Bucket() string {
	return e.bucket
}

var _ royalty.Exporter = (*S3ReportExporter)(nil)
