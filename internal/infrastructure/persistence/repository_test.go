package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// every pooled connection would otherwise get its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.PurchaseOrderModel{},
		&models.PurchaseOrderLineModel{},
		&models.FranchiseAgreementModel{},
		&models.RoyaltyReportModel{},
		&models.SchedulerJobModel{},
	)
	require.NoError(t, err)
	return db
}

func line(productID string, amount string, core bool) procurement.LineInput {
	return procurement.LineInput{
		ProductID:        productID,
		Quantity:         decimal.NewFromInt(1),
		UnitPriceExclTax: decimal.RequireFromString(amount),
		TaxRatePct:       decimal.NewFromInt(10),
		IsCoreItem:       core,
	}
}

func newDraftOrder(t *testing.T, franchiseeID uuid.UUID, lines ...procurement.LineInput) *procurement.PurchaseOrder {
	t.Helper()
	order, err := procurement.NewPurchaseOrder(franchiseeID, uuid.New(), uuid.New(), valueobject.EUR)
	require.NoError(t, err)
	for _, l := range lines {
		_, err := order.AddLine(l, "")
		require.NoError(t, err)
	}
	return order
}

func newDeliveredOrder(t *testing.T, franchiseeID uuid.UUID, amount string, deliveredAt time.Time) *procurement.PurchaseOrder {
	t.Helper()
	order := newDraftOrder(t, franchiseeID, line("core-1", amount, true))
	approver := procurement.NewActor(uuid.New(), string(procurement.CapabilityApproveOrders))
	require.NoError(t, order.Submit())
	submittedAt := deliveredAt.Add(-time.Hour)
	order.SubmittedAt = &submittedAt
	require.NoError(t, order.Approve(approver))
	require.NoError(t, order.MarkReady())
	require.NoError(t, order.MarkDelivered(deliveredAt))
	return order
}

func TestPurchaseOrderRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)
	ctx := context.Background()
	franchiseeID := uuid.New()

	order := newDraftOrder(t, franchiseeID, line("core-1", "80.00", true), line("free-1", "20.00", false))
	require.NoError(t, repo.Create(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	assert.Equal(t, procurement.OrderStatusDraft, found.Status)
	require.Len(t, found.Lines, 2)
	assert.Equal(t, "core-1", found.Lines[0].ProductID)
	assert.Equal(t, "free-1", found.Lines[1].ProductID)
	assert.True(t, found.TotalExclTax.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, found.CorePct)
	assert.True(t, found.CorePct.Equal(decimal.NewFromInt(80)))

	t.Run("missing order is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestPurchaseOrderRepository_SaveWithLock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)
	ctx := context.Background()

	order := newDraftOrder(t, uuid.New(), line("core-1", "80.00", true), line("free-1", "20.00", false))
	require.NoError(t, repo.Create(ctx, order))
	startVersion := order.Version

	t.Run("bumps version and syncs lines", func(t *testing.T) {
		require.NoError(t, order.RemoveLine(order.Lines[1].ID))
		_, err := order.AddLine(line("core-2", "15.00", true), "")
		require.NoError(t, err)

		require.NoError(t, repo.SaveWithLock(ctx, order))
		assert.Equal(t, startVersion+1, order.Version)

		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.Version, found.Version)
		require.Len(t, found.Lines, 2)
		assert.Equal(t, "core-1", found.Lines[0].ProductID)
		assert.Equal(t, "core-2", found.Lines[1].ProductID)
	})

	t.Run("stale copy loses with a retryable conflict", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)

		require.NoError(t, order.Submit())
		require.NoError(t, repo.SaveWithLock(ctx, order))

		require.NoError(t, stale.Submit())
		err = repo.SaveWithLock(ctx, stale)
		require.Error(t, err)
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
		assert.True(t, shared.IsRetryable(err))

		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.OrderStatusSubmitted, found.Status)
		assert.Equal(t, order.Version, found.Version)
		require.NotNil(t, found.SubmittedCorePct)
		assert.True(t, found.SubmittedCorePct.Equal(decimal.NewFromInt(100)))
	})

	t.Run("deleted order is not found", func(t *testing.T) {
		ghost := newDraftOrder(t, uuid.New(), line("core-1", "10.00", true))
		err := repo.SaveWithLock(ctx, ghost)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestPurchaseOrderRepository_FindAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)
	ctx := context.Background()
	franchiseeID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newDraftOrder(t, franchiseeID, line("core", "10.00", true))))
	}
	submitted := newDraftOrder(t, franchiseeID, line("core", "10.00", true))
	require.NoError(t, submitted.Submit())
	require.NoError(t, repo.Create(ctx, submitted))
	require.NoError(t, repo.Create(ctx, newDraftOrder(t, uuid.New(), line("core", "10.00", true))))

	t.Run("filters by franchisee", func(t *testing.T) {
		orders, total, err := repo.FindAll(ctx, procurement.OrderFilter{
			Filter:       shared.Filter{Page: 1, PageSize: 2},
			FranchiseeID: &franchiseeID,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, orders, 2)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := procurement.OrderStatusSubmitted
		orders, total, err := repo.FindAll(ctx, procurement.OrderFilter{
			Filter:       shared.Filter{Page: 1, PageSize: 20},
			FranchiseeID: &franchiseeID,
			Status:       &status,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, orders, 1)
		assert.Equal(t, submitted.ID, orders[0].ID)
	})
}

func TestAgreementRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAgreementRepository(db)
	ctx := context.Background()
	franchiseeID := uuid.New()

	newAgreement := func(start string, end *time.Time) *franchise.Agreement {
		startDate, err := franchise.ParseDate(start)
		require.NoError(t, err)
		a, err := franchise.NewAgreement(franchise.AgreementTerms{
			FranchiseeID:    franchiseeID,
			EntryFeeAmount:  franchise.DefaultEntryFeeAmount,
			RevenueSharePct: franchise.DefaultRevenueSharePct,
			StartDate:       startDate,
			EndDate:         end,
		})
		require.NoError(t, err)
		return a
	}

	end2024 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := newAgreement("2025-01-01", nil)
	earlier := newAgreement("2024-01-01", &end2024)
	require.NoError(t, repo.Create(ctx, later))
	require.NoError(t, repo.Create(ctx, earlier))

	t.Run("lists oldest first", func(t *testing.T) {
		agreements, err := repo.FindByFranchisee(ctx, franchiseeID)
		require.NoError(t, err)
		require.Len(t, agreements, 2)
		assert.Equal(t, earlier.ID, agreements[0].ID)
		assert.Equal(t, later.ID, agreements[1].ID)
		assert.True(t, agreements[0].RevenueSharePct.Equal(decimal.RequireFromString("0.04")))
	})

	t.Run("distinct franchisees", func(t *testing.T) {
		ids, err := repo.FindFranchiseesWithAgreements(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{franchiseeID}, ids)
	})

	t.Run("close with version check", func(t *testing.T) {
		found, err := repo.FindByID(ctx, later.ID)
		require.NoError(t, err)
		stale := *found

		require.NoError(t, found.Close(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, repo.SaveWithLock(ctx, found))

		reloaded, err := repo.FindByID(ctx, later.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.EndDate)
		assert.Equal(t, "2025-12-31", reloaded.EndDate.Format(franchise.DateLayout))

		err = repo.SaveWithLock(ctx, &stale)
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
	})
}

func TestRoyaltyReportRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRoyaltyReportRepository(db)
	ctx := context.Background()
	franchiseeID := uuid.New()

	agreement, err := franchise.NewAgreement(franchise.AgreementTerms{
		FranchiseeID:    franchiseeID,
		EntryFeeAmount:  franchise.DefaultEntryFeeAmount,
		RevenueSharePct: franchise.DefaultRevenueSharePct,
		StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	period := valueobject.MustParsePeriod("2025-08")
	report, err := royalty.Generate(franchiseeID, period, agreement, royalty.SalesTotals{
		GrossSales: decimal.RequireFromString("1250.00"),
		OrderCount: 2,
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, report))

	t.Run("finds by key", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, franchiseeID, period)
		require.NoError(t, err)
		assert.Equal(t, report.ID, found.ID)
		assert.Equal(t, period, found.Period)
		assert.True(t, found.AmountDue.Equal(decimal.RequireFromString("50.00")))
		assert.True(t, report.SameFigures(found))
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		_, err := repo.FindByKey(ctx, franchiseeID, period.Next())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate key already exists", func(t *testing.T) {
		dup, err := royalty.Generate(franchiseeID, period, agreement, royalty.SalesTotals{}, time.Now())
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists), "got %v", err)
	})

	t.Run("lists by franchisee", func(t *testing.T) {
		next, err := royalty.Generate(franchiseeID, period.Next(), agreement, royalty.SalesTotals{}, time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, next))

		reports, total, err := repo.FindByFranchisee(ctx, franchiseeID, shared.Filter{
			Page: 1, PageSize: 10, OrderBy: "period", OrderDir: "desc",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, reports, 2)
		assert.Equal(t, "2025-09", reports[0].Period.String())
	})
}

func TestSalesRepository_SumFulfilledSales(t *testing.T) {
	db := setupTestDB(t)
	orders := NewGormPurchaseOrderRepository(db)
	sales := NewGormSalesRepository(db)
	ctx := context.Background()
	franchiseeID := uuid.New()

	inPeriod1 := newDeliveredOrder(t, franchiseeID, "1000.00", time.Date(2025, 8, 3, 10, 0, 0, 0, time.UTC))
	inPeriod2 := newDeliveredOrder(t, franchiseeID, "250.00", time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC))
	nextMonth := newDeliveredOrder(t, franchiseeID, "999.00", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	otherFranchisee := newDeliveredOrder(t, uuid.New(), "500.00", time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC))
	notDelivered := newDraftOrder(t, franchiseeID, line("core", "700.00", true))
	require.NoError(t, notDelivered.Submit())

	for _, o := range []*procurement.PurchaseOrder{inPeriod1, inPeriod2, nextMonth, otherFranchisee, notDelivered} {
		require.NoError(t, orders.Create(ctx, o))
	}

	from, to := valueobject.MustParsePeriod("2025-08").Bounds(time.UTC)
	totals, err := sales.SumFulfilledSales(ctx, franchiseeID, from, to)
	require.NoError(t, err)
	assert.True(t, totals.GrossSales.Equal(decimal.RequireFromString("1250.00")), "got %s", totals.GrossSales)
	assert.Equal(t, 2, totals.OrderCount)

	t.Run("empty period sums to zero", func(t *testing.T) {
		from, to := valueobject.MustParsePeriod("2024-01").Bounds(time.UTC)
		totals, err := sales.SumFulfilledSales(ctx, franchiseeID, from, to)
		require.NoError(t, err)
		assert.True(t, totals.GrossSales.IsZero())
		assert.Equal(t, 0, totals.OrderCount)
	})
}

func TestTranslateError(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, translateError(ctx, nil))
	assert.ErrorIs(t, translateError(ctx, gorm.ErrRecordNotFound), shared.ErrNotFound)
	assert.ErrorIs(t, translateError(ctx, gorm.ErrDuplicatedKey), shared.ErrAlreadyExists)
	assert.ErrorIs(t, translateError(ctx, errors.New(`ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)`)), shared.ErrAlreadyExists)
	assert.ErrorIs(t, translateError(ctx, context.DeadlineExceeded), shared.ErrPersistenceTimeout)

	conflict := shared.NewConflictError("stale")
	assert.Same(t, conflict, translateError(ctx, conflict))

	expired, cancel := context.WithTimeout(ctx, -time.Second)
	defer cancel()
	assert.ErrorIs(t, translateError(expired, errors.New("driver: bad connection")), shared.ErrPersistenceTimeout)
}
