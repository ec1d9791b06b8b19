package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordEvent(ctx context.Context, eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[eventType]++
}

func submittedOrder(t *testing.T) *procurement.PurchaseOrder {
	t.Helper()
	order, err := procurement.NewPurchaseOrder(uuid.New(), uuid.New(), uuid.New(), valueobject.EUR)
	require.NoError(t, err)
	_, err = order.AddLine(procurement.LineInput{
		ProductID:        "core-1",
		Quantity:         decimal.NewFromInt(2),
		UnitPriceExclTax: decimal.NewFromInt(40),
		IsCoreItem:       true,
	}, "Burger buns")
	require.NoError(t, err)
	require.NoError(t, order.Submit())
	return order
}

func TestMetricsHandler_CountsEveryEvent(t *testing.T) {
	recorder := &countingRecorder{}
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewMetricsHandler(recorder))

	order := submittedOrder(t)
	require.NoError(t, bus.Publish(context.Background(), order.GetDomainEvents()...))

	assert.Equal(t, 1, recorder.counts[procurement.EventTypePurchaseOrderCreated])
	assert.Equal(t, 1, recorder.counts[procurement.EventTypePurchaseOrderSubmitted])
}

func TestLifecycleLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewLifecycleLogHandler(zap.New(core)))

	order := submittedOrder(t)
	require.NoError(t, bus.Publish(context.Background(), order.GetDomainEvents()...))

	// created is not a lifecycle event worth logging
	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, procurement.EventTypePurchaseOrderSubmitted, fields["event_type"])
	assert.Equal(t, "100", fields["core_pct"])
	assert.Equal(t, "80", fields["total_excl_tax"])

	t.Run("royalty report fields", func(t *testing.T) {
		agreement, err := franchise.NewAgreement(franchise.AgreementTerms{
			FranchiseeID:    uuid.New(),
			EntryFeeAmount:  franchise.DefaultEntryFeeAmount,
			RevenueSharePct: franchise.DefaultRevenueSharePct,
			StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		report, err := royalty.Generate(agreement.FranchiseeID, valueobject.MustParsePeriod("2025-08"), agreement,
			royalty.SalesTotals{GrossSales: decimal.RequireFromString("1250.00"), OrderCount: 2}, time.Now())
		require.NoError(t, err)

		require.NoError(t, bus.Publish(context.Background(), royalty.NewRoyaltyReportGeneratedEvent(report)))
		last := logs.All()[len(logs.All())-1].ContextMap()
		assert.Equal(t, "2025-08", last["period"])
		assert.Equal(t, "50", last["amount_due"])
	})
}
