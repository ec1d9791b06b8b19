package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordingEventHandler(t *testing.T) {
	handler := NewRecordingEventHandler("PurchaseOrderSubmitted", "RoyaltyReportGenerated")

	assert.Equal(t, []string{"PurchaseOrderSubmitted", "RoyaltyReportGenerated"}, handler.EventTypes())
	assert.Equal(t, 0, handler.HandledCount())
}

func TestRecordingEventHandler_Handle(t *testing.T) {
	handler := NewRecordingEventHandler()
	franchiseeID := uuid.New()
	first := NewTestEvent("PurchaseOrderCreated", franchiseeID)
	second := NewTestEvent("PurchaseOrderSubmitted", franchiseeID)

	require.NoError(t, handler.Handle(context.Background(), first))
	require.NoError(t, handler.Handle(context.Background(), second))

	assert.Equal(t, 2, handler.HandledCount())
	assert.Equal(t, []string{"PurchaseOrderCreated", "PurchaseOrderSubmitted"}, handler.Types())
	assert.Len(t, handler.ForAggregate(first.AggregateID()), 1)
	assert.Empty(t, handler.ForAggregate(uuid.New()))
}

func TestRecordingEventHandler_SetErrorAndReset(t *testing.T) {
	handler := NewRecordingEventHandler()
	handler.SetError(assert.AnError)

	err := handler.Handle(context.Background(), NewTestEvent("PurchaseOrderCreated", uuid.New()))
	assert.Equal(t, assert.AnError, err)
	assert.Equal(t, 1, handler.HandledCount())

	handler.Reset()
	assert.Equal(t, 0, handler.HandledCount())
	assert.NoError(t, handler.Handle(context.Background(), NewTestEvent("PurchaseOrderCreated", uuid.New())))
}

func TestNewTestEvent(t *testing.T) {
	franchiseeID := uuid.New()
	event := NewTestEvent("RoyaltyReportGenerated", franchiseeID)

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.Equal(t, "RoyaltyReportGenerated", event.EventType())
	assert.Equal(t, franchiseeID, event.FranchiseeID())
	assert.False(t, event.OccurredAt().IsZero())
	assert.Equal(t, "test-data", event.Data)
}

func TestWaitForCondition(t *testing.T) {
	t.Run("condition met", func(t *testing.T) {
		var flag atomic.Bool
		go func() {
			time.Sleep(20 * time.Millisecond)
			flag.Store(true)
		}()

		assert.True(t, WaitForCondition(t, flag.Load, time.Second, 5*time.Millisecond))
	})

	t.Run("timeout", func(t *testing.T) {
		assert.False(t, WaitForCondition(t, func() bool { return false }, 30*time.Millisecond, 10*time.Millisecond))
	})
}

func TestWaitForEventCount(t *testing.T) {
	handler := NewRecordingEventHandler()
	franchiseeID := uuid.New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = handler.Handle(context.Background(), NewTestEvent("PurchaseOrderCreated", franchiseeID))
		_ = handler.Handle(context.Background(), NewTestEvent("PurchaseOrderSubmitted", franchiseeID))
	}()

	assert.True(t, WaitForEventCount(t, handler, 2, time.Second))
}
