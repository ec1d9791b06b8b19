package event

import (
	"testing"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

const (
	submitted = "PurchaseOrderSubmitted"
	delivered = "PurchaseOrderDelivered"
	generated = "RoyaltyReportGenerated"
)

func TestHandlerRegistry_GetHandlers(t *testing.T) {
	compliance := newTestHandler(submitted)
	billing := newTestHandler(delivered, generated)
	audit := newTestHandler()

	registry := NewHandlerRegistry()
	registry.Register(audit)
	registry.Register(compliance, submitted)
	registry.Register(billing, delivered, generated)

	tests := []struct {
		eventType string
		want      []shared.EventHandler
	}{
		{submitted, []shared.EventHandler{compliance, audit}},
		{delivered, []shared.EventHandler{billing, audit}},
		{generated, []shared.EventHandler{billing, audit}},
		{"PurchaseOrderRejected", []shared.EventHandler{audit}},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.want, registry.GetHandlers(tt.eventType), "typed handlers precede wildcards")
		})
	}
	assert.Len(t, registry.GetAllHandlers(), 3)
}

func TestHandlerRegistry_RegisterIsIdempotent(t *testing.T) {
	h := newTestHandler(submitted)
	registry := NewHandlerRegistry()

	registry.Register(h, submitted)
	registry.Register(h, submitted, submitted)
	registry.Register(h)
	registry.Register(h)

	assert.Len(t, registry.GetHandlers(submitted), 2, "one typed and one wildcard entry")
	assert.Len(t, registry.GetHandlers(delivered), 1)
	assert.Len(t, registry.GetAllHandlers(), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	first := newTestHandler(submitted)
	second := newTestHandler(submitted)
	audit := newTestHandler()

	registry := NewHandlerRegistry()
	registry.Register(first, submitted)
	registry.Register(second, submitted)
	registry.Register(audit)

	registry.Unregister(first)
	assert.Equal(t, []shared.EventHandler{second, audit}, registry.GetHandlers(submitted))

	registry.Unregister(audit)
	assert.Equal(t, []shared.EventHandler{second}, registry.GetHandlers(submitted))
	assert.Empty(t, registry.GetHandlers(delivered))

	registry.Unregister(second)
	assert.Empty(t, registry.GetHandlers(submitted))
	assert.Empty(t, registry.GetAllHandlers())

	// unknown handler is ignored
	registry.Unregister(newTestHandler())
}
