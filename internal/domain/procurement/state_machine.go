package procurement

import (
	"fmt"
	"strings"

	"github.com/foodtruck/backend/internal/domain/shared"
)

// OrderStatus represents the lifecycle state of a purchase order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// AllOrderStatuses lists every status in lifecycle order
var AllOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusSubmitted,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid checks if the status is a known OrderStatus
func (s OrderStatus) IsValid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for DELIVERED and CANCELLED
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderEvent is a request to move an order along its lifecycle
type OrderEvent string

const (
	EventSubmit        OrderEvent = "submit"
	EventApprove       OrderEvent = "approve"
	EventReject        OrderEvent = "reject"
	EventMarkReady     OrderEvent = "mark-ready"
	EventMarkDelivered OrderEvent = "mark-delivered"
)

// AllOrderEvents lists every event the state machine understands
var AllOrderEvents = []OrderEvent{
	EventSubmit,
	EventApprove,
	EventReject,
	EventMarkReady,
	EventMarkDelivered,
}

// ParseOrderEvent validates an event name
func ParseOrderEvent(s string) (OrderEvent, error) {
	e := OrderEvent(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllOrderEvents {
		if e == known {
			return e, nil
		}
	}
	names := make([]string, len(AllOrderEvents))
	for i, known := range AllOrderEvents {
		names[i] = string(known)
	}
	err := shared.NewValidationError(shared.CodeInvalidInput, fmt.Sprintf("unknown order event %q", s))
	return "", err.WithDetail("known_events", names)
}

// String returns the event name
func (e OrderEvent) String() string {
	return string(e)
}

type transition struct {
	from  OrderStatus
	event OrderEvent
	to    OrderStatus
}

// transitionTable is the complete set of legal moves. Anything absent is rejected.
var transitionTable = []transition{
	{OrderStatusDraft, EventSubmit, OrderStatusSubmitted},
	{OrderStatusSubmitted, EventApprove, OrderStatusPreparing},
	{OrderStatusSubmitted, EventReject, OrderStatusCancelled},
	{OrderStatusPreparing, EventMarkReady, OrderStatusReady},
	{OrderStatusReady, EventMarkDelivered, OrderStatusDelivered},
}

// NextStatus looks up the target of event from status
func NextStatus(from OrderStatus, event OrderEvent) (OrderStatus, bool) {
	for _, t := range transitionTable {
		if t.from == from && t.event == event {
			return t.to, true
		}
	}
	return "", false
}

// LegalEvents returns the events accepted from status, in table order
func LegalEvents(from OrderStatus) []OrderEvent {
	events := make([]OrderEvent, 0, 2)
	for _, t := range transitionTable {
		if t.from == from {
			events = append(events, t.event)
		}
	}
	return events
}

func legalEventNames(from OrderStatus) []string {
	events := LegalEvents(from)
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e)
	}
	return names
}

// NewInvalidTransitionError names the current state, the requested event and
// what would have been accepted instead.
func NewInvalidTransitionError(from OrderStatus, event OrderEvent) *shared.DomainError {
	legal := legalEventNames(from)
	msg := fmt.Sprintf("cannot apply %q to an order in %s", event, from)
	if len(legal) == 0 {
		msg += "; the order is in a terminal state"
	} else {
		msg += fmt.Sprintf("; legal events: %s", strings.Join(legal, ", "))
	}
	return shared.NewStateError(shared.CodeInvalidTransition, msg, map[string]any{
		"current_state": string(from),
		"event":         string(event),
		"legal_events":  legal,
	})
}

// NewOrderNotEditableError reports a line mutation outside DRAFT
func NewOrderNotEditableError(status OrderStatus) *shared.DomainError {
	return shared.NewStateError(shared.CodeOrderNotEditable,
		fmt.Sprintf("order lines are frozen once the order leaves DRAFT (current state %s)", status),
		map[string]any{
			"current_state": string(status),
			"legal_events":  legalEventNames(status),
		})
}
