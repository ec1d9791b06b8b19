package procurement

import (
	"strings"

	"github.com/google/uuid"
)

// Capability is a permission carried by the caller of a transition
type Capability string

const (
	CapabilityApproveOrders Capability = "orders:approve"
	CapabilityManageOrders  Capability = "orders:manage"
)

// Actor identifies who is driving a transition
type Actor struct {
	ID           uuid.UUID
	Capabilities []Capability
}

// NewActor builds an actor from a comma separated capability list
func NewActor(id uuid.UUID, capabilities string) Actor {
	actor := Actor{ID: id}
	for _, c := range strings.Split(capabilities, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			actor.Capabilities = append(actor.Capabilities, Capability(strings.ToLower(c)))
		}
	}
	return actor
}

// Can reports whether the actor holds capability
func (a Actor) Can(capability Capability) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
