// Package links keeps switch ports, patch-panel ports and fiber-panel ports
// mutually consistent as links are created, moved and torn down.
//
// Every port table carries the same counterpart pointer. The Service enforces
// that a linked pair always names each other, that replacing a link clears the
// displaced counterpart, and that every change lands in connection_history.
// Each operation is one transaction; rows are locked in (table, id) order.
package links

import (
	"fmt"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// Endpoint is one side of a physical link: a port on a switch, patch panel or
// fiber panel. ID is the switch or panel ID.
type Endpoint struct {
	Kind models.EndpointKind `json:"type"`
	ID   uint                `json:"id"`
	Port int                 `json:"port"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s %d/%d", e.Kind, e.ID, e.Port)
}

// Validate checks the descriptor shape without touching the store.
func (e Endpoint) Validate() error {
	if !e.Kind.Valid() {
		return apperr.Validationf("unknown endpoint type %q", e.Kind)
	}
	if e.ID == 0 {
		return apperr.Validationf("%s: id is required", e.Kind)
	}
	if e.Port < 1 {
		return apperr.Validationf("%s %d: port must be >= 1, got %d", e.Kind, e.ID, e.Port)
	}
	return nil
}

func (e Endpoint) counterpart() models.Counterpart {
	id, port := e.ID, e.Port
	return models.Counterpart{CounterpartKind: e.Kind, CounterpartID: &id, CounterpartPort: &port}
}

func endpointOf(c models.Counterpart) (Endpoint, bool) {
	if !c.Linked() {
		return Endpoint{}, false
	}
	return Endpoint{Kind: c.CounterpartKind, ID: *c.CounterpartID, Port: *c.CounterpartPort}, true
}

// validatePair applies the kind rules for a link between a and b.
func validatePair(a, b Endpoint) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if a == b {
		return apperr.Validationf("cannot connect %s to itself", a)
	}

	switch {
	case a.Kind == models.KindSwitch && b.Kind == models.KindSwitch:
		return apperr.Validationf("switch-to-switch links are not supported")
	case a.Kind == models.KindFiberPort && b.Kind == models.KindFiberPort:
		if a.ID == b.ID {
			return apperr.Validationf("jump link must bridge two different fiber panels")
		}
		return nil
	case a.Kind == models.KindSwitch || b.Kind == models.KindSwitch:
		return nil
	default:
		return apperr.Validationf("%s cannot be linked to %s; patch ports link only to switch ports", a.Kind, b.Kind)
	}
}
