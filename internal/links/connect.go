package links

import (
	"context"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// ConnectResult echoes the linked pair and lists the counterparts that were
// unlinked to make room.
type ConnectResult struct {
	OperationID string     `json:"operation_id"`
	SideA       Endpoint   `json:"side_a"`
	SideB       Endpoint   `json:"side_b"`
	Displaced   []Endpoint `json:"displaced,omitempty"`
}

// Connect links a and b to each other.
//
// Any different counterpart either side held, and any stale row whose pointer
// still names a or b, is unlinked first with its own "deleted" history row.
// Missing panel or switch port rows are created with inactive defaults.
// Re-connecting an already linked pair rewrites the same values and still
// appends history.
func (s *Service) Connect(ctx context.Context, a, b Endpoint, actor string) (*ConnectResult, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}

	res := &ConnectResult{SideA: a, SideB: b}
	opID, _, err := s.run(ctx, "connect", actor, func(ls *linkStore) (bool, error) {
		if err := checkPlacement(ls, a, b); err != nil {
			return false, err
		}
		for _, e := range []Endpoint{a, b} {
			if _, err := ls.ensure(e); err != nil {
				return false, err
			}
		}

		n, err := ls.lock(a, b)
		if err != nil {
			return false, err
		}

		res.Displaced, err = displace(ls, n, a, b)
		if err != nil {
			return false, err
		}
		if err := ls.link(a, n.rows[a], b); err != nil {
			return false, err
		}
		return true, ls.link(b, n.rows[b], a)
	})
	if err != nil {
		s.log.Warnw("connect failed", "side_a", a.String(), "side_b", b.String(), "actor", actor, "error", err)
		return nil, err
	}

	res.OperationID = opID
	s.log.Infow("connected", "side_a", a.String(), "side_b", b.String(), "actor", actor,
		"operation_id", opID, "displaced", len(res.Displaced))
	return res, nil
}

// checkPlacement enforces the rack and port-range rules before any write.
func checkPlacement(ls *linkStore, a, b Endpoint) error {
	pa, err := ls.parentOf(a)
	if err != nil {
		return err
	}
	pb, err := ls.parentOf(b)
	if err != nil {
		return err
	}
	if a.Kind == models.KindFiberPort && b.Kind == models.KindFiberPort {
		return nil
	}

	sw, swEp, panel, panelEp := pa, a, pb, b
	if b.Kind == models.KindSwitch {
		sw, swEp, panel, panelEp = pb, b, pa, a
	}

	if sw.rackID == nil || panel.rackID == nil || *sw.rackID != *panel.rackID {
		return apperr.Validationf("%s and %s are not in the same rack", sw.label, panel.label)
	}

	fiber := sw.sw.IsFiberPort(swEp.Port)
	switch {
	case panelEp.Kind == models.KindFiberPort && !fiber:
		return apperr.Validationf("%s port %d is a copper port; fiber panels connect only to ports %d-%d",
			sw.label, swEp.Port, sw.sw.Ports-models.FiberPortCount+1, sw.sw.Ports)
	case panelEp.Kind == models.KindPatchPort && fiber:
		return apperr.Validationf("%s port %d is a fiber port; patch panels connect only to ports 1-%d",
			sw.label, swEp.Port, sw.sw.Ports-models.FiberPortCount)
	}
	return nil
}

// displace unlinks everything a or b is linked to other than each other.
func displace(ls *linkStore, n neighbourhood, a, b Endpoint) ([]Endpoint, error) {
	var displaced []Endpoint
	cleared := map[Endpoint]bool{a: true, b: true}

	for _, pair := range [][2]Endpoint{{a, b}, {b, a}} {
		self, other := pair[0], pair[1]

		if p, ok := n.rows[self].peer(); ok && p != other && !cleared[p] {
			if pr, ok := n.rows[p]; ok && pr.pointsAt(self) {
				if _, err := ls.clear(p, pr, self); err != nil {
					return nil, err
				}
				cleared[p] = true
				displaced = append(displaced, p)
			}
		}
		for _, ref := range n.referrers[self] {
			if ref.ep == other || cleared[ref.ep] {
				continue
			}
			if _, err := ls.clear(ref.ep, ref.row, self); err != nil {
				return nil, err
			}
			cleared[ref.ep] = true
			displaced = append(displaced, ref.ep)
		}
	}
	return displaced, nil
}
