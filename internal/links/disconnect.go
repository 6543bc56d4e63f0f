package links

import (
	"context"
)

// DisconnectResult reports which endpoints were unlinked. Changed is false
// when the endpoint had no link, which is not an error.
type DisconnectResult struct {
	OperationID string     `json:"operation_id,omitempty"`
	Endpoint    Endpoint   `json:"endpoint"`
	Changed     bool       `json:"changed"`
	Message     string     `json:"message"`
	Cleared     []Endpoint `json:"cleared,omitempty"`
}

// Disconnect removes whatever link e currently takes part in, whichever side
// created it.
//
// The counterpart is only cleared if its pointer names e back. Every other
// row in any port table whose pointer names e is cleared as well, so links
// recorded only on the panel side are found from the switch side too.
func (s *Service) Disconnect(ctx context.Context, e Endpoint, actor string) (*DisconnectResult, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	res := &DisconnectResult{Endpoint: e}
	opID, changed, err := s.run(ctx, "disconnect", actor, func(ls *linkStore) (bool, error) {
		if _, err := ls.parentOf(e); err != nil {
			return false, err
		}
		n, err := ls.lock(e)
		if err != nil {
			return false, err
		}

		res.Cleared, err = s.detach(ls, n, e)
		if err != nil {
			return false, err
		}
		return len(res.Cleared) > 0, nil
	})
	if err != nil {
		s.log.Warnw("disconnect failed", "endpoint", e.String(), "actor", actor, "error", err)
		return nil, err
	}

	res.Changed = changed
	if !changed {
		res.Message = "no connection to remove"
		return res, nil
	}
	res.OperationID = opID
	res.Message = "connection removed"
	s.log.Infow("disconnected", "endpoint", e.String(), "actor", actor, "operation_id", opID, "cleared", len(res.Cleared))
	return res, nil
}

// detach clears e and every row pointing at it inside the locked
// neighbourhood n. Cleared rows are written back into n, so several
// endpoints can be detached against one neighbourhood.
func (s *Service) detach(ls *linkStore, n neighbourhood, e Endpoint) ([]Endpoint, error) {
	var out []Endpoint
	if r, ok := n.rows[e]; ok {
		if p, linked := r.peer(); linked {
			after, err := ls.clear(e, r, p)
			if err != nil {
				return nil, err
			}
			n.rows[e] = after
			out = append(out, e)

			if pr, ok := n.rows[p]; ok && pr.Linked() && !pr.pointsAt(e) {
				s.log.Warnw("counterpart does not point back; leaving it linked",
					"endpoint", e.String(), "counterpart", p.String())
			}
		}
	}
	for _, ref := range n.referrers[e] {
		r, ok := n.rows[ref.ep]
		if !ok || !r.pointsAt(e) {
			continue
		}
		after, err := ls.clear(ref.ep, r, e)
		if err != nil {
			return nil, err
		}
		n.rows[ref.ep] = after
		out = append(out, ref.ep)
	}
	return out, nil
}
