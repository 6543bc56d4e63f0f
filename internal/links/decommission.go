package links

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// DecommissionResult lists the endpoints unlinked before the device and its
// port rows were deleted.
type DecommissionResult struct {
	OperationID string     `json:"operation_id"`
	Kind        string     `json:"kind"`
	ID          uint       `json:"id"`
	Cleared     []Endpoint `json:"cleared,omitempty"`
}

// Decommission deletes a switch, patch panel or fiber panel. Every link
// touching one of its ports is torn down first, with history, so no port in
// another table is left pointing at a deleted row.
func (s *Service) Decommission(ctx context.Context, kind models.EndpointKind, id uint, actor string) (*DecommissionResult, error) {
	if !kind.Valid() {
		return nil, apperr.Validationf("unknown device type %q", kind)
	}
	res := &DecommissionResult{Kind: parentNoun(kind), ID: id}
	opID, _, err := s.run(ctx, "decommission", actor, func(ls *linkStore) (bool, error) {
		if _, err := ls.parentOf(Endpoint{Kind: kind, ID: id, Port: 1}); err != nil {
			return false, err
		}

		eps, err := ls.devicePorts(kind, id)
		if err != nil {
			return false, err
		}
		if len(eps) == 0 {
			return true, ls.deleteDevice(kind, id)
		}
		n, err := ls.lock(eps...)
		if err != nil {
			return false, err
		}
		for _, e := range eps {
			cleared, err := s.detach(ls, n, e)
			if err != nil {
				return false, err
			}
			res.Cleared = append(res.Cleared, cleared...)
		}

		return true, ls.deleteDevice(kind, id)
	})
	if err != nil {
		return nil, err
	}
	res.OperationID = opID
	s.log.Infow("decommissioned", "kind", res.Kind, "id", id, "actor", actor, "cleared", len(res.Cleared))
	return res, nil
}

// devicePorts lists every endpoint of a device that has a port row or that a
// row in any table still points at, in port order.
func (s *linkStore) devicePorts(kind models.EndpointKind, id uint) ([]Endpoint, error) {
	seen := map[int]bool{}
	t := tables[kind]
	var own []int
	if err := s.tx.Table(t.name).Where(fmt.Sprintf("%s = ?", t.parentCol), id).
		Pluck(t.portCol, &own).Error; err != nil {
		return nil, errors.Wrapf(err, "listing ports of %s %d", parentNoun(kind), id)
	}
	for _, p := range own {
		seen[p] = true
	}
	for _, k := range kindOrder {
		var named []int
		if err := s.tx.Table(tables[k].name).
			Where("counterpart_kind = ? AND counterpart_id = ?", kind, id).
			Pluck("counterpart_port", &named).Error; err != nil {
			return nil, errors.Wrapf(err, "scanning %s for links to %s %d", tables[k].name, parentNoun(kind), id)
		}
		for _, p := range named {
			seen[p] = true
		}
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	eps := make([]Endpoint, len(ports))
	for i, p := range ports {
		eps[i] = Endpoint{Kind: kind, ID: id, Port: p}
	}
	return eps, nil
}

func (s *linkStore) deleteDevice(kind models.EndpointKind, id uint) error {
	t := tables[kind]
	var portModel, owner any
	switch kind {
	case models.KindSwitch:
		portModel, owner = &models.Port{}, &models.Switch{}
	case models.KindPatchPort:
		portModel, owner = &models.PatchPort{}, &models.PatchPanel{}
	default:
		portModel, owner = &models.FiberPort{}, &models.FiberPanel{}
	}
	if err := s.tx.Where(fmt.Sprintf("%s = ?", t.parentCol), id).Delete(portModel).Error; err != nil {
		return errors.Wrapf(err, "deleting ports of %s %d", parentNoun(kind), id)
	}
	return errors.Wrapf(s.tx.Delete(owner, id).Error, "deleting %s %d", parentNoun(kind), id)
}
