package links

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// table describes how one endpoint kind is stored.
type table struct {
	name      string
	parentCol string
	portCol   string
	newRow    func(parentID uint, port int) any
}

var tables = map[models.EndpointKind]table{
	models.KindSwitch: {
		name: "ports", parentCol: "switch_id", portCol: "port_no",
		newRow: func(p uint, n int) any {
			return &models.Port{SwitchID: p, PortNo: n, Type: models.PortTypeEmpty, Status: models.StatusInactive}
		},
	},
	models.KindPatchPort: {
		name: "patch_ports", parentCol: "panel_id", portCol: "port_number",
		newRow: func(p uint, n int) any {
			return &models.PatchPort{PanelID: p, PortNumber: n, Status: models.StatusInactive}
		},
	},
	models.KindFiberPort: {
		name: "fiber_ports", parentCol: "panel_id", portCol: "port_number",
		newRow: func(p uint, n int) any {
			return &models.FiberPort{PanelID: p, PortNumber: n, Status: models.StatusInactive}
		},
	},
}

// kindOrder fixes the scan order across tables so history rows come out in a
// stable order.
var kindOrder = []models.EndpointKind{models.KindSwitch, models.KindPatchPort, models.KindFiberPort}

func (t table) selectCols() string {
	return fmt.Sprintf("id, %s AS parent_id, %s AS port, status, sync_version, counterpart_kind, counterpart_id, counterpart_port",
		t.parentCol, t.portCol)
}

// portRow is the link-relevant projection of any port table.
type portRow struct {
	ID          uint              `json:"id"`
	ParentID    uint              `json:"parent_id"`
	Port        int               `json:"port"`
	Status      models.LinkStatus `json:"status"`
	SyncVersion int64             `json:"sync_version"`
	models.Counterpart
}

func (r portRow) peer() (Endpoint, bool) { return endpointOf(r.Counterpart) }

func (r portRow) pointsAt(e Endpoint) bool {
	p, ok := r.peer()
	return ok && p == e
}

// located is a row together with the endpoint it stores.
type located struct {
	ep  Endpoint
	row portRow
}

// lockKey orders row locks by (table name, id).
type lockKey struct {
	table string
	id    uint
}

func sortLockKeys(keys []lockKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].table != keys[j].table {
			return keys[i].table < keys[j].table
		}
		return keys[i].id < keys[j].id
	})
}

// parent is the switch or panel owning an endpoint.
type parent struct {
	label    string
	rackID   *uint
	capacity int
	sw       *models.Switch
}

// linkStore runs the row-level operations of one transaction.
type linkStore struct {
	tx    *gorm.DB
	now   time.Time
	opID  string
	actor string
}

func (s *linkStore) parentOf(e Endpoint) (parent, error) {
	var err error
	var p parent
	switch e.Kind {
	case models.KindSwitch:
		var sw models.Switch
		if err = s.tx.Take(&sw, e.ID).Error; err == nil {
			p = parent{label: fmt.Sprintf("switch %q", sw.Name), rackID: sw.RackID, capacity: sw.Ports, sw: &sw}
		}
	case models.KindPatchPort:
		var pp models.PatchPanel
		if err = s.tx.Take(&pp, e.ID).Error; err == nil {
			rack := pp.RackID
			p = parent{label: fmt.Sprintf("patch panel %q", pp.PanelLetter), rackID: &rack, capacity: pp.TotalPorts}
		}
	case models.KindFiberPort:
		var fp models.FiberPanel
		if err = s.tx.Take(&fp, e.ID).Error; err == nil {
			rack := fp.RackID
			p = parent{label: fmt.Sprintf("fiber panel %q", fp.PanelLetter), rackID: &rack, capacity: fp.TotalFibers}
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return parent{}, apperr.NotFoundf(string(e.Kind), "%s %d not found", parentNoun(e.Kind), e.ID)
	}
	if err != nil {
		return parent{}, errors.Wrapf(err, "loading %s %d", parentNoun(e.Kind), e.ID)
	}
	if e.Port > p.capacity {
		return parent{}, apperr.Validationf("%s has %d ports; port %d is out of range", p.label, p.capacity, e.Port)
	}
	return p, nil
}

func parentNoun(k models.EndpointKind) string {
	switch k {
	case models.KindPatchPort:
		return "patch panel"
	case models.KindFiberPort:
		return "fiber panel"
	}
	return "switch"
}

func (s *linkStore) get(e Endpoint, lock bool) (portRow, bool, error) {
	t := tables[e.Kind]
	q := s.tx.Table(t.name).Select(t.selectCols()).
		Where(fmt.Sprintf("%s = ? AND %s = ?", t.parentCol, t.portCol), e.ID, e.Port)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var r portRow
	err := q.Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return portRow{}, false, nil
	}
	if err != nil {
		return portRow{}, false, errors.Wrapf(err, "reading %s", e)
	}
	return r, true, nil
}

func (s *linkStore) lockByID(kind models.EndpointKind, id uint) error {
	t := tables[kind]
	var r portRow
	err := s.tx.Table(t.name).Select(t.selectCols()).Where("id = ?", id).
		Clauses(clause.Locking{Strength: "UPDATE"}).Take(&r).Error
	return errors.Wrapf(err, "locking %s row %d", t.name, id)
}

// ensure creates the port row with inactive defaults if it is missing.
func (s *linkStore) ensure(e Endpoint) (portRow, error) {
	if r, ok, err := s.get(e, false); err != nil || ok {
		return r, err
	}
	t := tables[e.Kind]
	if err := s.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(t.newRow(e.ID, e.Port)).Error; err != nil {
		return portRow{}, errors.Wrapf(err, "creating missing %s", e)
	}
	r, ok, err := s.get(e, false)
	if err == nil && !ok {
		err = errors.Errorf("%s missing after insert", e)
	}
	return r, err
}

// referrers returns every row, in any table, whose pointer names target.
func (s *linkStore) referrers(target Endpoint) ([]located, error) {
	var out []located
	for _, kind := range kindOrder {
		t := tables[kind]
		var rows []portRow
		err := s.tx.Table(t.name).Select(t.selectCols()).
			Where("counterpart_kind = ? AND counterpart_id = ? AND counterpart_port = ?", target.Kind, target.ID, target.Port).
			Order("id").Find(&rows).Error
		if err != nil {
			return nil, errors.Wrapf(err, "scanning %s for links to %s", t.name, target)
		}
		for _, r := range rows {
			out = append(out, located{ep: Endpoint{Kind: kind, ID: r.ParentID, Port: r.Port}, row: r})
		}
	}
	return out, nil
}

// neighbourhood is every row an operation on a set of endpoints may touch.
type neighbourhood struct {
	rows      map[Endpoint]portRow
	referrers map[Endpoint][]located
}

func (s *linkStore) discover(eps []Endpoint) (neighbourhood, error) {
	n := neighbourhood{rows: map[Endpoint]portRow{}, referrers: map[Endpoint][]located{}}
	add := func(e Endpoint) error {
		if _, seen := n.rows[e]; seen {
			return nil
		}
		r, ok, err := s.get(e, false)
		if ok {
			n.rows[e] = r
		}
		return err
	}
	for _, e := range eps {
		if err := add(e); err != nil {
			return n, err
		}
		if r, ok := n.rows[e]; ok {
			if p, ok := r.peer(); ok {
				if err := add(p); err != nil {
					return n, err
				}
			}
		}
		refs, err := s.referrers(e)
		if err != nil {
			return n, err
		}
		for _, l := range refs {
			n.rows[l.ep] = l.row
		}
		n.referrers[e] = refs
	}
	return n, nil
}

func (n neighbourhood) keys() []lockKey {
	keys := make([]lockKey, 0, len(n.rows))
	for ep, r := range n.rows {
		keys = append(keys, lockKey{table: tables[ep.Kind].name, id: r.ID})
	}
	sortLockKeys(keys)
	return keys
}

// lock discovers the rows around eps, locks them in canonical order and
// re-reads them. If the set of rows changed between discovery and locking,
// another transaction got there first and the caller gets a ConflictError.
func (s *linkStore) lock(eps ...Endpoint) (neighbourhood, error) {
	first, err := s.discover(eps)
	if err != nil {
		return first, err
	}
	held, err := s.lockRows(first)
	if err != nil {
		return first, err
	}
	return s.recheck(eps, held)
}

// lockRows takes row locks on every row of n in (table, id) order.
func (s *linkStore) lockRows(n neighbourhood) (map[lockKey]bool, error) {
	kindByTable := map[string]models.EndpointKind{}
	for k, t := range tables {
		kindByTable[t.name] = k
	}
	keys := n.keys()
	held := make(map[lockKey]bool, len(keys))
	for _, k := range keys {
		if err := s.lockByID(kindByTable[k.table], k.id); err != nil {
			return nil, err
		}
		held[k] = true
	}
	return held, nil
}

// recheck re-discovers eps and fails if any row outside held joined the
// neighbourhood.
func (s *linkStore) recheck(eps []Endpoint, held map[lockKey]bool) (neighbourhood, error) {
	n, err := s.discover(eps)
	if err != nil {
		return n, err
	}
	for _, k := range n.keys() {
		if !held[k] {
			return n, apperr.Conflictf(eps[0].String(), "links around %s changed while locking; retry", eps[0])
		}
	}
	return n, nil
}

// clear unlinks the row stored at e. other is the endpoint the link pointed
// at, recorded as the history target.
func (s *linkStore) clear(e Endpoint, r portRow, other Endpoint) (portRow, error) {
	t := tables[e.Kind]
	err := s.tx.Table(t.name).Where("id = ?", r.ID).Updates(map[string]any{
		"counterpart_kind": "",
		"counterpart_id":   nil,
		"counterpart_port": nil,
		"status":           models.StatusInactive,
		"sync_version":     gorm.Expr("sync_version + 1"),
		"updated_at":       s.now,
	}).Error
	if err != nil {
		return r, errors.Wrapf(err, "clearing %s", e)
	}
	after := r
	after.Counterpart = models.Counterpart{}
	after.Status = models.StatusInactive
	after.SyncVersion++
	return after, s.history(e, other, models.ActionDeleted, r, after)
}

// link points the row stored at e at peer.
func (s *linkStore) link(e Endpoint, r portRow, peer Endpoint) error {
	t := tables[e.Kind]
	c := peer.counterpart()
	err := s.tx.Table(t.name).Where("id = ?", r.ID).Updates(map[string]any{
		"counterpart_kind": c.CounterpartKind,
		"counterpart_id":   *c.CounterpartID,
		"counterpart_port": *c.CounterpartPort,
		"status":           models.StatusActive,
		"sync_version":     gorm.Expr("sync_version + 1"),
		"updated_at":       s.now,
	}).Error
	if err != nil {
		return errors.Wrapf(err, "linking %s to %s", e, peer)
	}
	after := r
	after.Counterpart = c
	after.Status = models.StatusActive
	after.SyncVersion++
	return s.history(e, peer, models.ActionCreated, r, after)
}

type snapshot struct {
	Kind models.EndpointKind `json:"kind"`
	portRow
}

func (s *linkStore) history(src, dst Endpoint, action string, before, after portRow) error {
	oldJSON, err := json.Marshal(snapshot{Kind: src.Kind, portRow: before})
	if err != nil {
		return errors.Wrap(err, "encoding old values")
	}
	newJSON, err := json.Marshal(snapshot{Kind: src.Kind, portRow: after})
	if err != nil {
		return errors.Wrap(err, "encoding new values")
	}
	h := models.ConnectionHistory{
		OperationID: s.opID,
		SourceType:  src.Kind,
		SourceID:    src.ID,
		SourcePort:  src.Port,
		TargetType:  dst.Kind,
		TargetID:    dst.ID,
		TargetPort:  dst.Port,
		Action:      action,
		OldValues:   string(oldJSON),
		NewValues:   string(newJSON),
		User:        s.actor,
		CreatedAt:   s.now,
	}
	return errors.Wrap(s.tx.Create(&h).Error, "writing connection history")
}
