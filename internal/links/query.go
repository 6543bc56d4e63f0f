package links

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// State is the live link state of one endpoint.
type State struct {
	Endpoint    Endpoint          `json:"endpoint"`
	Status      models.LinkStatus `json:"status"`
	SyncVersion int64             `json:"sync_version"`
	Counterpart *Endpoint         `json:"counterpart,omitempty"`
	// Reciprocal is false when the counterpart's pointer does not name this
	// endpoint back.
	Reciprocal bool `json:"reciprocal"`
}

// Lookup reads the link state of e. A port row that was never created reads
// as inactive and unlinked.
func (s *Service) Lookup(ctx context.Context, e Endpoint) (*State, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	st := &State{Endpoint: e, Status: models.StatusInactive}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ls := &linkStore{tx: tx}
		if _, err := ls.parentOf(e); err != nil {
			return err
		}
		r, ok, err := ls.get(e, false)
		if err != nil || !ok {
			return err
		}
		st.Status, st.SyncVersion = r.Status, r.SyncVersion
		p, linked := r.peer()
		if !linked {
			return nil
		}
		st.Counterpart = &p
		pr, ok, err := ls.get(p, false)
		st.Reciprocal = ok && pr.pointsAt(e)
		return err
	})
	if err != nil {
		return nil, apperr.Persistence(err, "lookup failed")
	}
	return st, nil
}

// HistoryFilter narrows a connection history listing.
type HistoryFilter struct {
	Endpoint *Endpoint
	Limit    int
}

// History lists connection history newest first. With an endpoint set, rows
// where it is either source or target are returned.
func (s *Service) History(ctx context.Context, f HistoryFilter) ([]models.ConnectionHistory, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = 100
	case limit > 500:
		limit = 500
	}
	q := s.db.WithContext(ctx).Model(&models.ConnectionHistory{})
	if e := f.Endpoint; e != nil {
		q = q.Where("(source_type = ? AND source_id = ? AND source_port = ?) OR (target_type = ? AND target_id = ? AND target_port = ?)",
			e.Kind, e.ID, e.Port, e.Kind, e.ID, e.Port)
	}
	var out []models.ConnectionHistory
	if err := q.Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, apperr.Persistence(errors.Wrap(err, "listing connection history"), "history failed")
	}
	return out, nil
}
