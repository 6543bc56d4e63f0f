package alarms

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// ListFilter narrows List. NeedsAttention keeps ACTIVE alarms that are not
// currently silenced.
type ListFilter struct {
	Status         models.AlarmStatus
	DeviceID       uint
	NeedsAttention bool
	Limit          int
}

// List returns alarms newest first by last occurrence.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Alarm, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = 100
	case limit > 500:
		limit = 500
	}
	q := s.db.WithContext(ctx).Model(&models.Alarm{})
	if f.NeedsAttention {
		q = q.Where("status = ?", models.AlarmActive)
	} else if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DeviceID != 0 {
		q = q.Where("device_id = ?", f.DeviceID)
	}

	var rows []models.Alarm
	if err := q.Order("last_occurrence desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, apperr.Persistence(errors.Wrap(err, "listing alarms"), "listing alarms failed")
	}

	// Silence is filtered here: the sqlite driver stores times as text.
	out := make([]models.Alarm, 0, len(rows))
	now := s.now()
	for _, a := range rows {
		if f.NeedsAttention && a.Silenced(now) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Get returns one alarm.
func (s *Service) Get(ctx context.Context, id uint) (*models.Alarm, error) {
	var a models.Alarm
	err := s.db.WithContext(ctx).Take(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("alarm", "alarm %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "loading alarm failed")
	}
	return &a, nil
}

// History returns the status transitions of one alarm, oldest first.
func (s *Service) History(ctx context.Context, id uint) ([]models.AlarmHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var rows []models.AlarmHistory
	if err := s.db.WithContext(ctx).Where("alarm_id = ?", id).Order("id").Find(&rows).Error; err != nil {
		return nil, apperr.Persistence(err, "loading alarm history failed")
	}
	return rows, nil
}
