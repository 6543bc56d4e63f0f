// Package alarms classifies port-change detections into alarms, collapses
// repeats inside the dedup window and moves alarms through
// ACTIVE -> ACKNOWLEDGED / RESOLVED, writing alarm_history on every step.
package alarms

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/metrics"
	"github.com/vesaa/patchbay/internal/models"
)

// DedupWindow is how long after its first occurrence an ACTIVE alarm absorbs
// repeats of the same (device, port, type). Repeats do not extend it.
const DedupWindow = time.Hour

var severities = map[models.AlarmType]models.Severity{
	models.AlarmDeviceUnreachable:  models.SeverityCritical,
	models.AlarmMACMoved:           models.SeverityHigh,
	models.AlarmVLANChanged:        models.SeverityHigh,
	models.AlarmPortDown:           models.SeverityHigh,
	models.AlarmMACAdded:           models.SeverityMedium,
	models.AlarmDescriptionChanged: models.SeverityMedium,
	models.AlarmPortUp:             models.SeverityInfo,
}

// SeverityFor returns the static severity of t.
func SeverityFor(t models.AlarmType) (models.Severity, bool) {
	s, ok := severities[t]
	return s, ok
}

// Service is the alarm classifier and acknowledgment manager.
type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	metrics metrics.Recorder
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics reports detections and transitions to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// NewService builds an alarm service on db.
func NewService(db *gorm.DB, log *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{
		db:      db,
		log:     log,
		metrics: metrics.Nop{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) writeHistory(tx *gorm.DB, alarmID uint, from, to models.AlarmStatus, reason, msg string, at time.Time) error {
	return tx.Create(&models.AlarmHistory{
		AlarmID:       alarmID,
		OldStatus:     from,
		NewStatus:     to,
		ChangeReason:  reason,
		ChangeMessage: msg,
		CreatedAt:     at,
	}).Error
}
