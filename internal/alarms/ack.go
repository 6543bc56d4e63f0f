package alarms

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// AckType says what the operator concluded about an alarm.
type AckType string

const (
	// AckKnownChange marks the change as expected and whitelists the MAC.
	AckKnownChange AckType = "known_change"
	AckFalseAlarm  AckType = "false_alarm"
	// AckResolved closes the alarm as RESOLVED.
	AckResolved AckType = "resolved"
)

// Valid reports whether t is a known acknowledgment type.
func (t AckType) Valid() bool {
	switch t {
	case AckKnownChange, AckFalseAlarm, AckResolved:
		return true
	}
	return false
}

// MaxSilenceHours caps Silence.
const MaxSilenceHours = 24 * 30

// Acknowledge moves an ACTIVE alarm to ACKNOWLEDGED, or RESOLVED for
// AckResolved. A known_change acknowledgment of a MAC alarm also whitelists
// (switch name, port, MAC) in the same transaction.
func (s *Service) Acknowledge(ctx context.Context, id uint, ackType AckType, note, actor string) (*models.Alarm, error) {
	if !ackType.Valid() {
		return nil, apperr.Validationf("unknown acknowledgment type %q", ackType)
	}
	now := s.now()
	var out models.Alarm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockActive(tx, id, "acknowledge")
		if err != nil {
			return err
		}

		from, to := a.Status, models.AlarmAcknowledged
		updates := map[string]any{
			"status":              to,
			"acknowledged_at":     now,
			"acknowledged_by":     actor,
			"acknowledgment_type": string(ackType),
			"note":                note,
			"updated_at":          now,
		}
		if ackType == AckResolved {
			to = models.AlarmResolved
			updates["status"] = to
			updates["resolved_at"] = now
			updates["resolved_by"] = actor
		}
		if err := tx.Model(a).Updates(updates).Error; err != nil {
			return errors.Wrap(err, "updating alarm")
		}

		if ackType == AckKnownChange && a.MACAddress != "" && a.PortNumber > 0 {
			var sw models.Switch
			if err := tx.Select("name").Take(&sw, a.DeviceID).Error; err != nil {
				return errors.Wrapf(err, "loading switch %d", a.DeviceID)
			}
			_, err := upsertWhitelist(tx, WhitelistEntry{
				DeviceName: sw.Name,
				PortNumber: a.PortNumber,
				MAC:        a.MACAddress,
				AckedBy:    actor,
				Note:       note,
			}, now)
			if err != nil {
				return err
			}
		}

		if err := s.writeHistory(tx, a.ID, from, to, string(ackType), actorMessage("acknowledged", actor, note), now); err != nil {
			return errors.Wrap(err, "writing alarm history")
		}
		return errors.Wrap(tx.Take(&out, a.ID).Error, "reloading alarm")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "acknowledge failed")
	}
	s.metrics.AlarmTransition(string(out.Status))
	s.log.Infow("alarm acknowledged", "alarm_id", id, "type", ackType, "status", out.Status, "actor", actor)
	return &out, nil
}

// Silence hides an ACTIVE alarm from the attention view for hours. The
// status does not change.
func (s *Service) Silence(ctx context.Context, id uint, hours int, actor string) (*models.Alarm, error) {
	if hours < 1 || hours > MaxSilenceHours {
		return nil, apperr.Validationf("silence hours must be between 1 and %d, got %d", MaxSilenceHours, hours)
	}
	now := s.now()
	until := now.Add(time.Duration(hours) * time.Hour)
	var out models.Alarm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockActive(tx, id, "silence")
		if err != nil {
			return err
		}
		if err := tx.Model(a).Updates(map[string]any{"silence_until": until, "updated_at": now}).Error; err != nil {
			return errors.Wrap(err, "silencing alarm")
		}
		msg := actorMessage(fmt.Sprintf("silenced until %s", until.Format(time.RFC3339)), actor, "")
		if err := s.writeHistory(tx, a.ID, a.Status, a.Status, "silenced", msg, now); err != nil {
			return errors.Wrap(err, "writing alarm history")
		}
		return errors.Wrap(tx.Take(&out, a.ID).Error, "reloading alarm")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "silence failed")
	}
	s.log.Infow("alarm silenced", "alarm_id", id, "until", until, "actor", actor)
	return &out, nil
}

// Unsilence clears any silence on the alarm, whatever its status.
func (s *Service) Unsilence(ctx context.Context, id uint, actor string) (*models.Alarm, error) {
	now := s.now()
	var out models.Alarm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockAlarm(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(a).Updates(map[string]any{"silence_until": nil, "updated_at": now}).Error; err != nil {
			return errors.Wrap(err, "unsilencing alarm")
		}
		if err := s.writeHistory(tx, a.ID, a.Status, a.Status, "unsilenced", actorMessage("unsilenced", actor, ""), now); err != nil {
			return errors.Wrap(err, "writing alarm history")
		}
		return errors.Wrap(tx.Take(&out, a.ID).Error, "reloading alarm")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "unsilence failed")
	}
	s.log.Infow("alarm unsilenced", "alarm_id", id, "actor", actor)
	return &out, nil
}

// BulkFailure is one alarm a bulk acknowledgment could not move.
type BulkFailure struct {
	AlarmID uint   `json:"alarm_id"`
	Error   string `json:"error"`
}

// BulkResult summarizes BulkAcknowledge.
type BulkResult struct {
	Succeeded []uint        `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []BulkFailure `json:"failures,omitempty"`
}

// BulkAcknowledge acknowledges each alarm in its own transaction. One
// failure does not stop the rest.
func (s *Service) BulkAcknowledge(ctx context.Context, ids []uint, ackType AckType, note, actor string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, apperr.Validationf("no alarm ids given")
	}
	if !ackType.Valid() {
		return nil, apperr.Validationf("unknown acknowledgment type %q", ackType)
	}
	res := &BulkResult{Succeeded: []uint{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, errors.WithStack(err)
		}
		if _, err := s.Acknowledge(ctx, id, ackType, note, actor); err != nil {
			res.Failed++
			res.Failures = append(res.Failures, BulkFailure{AlarmID: id, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	if res.Failed > 0 {
		s.log.Warnw("bulk acknowledge partially failed", "succeeded", len(res.Succeeded), "failed", res.Failed)
	}
	return res, nil
}

func lockAlarm(tx *gorm.DB, id uint) (*models.Alarm, error) {
	var a models.Alarm
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("alarm", "alarm %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading alarm %d", id)
	}
	return &a, nil
}

func lockActive(tx *gorm.DB, id uint, verb string) (*models.Alarm, error) {
	a, err := lockAlarm(tx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.AlarmActive {
		return nil, apperr.Conflictf("alarm", "cannot %s alarm %d: status is %s", verb, id, a.Status)
	}
	return a, nil
}

func actorMessage(what, actor, note string) string {
	if actor == "" {
		actor = "unknown"
	}
	msg := fmt.Sprintf("%s by %s", what, actor)
	if note != "" {
		msg += ": " + note
	}
	return msg
}
