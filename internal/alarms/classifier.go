package alarms

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// Actions reported by Raise.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// Detection is one observed port change.
type Detection struct {
	DeviceID   uint             `json:"device_id"`
	PortNumber int              `json:"port_number"`
	Type       models.AlarmType `json:"alarm_type"`
	OldValue   string           `json:"old_value"`
	NewValue   string           `json:"new_value"`
	MAC        string           `json:"mac_address,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// RaiseResult is the alarm a detection landed in.
type RaiseResult struct {
	Alarm  *models.Alarm `json:"alarm"`
	Action string        `json:"action"`
}

// Raise records d. If an ACTIVE alarm for the same (device, port, type) was
// first seen within DedupWindow, it is bumped in place: the count
// goes up, NewValue and the MAC follow the latest detection and OldValue
// keeps the baseline from the first occurrence. Otherwise a new ACTIVE alarm is created.
func (s *Service) Raise(ctx context.Context, d Detection) (*RaiseResult, error) {
	sev, ok := SeverityFor(d.Type)
	if !ok {
		return nil, apperr.Validationf("unknown alarm type %q", d.Type)
	}
	if d.DeviceID == 0 {
		return nil, apperr.Validationf("device id is required")
	}
	if d.PortNumber < 0 {
		return nil, apperr.Validationf("port number must not be negative")
	}
	if d.MAC != "" {
		mac, err := NormalizeMAC(d.MAC)
		if err != nil {
			return nil, err
		}
		d.MAC = mac
	}

	now := s.now()
	res := &RaiseResult{}
	var out models.Alarm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locking the switch serializes detections per device, which keeps
		// the one-ACTIVE-alarm-per-lineage rule under concurrent writers.
		var sw models.Switch
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&sw, d.DeviceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("switch", "switch %d not found", d.DeviceID)
		}
		if err != nil {
			return errors.Wrap(err, "loading switch")
		}

		var existing models.Alarm
		err = tx.Where("device_id = ? AND port_number = ? AND alarm_type = ? AND status = ?",
			d.DeviceID, d.PortNumber, d.Type, models.AlarmActive).
			Order("first_occurrence desc, id desc").Take(&existing).Error
		switch {
		case err == nil && now.Sub(existing.FirstOccurrence) <= DedupWindow:
			bump := map[string]any{
				"occurrence_count": gorm.Expr("occurrence_count + 1"),
				"last_occurrence":  now,
				"new_value":        d.NewValue,
				"updated_at":       now,
			}
			if d.MAC != "" {
				bump["mac_address"] = d.MAC
			}
			err = tx.Model(&existing).Updates(bump).Error
			if err != nil {
				return errors.Wrap(err, "bumping alarm")
			}
			res.Action = ActionUpdated
			return errors.Wrap(tx.Take(&out, existing.ID).Error, "reloading alarm")
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return errors.Wrap(err, "looking up active alarm")
		}

		a := models.Alarm{
			DeviceID:        d.DeviceID,
			PortNumber:      d.PortNumber,
			AlarmType:       d.Type,
			Status:          models.AlarmActive,
			Severity:        sev,
			Title:           title(sw.Name, d),
			Message:         message(sw.Name, d),
			OldValue:        d.OldValue,
			NewValue:        d.NewValue,
			MACAddress:      d.MAC,
			OccurrenceCount: 1,
			FirstOccurrence: now,
			LastOccurrence:  now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Create(&a).Error; err != nil {
			return errors.Wrap(err, "creating alarm")
		}
		out = a
		res.Action = ActionCreated
		return errors.Wrap(s.writeHistory(tx, a.ID, "", models.AlarmActive, "created", a.Message, now), "writing alarm history")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "raising alarm failed")
	}
	res.Alarm = &out
	s.metrics.AlarmEvent(string(d.Type), res.Action)
	s.log.Infow("alarm detection", "alarm_id", out.ID, "device_id", d.DeviceID, "port", d.PortNumber,
		"type", d.Type, "action", res.Action, "occurrences", out.OccurrenceCount)
	return res, nil
}

// CreateDescriptionChangeAlarm raises a description_changed alarm for a
// switch port whose description was edited from oldDesc to newDesc.
func (s *Service) CreateDescriptionChangeAlarm(ctx context.Context, switchID uint, portNo int, oldDesc, newDesc string) (*RaiseResult, error) {
	if portNo < 1 {
		return nil, apperr.Validationf("port number must be >= 1, got %d", portNo)
	}
	if oldDesc == newDesc {
		return nil, apperr.Validationf("description unchanged")
	}
	return s.Raise(ctx, Detection{
		DeviceID:   switchID,
		PortNumber: portNo,
		Type:       models.AlarmDescriptionChanged,
		OldValue:   oldDesc,
		NewValue:   newDesc,
	})
}

var titles = map[models.AlarmType]string{
	models.AlarmDeviceUnreachable:  "Device unreachable",
	models.AlarmMACMoved:           "MAC address moved",
	models.AlarmMACAdded:           "New MAC address",
	models.AlarmVLANChanged:        "VLAN changed",
	models.AlarmDescriptionChanged: "Port description changed",
	models.AlarmPortDown:           "Port down",
	models.AlarmPortUp:             "Port up",
}

func title(device string, d Detection) string {
	if d.PortNumber == 0 {
		return fmt.Sprintf("%s: %s", titles[d.Type], device)
	}
	return fmt.Sprintf("%s: %s port %d", titles[d.Type], device, d.PortNumber)
}

func message(device string, d Detection) string {
	if m := strings.TrimSpace(d.Message); m != "" {
		return m
	}
	var b strings.Builder
	b.WriteString(title(device, d))
	if d.MAC != "" {
		fmt.Fprintf(&b, " (MAC %s)", d.MAC)
	}
	if d.OldValue != "" || d.NewValue != "" {
		fmt.Fprintf(&b, ": %q -> %q", d.OldValue, d.NewValue)
	}
	return b.String()
}
