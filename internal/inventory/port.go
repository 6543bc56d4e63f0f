package inventory

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vesaa/patchbay/internal/alarms"
	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

var portTypes = map[models.PortType]bool{
	models.PortTypeEmpty:  true,
	models.PortTypeDevice: true,
	models.PortTypeHub:    true,
	models.PortTypeAP:     true,
	models.PortTypeServer: true,
	models.PortTypePhone:  true,
	models.PortTypeFiber:  true,
}

// PortEdit lists the fields to change on a switch port. Nil fields are left
// alone.
type PortEdit struct {
	Type        *models.PortType
	Device      *string
	IP          *string
	MAC         *string
	Description *string
	HubDevices  *models.HubDevices
}

// PortUpdate is the edited port plus its description before the edit.
type PortUpdate struct {
	Port                *models.Port
	PreviousDescription string
	DescriptionChanged  bool
}

// UpdatePort applies e to switch port portNo and bumps its sync_version.
// Link state is never touched here.
func (s *Service) UpdatePort(ctx context.Context, switchID uint, portNo int, e PortEdit) (*PortUpdate, error) {
	updates := map[string]any{}
	if e.Type != nil {
		if !portTypes[*e.Type] {
			return nil, apperr.Validationf("unknown port type %q", *e.Type)
		}
		updates["type"] = *e.Type
	}
	if e.Device != nil {
		updates["device"] = strings.TrimSpace(*e.Device)
	}
	if e.IP != nil {
		updates["ip"] = strings.TrimSpace(*e.IP)
	}
	if e.MAC != nil {
		mac := strings.TrimSpace(*e.MAC)
		if mac != "" {
			var err error
			if mac, err = alarms.NormalizeMAC(mac); err != nil {
				return nil, err
			}
		}
		updates["mac"] = mac
	}
	if e.Description != nil {
		updates["description"] = *e.Description
	}
	if e.HubDevices != nil {
		hub := make(models.HubDevices, 0, len(*e.HubDevices))
		for i, d := range *e.HubDevices {
			if strings.TrimSpace(d.Device) == "" {
				return nil, apperr.Validationf("hub device %d has no name", i+1)
			}
			if d.MAC != "" {
				mac, err := alarms.NormalizeMAC(d.MAC)
				if err != nil {
					return nil, err
				}
				d.MAC = mac
			}
			hub = append(hub, d)
		}
		updates["hub_devices"] = hub
		updates["is_hub"] = len(hub) > 0
	}
	if len(updates) == 0 {
		return nil, apperr.Validationf("nothing to update")
	}
	updates["sync_version"] = gorm.Expr("sync_version + 1")
	updates["updated_at"] = s.now()

	res := &PortUpdate{Port: &models.Port{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sw models.Switch
		err := tx.Select("id", "ports").Take(&sw, switchID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("switch", "switch %d not found", switchID)
		}
		if err != nil {
			return errors.Wrap(err, "loading switch")
		}
		if portNo < 1 || portNo > sw.Ports {
			return apperr.Validationf("port %d is outside switch %d (1..%d)", portNo, switchID, sw.Ports)
		}

		var p models.Port
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("switch_id = ? AND port_no = ?", switchID, portNo).Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("port", "switch %d has no port %d", switchID, portNo)
		}
		if err != nil {
			return errors.Wrap(err, "loading port")
		}
		res.PreviousDescription = p.Description

		if err := tx.Model(&models.Port{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return errors.Wrap(err, "updating port")
		}
		return errors.Wrap(tx.Take(res.Port, p.ID).Error, "reloading port")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "update port failed")
	}
	res.DescriptionChanged = res.PreviousDescription != res.Port.Description
	s.log.Infow("port updated", "switch_id", switchID, "port", portNo, "fields", len(updates)-2,
		"description_changed", res.DescriptionChanged)
	return res, nil
}
