package alarms

import (
	"context"
	"encoding/hex"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// NormalizeMAC returns mac in upper-case colon-separated form
// ("AA:BB:CC:DD:EE:FF"). It accepts colon, dash, Cisco dotted and bare hex
// notations.
func NormalizeMAC(mac string) (string, error) {
	raw := strings.TrimSpace(mac)
	if len(raw) == 12 {
		if b, err := hex.DecodeString(raw); err == nil {
			return formatMAC(b), nil
		}
	}
	hw, err := net.ParseMAC(raw)
	if err != nil || len(hw) != 6 {
		return "", apperr.Validationf("invalid MAC address %q", mac)
	}
	return formatMAC(hw), nil
}

func formatMAC(b []byte) string {
	return strings.ToUpper(net.HardwareAddr(b).String())
}

// WhitelistEntry is the input of AddToWhitelist.
type WhitelistEntry struct {
	DeviceName string
	PortNumber int
	MAC        string
	AckedBy    string
	Note       string
}

// AddToWhitelist records (device, port, MAC) as expected so the SNMP worker
// stops raising alarms for it. An existing entry gets the new note and acker.
func (s *Service) AddToWhitelist(ctx context.Context, e WhitelistEntry) (*models.AcknowledgedPortMAC, error) {
	var out *models.AcknowledgedPortMAC
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = upsertWhitelist(tx, e, s.now())
		return err
	})
	if err != nil {
		return nil, apperr.Persistence(err, "whitelist update failed")
	}
	s.log.Infow("whitelisted port MAC", "device", out.DeviceName, "port", out.PortNumber, "mac", out.MACAddress, "actor", e.AckedBy)
	return out, nil
}

func upsertWhitelist(tx *gorm.DB, e WhitelistEntry, now time.Time) (*models.AcknowledgedPortMAC, error) {
	if strings.TrimSpace(e.DeviceName) == "" {
		return nil, apperr.Validationf("device name is required")
	}
	if e.PortNumber < 1 {
		return nil, apperr.Validationf("port number must be >= 1, got %d", e.PortNumber)
	}
	mac, err := NormalizeMAC(e.MAC)
	if err != nil {
		return nil, err
	}

	row := models.AcknowledgedPortMAC{
		DeviceName:     e.DeviceName,
		PortNumber:     e.PortNumber,
		MACAddress:     mac,
		AcknowledgedBy: e.AckedBy,
		Note:           e.Note,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_name"}, {Name: "port_number"}, {Name: "mac_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"acknowledged_by", "note", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, errors.Wrap(err, "upserting whitelist entry")
	}

	var stored models.AcknowledgedPortMAC
	err = tx.Where("device_name = ? AND port_number = ? AND mac_address = ?", e.DeviceName, e.PortNumber, mac).
		Take(&stored).Error
	return &stored, errors.Wrap(err, "reading whitelist entry")
}
