// Package inventory manages racks, switches and panels: creating them with
// their port rows, enforcing rack placement and editing switch ports.
package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// MinSwitchPorts leaves at least one copper port next to the fiber uplinks.
const MinSwitchPorts = models.FiberPortCount + 1

// Service creates and edits inventory.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds an inventory service on db.
func NewService(db *gorm.DB, log *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateRack adds a rack with the given number of slots.
func (s *Service) CreateRack(ctx context.Context, name, location string, slots int) (*models.Rack, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("rack name is required")
	}
	if slots < 1 {
		return nil, apperr.Validationf("rack needs at least one slot, got %d", slots)
	}
	rack := models.Rack{Name: name, Location: location, Slots: slots}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Rack{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return errors.Wrap(err, "checking rack name")
		}
		if n > 0 {
			return apperr.Conflictf("rack", "rack %q already exists", name)
		}
		return errors.Wrap(tx.Create(&rack).Error, "creating rack")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "create rack failed")
	}
	s.log.Infow("rack created", "rack_id", rack.ID, "name", rack.Name, "slots", rack.Slots)
	return &rack, nil
}

// NewSwitch is the input of AddSwitch. RackID and Position are set together
// or not at all.
type NewSwitch struct {
	Name      string
	Brand     string
	Model     string
	IPAddress string
	RackID    *uint
	Position  *int
	Ports     int
}

// AddSwitch creates a switch and its port rows 1..Ports, all EMPTY and
// inactive.
func (s *Service) AddSwitch(ctx context.Context, in NewSwitch) (*models.Switch, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validationf("switch name is required")
	}
	if in.Ports < MinSwitchPorts {
		return nil, apperr.Validationf("switch needs at least %d ports, got %d", MinSwitchPorts, in.Ports)
	}
	if (in.RackID == nil) != (in.Position == nil) {
		return nil, apperr.Validationf("rack and position must be given together")
	}

	sw := models.Switch{
		Name:           in.Name,
		Brand:          in.Brand,
		Model:          in.Model,
		IPAddress:      in.IPAddress,
		RackID:         in.RackID,
		PositionInRack: in.Position,
		Ports:          in.Ports,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.RackID != nil {
			if err := checkPlacement(tx, *in.RackID, *in.Position); err != nil {
				return err
			}
		}
		var n int64
		if err := tx.Model(&models.Switch{}).Where("name = ?", in.Name).Count(&n).Error; err != nil {
			return errors.Wrap(err, "checking switch name")
		}
		if n > 0 {
			return apperr.Conflictf("switch", "switch %q already exists", in.Name)
		}
		if err := tx.Create(&sw).Error; err != nil {
			return errors.Wrap(err, "creating switch")
		}
		rows := make([]models.Port, 0, sw.Ports)
		for i := 1; i <= sw.Ports; i++ {
			rows = append(rows, models.Port{
				SwitchID: sw.ID,
				PortNo:   i,
				Type:     models.PortTypeEmpty,
				Status:   models.StatusInactive,
			})
		}
		return errors.Wrap(tx.CreateInBatches(rows, 100).Error, "creating switch ports")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "add switch failed")
	}
	s.log.Infow("switch added", "switch_id", sw.ID, "name", sw.Name, "ports", sw.Ports, "rack_id", sw.RackID)
	return &sw, nil
}

// NewPanel is the input of AddPatchPanel and AddFiberPanel.
type NewPanel struct {
	RackID      uint
	Position    int
	Letter      string
	Ports       int
	Description string
}

func (p *NewPanel) validate(what string) error {
	p.Letter = strings.ToUpper(strings.TrimSpace(p.Letter))
	if p.Letter == "" {
		return apperr.Validationf("%s letter is required", what)
	}
	if p.Ports < 1 {
		return apperr.Validationf("%s needs at least one port, got %d", what, p.Ports)
	}
	if p.RackID == 0 {
		return apperr.Validationf("%s must be placed in a rack", what)
	}
	return nil
}

// AddPatchPanel creates a copper panel and its port rows.
func (s *Service) AddPatchPanel(ctx context.Context, in NewPanel) (*models.PatchPanel, error) {
	if err := in.validate("patch panel"); err != nil {
		return nil, err
	}
	panel := models.PatchPanel{
		RackID:         in.RackID,
		PanelLetter:    in.Letter,
		PositionInRack: in.Position,
		TotalPorts:     in.Ports,
		Description:    in.Description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkPlacement(tx, in.RackID, in.Position); err != nil {
			return err
		}
		if err := tx.Create(&panel).Error; err != nil {
			return errors.Wrap(err, "creating patch panel")
		}
		rows := make([]models.PatchPort, 0, in.Ports)
		for i := 1; i <= in.Ports; i++ {
			rows = append(rows, models.PatchPort{PanelID: panel.ID, PortNumber: i, Status: models.StatusInactive})
		}
		return errors.Wrap(tx.CreateInBatches(rows, 100).Error, "creating patch ports")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "add patch panel failed")
	}
	s.log.Infow("patch panel added", "panel_id", panel.ID, "rack_id", panel.RackID, "letter", panel.PanelLetter, "ports", panel.TotalPorts)
	return &panel, nil
}

// AddFiberPanel creates a fiber panel and its port rows.
func (s *Service) AddFiberPanel(ctx context.Context, in NewPanel) (*models.FiberPanel, error) {
	if err := in.validate("fiber panel"); err != nil {
		return nil, err
	}
	panel := models.FiberPanel{
		RackID:         in.RackID,
		PanelLetter:    in.Letter,
		PositionInRack: in.Position,
		TotalFibers:    in.Ports,
		Description:    in.Description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkPlacement(tx, in.RackID, in.Position); err != nil {
			return err
		}
		if err := tx.Create(&panel).Error; err != nil {
			return errors.Wrap(err, "creating fiber panel")
		}
		rows := make([]models.FiberPort, 0, in.Ports)
		for i := 1; i <= in.Ports; i++ {
			rows = append(rows, models.FiberPort{PanelID: panel.ID, PortNumber: i, Status: models.StatusInactive})
		}
		return errors.Wrap(tx.CreateInBatches(rows, 100).Error, "creating fiber ports")
	})
	if err != nil {
		return nil, apperr.Persistence(err, "add fiber panel failed")
	}
	s.log.Infow("fiber panel added", "panel_id", panel.ID, "rack_id", panel.RackID, "letter", panel.PanelLetter, "fibers", panel.TotalFibers)
	return &panel, nil
}
