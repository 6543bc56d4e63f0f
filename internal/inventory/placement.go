package inventory

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

// checkPlacement locks the rack and fails if position is outside its slots
// or already taken by a switch or panel. The rack lock serializes concurrent
// placements into the same rack.
func checkPlacement(tx *gorm.DB, rackID uint, position int) error {
	var rack models.Rack
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&rack, rackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("rack", "rack %d not found", rackID)
	}
	if err != nil {
		return errors.Wrap(err, "loading rack")
	}
	if position < 1 || position > rack.Slots {
		return apperr.Validationf("position %d is outside rack %q (slots 1..%d)", position, rack.Name, rack.Slots)
	}

	occupant, err := occupantAt(tx, rackID, position)
	if err != nil {
		return err
	}
	if occupant != "" {
		return apperr.Conflictf(occupant, "position %d in rack %q is occupied by %s", position, rack.Name, occupant)
	}
	return nil
}

// occupantAt names whatever sits at position in the rack, or "" if free.
func occupantAt(tx *gorm.DB, rackID uint, position int) (string, error) {
	var sw models.Switch
	err := tx.Select("name").Where("rack_id = ? AND position_in_rack = ?", rackID, position).Take(&sw).Error
	switch {
	case err == nil:
		return fmt.Sprintf("switch %q", sw.Name), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", errors.Wrap(err, "checking switches")
	}

	var pp models.PatchPanel
	err = tx.Select("panel_letter").Where("rack_id = ? AND position_in_rack = ?", rackID, position).Take(&pp).Error
	switch {
	case err == nil:
		return fmt.Sprintf("patch panel %q", pp.PanelLetter), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", errors.Wrap(err, "checking patch panels")
	}

	var fp models.FiberPanel
	err = tx.Select("panel_letter").Where("rack_id = ? AND position_in_rack = ?", rackID, position).Take(&fp).Error
	switch {
	case err == nil:
		return fmt.Sprintf("fiber panel %q", fp.PanelLetter), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", errors.Wrap(err, "checking fiber panels")
	}
	return "", nil
}
