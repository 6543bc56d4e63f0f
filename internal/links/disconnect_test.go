package links

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.swPort(10), f.patchPort(10), "alice")
	require.NoError(t, err)

	first, err := f.svc.Disconnect(ctx, f.patchPort(10), "alice")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Len(t, f.history(t, models.ActionDeleted), 2)

	second, err := f.svc.Disconnect(ctx, f.patchPort(10), "alice")
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, "no connection to remove", second.Message)
	assert.Empty(t, second.OperationID)
	assert.Len(t, f.history(t, models.ActionDeleted), 2)

	f.assertUnlinked(t, f.swPort(10))
	f.assertUnlinked(t, f.patchPort(10))
}

func TestDisconnectNeverLinkedOrMissingRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Disconnect(ctx, f.swPort(20), "alice")
	require.NoError(t, err)
	assert.False(t, res.Changed)

	require.NoError(t, f.db.Where("panel_id = ? AND port_number = ?", f.fiber.ID, 4).
		Delete(&models.FiberPort{}).Error)
	res, err = f.svc.Disconnect(ctx, f.fiberPort(4), "alice")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, f.history(t, models.ActionDeleted))
}

func TestDisconnectUnknownSwitch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Disconnect(context.Background(), Endpoint{Kind: models.KindSwitch, ID: 404, Port: 1}, "alice")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Disconnect(context.Background(), Endpoint{Kind: "rack", ID: 1, Port: 1}, "alice")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDisconnectFromSwitchFindsPanelOnlyLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Legacy data: the fiber port names the switch port, the switch row is blank.
	c := f.swPort(51).counterpart()
	require.NoError(t, f.db.Model(&models.FiberPort{}).
		Where("panel_id = ? AND port_number = ?", f.fiber.ID, 6).
		Updates(map[string]any{
			"counterpart_kind": c.CounterpartKind, "counterpart_id": *c.CounterpartID,
			"counterpart_port": *c.CounterpartPort, "status": models.StatusActive,
		}).Error)

	res, err := f.svc.Disconnect(ctx, f.swPort(51), "alice")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []Endpoint{f.fiberPort(6)}, res.Cleared)
	f.assertUnlinked(t, f.fiberPort(6))

	deleted := f.history(t, models.ActionDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, models.KindFiberPort, deleted[0].SourceType)
	assert.Equal(t, models.KindSwitch, deleted[0].TargetType)
	assert.Equal(t, 51, deleted[0].TargetPort)
}

func TestDisconnectLeavesNonReciprocalCounterpart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.swPort(8), f.patchPort(8), "alice")
	require.NoError(t, err)

	// Corrupt: switch port 9 claims patch port 8, which still belongs to port 8.
	c := f.patchPort(8).counterpart()
	require.NoError(t, f.db.Model(&models.Port{}).
		Where("switch_id = ? AND port_no = ?", f.sw.ID, 9).
		Updates(map[string]any{
			"counterpart_kind": c.CounterpartKind, "counterpart_id": *c.CounterpartID,
			"counterpart_port": *c.CounterpartPort, "status": models.StatusActive,
		}).Error)

	res, err := f.svc.Disconnect(ctx, f.swPort(9), "alice")
	require.NoError(t, err)
	assert.Equal(t, []Endpoint{f.swPort(9)}, res.Cleared)

	f.assertUnlinked(t, f.swPort(9))
	f.assertLinked(t, f.swPort(8), f.patchPort(8))
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.Lookup(ctx, f.patchPort(12))
	require.NoError(t, err)
	assert.Nil(t, st.Counterpart)
	assert.Equal(t, models.StatusInactive, st.Status)

	_, err = f.svc.Connect(ctx, f.patchPort(12), f.swPort(12), "alice")
	require.NoError(t, err)

	st, err = f.svc.Lookup(ctx, f.patchPort(12))
	require.NoError(t, err)
	require.NotNil(t, st.Counterpart)
	assert.Equal(t, f.swPort(12), *st.Counterpart)
	assert.True(t, st.Reciprocal)
	assert.Equal(t, models.StatusActive, st.Status)

	_, err = f.svc.Lookup(ctx, Endpoint{Kind: models.KindPatchPort, ID: 77, Port: 1})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHistoryFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.patchPort(1), f.swPort(1), "alice")
	require.NoError(t, err)
	_, err = f.svc.Connect(ctx, f.patchPort(2), f.swPort(2), "alice")
	require.NoError(t, err)
	_, err = f.svc.Disconnect(ctx, f.swPort(1), "alice")
	require.NoError(t, err)

	all, err := f.svc.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 6)
	assert.Equal(t, models.ActionDeleted, all[0].Action)

	ep := f.swPort(1)
	mine, err := f.svc.History(ctx, HistoryFilter{Endpoint: &ep})
	require.NoError(t, err)
	assert.Len(t, mine, 4)

	limited, err := f.svc.History(ctx, HistoryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDecommissionSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.swPort(3), f.patchPort(3), "alice")
	require.NoError(t, err)
	_, err = f.svc.Connect(ctx, f.swPort(50), f.fiberPort(1), "alice")
	require.NoError(t, err)

	res, err := f.svc.Decommission(ctx, models.KindSwitch, f.sw.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, res.Cleared, 4)

	f.assertUnlinked(t, f.patchPort(3))
	f.assertUnlinked(t, f.fiberPort(1))
	f.assertReciprocal(t)

	var ports int64
	require.NoError(t, f.db.Model(&models.Port{}).Where("switch_id = ?", f.sw.ID).Count(&ports).Error)
	assert.Zero(t, ports)
	assert.ErrorIs(t, f.db.Take(&models.Switch{}, f.sw.ID).Error, gorm.ErrRecordNotFound)

	_, err = f.svc.Decommission(ctx, models.KindSwitch, f.sw.ID, "alice")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDecommissionPatchPanel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.swPort(3), f.patchPort(3), "alice")
	require.NoError(t, err)

	_, err = f.svc.Decommission(ctx, models.KindPatchPort, f.patch.ID, "alice")
	require.NoError(t, err)
	f.assertUnlinked(t, f.swPort(3))

	var rows int64
	require.NoError(t, f.db.Model(&models.PatchPort{}).Where("panel_id = ?", f.patch.ID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestDecommissionClearsPointersToMissingPortRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Port 10 has no row, but patch port 5 still names it.
	require.NoError(t, f.db.Where("switch_id = ? AND port_no = ?", f.sw.ID, 10).Delete(&models.Port{}).Error)
	require.NoError(t, f.db.Table("patch_ports").
		Where("panel_id = ? AND port_number = ?", f.patch.ID, 5).
		Updates(map[string]any{
			"counterpart_kind": models.KindSwitch,
			"counterpart_id":   f.sw.ID,
			"counterpart_port": 10,
			"status":           models.StatusActive,
		}).Error)

	res, err := f.svc.Decommission(ctx, models.KindSwitch, f.sw.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []Endpoint{f.patchPort(5)}, res.Cleared)
	f.assertUnlinked(t, f.patchPort(5))
	f.assertReciprocal(t)

	deleted := f.history(t, models.ActionDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, models.KindPatchPort, deleted[0].SourceType)
	assert.Equal(t, 10, deleted[0].TargetPort)
}

func TestDecommissionSharesOneLockedNeighbourhood(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.swPort(1), f.patchPort(1), "alice")
	require.NoError(t, err)
	// Switch port 2 also claims patch port 1, one-sided.
	require.NoError(t, f.db.Table("ports").
		Where("switch_id = ? AND port_no = ?", f.sw.ID, 2).
		Updates(map[string]any{
			"counterpart_kind": models.KindPatchPort,
			"counterpart_id":   f.patch.ID,
			"counterpart_port": 1,
			"status":           models.StatusActive,
		}).Error)

	res, err := f.svc.Decommission(ctx, models.KindSwitch, f.sw.ID, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Endpoint{f.swPort(1), f.patchPort(1), f.swPort(2)}, res.Cleared)
	f.assertUnlinked(t, f.patchPort(1))
	assert.Len(t, f.history(t, models.ActionDeleted), 3)
}
