package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
	"github.com/vesaa/patchbay/internal/store/storetest"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(storetest.New(t), zap.NewNop().Sugar())
}

func ptr[T any](v T) *T { return &v }

func TestCreateRack(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	rack, err := svc.CreateRack(ctx, "A1", "server room", 42)
	require.NoError(t, err)
	assert.NotZero(t, rack.ID)

	_, err = svc.CreateRack(ctx, "A1", "", 10)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.CreateRack(ctx, " ", "", 10)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.CreateRack(ctx, "B1", "", 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAddSwitchCreatesPorts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	rack, err := svc.CreateRack(ctx, "A1", "", 10)
	require.NoError(t, err)

	sw, err := svc.AddSwitch(ctx, NewSwitch{Name: "core-1", RackID: &rack.ID, Position: ptr(1), Ports: 28})
	require.NoError(t, err)

	var ports []models.Port
	require.NoError(t, svc.db.Where("switch_id = ?", sw.ID).Order("port_no").Find(&ports).Error)
	require.Len(t, ports, 28)
	assert.Equal(t, 1, ports[0].PortNo)
	assert.Equal(t, 28, ports[27].PortNo)
	for _, p := range ports {
		assert.Equal(t, models.PortTypeEmpty, p.Type)
		assert.Equal(t, models.StatusInactive, p.Status)
		assert.False(t, p.Linked())
	}

	// Unracked switches are allowed.
	_, err = svc.AddSwitch(ctx, NewSwitch{Name: "spare", Ports: 8})
	require.NoError(t, err)
}

func TestAddSwitchValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	rack, err := svc.CreateRack(ctx, "A1", "", 10)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   NewSwitch
		kind apperr.Kind
	}{
		{"no name", NewSwitch{Ports: 24}, apperr.KindValidation},
		{"too few ports", NewSwitch{Name: "x", Ports: 4}, apperr.KindValidation},
		{"rack without position", NewSwitch{Name: "x", Ports: 24, RackID: &rack.ID}, apperr.KindValidation},
		{"position past slots", NewSwitch{Name: "x", Ports: 24, RackID: &rack.ID, Position: ptr(11)}, apperr.KindValidation},
		{"position zero", NewSwitch{Name: "x", Ports: 24, RackID: &rack.ID, Position: ptr(0)}, apperr.KindValidation},
		{"unknown rack", NewSwitch{Name: "x", Ports: 24, RackID: ptr(uint(99)), Position: ptr(1)}, apperr.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddSwitch(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	_, err = svc.AddSwitch(ctx, NewSwitch{Name: "dup", Ports: 24})
	require.NoError(t, err)
	_, err = svc.AddSwitch(ctx, NewSwitch{Name: "dup", Ports: 24})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestPositionConflictNamesOccupant(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	rack, err := svc.CreateRack(ctx, "A1", "", 10)
	require.NoError(t, err)

	_, err = svc.AddSwitch(ctx, NewSwitch{Name: "core-1", RackID: &rack.ID, Position: ptr(3), Ports: 24})
	require.NoError(t, err)

	_, err = svc.AddPatchPanel(ctx, NewPanel{RackID: rack.ID, Position: 3, Letter: "A", Ports: 24})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, `position 3 in rack "A1" is occupied by switch "core-1"`, err.Error())

	var n int64
	require.NoError(t, svc.db.Model(&models.PatchPanel{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, svc.db.Model(&models.PatchPort{}).Count(&n).Error)
	assert.Zero(t, n)

	_, err = svc.AddFiberPanel(ctx, NewPanel{RackID: rack.ID, Position: 4, Letter: "f", Ports: 12})
	require.NoError(t, err)
	_, err = svc.AddSwitch(ctx, NewSwitch{Name: "edge-1", RackID: &rack.ID, Position: ptr(4), Ports: 24})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `occupied by fiber panel "F"`)
}

func TestAddPanelsCreatePorts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	rack, err := svc.CreateRack(ctx, "A1", "", 10)
	require.NoError(t, err)

	pp, err := svc.AddPatchPanel(ctx, NewPanel{RackID: rack.ID, Position: 1, Letter: "a", Ports: 24})
	require.NoError(t, err)
	assert.Equal(t, "A", pp.PanelLetter)

	fp, err := svc.AddFiberPanel(ctx, NewPanel{RackID: rack.ID, Position: 2, Letter: "F", Ports: 12})
	require.NoError(t, err)

	var n int64
	require.NoError(t, svc.db.Model(&models.PatchPort{}).Where("panel_id = ?", pp.ID).Count(&n).Error)
	assert.EqualValues(t, 24, n)
	require.NoError(t, svc.db.Model(&models.FiberPort{}).Where("panel_id = ?", fp.ID).Count(&n).Error)
	assert.EqualValues(t, 12, n)

	_, err = svc.AddPatchPanel(ctx, NewPanel{RackID: rack.ID, Position: 3, Letter: "B", Ports: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.AddFiberPanel(ctx, NewPanel{Position: 3, Letter: "G", Ports: 12})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdatePort(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sw, err := svc.AddSwitch(ctx, NewSwitch{Name: "core-1", Ports: 24})
	require.NoError(t, err)

	res, err := svc.UpdatePort(ctx, sw.ID, 5, PortEdit{
		Type:        ptr(models.PortTypeDevice),
		Device:      ptr("printer-2f"),
		MAC:         ptr("aa-bb-cc-dd-ee-ff"),
		Description: ptr("printer"),
	})
	require.NoError(t, err)
	assert.Equal(t, "", res.PreviousDescription)
	assert.True(t, res.DescriptionChanged)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", res.Port.MAC)
	assert.Equal(t, models.PortTypeDevice, res.Port.Type)
	assert.EqualValues(t, 1, res.Port.SyncVersion)

	res, err = svc.UpdatePort(ctx, sw.ID, 5, PortEdit{
		Type: ptr(models.PortTypeHub),
		HubDevices: &models.HubDevices{
			{Device: "pc-1", IP: "10.0.0.11", MAC: "001122334455"},
			{Device: "pc-2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "printer", res.PreviousDescription)
	assert.False(t, res.DescriptionChanged)
	assert.True(t, res.Port.IsHub)
	require.Len(t, res.Port.HubDevices, 2)
	assert.Equal(t, "00:11:22:33:44:55", res.Port.HubDevices[0].MAC)
	assert.EqualValues(t, 2, res.Port.SyncVersion)
}

func TestUpdatePortErrors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sw, err := svc.AddSwitch(ctx, NewSwitch{Name: "core-1", Ports: 24})
	require.NoError(t, err)

	_, err = svc.UpdatePort(ctx, sw.ID, 5, PortEdit{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.UpdatePort(ctx, sw.ID, 5, PortEdit{Type: ptr(models.PortType("TOASTER"))})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.UpdatePort(ctx, sw.ID, 5, PortEdit{MAC: ptr("nope")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.UpdatePort(ctx, sw.ID, 25, PortEdit{Device: ptr("x")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.UpdatePort(ctx, 404, 1, PortEdit{Device: ptr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.UpdatePort(ctx, sw.ID, 1, PortEdit{HubDevices: &models.HubDevices{{IP: "10.0.0.1"}}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
