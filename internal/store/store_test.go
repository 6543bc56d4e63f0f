package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vesaa/patchbay/internal/config"
	"github.com/vesaa/patchbay/internal/models"
)

func TestOpenMigratesAllTables(t *testing.T) {
	db, err := Open(Options{Driver: "sqlite", Path: ":memory:"}, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, Ping(context.Background(), db))

	for _, table := range []string{
		"racks", "switches", "ports", "patch_panels", "patch_ports",
		"fiber_panels", "fiber_ports", "connection_history", "alarms",
		"alarm_history", "acknowledged_port_mac",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasColumn(&models.Port{}, "counterpart_kind"))
	assert.True(t, db.Migrator().HasColumn(&models.FiberPort{}, "counterpart_port"))
}

func TestOpenEnforcesPortUniqueness(t *testing.T) {
	db, err := Open(Options{Driver: "sqlite", Path: ":memory:"}, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.PatchPort{PanelID: 1, PortNumber: 1}).Error)
	assert.Error(t, db.Create(&models.PatchPort{PanelID: 1, PortNumber: 1}).Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "oracle"}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.Config{DBDriver: "postgres", DBDSN: "host=db", LogLevel: "debug"})
	assert.Equal(t, Options{Driver: "postgres", DSN: "host=db", Debug: true}, opts)
}

func TestGormLogsThroughZapWithoutNotFoundNoise(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	db, err := Open(Options{Driver: "sqlite", Path: ":memory:"}, zap.New(core).Sugar())
	require.NoError(t, err)
	gormLines := func() []observer.LoggedEntry {
		return logs.FilterLoggerName("gorm").All()
	}

	var sw models.Switch
	assert.Error(t, db.Take(&sw, 42).Error)
	assert.Empty(t, gormLines(), "a missing row is not logged")

	assert.Error(t, db.Exec("SELECT * FROM no_such_table").Error)
	lines := gormLines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Message, "no_such_table")
}
