// Package store opens the patchbay Link Store.
// It initializes GORM with SQLite (default) or Postgres and runs AutoMigrate
// for every table the reconciler and alarm manager touch.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vesaa/patchbay/internal/config"
	"github.com/vesaa/patchbay/internal/models"
)

// Options selects the database backend.
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file, ":memory:" for tests
	DSN    string // postgres DSN
	Debug  bool   // log every SQL statement
}

// OptionsFromConfig maps runtime config onto store options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DBDSN,
		Debug:  cfg.LogLevel == "debug",
	}
}

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&models.Rack{},
		&models.Switch{},
		&models.Port{},
		&models.PatchPanel{},
		&models.PatchPort{},
		&models.FiberPanel{},
		&models.FiberPort{},
		&models.ConnectionHistory{},
		&models.Alarm{},
		&models.AlarmHistory{},
		&models.AcknowledgedPortMAC{},
	}
}

// Open opens the database and runs AutoMigrate.
func Open(opts Options, log *zap.SugaredLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(opts.Path)
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q (use 'sqlite' or 'postgres')", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger(log, opts.Debug),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if opts.Driver == "sqlite" || opts.Driver == "" {
		// SQLite serializes writers anyway; a single connection keeps
		// ":memory:" databases alive and turns lock waits into queueing.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Infow("database opened", "driver", opts.Driver, "path", opts.Path)
	return db, nil
}

// slowQuery is the duration past which a statement is logged as slow.
const slowQuery = 200 * time.Millisecond

// gormLogger routes GORM output through log. Missing rows are an ordinary
// lookup result here and are not reported.
func gormLogger(log *zap.SugaredLogger, debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(zap.NewStdLog(log.Desugar().Named("gorm")), logger.Config{
		SlowThreshold:             slowQuery,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Ping checks the connection is alive.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
