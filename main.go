// patchbay: rack, patch-panel and switch-port link tracker with port-change alarms.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vesaa/patchbay/internal/alarms"
	"github.com/vesaa/patchbay/internal/config"
	"github.com/vesaa/patchbay/internal/inventory"
	"github.com/vesaa/patchbay/internal/links"
	"github.com/vesaa/patchbay/internal/logging"
	"github.com/vesaa/patchbay/internal/metrics"
	"github.com/vesaa/patchbay/internal/server"
	"github.com/vesaa/patchbay/internal/store"
)

const version = "v0.1.0"

const shutdownTimeout = 5 * time.Second

func main() {
	root := &cobra.Command{
		Use:   "patchbay",
		Short: "patchbay: rack, panel and switch-port link tracker",
		Long: `patchbay records which switch port is patched to which patch-panel or
fiber-panel port, keeps both sides of every link consistent, and turns
port-change detections from the SNMP worker into deduplicated alarms.`,
		SilenceUsage: true,
	}

	// ── server subcommand ─────────────────────────────────────────────────────
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the patchbay server (dual-port: 6677 control + 1616 data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, log)
		},
	}

	// ── migrate subcommand ────────────────────────────────────────────────────
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := store.Open(store.OptionsFromConfig(cfg), log)
			if err != nil {
				return errors.Wrap(err, "initializing database")
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			log.Infow("schema up to date", "driver", cfg.DBDriver)
			return nil
		},
	}

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print patchbay version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("patchbay %s\n", version)
		},
	}

	root.AddCommand(serverCmd, migrateCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading config")
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building logger")
	}
	return cfg, log, nil
}

func runServer(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	db, err := store.Open(store.OptionsFromConfig(cfg), log)
	if err != nil {
		return errors.Wrap(err, "initializing database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var (
		rec      metrics.Recorder = metrics.Nop{}
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, gatherer = metrics.New(reg), reg
	}

	srv, err := server.New(server.Deps{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Inventory: inventory.NewService(db, log),
		Links:     links.NewService(db, log, links.WithMetrics(rec)),
		Alarms:    alarms.NewService(db, log, alarms.WithMetrics(rec)),
		Gatherer:  gatherer,
	})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	ctrlSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ControlPort),
		Handler:           srv.ControlHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	dataSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.DataPort),
		Handler:           srv.DataHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infow("patchbay starting", "version", version,
		"control_addr", ctrlSrv.Addr, "data_addr", dataSrv.Addr,
		"db_driver", cfg.DBDriver, "metrics", cfg.MetricsEnabled)

	g, gctx := errgroup.WithContext(ctx)
	for _, hs := range []*http.Server{ctrlSrv, dataSrv} {
		hs := hs
		g.Go(func() error {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "listening on %s", hs.Addr)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multiShutdown(sctx, ctrlSrv, dataSrv)
	})
	return g.Wait()
}

func multiShutdown(ctx context.Context, servers ...*http.Server) error {
	var first error
	for _, hs := range servers {
		if err := hs.Shutdown(ctx); err != nil && first == nil {
			first = errors.Wrapf(err, "shutting down %s", hs.Addr)
		}
	}
	return first
}
