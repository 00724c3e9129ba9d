// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/lib/capture"
	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/config"
	"github.com/Mictronics/mesh-observer/lib/cron"
	"github.com/Mictronics/mesh-observer/lib/ingest"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
	"github.com/Mictronics/mesh-observer/lib/process"
	"github.com/Mictronics/mesh-observer/lib/report"
	"github.com/Mictronics/mesh-observer/lib/source"
	"github.com/Mictronics/mesh-observer/lib/version"
)

var (
	configPath   = pflag.String("config", "", "YAML config file (or MESH_OBSERVER_CONFIG)")
	databasePath = pflag.String("database", "", "SQLite database file")
	serialDevice = pflag.String("serial", "", "serial device to read, e.g. /dev/ttyACM0")
	journalUnit  = pflag.String("journal", "", "systemd unit to follow, e.g. meshtasticd")
	logFile      = pflag.String("file", "", "log file to read to EOF")
	readStdin    = pflag.Bool("stdin", false, "read lines from stdin")
	socketPath   = pflag.String("socket", "", "control socket path")
	captureDir   = pflag.String("capture-dir", "", "directory for raw-line captures")
	reportDir    = pflag.String("report-dir", "", "directory for scheduled reports")
	timezone     = pflag.String("timezone", "", "IANA timezone for reports and schedules")
	catalogPath  = pflag.String("catalog", "", "JSONC packet-type catalog extension")
	logLevel     = pflag.String("log-level", "", "debug, info, warn, or error")
	showVersion  = pflag.Bool("version", false, "print version and exit")
)

func main() {
	pflag.Parse()
	if *showVersion {
		fmt.Println(version.Full())
		return
	}
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

// loadConfig merges the config file with flag overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if *databasePath != "" {
		cfg.Database = *databasePath
	}
	switch {
	case *serialDevice != "":
		cfg.Source = config.SourceConfig{Serial: *serialDevice}
	case *journalUnit != "":
		cfg.Source = config.SourceConfig{Journal: *journalUnit}
	case *logFile != "":
		cfg.Source = config.SourceConfig{File: *logFile}
	case *readStdin:
		cfg.Source = config.SourceConfig{Stdin: true}
	}
	if *socketPath != "" {
		cfg.Socket = *socketPath
	}
	if *captureDir != "" {
		cfg.CaptureDir = *captureDir
	}
	if *reportDir != "" {
		cfg.Report.Dir = *reportDir
	}
	if *timezone != "" {
		cfg.Timezone = *timezone
	}
	if *catalogPath != "" {
		cfg.Catalog = *catalogPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSource selects the line input. Stdin is the fallback so the
// daemon works in a plain pipeline with no configuration at all.
func buildSource(cfg *config.Config, clk clock.Clock, logger *slog.Logger) source.Source {
	switch {
	case cfg.Source.Serial != "":
		return &source.Serial{Device: cfg.Source.Serial, Clock: clk, Logger: logger}
	case cfg.Source.Journal != "":
		return &source.Journal{Unit: cfg.Source.Journal, Clock: clk, Logger: logger}
	case cfg.Source.File != "":
		return &source.File{Path: cfg.Source.File}
	default:
		return source.Stdin{}
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Info("mesh-observer starting", "version", version.Info())

	catalog := meshlog.NewCatalog()
	if cfg.Catalog != "" {
		catalog, err = meshlog.NewCatalogFromFile(cfg.Catalog)
		if err != nil {
			return err
		}
	}

	clk := clock.Real()

	// The store is the one fatal dependency. Everything after this
	// degrades per event.
	store, err := meshdb.Open(meshdb.Config{
		Path:    cfg.Database,
		Catalog: catalog,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := newTailHub(clk)
	go hub.heartbeatLoop(ctx)

	var captureWriter *capture.Writer
	if cfg.CaptureDir != "" {
		captureWriter = capture.NewWriter(cfg.CaptureDir, clk, logger)
		defer captureWriter.Close()
	}

	engine := ingest.New(ingest.Config{
		Store:      store,
		Classifier: meshlog.NewClassifier(catalog),
		Clock:      clk,
		Logger:     logger,
		Observer:   hub.publish,
	})

	input := buildSource(cfg, clk, logger)

	server, err := newServer(serverConfig{
		SocketPath: cfg.Socket,
		Store:      store,
		Engine:     engine,
		Hub:        hub,
		Clock:      clk,
		Logger:     logger,
		SourceName: input.Name(),
	})
	if err != nil {
		return err
	}
	go server.run(ctx)

	if cfg.Report.Dir != "" {
		sched, err := newScheduler(schedulerConfig{
			Dir:      cfg.Report.Dir,
			Hourly:   cfg.Report.Hourly,
			Daily:    cfg.Report.Daily,
			Location: location,
			Clock:    clk,
			Logger:   logger,
			Builder:  &report.Builder{Store: store, Clock: clk, Location: location},
			Stats:    engine.Stats,
		})
		if err != nil {
			return err
		}
		go sched.run(ctx)
	}

	logger.Info("observer running",
		"source", input.Name(),
		"database", cfg.Database,
		"socket", cfg.Socket,
	)

	runErr := input.Run(ctx, func(line string) {
		if captureWriter != nil {
			captureWriter.WriteLine(line)
		}
		engine.HandleLine(ctx, line)
	})

	// Flush outside the canceled context so the held-back telemetry
	// record still commits during shutdown.
	engine.Flush(context.Background())

	stats := engine.Stats()
	logger.Info("observer stopped",
		"lines_seen", stats.LinesSeen,
		"lines_matched", stats.LinesMatched,
		"events_applied", stats.EventsApplied,
		"store_errors", stats.StoreErrors,
	)

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// parseSchedule wraps cron.Parse with the flag name for error context.
func parseSchedule(name, expression string) (cron.Schedule, error) {
	schedule, err := cron.Parse(expression)
	if err != nil {
		return cron.Schedule{}, fmt.Errorf("%s schedule: %w", name, err)
	}
	return schedule, nil
}
