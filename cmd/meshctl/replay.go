// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
	"github.com/Mictronics/mesh-observer/lib/capture"
	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/ingest"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
	"github.com/Mictronics/mesh-observer/lib/source"
)

func replayCommand() *cli.Command {
	var database string
	return &cli.Command{
		Name:    "replay",
		Summary: "feed a capture or log file into a database",
		Usage:   "meshctl replay [flags] <file>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
			fs.StringVar(&database, "database", "", "SQLite database file (default from config)")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("replay: want exactly one file argument")
			}
			return runReplay(database, args[0])
		},
	}
}

// runReplay ingests a capture file offline. Zstandard captures and
// plain log files both work; the suffix decides.
func runReplay(database, path string) error {
	dbPath, err := resolveDatabase(database)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	clk := clock.Real()
	catalog := meshlog.NewCatalog()

	store, err := meshdb.Open(meshdb.Config{
		Path:    dbPath,
		Catalog: catalog,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	input, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer input.Close()

	engine := ingest.New(ingest.Config{
		Store:      store,
		Classifier: meshlog.NewClassifier(catalog),
		Clock:      clk,
		Logger:     logger,
	})

	ctx := context.Background()
	reader := source.Reader{Label: path, R: input}
	if err := reader.Run(ctx, func(line string) {
		engine.HandleLine(ctx, line)
	}); err != nil {
		return err
	}
	engine.Flush(ctx)

	stats := engine.Stats()
	fmt.Printf("replayed %s: %d lines, %d matched, %d events applied, %d store errors\n",
		path, stats.LinesSeen, stats.LinesMatched, stats.EventsApplied, stats.StoreErrors)
	return nil
}
