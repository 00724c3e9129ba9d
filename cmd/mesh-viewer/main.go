// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/config"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
	"github.com/Mictronics/mesh-observer/lib/version"
)

var (
	databasePath = pflag.String("database", "", "SQLite database file (default from config)")
	refresh      = pflag.Duration("refresh", 5*time.Second, "refresh interval")
	showVersion  = pflag.Bool("version", false, "print version and exit")
)

func main() {
	pflag.Parse()
	if *showVersion {
		fmt.Println(version.Full())
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *databasePath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path = cfg.Database
	}

	// Read-only: the viewer is a concurrent reader next to a running
	// daemon, never a writer.
	store, err := meshdb.Open(meshdb.Config{
		Path:     path,
		ReadOnly: true,
		PoolSize: 1,
		Clock:    clock.Real(),
		Logger:   slog.New(slog.DiscardHandler),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	th := newTheme(termenv.ColorProfile())
	program := tea.NewProgram(newModel(store, *refresh, th), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
