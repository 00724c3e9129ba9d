// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/config"
	"github.com/Mictronics/mesh-observer/lib/report"
)

func reportCommand() *cli.Command {
	var database, format string
	return &cli.Command{
		Name:    "report",
		Summary: "build a traffic report from the database",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("report", pflag.ContinueOnError)
			fs.StringVar(&database, "database", "", "SQLite database file (default from config)")
			fs.StringVar(&format, "format", "table", "output format: table, markdown, html")
			return fs
		},
		Run: func(args []string) error {
			return runReport(database, format)
		},
	}
}

func runReport(database, format string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path := database
	if path == "" {
		path = cfg.Database
	}
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	builder := &report.Builder{
		Store:    store,
		Clock:    clock.Real(),
		Location: location,
	}
	result, err := builder.Build(context.Background(), nil)
	if err != nil {
		return err
	}

	switch format {
	case "table":
		return report.RenderTable(os.Stdout, result, !stdoutIsTerminal())
	case "markdown":
		return report.RenderMarkdown(os.Stdout, result)
	case "html":
		return report.RenderHTML(os.Stdout, result)
	default:
		return fmt.Errorf("format %q: want table, markdown, or html", format)
	}
}
