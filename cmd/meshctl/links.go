// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
)

func linksCommand() *cli.Command {
	var database string
	return &cli.Command{
		Name:    "links",
		Summary: "list links observed within the last 24 hours",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("links", pflag.ContinueOnError)
			fs.StringVar(&database, "database", "", "SQLite database file (default from config)")
			return fs
		},
		Run: func(args []string) error {
			return runLinks(database)
		},
	}
}

func runLinks(database string) error {
	path, err := resolveDatabase(database)
	if err != nil {
		return err
	}
	store, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	links, err := store.ListLinks(context.Background())
	if err != nil {
		return err
	}

	now := time.Now()
	rows := make([][]string, 0, len(links))
	for _, link := range links {
		rows = append(rows, []string{
			fmt.Sprintf("%08X", link.Source),
			fmt.Sprintf("%08X", link.Destination),
			formatSNR(link.SNR),
			formatAge(link.Seen, now),
		})
	}
	printRows([]string{"Source", "Destination", "SNR", "Seen"}, rows)
	return nil
}
