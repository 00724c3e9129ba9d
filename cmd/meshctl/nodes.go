// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
	"github.com/Mictronics/mesh-observer/lib/report"
)

func nodesCommand() *cli.Command {
	var database string
	var all bool
	return &cli.Command{
		Name:    "nodes",
		Summary: "list known nodes, newest sighting first",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("nodes", pflag.ContinueOnError)
			fs.StringVar(&database, "database", "", "SQLite database file (default from config)")
			fs.BoolVar(&all, "all", false, "include nodes that never announced names")
			return fs
		},
		Run: func(args []string) error {
			return runNodes(database, all)
		},
	}
}

func runNodes(database string, all bool) error {
	path, err := resolveDatabase(database)
	if err != nil {
		return err
	}
	store, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	nodes, err := store.ListNodes(context.Background(), all)
	if err != nil {
		return err
	}

	now := time.Now()
	rows := make([][]string, 0, len(nodes))
	for _, node := range nodes {
		position := ""
		if node.HasPosition {
			position = fmt.Sprintf("%.5f %.5f", node.Latitude, node.Longitude)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%08X", node.ID),
			node.ShortName,
			node.LongName,
			report.RoleName(node.Role),
			formatAge(node.Seen, now),
			position,
		})
	}
	printRows([]string{"Node", "Short", "Name", "Role", "Seen", "Position"}, rows)
	return nil
}
