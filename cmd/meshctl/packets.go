// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
)

func packetsCommand() *cli.Command {
	var database, node string
	var port int64
	var since time.Duration
	var limit int
	return &cli.Command{
		Name:    "packets",
		Summary: "list recent traffic, newest first",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("packets", pflag.ContinueOnError)
			fs.StringVar(&database, "database", "", "SQLite database file (default from config)")
			fs.StringVar(&node, "node", "", "only packets from this node id (hex)")
			fs.Int64Var(&port, "port", -1, "only packets of this port number")
			fs.DurationVar(&since, "since", 0, "only packets newer than this, e.g. 2h")
			fs.IntVar(&limit, "limit", 50, "maximum rows, 0 for all")
			return fs
		},
		Run: func(args []string) error {
			return runPackets(database, node, port, since, limit)
		},
	}
}

func runPackets(database, node string, port int64, since time.Duration, limit int) error {
	path, err := resolveDatabase(database)
	if err != nil {
		return err
	}
	store, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := meshdb.PacketFilter{Limit: limit}
	if node != "" {
		id, err := parseNodeID(node)
		if err != nil {
			return err
		}
		filter.Source = id
	}
	if port >= 0 {
		filter.Port = port
		filter.FilterPort = true
	}
	if since > 0 {
		filter.Since = time.Now().Add(-since).Unix()
	}

	packets, err := store.Packets(context.Background(), filter)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(packets))
	for _, packet := range packets {
		rows = append(rows, []string{
			time.Unix(packet.Time, 0).Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%08X", packet.Source),
			packet.LongName,
			packet.PortName,
		})
	}
	printRows([]string{"Time", "Node", "Name", "Type"}, rows)
	return nil
}
