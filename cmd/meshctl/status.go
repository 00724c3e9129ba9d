// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
	"github.com/Mictronics/mesh-observer/lib/codec"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
)

func statusCommand() *cli.Command {
	var socket string
	return &cli.Command{
		Name:    "status",
		Summary: "show counters from a running daemon",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
			fs.StringVar(&socket, "socket", "", "daemon control socket (default from config)")
			return fs
		},
		Run: func(args []string) error {
			return runStatus(socket)
		},
	}
}

// dialControl connects to the daemon's control socket and sends one
// request.
func dialControl(socketPath, action string) (net.Conn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s (is the daemon running?): %w", socketPath, err)
	}
	if err := codec.NewEncoder(conn).Encode(codec.Request{Action: action}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending %s request: %w", action, err)
	}
	return conn, nil
}

func runStatus(socket string) error {
	socketPath, err := resolveSocket(socket)
	if err != nil {
		return err
	}
	conn, err := dialControl(socketPath, codec.ActionStatus)
	if err != nil {
		return err
	}
	defer conn.Close()

	var status codec.Status
	if err := codec.NewDecoder(conn).Decode(&status); err != nil {
		return fmt.Errorf("reading status reply: %w", err)
	}
	if status.Error != "" {
		return fmt.Errorf("daemon: %s", status.Error)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	row := func(key string, value any) {
		fmt.Fprintf(w, "%s\t%v\n", key, value)
	}
	row("Version", status.Version)
	row("Source", status.Source)
	row("Uptime", (time.Duration(status.UptimeSeconds) * time.Second).String())
	row("Lines seen", status.LinesSeen)
	row("Lines matched", status.LinesMatched)
	row("Events applied", status.EventsApplied)
	row("Store errors", status.StoreErrors)
	row("Decoded", status.Decoded)
	row("Encrypted", status.Encrypted)
	row("CRC errors", status.CRCErrors)
	row("Daemon restarts seen", status.Restarts)
	row("Nodes", status.Nodes)
	row("Links", status.Links)
	row("Packets", status.Packets)

	catalog := meshlog.NewCatalog()
	ports := make([]int64, 0, len(status.PacketsByPort))
	for port := range status.PacketsByPort {
		ports = append(ports, port)
	}
	slices.Sort(ports)
	for _, port := range ports {
		row("  "+catalog.Name(port), status.PacketsByPort[port])
	}
	return w.Flush()
}
