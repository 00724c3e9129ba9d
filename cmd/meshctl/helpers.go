// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/config"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
)

// resolveDatabase picks the database path: explicit flag, else the
// config file, else the built-in default.
func resolveDatabase(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Database, nil
}

// resolveSocket picks the daemon socket path the same way.
func resolveSocket(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Socket, nil
}

// openReadOnly opens the store without write access, so queries work
// against a database owned by a running daemon.
func openReadOnly(path string) (*meshdb.Store, error) {
	return meshdb.Open(meshdb.Config{
		Path:     path,
		ReadOnly: true,
		PoolSize: 1,
		Clock:    clock.Real(),
		Logger:   slog.New(slog.DiscardHandler),
	})
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// printRows renders a table on a terminal and tab-separated values in
// a pipeline.
func printRows(header []string, rows [][]string) {
	if !stdoutIsTerminal() {
		fmt.Println(strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Println(strings.Join(row, "\t"))
		}
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

// parseNodeID parses a node id as printed: eight hex digits, with or
// without 0x.
func parseNodeID(text string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(text), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("node id %q: want hex like 433d2f61", text)
	}
	return uint32(id), nil
}

// formatAge renders how long ago a unix timestamp was.
func formatAge(seen int64, now time.Time) string {
	if seen == 0 {
		return "never"
	}
	age := now.Sub(time.Unix(seen, 0))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%.1fh", age.Hours())
	default:
		return fmt.Sprintf("%.1fd", age.Hours()/24)
	}
}

// formatSNR renders an SNR sample, with "?" for the unknown sentinel.
func formatSNR(snr float64) string {
	if snr == meshlog.SNRUnknown {
		return "? dB"
	}
	return fmt.Sprintf("%.2f dB", snr)
}
