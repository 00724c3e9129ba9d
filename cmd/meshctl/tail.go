// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
	"github.com/Mictronics/mesh-observer/lib/codec"
)

func tailCommand() *cli.Command {
	var socket string
	var matchedOnly bool
	return &cli.Command{
		Name:    "tail",
		Summary: "stream live log lines from a running daemon",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("tail", pflag.ContinueOnError)
			fs.StringVar(&socket, "socket", "", "daemon control socket (default from config)")
			fs.BoolVar(&matchedOnly, "matched", false, "only lines the parser recognized")
			return fs
		},
		Run: func(args []string) error {
			return runTail(socket, matchedOnly)
		},
	}
}

func runTail(socket string, matchedOnly bool) error {
	socketPath, err := resolveSocket(socket)
	if err != nil {
		return err
	}
	conn, err := dialControl(socketPath, codec.ActionTail)
	if err != nil {
		return err
	}
	defer conn.Close()

	decoder := codec.NewDecoder(conn)
	for {
		var frame codec.TailFrame
		if err := decoder.Decode(&frame); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading tail stream: %w", err)
		}
		if frame.Dropped > 0 {
			fmt.Fprintf(os.Stderr, "tail: %d lines dropped, client too slow\n", frame.Dropped)
		}
		if frame.Type != codec.FrameLine {
			continue
		}
		if matchedOnly && !frame.Matched {
			continue
		}
		kind := frame.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Printf("%s %-16s %s\n",
			time.Unix(frame.Time, 0).Format("15:04:05"), kind, frame.Line)
	}
}
