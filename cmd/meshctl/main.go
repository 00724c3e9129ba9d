// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/Mictronics/mesh-observer/cmd/meshctl/cli"
	"github.com/Mictronics/mesh-observer/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

func root() *cli.Command {
	return &cli.Command{
		Name:    "meshctl",
		Summary: "inspect and control the mesh network observer",
		Subcommands: []*cli.Command{
			nodesCommand(),
			linksCommand(),
			packetsCommand(),
			reportCommand(),
			statusCommand(),
			tailCommand(),
			replayCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print build metadata",
		Run: func(args []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}
