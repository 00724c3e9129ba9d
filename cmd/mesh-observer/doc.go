// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// mesh-observer is the ingestion daemon: it follows a mesh node's
// debug log from a serial port, a systemd journal unit, a file, or
// stdin, and maintains the network database.
//
// Alongside ingestion it serves a CBOR control socket (status and
// live tail), optionally archives raw lines to hourly zstd captures,
// and writes scheduled statistics reports.
package main
