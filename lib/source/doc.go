// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package source provides the observer's line inputs: a serial port in
// raw mode, a followed systemd journal unit, a plain file, and stdin.
//
// A Source owns its reconnect policy. Serial reopens the device and
// the journal follower restarts its child process, both with backoff,
// so the ingest engine only ever sees a stream of lines. Run returns
// when the context is canceled or, for the finite sources, at end of
// input.
package source
