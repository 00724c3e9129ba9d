// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest drives the observer's line pipeline: each raw log
// line is parsed, classified, and applied to the store, one line at a
// time in arrival order.
//
// The engine owns the single piece of cross-line state the pipeline
// needs, the telemetry refinement buffer. A telemetry reception only
// reveals its variant (device, power, environment, host, air quality,
// health) on the detail line that follows it, so the packet record is
// held back until the next matched line settles the port.
//
// Store errors degrade per event: the engine logs, counts, and keeps
// consuming. A malformed or unmatched line is never an error.
package ingest
