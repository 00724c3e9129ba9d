// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package meshlog turns raw mesh-daemon debug log lines into domain
// events.
//
// The pipeline has three stages, all pure functions:
//
//   - [Parse] matches one raw line against an ordered table of line
//     patterns and produces a typed [Event], or reports no match. The
//     daemon emits far more debug lines than the observer understands;
//     unmatched lines are expected and carry no information.
//
//   - [Classify] maps a parsed event to zero or more domain events
//     ([NodeInfoEvent], [LinkEvent], [PacketEvent]), resolving raw
//     packet-type names against the [Catalog] and applying the ignore
//     rules (broadcast and zero node ids, self-links).
//
//   - [Catalog] is the static port-number registry. Unknown types
//     resolve to port 0 ("Unknown"), never to an error.
//
// Statefulness lives elsewhere: telemetry packets (port 67) are
// refined to their variant (512-517) by the line that follows them,
// and that one-event lookback is owned by lib/ingest, keeping this
// package a pure text-to-struct mapping that tests can drive with a
// corpus of literal log lines.
package meshlog
