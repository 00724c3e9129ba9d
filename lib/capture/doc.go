// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture archives raw input lines to hourly-rotated,
// zstd-compressed files so an observation window can be replayed into
// a fresh database later.
//
// Capture is strictly best-effort. A write failure is logged once and
// disables capture until the next rotation boundary; ingestion never
// stalls or fails because the archive disk is full.
package capture
