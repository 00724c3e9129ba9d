// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// mesh-viewer is a terminal UI for watching the mesh network model as
// the observer builds it. It opens the database read-only and
// refreshes on a timer, so it runs safely next to the daemon: SQLite
// WAL gives each refresh a consistent snapshot without blocking the
// writer.
//
// Two tabs: nodes (everything the observer has learned about each
// station) and links (direct receptions within the last 24 hours).
package main
