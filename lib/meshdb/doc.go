// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package meshdb is the observer's SQLite graph store: nodes, links,
// packets, and the static packet-type catalog.
//
// # Write path
//
// The ingest engine calls UpsertNode, UpsertLink, and RecordPacket,
// one domain event at a time. Every mutation runs in its own
// IMMEDIATE transaction, so a concurrent reader never observes a
// half-written row. Link and packet inserts sweep their own table's
// expired rows inside the same transaction: links older than 24
// hours and packets older than 7 days are deleted, measured from the
// clock at insert time. Retention is explicit application code, not a
// schema trigger, which keeps the policy visible and testable.
//
// # Read path
//
// The report aggregator, the CLI, and the viewer read through the
// query methods (ListNodes, ListLinks, Packets, Counts). All reads
// tolerate an empty store. WAL mode lets readers run concurrently
// with the single ingestion writer.
//
// # Schema
//
// The schema is fixed for compatibility with existing observer
// databases: nodes keyed by id, links keyed by (source, destination),
// append-only packets, a pre-seeded packet_types catalog, and the
// ViewPackets reporting view joining all three.
package meshdb
