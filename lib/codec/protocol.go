// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package codec

// Control socket protocol. A client sends one Request frame; the
// daemon answers with a Status frame or, for ActionTail, a stream of
// TailFrame until the client disconnects.

// Request actions.
const (
	ActionStatus = "status"
	ActionTail   = "tail"
)

// Request is one client command.
type Request struct {
	Action string `cbor:"action"`
}

// Status is the daemon's answer to ActionStatus.
type Status struct {
	Version       string `cbor:"version"`
	Source        string `cbor:"source"`
	UptimeSeconds int64  `cbor:"uptime_seconds"`

	LinesSeen     int64 `cbor:"lines_seen"`
	LinesMatched  int64 `cbor:"lines_matched"`
	EventsApplied int64 `cbor:"events_applied"`
	StoreErrors   int64 `cbor:"store_errors"`
	Decoded       int64 `cbor:"decoded"`
	Encrypted     int64 `cbor:"encrypted"`
	CRCErrors     int64 `cbor:"crc_errors"`
	Restarts      int64 `cbor:"restarts"`

	PacketsByPort map[int64]int64 `cbor:"packets_by_port"`

	Nodes   int64 `cbor:"nodes"`
	Links   int64 `cbor:"links"`
	Packets int64 `cbor:"packets"`

	// Error is set instead of the data fields when the request could
	// not be served.
	Error string `cbor:"error,omitempty"`
}

// TailFrame types.
const (
	FrameLine      = "line"
	FrameHeartbeat = "heartbeat"
)

// TailFrame is one server-push message on a tail stream.
type TailFrame struct {
	Type    string `cbor:"type"`
	Time    int64  `cbor:"time"`
	Line    string `cbor:"line,omitempty"`
	Matched bool   `cbor:"matched,omitempty"`
	Kind    string `cbor:"kind,omitempty"`

	// Dropped counts frames discarded because this subscriber fell
	// behind, reported on the next frame it does receive.
	Dropped int64 `cbor:"dropped,omitempty"`
}
