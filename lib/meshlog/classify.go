// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package meshlog

// DomainEvent is a classified observation ready for the store: one of
// NodeInfoEvent, LinkEvent, or PacketEvent.
type DomainEvent interface {
	domainEvent()
}

// NodeInfoEvent updates a node row. Only the fields flagged present
// overwrite stored values; the store must never blank a previously
// learned name because a later event did not carry one.
type NodeInfoEvent struct {
	ID uint32

	ShortName string
	LongName  string
	HasNames  bool

	Latitude    float64
	Longitude   float64
	HasPosition bool

	Role     int64
	Hardware int64
	HasRole  bool

	// Seen is the observation time in Unix seconds, or 0 when the
	// event must not advance the node's last-seen (role reports are
	// forwarded metadata, not proof the node is currently audible).
	Seen int64

	// TraceStart is set for the node that initiated a traceroute; the
	// store records the time of its first trace, once.
	TraceStart bool
}

// LinkEvent records a directional exchange between two nodes. SNR is
// SNRUnknown when the hop carried no measurement.
type LinkEvent struct {
	Source      uint32
	Destination uint32
	SNR         float64
	Seen        int64
}

// PacketEvent records one observed traffic item.
type PacketEvent struct {
	Source uint32
	Port   int64
	Time   int64
}

func (NodeInfoEvent) domainEvent() {}
func (LinkEvent) domainEvent()     {}
func (PacketEvent) domainEvent()   {}

// SNRUnknown is the sentinel stored when no SNR was measured.
const SNRUnknown float64 = -500

// Classifier maps parsed events to domain events using a port
// catalog. It is stateless and safe for concurrent use.
type Classifier struct {
	catalog *Catalog
}

// NewClassifier returns a classifier resolving packet types against
// the given catalog.
func NewClassifier(catalog *Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// ignoredNode reports ids that are never materialized: the broadcast
// address and the zero id some firmware versions print before a node
// has an identity.
func ignoredNode(id uint32) bool {
	return id == 0 || id == BroadcastID
}

// Classify maps one parsed event to zero or more domain events,
// observed at the given Unix-seconds timestamp. A reception line
// yields both a LinkEvent for the hop (when the destination is a
// concrete node) and a PacketEvent for the traffic record; a
// traceroute line yields a LinkEvent per adjacent hop pair plus bare
// node sightings for the endpoints. Counter-only events (decode
// results, CRC errors, restarts, telemetry details) classify to
// nothing; lib/ingest accounts for them directly.
func (c *Classifier) Classify(event Event, now int64) []DomainEvent {
	switch event.Kind {
	case KindNodeInfo:
		if ignoredNode(event.NodeID) {
			return nil
		}
		return []DomainEvent{NodeInfoEvent{
			ID:        event.NodeID,
			ShortName: event.ShortName,
			LongName:  event.LongName,
			HasNames:  true,
			Seen:      now,
		}}

	case KindPosition:
		if ignoredNode(event.NodeID) {
			return nil
		}
		return []DomainEvent{NodeInfoEvent{
			ID:          event.NodeID,
			Latitude:    event.Latitude,
			Longitude:   event.Longitude,
			HasPosition: true,
			Seen:        now,
		}}

	case KindRole:
		if ignoredNode(event.NodeID) {
			return nil
		}
		return []DomainEvent{NodeInfoEvent{
			ID:       event.NodeID,
			Role:     event.Role,
			Hardware: event.Hardware,
			HasRole:  true,
		}}

	case KindPacket:
		return c.classifyPacket(event, now)

	case KindTraceroute:
		return classifyTraceroute(event, now)
	}

	return nil
}

func (c *Classifier) classifyPacket(event Event, now int64) []DomainEvent {
	if ignoredNode(event.From) {
		return nil
	}

	var events []DomainEvent

	// The hop is a link observation when the destination is a concrete
	// node. Broadcasts say nothing about who heard them.
	if event.HasTo && event.To != event.From && !ignoredNode(event.To) {
		snr := SNRUnknown
		if event.HasSNR {
			snr = event.SNR
		}
		events = append(events, LinkEvent{
			Source:      event.From,
			Destination: event.To,
			SNR:         snr,
			Seen:        now,
		})
	}

	// Routing chatter would dominate the packets table without adding
	// traffic insight, so port 5 receptions record only the link.
	port := c.catalog.PortByLogType(event.RawType)
	if port != PortRouting {
		events = append(events, PacketEvent{
			Source: event.From,
			Port:   port,
			Time:   now,
		})
	}

	return events
}

func classifyTraceroute(event Event, now int64) []DomainEvent {
	var events []DomainEvent
	sighted := make(map[uint32]bool)

	for i := 0; i+1 < len(event.Hops); i++ {
		source, destination := event.Hops[i], event.Hops[i+1]
		if ignoredNode(source.ID) || ignoredNode(destination.ID) || source.ID == destination.ID {
			continue
		}

		snr := SNRUnknown
		if destination.HasSNR {
			snr = destination.SNR
		}
		events = append(events, LinkEvent{
			Source:      source.ID,
			Destination: destination.ID,
			SNR:         snr,
			Seen:        now,
		})

		for _, id := range []uint32{source.ID, destination.ID} {
			if sighted[id] {
				continue
			}
			sighted[id] = true
			events = append(events, NodeInfoEvent{
				ID:         id,
				Seen:       now,
				TraceStart: event.TraceStart && id == event.Hops[0].ID,
			})
		}
	}

	return events
}
