// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/ingest"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
)

// loadCutoffPercent is the minimum share of total traffic a node must
// produce to appear in the per-node breakdown.
const loadCutoffPercent = 0.1

// minIntervalSamples is how many packets of one type a node must have
// sent before a median transmit interval is reported.
const minIntervalSamples = 3

// roleNames indexes the firmware's device role enumeration.
var roleNames = []string{
	"Client",
	"Client Mute",
	"Router",
	"Router Client",
	"Repeater",
	"Tracker",
	"Sensor",
	"TAK",
	"Client Hidden",
	"Lost and Found",
	"TAK Tracker",
	"Router Late",
}

// RoleName returns the display name for a device role number.
func RoleName(role int64) string {
	if role >= 0 && role < int64(len(roleNames)) {
		return roleNames[role]
	}
	return "Unknown Role"
}

// CategoryRate is the observed traffic rate for one packet type.
type CategoryRate struct {
	Name    string
	Count   int
	PerHour float64
}

// DayCount is the packet total for one calendar day.
type DayCount struct {
	Day   string
	Count int
}

// SenderCount ranks a node by the packets it produced.
type SenderCount struct {
	ID       uint32
	LongName string
	Count    int
}

// SenderTypeCount ranks a (node, packet type) pair.
type SenderTypeCount struct {
	ID       uint32
	LongName string
	PortName string
	Count    int
}

// IntervalStat is a node's median transmit interval for one packet
// type.
type IntervalStat struct {
	PortName string
	Median   time.Duration
	Samples  int
}

// NodeLoad is one node's share of the observed traffic, with its
// per-type transmit cadence.
type NodeLoad struct {
	ID          uint32
	LongName    string
	RoleName    string
	Count       int
	LoadPercent float64
	Intervals   []IntervalStat
}

// NodeRow is one line of the report's node table.
type NodeRow struct {
	ID          uint32
	ShortName   string
	LongName    string
	RoleName    string
	Seen        int64
	HasPosition bool
}

// Report is the computed statistics document.
type Report struct {
	GeneratedAt time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time

	// Empty is set when the store holds no traffic; renderers emit an
	// explicit "no traffic observed" body instead of vacant tables.
	Empty bool

	TotalPackets int
	ActiveNodes  int64
	ActiveLinks  int64

	Rates []CategoryRate

	// Decode counters come from the ingest engine, not the store, and
	// are present only when a running daemon built the report.
	Decoded        int64
	Encrypted      int64
	HasDecodeStats bool

	HourlyPackets [24]int
	HourlySenders [24]int
	DailyPackets  []DayCount

	TopSenders     []SenderCount
	TopSenderTypes []SenderTypeCount

	NodeLoads []NodeLoad
	Nodes     []NodeRow
}

// Builder computes reports against one store.
type Builder struct {
	Store *meshdb.Store
	Clock clock.Clock

	// Location is the timezone for hour and day bucketing. Defaults
	// to UTC.
	Location *time.Location
}

// Build fetches the full traffic window and computes every section.
// stats may be nil when no engine is attached (offline report from a
// database file).
func (b *Builder) Build(ctx context.Context, stats *ingest.Stats) (*Report, error) {
	location := b.Location
	if location == nil {
		location = time.UTC
	}

	report := &Report{GeneratedAt: b.Clock.Now().In(location)}
	if stats != nil {
		report.Decoded = stats.Decoded
		report.Encrypted = stats.Encrypted
		report.HasDecodeStats = true
	}

	activeNodes, activeLinks, err := b.Store.ActiveCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	report.ActiveNodes = activeNodes
	report.ActiveLinks = activeLinks

	nodes, err := b.Store.ListNodes(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	nodesByID := make(map[uint32]meshdb.Node, len(nodes))
	for _, node := range nodes {
		nodesByID[node.ID] = node
		if !node.Named {
			continue
		}
		report.Nodes = append(report.Nodes, NodeRow{
			ID:          node.ID,
			ShortName:   node.ShortName,
			LongName:    node.LongName,
			RoleName:    RoleName(node.Role),
			Seen:        node.Seen,
			HasPosition: node.HasPosition,
		})
	}

	packets, err := b.Store.Packets(ctx, meshdb.PacketFilter{})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if len(packets) == 0 {
		report.Empty = true
		return report, nil
	}

	// Packets arrive newest first; the interval math wants ascending
	// time order.
	sort.Slice(packets, func(i, j int) bool { return packets[i].Time < packets[j].Time })

	report.TotalPackets = len(packets)
	report.PeriodStart = time.Unix(packets[0].Time, 0).In(location)
	report.PeriodEnd = time.Unix(packets[len(packets)-1].Time, 0).In(location)

	b.computeRates(report, packets)
	b.computeBuckets(report, packets, location)
	b.computeRankings(report, packets)
	b.computeNodeLoads(report, packets, nodesByID)
	return report, nil
}

func (b *Builder) computeRates(report *Report, packets []meshdb.PacketRow) {
	counts := make(map[string]int)
	for _, packet := range packets {
		counts[packet.PortName]++
	}

	hours := report.PeriodEnd.Sub(report.PeriodStart).Hours()
	if hours < 1 {
		hours = 1
	}
	for name, count := range counts {
		report.Rates = append(report.Rates, CategoryRate{
			Name:    name,
			Count:   count,
			PerHour: float64(count) / hours,
		})
	}
	sort.Slice(report.Rates, func(i, j int) bool {
		if report.Rates[i].Count != report.Rates[j].Count {
			return report.Rates[i].Count > report.Rates[j].Count
		}
		return report.Rates[i].Name < report.Rates[j].Name
	})
}

func (b *Builder) computeBuckets(report *Report, packets []meshdb.PacketRow, location *time.Location) {
	sendersByHour := make(map[int]map[uint32]bool)
	daily := make(map[string]int)

	for _, packet := range packets {
		at := time.Unix(packet.Time, 0).In(location)
		hour := at.Hour()
		report.HourlyPackets[hour]++
		if sendersByHour[hour] == nil {
			sendersByHour[hour] = make(map[uint32]bool)
		}
		sendersByHour[hour][packet.Source] = true
		daily[at.Format("2006-01-02")]++
	}

	for hour, senders := range sendersByHour {
		report.HourlySenders[hour] = len(senders)
	}
	for day, count := range daily {
		report.DailyPackets = append(report.DailyPackets, DayCount{Day: day, Count: count})
	}
	sort.Slice(report.DailyPackets, func(i, j int) bool {
		return report.DailyPackets[i].Day < report.DailyPackets[j].Day
	})
}

func (b *Builder) computeRankings(report *Report, packets []meshdb.PacketRow) {
	type senderKey struct {
		id   uint32
		name string
	}
	type pairKey struct {
		id   uint32
		name string
		port string
	}
	senders := make(map[senderKey]int)
	pairs := make(map[pairKey]int)
	for _, packet := range packets {
		senders[senderKey{packet.Source, packet.LongName}]++
		pairs[pairKey{packet.Source, packet.LongName, packet.PortName}]++
	}

	for key, count := range senders {
		report.TopSenders = append(report.TopSenders, SenderCount{
			ID: key.id, LongName: key.name, Count: count,
		})
	}
	sort.Slice(report.TopSenders, func(i, j int) bool {
		if report.TopSenders[i].Count != report.TopSenders[j].Count {
			return report.TopSenders[i].Count > report.TopSenders[j].Count
		}
		return report.TopSenders[i].ID < report.TopSenders[j].ID
	})
	if len(report.TopSenders) > 10 {
		report.TopSenders = report.TopSenders[:10]
	}

	for key, count := range pairs {
		report.TopSenderTypes = append(report.TopSenderTypes, SenderTypeCount{
			ID: key.id, LongName: key.name, PortName: key.port, Count: count,
		})
	}
	sort.Slice(report.TopSenderTypes, func(i, j int) bool {
		if report.TopSenderTypes[i].Count != report.TopSenderTypes[j].Count {
			return report.TopSenderTypes[i].Count > report.TopSenderTypes[j].Count
		}
		if report.TopSenderTypes[i].ID != report.TopSenderTypes[j].ID {
			return report.TopSenderTypes[i].ID < report.TopSenderTypes[j].ID
		}
		return report.TopSenderTypes[i].PortName < report.TopSenderTypes[j].PortName
	})
	if len(report.TopSenderTypes) > 10 {
		report.TopSenderTypes = report.TopSenderTypes[:10]
	}
}

func (b *Builder) computeNodeLoads(report *Report, packets []meshdb.PacketRow, nodesByID map[uint32]meshdb.Node) {
	bySource := make(map[uint32][]meshdb.PacketRow)
	for _, packet := range packets {
		bySource[packet.Source] = append(bySource[packet.Source], packet)
	}

	for source, sourcePackets := range bySource {
		load := 100 * float64(len(sourcePackets)) / float64(report.TotalPackets)
		if load < loadCutoffPercent {
			continue
		}

		node := nodesByID[source]
		nodeLoad := NodeLoad{
			ID:          source,
			LongName:    sourcePackets[0].LongName,
			RoleName:    RoleName(node.Role),
			Count:       len(sourcePackets),
			LoadPercent: load,
			Intervals:   transmitIntervals(sourcePackets),
		}
		report.NodeLoads = append(report.NodeLoads, nodeLoad)
	}

	sort.Slice(report.NodeLoads, func(i, j int) bool {
		if report.NodeLoads[i].Count != report.NodeLoads[j].Count {
			return report.NodeLoads[i].Count > report.NodeLoads[j].Count
		}
		return report.NodeLoads[i].ID < report.NodeLoads[j].ID
	})
}

// transmitIntervals computes the median gap between consecutive
// packets per type, for types with enough samples. Input must be in
// ascending time order.
func transmitIntervals(packets []meshdb.PacketRow) []IntervalStat {
	timesByPort := make(map[string][]int64)
	for _, packet := range packets {
		timesByPort[packet.PortName] = append(timesByPort[packet.PortName], packet.Time)
	}

	var intervals []IntervalStat
	for portName, times := range timesByPort {
		if len(times) < minIntervalSamples {
			continue
		}
		gaps := make([]int64, 0, len(times)-1)
		for i := 1; i < len(times); i++ {
			gaps = append(gaps, times[i]-times[i-1])
		}
		intervals = append(intervals, IntervalStat{
			PortName: portName,
			Median:   time.Duration(medianInt64(gaps)) * time.Second,
			Samples:  len(times),
		})
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].PortName < intervals[j].PortName
	})
	return intervals
}

func medianInt64(values []int64) int64 {
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	middle := len(values) / 2
	if len(values)%2 == 1 {
		return values[middle]
	}
	return (values[middle-1] + values[middle]) / 2
}
