// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package meshlog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Kind identifies which line pattern an Event came from.
type Kind int

const (
	// KindNodeInfo is a node announcement carrying names and id.
	KindNodeInfo Kind = iota + 1
	// KindPosition is a position broadcast with integer coordinates.
	KindPosition
	// KindRole carries a node's operating role and hardware model.
	KindRole
	// KindPacket is a packet-reception announcement.
	KindPacket
	// KindTraceroute is one line of a traceroute hop chain.
	KindTraceroute
	// KindTelemetryDetail identifies the variant of the telemetry
	// packet announced on the immediately preceding line.
	KindTelemetryDetail
	// KindDecodeResult reports whether a packet payload was decoded
	// or skipped for lack of a channel key. Counter-only.
	KindDecodeResult
	// KindCRCError is a reception CRC failure. Counter-only.
	KindCRCError
	// KindRestart is the firmware boot banner, marking a gap in the
	// log stream. Counter-only.
	KindRestart
)

// kindNames indexes Kind for display, zero slot unused.
var kindNames = [...]string{
	"", "nodeinfo", "position", "role", "packet", "traceroute",
	"telemetry-detail", "decode-result", "crc-error", "restart",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// BroadcastID is the all-nodes destination. Packets to it carry no
// link information, and it is never materialized as a node.
const BroadcastID uint32 = 0xFFFFFFFF

// Hop is one step in a traceroute chain: a node id and, when the
// firmware measured it, the reception SNR into that node.
type Hop struct {
	ID     uint32
	SNR    float64
	HasSNR bool
}

// Event is one parsed log line. Kind says which pattern matched;
// only the fields that pattern populates are meaningful.
type Event struct {
	Kind Kind

	// Node announcement fields (KindNodeInfo, KindPosition, KindRole).
	NodeID    uint32
	ShortName string
	LongName  string
	Latitude  float64
	Longitude float64
	Role      int64
	Hardware  int64

	// Packet reception fields (KindPacket).
	RawType string
	From    uint32
	To      uint32
	HasTo   bool
	SNR     float64
	HasSNR  bool

	// Telemetry refinement port, 512-517 (KindTelemetryDetail).
	TelemetryVariant int64

	// Decoded is true for "decoded message", false for "no PSK"
	// (KindDecodeResult).
	Decoded bool

	// Traceroute fields (KindTraceroute). TraceStart marks a "#Start"
	// line, whose first hop is the node that initiated the trace.
	Hops       []Hop
	TraceStart bool
}

// Line patterns, in match order. The packet pattern is checked first
// because reception lines are by far the most common; the cheap
// substring patterns come last. There is no standard for these debug
// strings; each regex is anchored to the literal text the firmware
// prints today.
var (
	packetPattern = regexp.MustCompile(
		`Received (?P<type>[A-Za-z ]+) from=0x(?P<from>[0-9a-f]+)` +
			`(?:.*?to=0x(?P<to>[0-9a-f]+))?(?:.*?rxSNR=(?P<snr>-?[0-9.]+))?`)
	nodeInfoPattern = regexp.MustCompile(`user\s([\w\W\s]*?), id=0x(?P<id>[0-9a-f]{8})`)
	positionPattern = regexp.MustCompile(
		`POSITION node=(?P<id>[0-9a-f]{8}).*lat=(?P<lat>-?[0-9]+).*lon=(?P<lon>-?[0-9]+)`)
	rolePattern = regexp.MustCompile(`Role (?P<id>[0-9a-f]{8}) = (?P<role>[0-9]+), HW = (?P<hw>[0-9]+)`)
	hopPattern  = regexp.MustCompile(`(?P<id>[0-9a-f]{8})\s?(\((?P<snr>-?[0-9.]{1,6})dB\))?`)
)

// telemetryVariantFields maps a variant-specific field name, printed
// on the line after a port-67 reception, to the refined port number.
var telemetryVariantFields = map[string]int64{
	"air_util_tx":         PortDeviceTelemetry,
	"ch1_voltage":         PortPowerTelemetry,
	"barometric_pressure": PortEnvironmentTelemetry,
	"diskfree":            PortHostMetrics,
	"pm10_standard":       PortAirQuality,
	"heart_bpm":           PortHealthTelemetry,
}

// matchers is the ordered pattern table. First match wins; a line
// matching none of them carries no information for the observer.
var matchers = []func(string) (Event, bool){
	matchPacket,
	matchTelemetryDetail,
	matchDecodeResult,
	matchNodeInfo,
	matchPosition,
	matchRole,
	matchCRCError,
	matchTraceroute,
	matchRestart,
}

// Parse converts one raw log line into an Event. The second return is
// false when no pattern matches, which is the common case and not an
// error. Serial debug output is colorized, so ANSI sequences are
// stripped before matching. Parse is pure: no state, no I/O.
func Parse(line string) (Event, bool) {
	line = strings.TrimSpace(ansi.Strip(line))
	if line == "" {
		return Event{}, false
	}
	for _, match := range matchers {
		if event, ok := match(line); ok {
			return event, true
		}
	}
	return Event{}, false
}

func matchPacket(line string) (Event, bool) {
	groups := packetPattern.FindStringSubmatch(line)
	if groups == nil {
		return Event{}, false
	}

	from, err := strconv.ParseUint(groups[packetPattern.SubexpIndex("from")], 16, 32)
	if err != nil {
		return Event{}, false
	}

	event := Event{
		Kind:    KindPacket,
		RawType: strings.TrimSpace(groups[packetPattern.SubexpIndex("type")]),
		From:    uint32(from),
	}

	if toText := groups[packetPattern.SubexpIndex("to")]; toText != "" {
		to, err := strconv.ParseUint(toText, 16, 32)
		if err == nil {
			event.To = uint32(to)
			event.HasTo = true
		}
	}
	if snrText := groups[packetPattern.SubexpIndex("snr")]; snrText != "" {
		snr, err := strconv.ParseFloat(snrText, 64)
		if err == nil {
			event.SNR = snr
			event.HasSNR = true
		}
	}
	return event, true
}

func matchTelemetryDetail(line string) (Event, bool) {
	for field, port := range telemetryVariantFields {
		if strings.Contains(line, field) {
			return Event{Kind: KindTelemetryDetail, TelemetryVariant: port}, true
		}
	}
	return Event{}, false
}

func matchDecodeResult(line string) (Event, bool) {
	switch {
	case strings.Contains(line, "decoded message"):
		return Event{Kind: KindDecodeResult, Decoded: true}, true
	case strings.Contains(line, "no PSK"):
		return Event{Kind: KindDecodeResult, Decoded: false}, true
	}
	return Event{}, false
}

func matchNodeInfo(line string) (Event, bool) {
	groups := nodeInfoPattern.FindStringSubmatch(line)
	if groups == nil {
		return Event{}, false
	}

	idText := groups[2]
	id, err := strconv.ParseUint(idText, 16, 32)
	if err != nil {
		return Event{}, false
	}

	longName, shortName := splitNodeName(groups[1], uint32(id), idText)
	return Event{
		Kind:      KindNodeInfo,
		NodeID:    uint32(id),
		ShortName: shortName,
		LongName:  longName,
	}, true
}

// splitNodeName splits the announced name at the last slash into long
// and short parts, stripping the " #" decoration some nodes append.
// Unusable parts fall back to derived names: the short name becomes
// the last four hex digits of the id uppercased, the long name the
// decimal id.
func splitNodeName(name string, id uint32, idText string) (longName, shortName string) {
	longName = name
	if slash := strings.LastIndexByte(name, '/'); slash >= 0 {
		longName = name[:slash]
		shortName = name[slash+1:]
	}
	longName = strings.Trim(longName, " #")
	shortName = strings.Trim(shortName, " #")

	if shortName == "" {
		shortName = strings.ToUpper(idText[len(idText)-4:])
	}
	if longName == "" {
		longName = strconv.FormatUint(uint64(id), 10)
	}
	return longName, shortName
}

func matchPosition(line string) (Event, bool) {
	groups := positionPattern.FindStringSubmatch(line)
	if groups == nil {
		return Event{}, false
	}

	id, err := strconv.ParseUint(groups[positionPattern.SubexpIndex("id")], 16, 32)
	if err != nil {
		return Event{}, false
	}
	latInteger, err := strconv.ParseInt(groups[positionPattern.SubexpIndex("lat")], 10, 64)
	if err != nil {
		return Event{}, false
	}
	lonInteger, err := strconv.ParseInt(groups[positionPattern.SubexpIndex("lon")], 10, 64)
	if err != nil {
		return Event{}, false
	}

	// The firmware logs coordinates as integer degrees scaled by 1e7.
	return Event{
		Kind:      KindPosition,
		NodeID:    uint32(id),
		Latitude:  float64(latInteger) * 1e-7,
		Longitude: float64(lonInteger) * 1e-7,
	}, true
}

func matchRole(line string) (Event, bool) {
	groups := rolePattern.FindStringSubmatch(line)
	if groups == nil {
		return Event{}, false
	}

	id, err := strconv.ParseUint(groups[rolePattern.SubexpIndex("id")], 16, 32)
	if err != nil {
		return Event{}, false
	}
	role, _ := strconv.ParseInt(groups[rolePattern.SubexpIndex("role")], 10, 64)
	hardware, _ := strconv.ParseInt(groups[rolePattern.SubexpIndex("hw")], 10, 64)

	return Event{
		Kind:     KindRole,
		NodeID:   uint32(id),
		Role:     role,
		Hardware: hardware,
	}, true
}

func matchCRCError(line string) (Event, bool) {
	if strings.Contains(line, "error=-7") {
		return Event{Kind: KindCRCError}, true
	}
	return Event{}, false
}

// matchTraceroute parses the hop-chain lines of a traceroute report:
//
//	#Start: 433d2f61 > 25048528(-7.25dB) > 0a1b2c3d(3.5dB)
//	|0a1b2c3d > 9f00aa12(2.0dB)
//	#Back: 9f00aa12 > 433d2f61(-11.5dB)
//
// Each "a > b" adjacency is a directional link observation; the SNR
// in parentheses belongs to the receiving side of the hop.
func matchTraceroute(line string) (Event, bool) {
	if !strings.HasPrefix(line, "#Start") && !strings.HasPrefix(line, "|") && !strings.HasPrefix(line, "#Back") {
		return Event{}, false
	}

	var hops []Hop
	for _, segment := range strings.Split(line, ">") {
		groups := hopPattern.FindStringSubmatch(strings.TrimSpace(segment))
		if groups == nil {
			continue
		}
		id, err := strconv.ParseUint(groups[hopPattern.SubexpIndex("id")], 16, 32)
		if err != nil {
			continue
		}
		hop := Hop{ID: uint32(id)}
		if snrText := groups[hopPattern.SubexpIndex("snr")]; snrText != "" {
			if snr, err := strconv.ParseFloat(snrText, 64); err == nil {
				hop.SNR = snr
				hop.HasSNR = true
			}
		}
		hops = append(hops, hop)
	}
	if len(hops) == 0 {
		return Event{}, false
	}

	return Event{
		Kind:       KindTraceroute,
		Hops:       hops,
		TraceStart: strings.HasPrefix(line, "#Start"),
	}, true
}

func matchRestart(line string) (Event, bool) {
	if strings.Contains(line, "Booted, wake cause") {
		return Event{Kind: KindRestart}, true
	}
	return Event{}, false
}
