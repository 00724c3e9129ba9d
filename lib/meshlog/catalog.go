// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package meshlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// Well-known port numbers. The 512-517 range is the observer's own
// refinement of port 67: the firmware logs all telemetry under one
// port, and the variant is only identifiable from the detail line
// that follows (see Event.TelemetryVariant).
const (
	PortUnknown              int64 = 0
	PortTextMessage          int64 = 1
	PortRemoteHardware       int64 = 2
	PortPosition             int64 = 3
	PortNodeInfo             int64 = 4
	PortRouting              int64 = 5
	PortAdmin                int64 = 6
	PortWaypoint             int64 = 8
	PortStoreForward         int64 = 65
	PortTelemetry            int64 = 67
	PortTraceroute           int64 = 70
	PortNeighborInfo         int64 = 71
	PortDeviceTelemetry      int64 = 512
	PortPowerTelemetry       int64 = 513
	PortEnvironmentTelemetry int64 = 514
	PortHostMetrics          int64 = 515
	PortAirQuality           int64 = 516
	PortHealthTelemetry      int64 = 517
)

// Catalog maps numeric port numbers to human-readable category names
// and debug-log type strings back to port numbers. It is built once at
// startup and read-only afterwards.
type Catalog struct {
	names map[int64]string
}

// basePorts is the static id → name table seeded into the database's
// packet_types table.
var basePorts = map[int64]string{
	PortUnknown:              "Unknown",
	PortTextMessage:          "Text Message",
	PortRemoteHardware:       "Remote Hardware",
	PortPosition:             "Position",
	PortNodeInfo:             "Node Info",
	PortRouting:              "Routing",
	PortAdmin:                "Admin",
	PortWaypoint:             "Waypoint",
	PortStoreForward:         "Store Forward",
	PortTelemetry:            "Telemetry",
	PortTraceroute:           "Traceroute",
	PortNeighborInfo:         "Neighbor Info",
	PortDeviceTelemetry:      "Device Telemetry",
	PortPowerTelemetry:       "Power Telemetry",
	PortEnvironmentTelemetry: "Environment Telemetry",
	PortHostMetrics:          "Host Metrics",
	PortAirQuality:           "Air Quality",
	PortHealthTelemetry:      "Health Telemetry",
}

// logTypeNames maps the packet-type strings found in "Received ..."
// debug lines to port numbers. There is no standard for these strings;
// this table mirrors what the firmware actually prints, lowercased.
// The telemetry aliases all collapse to port 67 because the Received
// line alone cannot identify the variant.
var logTypeNames = map[string]int64{
	"unknown":              PortUnknown,
	"text msg":             PortTextMessage,
	"remotehardware":       PortRemoteHardware,
	"position":             PortPosition,
	"nodeinfo":             PortNodeInfo,
	"routing":              PortRouting,
	"admin":                PortAdmin,
	"waypoint msg":         PortWaypoint,
	"storeforward":         PortStoreForward,
	"telemetry":            PortTelemetry,
	"devicetelemetry":      PortTelemetry,
	"powertelemetry":       PortTelemetry,
	"environmenttelemetry": PortTelemetry,
	"hostmetrics":          PortTelemetry,
	"traceroute":           PortTraceroute,
	"neighborinfo":         PortNeighborInfo,
}

// NewCatalog returns the built-in port catalog.
func NewCatalog() *Catalog {
	names := make(map[int64]string, len(basePorts))
	for port, name := range basePorts {
		names[port] = name
	}
	return &Catalog{names: names}
}

// NewCatalogFromFile returns the built-in catalog extended with
// entries from a JSONC file mapping port numbers to names, for mesh
// deployments that run private apps on unassigned ports. Built-in
// entries win on conflict, so an extension file cannot rename a
// standard category.
//
// File format (comments allowed):
//
//	{
//	    // private sensor network
//	    "1024": "Soil Moisture"
//	}
func NewCatalogFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog extension: %w", err)
	}

	var extension map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(data), &extension); err != nil {
		return nil, fmt.Errorf("catalog extension %s: %w", path, err)
	}

	catalog := NewCatalog()
	for portText, name := range extension {
		var port int64
		if _, err := fmt.Sscanf(portText, "%d", &port); err != nil {
			return nil, fmt.Errorf("catalog extension %s: port %q is not a number", path, portText)
		}
		if port < 0 {
			return nil, fmt.Errorf("catalog extension %s: negative port %d", path, port)
		}
		if _, exists := catalog.names[port]; exists {
			continue
		}
		catalog.names[port] = name
	}
	return catalog, nil
}

// Name returns the category name for a port number. Unknown ports
// resolve to the port-0 name rather than failing: classification must
// never reject a packet just because its port is unregistered.
func (c *Catalog) Name(port int64) string {
	if name, ok := c.names[port]; ok {
		return name
	}
	return c.names[PortUnknown]
}

// PortByLogType resolves a packet-type string from a "Received ..."
// debug line to its port number. Unrecognized strings map to
// PortUnknown.
func (c *Catalog) PortByLogType(logType string) int64 {
	if port, ok := logTypeNames[strings.ToLower(strings.TrimSpace(logType))]; ok {
		return port
	}
	return PortUnknown
}

// Ports returns all registered port numbers in ascending order. The
// store uses this to seed the packet_types table.
func (c *Catalog) Ports() []int64 {
	ports := make([]int64, 0, len(c.names))
	for port := range c.names {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}
