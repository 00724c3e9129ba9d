// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package meshdb

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Node is one row of the nodes table. Name and position fields are
// zero-valued until learned; Named reports whether the node has ever
// announced its names.
type Node struct {
	ID          uint32
	ShortName   string
	LongName    string
	Named       bool
	Seen        int64
	Latitude    float64
	Longitude   float64
	HasPosition bool
	TraceStart  int64
	Role        int64
	Hardware    int64
}

// Link is one row of the links table. SNR is meshlog.SNRUnknown when
// the latest sighting carried no measurement.
type Link struct {
	Source      uint32
	Destination uint32
	SNR         float64
	Seen        int64
}

// PacketRow is one row of the ViewPackets reporting view. LongName is
// empty and Role zero when the source node has not been materialized.
type PacketRow struct {
	Source   uint32
	LongName string
	Type     int64
	PortName string
	Time     int64
	Role     int64
}

// Counts holds the store's current row counts for the status surface.
type Counts struct {
	Nodes   int64
	Links   int64
	Packets int64
}

// ListNodes returns nodes ordered by last-seen, newest first. Nodes
// that never announced names are included only when includeUnnamed is
// set; they exist from traceroute sightings and receptions alone.
func (s *Store) ListNodes(ctx context.Context, includeUnnamed bool) ([]Node, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("meshdb: list nodes: %w", err)
	}
	defer s.pool.Put(conn)

	var conditions []string
	if !includeUnnamed {
		conditions = append(conditions, "longname IS NOT NULL")
	}

	query := "SELECT id, shortname, longname, seen, latitude, longitude, tracestart, role, hardware" +
		" FROM nodes" + joinConditions(conditions) +
		" ORDER BY seen DESC NULLS LAST, id"

	var nodes []Node
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			nodes = append(nodes, scanNode(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("meshdb: list nodes: %w", err)
	}
	return nodes, nil
}

func scanNode(stmt *sqlite.Stmt) Node {
	node := Node{
		ID:         uint32(stmt.ColumnInt64(0)),
		Seen:       stmt.ColumnInt64(3),
		TraceStart: stmt.ColumnInt64(6),
		Role:       stmt.ColumnInt64(7),
		Hardware:   stmt.ColumnInt64(8),
	}
	if !stmt.ColumnIsNull(1) || !stmt.ColumnIsNull(2) {
		node.ShortName = stmt.ColumnText(1)
		node.LongName = stmt.ColumnText(2)
		node.Named = true
	}
	if !stmt.ColumnIsNull(4) && !stmt.ColumnIsNull(5) {
		node.Latitude = stmt.ColumnFloat(4)
		node.Longitude = stmt.ColumnFloat(5)
		node.HasPosition = true
	}
	return node
}

// GetNode returns a single node row, or ok=false when the id has
// never been observed.
func (s *Store) GetNode(ctx context.Context, id uint32) (Node, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Node{}, false, fmt.Errorf("meshdb: get node: %w", err)
	}
	defer s.pool.Put(conn)

	var node Node
	found := false
	err = sqlitex.Execute(conn,
		"SELECT id, shortname, longname, seen, latitude, longitude, tracestart, role, hardware"+
			" FROM nodes WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{int64(id)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				node = scanNode(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return Node{}, false, fmt.Errorf("meshdb: get node %d: %w", id, err)
	}
	return node, found, nil
}

// ListLinks returns the current link rows, newest sighting first.
// Only rows surviving retention exist, so there is no age filter.
func (s *Store) ListLinks(ctx context.Context) ([]Link, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("meshdb: list links: %w", err)
	}
	defer s.pool.Put(conn)

	var links []Link
	err = sqlitex.Execute(conn,
		"SELECT source, destination, snr, seen FROM links ORDER BY seen DESC, source, destination",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				links = append(links, Link{
					Source:      uint32(stmt.ColumnInt64(0)),
					Destination: uint32(stmt.ColumnInt64(1)),
					SNR:         stmt.ColumnFloat(2),
					Seen:        stmt.ColumnInt64(3),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("meshdb: list links: %w", err)
	}
	return links, nil
}

// PacketFilter narrows a Packets query. Zero-valued fields are not
// applied; FilterPort exists because port 0 is a real catalog entry.
type PacketFilter struct {
	Source     uint32 // exact source node id
	Port       int64  // exact port number, applied when FilterPort is set
	FilterPort bool
	Since      int64 // earliest packet time, Unix seconds
	Limit      int   // maximum rows, newest first; 0 means no limit
}

// Packets returns traffic records from ViewPackets, newest first.
func (s *Store) Packets(ctx context.Context, filter PacketFilter) ([]PacketRow, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("meshdb: packets: %w", err)
	}
	defer s.pool.Put(conn)

	var conditions []string
	var args []any
	if filter.Source != 0 {
		conditions = append(conditions, "source = ?")
		args = append(args, int64(filter.Source))
	}
	if filter.FilterPort {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Port)
	}
	if filter.Since > 0 {
		conditions = append(conditions, "time >= ?")
		args = append(args, filter.Since)
	}

	query := "SELECT source, longname, type, port_name, time, role FROM ViewPackets" +
		joinConditions(conditions) + " ORDER BY time DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []PacketRow
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row := PacketRow{
				Source:   uint32(stmt.ColumnInt64(0)),
				Type:     stmt.ColumnInt64(2),
				PortName: stmt.ColumnText(3),
				Time:     stmt.ColumnInt64(4),
			}
			if !stmt.ColumnIsNull(1) {
				row.LongName = stmt.ColumnText(1)
			}
			if !stmt.ColumnIsNull(5) {
				row.Role = stmt.ColumnInt64(5)
			}
			rows = append(rows, row)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("meshdb: packets: %w", err)
	}
	return rows, nil
}

// ActiveCounts returns how many nodes and links were seen within the
// last 24 hours, the figures the report headlines.
func (s *Store) ActiveCounts(ctx context.Context) (nodes, links int64, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("meshdb: active counts: %w", err)
	}
	defer s.pool.Put(conn)

	cutoff := s.clock.Now().Unix() - int64(LinkRetention/time.Second)

	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM nodes WHERE seen > ?",
		&sqlitex.ExecOptions{
			Args:       []any{cutoff},
			ResultFunc: func(stmt *sqlite.Stmt) error { nodes = stmt.ColumnInt64(0); return nil },
		})
	if err != nil {
		return 0, 0, fmt.Errorf("meshdb: active node count: %w", err)
	}

	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM links WHERE seen > ?",
		&sqlitex.ExecOptions{
			Args:       []any{cutoff},
			ResultFunc: func(stmt *sqlite.Stmt) error { links = stmt.ColumnInt64(0); return nil },
		})
	if err != nil {
		return 0, 0, fmt.Errorf("meshdb: active link count: %w", err)
	}
	return nodes, links, nil
}

// RowCounts returns total rows per table for the status surface.
func (s *Store) RowCounts(ctx context.Context) (Counts, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("meshdb: row counts: %w", err)
	}
	defer s.pool.Put(conn)

	var counts Counts
	for _, entry := range []struct {
		table  string
		target *int64
	}{
		{"nodes", &counts.Nodes},
		{"links", &counts.Links},
		{"packets", &counts.Packets},
	} {
		err := sqlitex.ExecuteTransient(conn, "SELECT COUNT(*) FROM "+entry.table,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					*entry.target = stmt.ColumnInt64(0)
					return nil
				},
			})
		if err != nil {
			return Counts{}, fmt.Errorf("meshdb: counting %s: %w", entry.table, err)
		}
	}
	return counts, nil
}
