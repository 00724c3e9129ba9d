// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package meshdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
)

// Retention windows. Rows older than these, measured from each row's
// own timestamp against the clock at sweep time, are deleted by the
// sweep that follows every insert into the respective table.
const (
	// LinkRetention bounds how long a link row survives without a new
	// sighting of the pair.
	LinkRetention = 24 * time.Hour

	// PacketRetention bounds the traffic history.
	PacketRetention = 7 * 24 * time.Hour
)

// schema is the persisted layout, reproduced exactly for
// compatibility with databases created by earlier observer versions.
// packet_types is seeded from the catalog after creation.
const schema = `
	CREATE TABLE IF NOT EXISTS nodes (
		id         INTEGER PRIMARY KEY,
		shortname  TEXT,
		longname   TEXT,
		seen       INTEGER,
		latitude   REAL,
		longitude  REAL,
		tracestart INTEGER DEFAULT 0,
		role       INTEGER DEFAULT 0,
		hardware   INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS links (
		source      INTEGER,
		destination INTEGER,
		snr         REAL DEFAULT -500,
		seen        INTEGER DEFAULT 0,
		PRIMARY KEY (source, destination)
	);
	CREATE INDEX IF NOT EXISTS idx_links_seen ON links(seen);

	CREATE TABLE IF NOT EXISTS packets (
		source INTEGER,
		type   INTEGER,
		time   INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_packets_time ON packets(time);
	CREATE INDEX IF NOT EXISTS idx_packets_source ON packets(source, time);

	CREATE TABLE IF NOT EXISTS packet_types (
		port_num  INTEGER PRIMARY KEY,
		port_name TEXT
	);

	CREATE VIEW IF NOT EXISTS ViewPackets AS
		SELECT packets.source       AS source,
		       nodes.longname       AS longname,
		       packets.type         AS type,
		       packet_types.port_name AS port_name,
		       packets.time         AS time,
		       nodes.role           AS role
		FROM packets
		JOIN packet_types ON packets.type = packet_types.port_num
		LEFT JOIN nodes   ON packets.source = nodes.id;
`

// Store owns the observer's durable state. There is one writer role
// (the ingest engine) and any number of concurrent readers (report,
// CLI, viewer); SQLite WAL mode plus per-event IMMEDIATE transactions
// give readers a consistent snapshot at all times.
type Store struct {
	pool   *sqlitex.Pool
	clock  clock.Clock
	logger *slog.Logger
	path   string
}

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist; the file is created on first open. ":memory:" works for
	// tests with PoolSize 1.
	Path string

	// PoolSize is the number of pooled connections. Defaults to 4:
	// SQLite serializes writes anyway, the extra connections serve
	// concurrent readers.
	PoolSize int

	// ReadOnly opens the database without write access. CLI queries
	// against a database owned by a running daemon use this.
	ReadOnly bool

	// Catalog provides the packet-type seed rows. Required unless
	// ReadOnly, where the table is assumed seeded.
	Catalog *meshlog.Catalog

	// Clock provides the current time for retention decisions.
	Clock clock.Clock

	// Logger receives operational messages.
	Logger *slog.Logger
}

// Open opens the database, applies the standard pragmas to every
// pooled connection, creates the schema if missing, and seeds the
// packet-type catalog. Schema failure here is the one fatal storage
// error in the observer; everything after open degrades per event.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("meshdb: Path is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("meshdb: Clock is required")
	}
	if cfg.Catalog == nil && !cfg.ReadOnly {
		return nil, fmt.Errorf("meshdb: Catalog is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	var flags sqlite.OpenFlags
	if cfg.ReadOnly {
		flags = sqlite.OpenReadOnly | sqlite.OpenWAL
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		Flags:    flags,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, cfg.ReadOnly)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("meshdb: opening %s: %w", cfg.Path, err)
	}

	store := &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: logger,
		path:   cfg.Path,
	}

	if !cfg.ReadOnly {
		if err := store.initSchema(cfg.Catalog); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("mesh database opened",
		"path", cfg.Path,
		"pool_size", poolSize,
		"read_only", cfg.ReadOnly,
	)
	return store, nil
}

// Close closes the connection pool. Blocks until borrowed connections
// are returned, so in-flight writes complete before shutdown.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("meshdb: closing %s: %w", s.path, err)
	}
	return nil
}

// prepareConnection applies the standard pragmas. Runs once per
// pooled connection, on first use.
func prepareConnection(conn *sqlite.Conn, readOnly bool) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	if readOnly {
		// A read-only connection cannot switch journal modes.
		pragmas = pragmas[1:]
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("meshdb: %s: %w", pragma, err)
		}
	}
	return nil
}

// initSchema creates the tables and view and seeds packet_types from
// the catalog. Seeding uses INSERT OR REPLACE so a catalog extension
// file can add rows across restarts without conflicting with an
// existing database.
func (s *Store) initSchema(catalog *meshlog.Catalog) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("meshdb: init schema: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("meshdb: creating schema: %w", err)
	}

	for _, port := range catalog.Ports() {
		err := sqlitex.Execute(conn,
			"INSERT OR REPLACE INTO packet_types (port_num, port_name) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{port, catalog.Name(port)}})
		if err != nil {
			return fmt.Errorf("meshdb: seeding packet_types: %w", err)
		}
	}
	return nil
}

// UpsertNode inserts the node on first observation of its id and
// otherwise overwrites only the fields the event supplies: a
// reception that carries just an id and a timestamp must not blank a
// previously learned name or position. tracestart is set when first
// learned and never overwritten.
func (s *Store) UpsertNode(ctx context.Context, event meshlog.NodeInfoEvent) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("meshdb: upsert node: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("meshdb: upsert node: begin: %w", err)
	}
	defer endTransaction(&err)

	// NULL-bound parameters mean "not supplied": COALESCE keeps the
	// stored value on update, and the VALUES row falls back to the
	// column defaults on insert.
	var shortName, longName, seen, latitude, longitude, role, hardware, traceStart any
	if event.HasNames {
		shortName = event.ShortName
		longName = event.LongName
	}
	if event.Seen > 0 {
		seen = event.Seen
	}
	if event.HasPosition {
		latitude = event.Latitude
		longitude = event.Longitude
	}
	if event.HasRole {
		role = event.Role
		hardware = event.Hardware
	}
	if event.TraceStart && event.Seen > 0 {
		traceStart = event.Seen
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO nodes (id, shortname, longname, seen, latitude, longitude, tracestart, role, hardware)
		VALUES (:id, :shortname, :longname, :seen, :latitude, :longitude,
		        COALESCE(:tracestart, 0), COALESCE(:role, 0), COALESCE(:hardware, 0))
		ON CONFLICT(id) DO UPDATE SET
			shortname  = COALESCE(:shortname, shortname),
			longname   = COALESCE(:longname, longname),
			seen       = COALESCE(:seen, seen),
			latitude   = COALESCE(:latitude, latitude),
			longitude  = COALESCE(:longitude, longitude),
			tracestart = CASE
				WHEN IFNULL(tracestart, 0) = 0 AND :tracestart IS NOT NULL THEN :tracestart
				ELSE tracestart
			END,
			role     = COALESCE(:role, role),
			hardware = COALESCE(:hardware, hardware)`,
		&sqlitex.ExecOptions{Named: map[string]any{
			":id":         int64(event.ID),
			":shortname":  shortName,
			":longname":   longName,
			":seen":       seen,
			":latitude":   latitude,
			":longitude":  longitude,
			":tracestart": traceStart,
			":role":       role,
			":hardware":   hardware,
		}})
	if err != nil {
		return fmt.Errorf("meshdb: upsert node %d: %w", event.ID, err)
	}
	return nil
}

// UpsertLink inserts or replaces the row for the (source,
// destination) pair: SNR and seen always take the newest sample, no
// averaging. The insert and the link-table sweep commit together.
func (s *Store) UpsertLink(ctx context.Context, event meshlog.LinkEvent) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("meshdb: upsert link: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("meshdb: upsert link: begin: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO links (source, destination, snr, seen) VALUES (?, ?, ?, ?)
		ON CONFLICT(source, destination) DO UPDATE SET
			snr  = excluded.snr,
			seen = excluded.seen`,
		&sqlitex.ExecOptions{Args: []any{
			int64(event.Source), int64(event.Destination), event.SNR, event.Seen,
		}})
	if err != nil {
		return fmt.Errorf("meshdb: upsert link %d->%d: %w", event.Source, event.Destination, err)
	}

	return s.sweepLinks(conn)
}

// RecordPacket appends one traffic record. Duplicates from
// re-observation are acceptable; nothing deduplicates. The insert and
// the packet-table sweep commit together.
func (s *Store) RecordPacket(ctx context.Context, event meshlog.PacketEvent) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("meshdb: record packet: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("meshdb: record packet: begin: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		"INSERT INTO packets (source, type, time) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{int64(event.Source), event.Port, event.Time}})
	if err != nil {
		return fmt.Errorf("meshdb: record packet from %d: %w", event.Source, err)
	}

	return s.sweepPackets(conn)
}

// sweepLinks deletes link rows that have aged past LinkRetention.
// Runs on every link insert, inside the insert's transaction, so the
// table is bounded continuously without a background scheduler. The
// sweep is scoped to the table just written: a link insert never
// touches the packets table.
func (s *Store) sweepLinks(conn *sqlite.Conn) error {
	cutoff := s.clock.Now().Unix() - int64(LinkRetention/time.Second)
	err := sqlitex.Execute(conn,
		"DELETE FROM links WHERE seen < ?",
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return fmt.Errorf("meshdb: sweeping links: %w", err)
	}
	if expired := conn.Changes(); expired > 0 {
		s.logger.Debug("links expired", "count", expired)
	}
	return nil
}

// sweepPackets deletes packet rows that have aged past
// PacketRetention. Same per-insert model as sweepLinks.
func (s *Store) sweepPackets(conn *sqlite.Conn) error {
	cutoff := s.clock.Now().Unix() - int64(PacketRetention/time.Second)
	err := sqlitex.Execute(conn,
		"DELETE FROM packets WHERE time < ?",
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return fmt.Errorf("meshdb: sweeping packets: %w", err)
	}
	if expired := conn.Changes(); expired > 0 {
		s.logger.Debug("packets expired", "count", expired)
	}
	return nil
}

// Apply routes one domain event to its store operation.
func (s *Store) Apply(ctx context.Context, event meshlog.DomainEvent) error {
	switch typed := event.(type) {
	case meshlog.NodeInfoEvent:
		return s.UpsertNode(ctx, typed)
	case meshlog.LinkEvent:
		return s.UpsertLink(ctx, typed)
	case meshlog.PacketEvent:
		return s.RecordPacket(ctx, typed)
	default:
		return fmt.Errorf("meshdb: unknown event type %T", event)
	}
}

// joinConditions builds a WHERE clause from optional conditions.
// Returns the empty string when there are none.
func joinConditions(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}
