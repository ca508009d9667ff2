package datastore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the default concrete Store implementation: a pure-Go
// SQLite database holding recently-ingested AIS/ARPA rows, migrated
// with golang-migrate at startup. Grounded on this codebase's own
// internal/db package (embed.FS schema + modernc.org/sqlite driver +
// golang-migrate wiring), with the radar-specific schema replaced by
// the ais_observations/arpa_observations tables spec §3 describes.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite database at
// path and migrates it to the latest schema version.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("datastore: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("datastore: migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("datastore: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("datastore: migration instance: %w", err)
	}
	m.Log = migrateLogger{}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("datastore: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the underlying connection for tools that need raw SQL
// access (the admin debug console's read-only SQL browser).
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// InsertAIS inserts one AIS row, used by ingest paths and tests.
func (s *SQLiteStore) InsertAIS(ctx context.Context, r AISRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ais_observations (mmsi, ship_name, lat, lng, sog, cog, heading, ts, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MMSI, r.ShipName, r.Lat, r.Lng, r.SOG, r.COG, r.Heading, r.TS.Unix(), r.ReceivedAt.Unix())
	return err
}

// InsertARPA inserts one ARPA row, used by ingest paths and tests.
func (s *SQLiteStore) InsertARPA(ctx context.Context, r ARPARow) error {
	var distance, bearing sql.NullFloat64
	if r.HasDistance {
		distance = sql.NullFloat64{Float64: r.DistanceNm, Valid: true}
	}
	if r.HasBearing {
		bearing = sql.NullFloat64{Float64: r.Bearing, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO arpa_observations (target, lat, lng, speed, course, distance_nm, bearing, recv_at, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Target, r.Lat, r.Lng, r.Speed, r.Course, distance, bearing, r.RecvAt.Unix(), r.ReceivedAt.Unix())
	return err
}

// FetchAIS implements Store.
func (s *SQLiteStore) FetchAIS(ctx context.Context, box BBox, since time.Time) ([]AISRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mmsi, ship_name, lat, lng, sog, cog, heading, ts, received_at
		FROM ais_observations
		WHERE ts > ? AND lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`,
		since.Unix(), box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, fmt.Errorf("datastore: fetch ais: %w", err)
	}
	defer rows.Close()

	var out []AISRow
	for rows.Next() {
		var r AISRow
		var shipName sql.NullString
		var sog, cog, heading sql.NullFloat64
		var ts, receivedAt int64
		if err := rows.Scan(&r.MMSI, &shipName, &r.Lat, &r.Lng, &sog, &cog, &heading, &ts, &receivedAt); err != nil {
			return nil, fmt.Errorf("datastore: scan ais row: %w", err)
		}
		r.ShipName = shipName.String
		r.SOG = sog.Float64
		r.COG = cog.Float64
		r.Heading = heading.Float64
		r.TS = time.Unix(ts, 0).UTC()
		r.ReceivedAt = time.Unix(receivedAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// FetchARPA implements Store.
func (s *SQLiteStore) FetchARPA(ctx context.Context, box BBox, since time.Time) ([]ARPARow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target, lat, lng, speed, course, distance_nm, bearing, recv_at, received_at
		FROM arpa_observations
		WHERE recv_at > ? AND lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`,
		since.Unix(), box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, fmt.Errorf("datastore: fetch arpa: %w", err)
	}
	defer rows.Close()

	var out []ARPARow
	for rows.Next() {
		var r ARPARow
		var speed, course, distance, bearing sql.NullFloat64
		var recvAt, receivedAt int64
		if err := rows.Scan(&r.Target, &r.Lat, &r.Lng, &speed, &course, &distance, &bearing, &recvAt, &receivedAt); err != nil {
			return nil, fmt.Errorf("datastore: scan arpa row: %w", err)
		}
		r.Speed = speed.Float64
		r.Course = course.Float64
		if distance.Valid {
			r.DistanceNm = distance.Float64
			r.HasDistance = true
		}
		if bearing.Valid {
			r.Bearing = bearing.Float64
			r.HasBearing = true
		}
		r.RecvAt = time.Unix(recvAt, 0).UTC()
		r.ReceivedAt = time.Unix(receivedAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
