// Package datastore defines the columnar-store fetch interface spec
// §6 describes, plus a concrete SQLite-backed implementation so the
// matching engine can run standalone.
package datastore

import (
	"context"
	"time"
)

// BBox is an axis-aligned bounding box in geodetic degrees.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether (lat, lon) falls within the box, inclusive.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// AISRow mirrors spec §6's AIS query row shape.
type AISRow struct {
	MMSI       string
	ShipName   string
	Lat        float64
	Lng        float64
	SOG        float64
	COG        float64
	Heading    float64
	TS         time.Time
	ReceivedAt time.Time
}

// ARPARow mirrors spec §6's ARPA query row shape. DistanceNm/Bearing
// are optional measured-from-site fields; the core converts
// DistanceNm*1852 to meters for r_meas_m.
type ARPARow struct {
	Target     string
	Lat        float64
	Lng        float64
	Speed      float64
	Course     float64
	DistanceNm float64
	HasDistance bool
	Bearing    float64
	HasBearing bool
	RecvAt     time.Time
	ReceivedAt time.Time
}

// Store is the data-store interface consumed by the Matching
// Orchestrator (spec §4.6 step 2, §6 "Data-store interface consumed
// from §4.6").
type Store interface {
	FetchAIS(ctx context.Context, box BBox, since time.Time) ([]AISRow, error)
	FetchARPA(ctx context.Context, box BBox, since time.Time) ([]ARPARow, error)
}
