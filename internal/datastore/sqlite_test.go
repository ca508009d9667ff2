package datastore

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreFetchAISWithinBBoxAndSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	must(s.InsertAIS(ctx, AISRow{MMSI: "111", Lat: -1.28, Lng: 116.81, SOG: 5, TS: now, ReceivedAt: now}))
	must(s.InsertAIS(ctx, AISRow{MMSI: "222", Lat: 50, Lng: 50, SOG: 5, TS: now, ReceivedAt: now}))
	must(s.InsertAIS(ctx, AISRow{MMSI: "333", Lat: -1.28, Lng: 116.81, SOG: 5, TS: now.Add(-time.Hour), ReceivedAt: now}))

	box := BBox{MinLat: -2, MaxLat: 0, MinLon: 116, MaxLon: 117}
	rows, err := s.FetchAIS(ctx, box, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("FetchAIS: %v", err)
	}
	if len(rows) != 1 || rows[0].MMSI != "111" {
		t.Fatalf("expected exactly mmsi 111, got %+v", rows)
	}
}

func TestSQLiteStoreFetchARPAOptionalFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.InsertARPA(ctx, ARPARow{Target: "T1", Lat: -1.28, Lng: 116.81, Speed: 5, RecvAt: now, ReceivedAt: now}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertARPA(ctx, ARPARow{Target: "T2", Lat: -1.28, Lng: 116.81, Speed: 5, DistanceNm: 1.5, HasDistance: true, Bearing: 90, HasBearing: true, RecvAt: now, ReceivedAt: now}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	box := BBox{MinLat: -2, MaxLat: 0, MinLon: 116, MaxLon: 117}
	rows, err := s.FetchARPA(ctx, box, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("FetchARPA: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Target == "T1" && r.HasDistance {
			t.Error("T1 should have no distance set")
		}
		if r.Target == "T2" && !r.HasDistance {
			t.Error("T2 should have distance set")
		}
	}
}

func TestBBoxContains(t *testing.T) {
	b := BBox{MinLat: 0, MaxLat: 10, MinLon: 0, MaxLon: 10}
	if !b.Contains(5, 5) {
		t.Error("expected (5,5) to be contained")
	}
	if b.Contains(20, 20) {
		t.Error("expected (20,20) to be outside")
	}
	if !b.Contains(0, 0) || !b.Contains(10, 10) {
		t.Error("boundary points should be inclusive")
	}
}
