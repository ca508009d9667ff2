package geo

import (
	"math"
	"testing"
)

func TestUtmZoneForSplitsHemisphere(t *testing.T) {
	zone, northern, epsg, err := utmZoneFor(-1.279656, 116.809655)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantZone := int(math.Floor((116.809655+180.0)/6.0)) + 1
	if zone != wantZone {
		t.Errorf("zone = %d, want %d", zone, wantZone)
	}
	if northern {
		t.Errorf("expected southern hemisphere for lat=-1.28")
	}
	if epsg != 32700+wantZone {
		t.Errorf("epsg = %d, want %d", epsg, 32700+wantZone)
	}
}

func TestUtmZoneOutOfRange(t *testing.T) {
	if _, _, _, err := utmZoneFor(95, 0); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
}

func TestProjectSiteIsOrigin(t *testing.T) {
	ctx, err := NewContext(-1.279656, 116.809655, ProjectionUTM)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	x, y := ctx.Project(-1.279656, 116.809655)
	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("site should project to (0,0), got (%f,%f)", x, y)
	}
}

func TestProjectNearbyDistance(t *testing.T) {
	// Scenario A from spec §8: AIS at (-1.280, 116.810) vs site
	// (-1.279656, 116.809655) should be roughly tens of meters away.
	ctx, err := NewContext(-1.279656, 116.809655, ProjectionUTM)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	x, y := ctx.Project(-1.280, 116.810)
	d := math.Hypot(x, y)
	if d < 10 || d > 100 {
		t.Errorf("expected distance in [10,100]m, got %f", d)
	}
}

func TestEquirectFallback(t *testing.T) {
	ctx, err := NewContext(0, 0, ProjectionEquirect)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	x, y := ctx.Project(1, 1)
	if math.Abs(y-metersPerDegLat) > 1 {
		t.Errorf("y = %f, want ~%f", y, metersPerDegLat)
	}
	if math.Abs(x-metersPerDegLat) > 1 {
		t.Errorf("x = %f, want ~%f (cos(0)=1)", x, metersPerDegLat)
	}
}

func TestAngleDiffSymmetricAndBounded(t *testing.T) {
	cases := [][2]float64{{0, 350}, {10, 370}, {180, 0}, {45, 45}}
	for _, c := range cases {
		d1 := AngleDiff(c[0], c[1])
		d2 := AngleDiff(c[1], c[0])
		if d1 != d2 {
			t.Errorf("AngleDiff(%v,%v)=%f != AngleDiff(%v,%v)=%f", c[0], c[1], d1, c[1], c[0], d2)
		}
		if d1 < 0 || d1 > 180 {
			t.Errorf("AngleDiff(%v,%v)=%f out of [0,180]", c[0], c[1], d1)
		}
	}
}

func TestKnotsToMpsExact(t *testing.T) {
	got := KnotsToMps(1.0)
	want := 0.514444
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("KnotsToMps(1) = %f, want %f", got, want)
	}
}

func TestKnotsToMpsNaN(t *testing.T) {
	if got := KnotsToMps(math.NaN()); got != 0 {
		t.Errorf("KnotsToMps(NaN) = %f, want 0", got)
	}
}

func TestParseTimeSVariants(t *testing.T) {
	if got := ParseTimeS(float64(1700000000)); got != 1700000000 {
		t.Errorf("epoch float: got %f", got)
	}
	if got := ParseTimeS("2023-11-14T22:13:20Z"); got != 1700000000 {
		t.Errorf("ISO8601: got %f, want 1700000000", got)
	}
	if got := ParseTimeS("not-a-time"); got != 0 {
		t.Errorf("invalid string should yield 0, got %f", got)
	}
	if got := ParseTimeS(nil); got != 0 {
		t.Errorf("nil should yield 0, got %f", got)
	}
}

func TestMeanLatLon(t *testing.T) {
	lat, lon := MeanLatLon([][2]float64{{0, 0}, {2, 4}})
	if lat != 1 || lon != 2 {
		t.Errorf("MeanLatLon = (%f,%f), want (1,2)", lat, lon)
	}
	if lat, lon := MeanLatLon(nil); lat != 0 || lon != 0 {
		t.Errorf("MeanLatLon(nil) = (%f,%f), want (0,0)", lat, lon)
	}
}
