// Package geo converts geodetic coordinates into a local planar metric
// frame and provides the small set of angle/unit helpers the matching
// engine needs to compare AIS and ARPA observations.
package geo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrZoneOutOfRange is returned when a UTM zone cannot be derived for a
// given site latitude/longitude, per spec §4.1's "out-of-range
// latitude" clause. Callers treat this as a fatal startup error.
var ErrZoneOutOfRange = errors.New("geo: latitude out of range for UTM zone derivation")

const (
	metersPerDegLat = 111320.0
	knotsToMps      = 0.514444

	// WGS84 ellipsoid parameters.
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
)

// Projection identifiers accepted in configuration.
const (
	ProjectionUTM      = "utm"
	ProjectionEquirect = "equirect"
)

// Context is the immutable projection context created once at startup
// from a configured site location.
type Context struct {
	siteLat    float64
	siteLon    float64
	projection string // "utm" or "equirect"
	zone       int
	northern   bool
	epsg       int
}

// NewContext builds a Context for the given site and requested
// projection identifier ("utm" or "equirect"). An empty projection
// defaults to "utm". Zone derivation failure is the only fatal error.
func NewContext(siteLat, siteLon float64, projection string) (*Context, error) {
	if projection == "" {
		projection = ProjectionUTM
	}
	c := &Context{siteLat: siteLat, siteLon: siteLon, projection: projection}
	if projection == ProjectionUTM {
		zone, northern, epsg, err := utmZoneFor(siteLat, siteLon)
		if err != nil {
			return nil, err
		}
		c.zone, c.northern, c.epsg = zone, northern, epsg
	}
	return c, nil
}

// EPSG returns the EPSG code in use, or 0 for the equirectangular
// fallback (which has no EPSG code).
func (c *Context) EPSG() int { return c.epsg }

// Zone returns the UTM zone number, or 0 when using the
// equirectangular fallback.
func (c *Context) Zone() int { return c.zone }

// Projection reports the active projection identifier.
func (c *Context) Projection() string { return c.projection }

func utmZoneFor(lat, lon float64) (zone int, northern bool, epsg int, err error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, false, 0, fmt.Errorf("%w: lat=%f lon=%f", ErrZoneOutOfRange, lat, lon)
	}
	zone = int(math.Floor((lon+180.0)/6.0)) + 1
	northern = lat >= 0
	if northern {
		epsg = 32600 + zone
	} else {
		epsg = 32700 + zone
	}
	return zone, northern, epsg, nil
}

// Project converts a geodetic point to planar (x, y) meters relative
// to the configured site. For UTM it uses a closed-form transverse
// Mercator forward projection on WGS84; for equirect it uses the
// meters-per-degree approximation from spec §4.1.
func (c *Context) Project(latDeg, lonDeg float64) (x, y float64) {
	if c.projection == ProjectionEquirect {
		return c.equirect(latDeg, lonDeg)
	}
	return c.utmForward(latDeg, lonDeg)
}

func (c *Context) equirect(latDeg, lonDeg float64) (x, y float64) {
	mPerDegLon := metersPerDegLat * math.Cos(degToRad(c.siteLat))
	x = (lonDeg - c.siteLon) * mPerDegLon
	y = (latDeg - c.siteLat) * metersPerDegLat
	return x, y
}

// utmForward projects latDeg/lonDeg into the context's UTM zone and
// returns coordinates relative to the site's own UTM position, so the
// result is directly comparable to distances in meters around the
// site regardless of standard UTM false-easting/northing offsets.
func (c *Context) utmForward(latDeg, lonDeg float64) (x, y float64) {
	sx, sy := utmEN(c.siteLat, c.siteLon, c.zone)
	px, py := utmEN(latDeg, lonDeg, c.zone)
	return px - sx, py - sy
}

// utmEN computes the transverse Mercator easting/northing for a point
// within the given UTM zone, using the standard k0=0.9996 central
// scale factor and a truncated Krüger series sufficient for the
// < ~100 km site radius this system operates within (per spec §1's
// Non-goals on geodesic accuracy beyond that range).
func utmEN(latDeg, lonDeg float64, zone int) (easting, northing float64) {
	const k0 = 0.9996
	a := wgs84A
	f := wgs84F
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	lat := degToRad(latDeg)
	lon := degToRad(lonDeg)
	lon0 := degToRad(float64(zone)*6 - 183)

	n := a / math.Sqrt(1-e2*math.Sin(lat)*math.Sin(lat))
	t := math.Tan(lat) * math.Tan(lat)
	cc := ep2 * math.Cos(lat) * math.Cos(lat)
	aa := math.Cos(lat) * (lon - lon0)

	m := a * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*lat -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*lat) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*lat) -
		(35*e2*e2*e2/3072)*math.Sin(6*lat))

	easting = k0*n*(aa+(1-t+cc)*aa*aa*aa/6+
		(5-18*t+t*t+72*cc-58*ep2)*aa*aa*aa*aa*aa/120) + 500000.0

	northing = k0 * (m + n*math.Tan(lat)*(aa*aa/2+
		(5-t+9*cc+4*cc*cc)*aa*aa*aa*aa/24+
		(61-58*t+t*t+600*cc-330*ep2)*aa*aa*aa*aa*aa*aa/720))

	return easting, northing
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }
func radToDeg(r float64) float64 { return r * 180.0 / math.Pi }

// Azimuth computes the standard spherical initial bearing from point 1
// to point 2, normalized to [0, 360).
func Azimuth(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := degToRad(lat1)
	phi2 := degToRad(lat2)
	dLon := degToRad(lon2 - lon1)

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	theta := math.Atan2(y, x)
	deg := math.Mod(radToDeg(theta)+360.0, 360.0)
	return deg
}

// AngleDiff returns the minimal angular difference between a and b,
// folded modulo 360 into [0, 180]. Symmetric: AngleDiff(a,b) == AngleDiff(b,a).
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360.0)
	if d > 180.0 {
		d = 360.0 - d
	}
	return d
}

// KnotsToMps converts knots to meters/second. A NaN input yields 0,
// matching original_source/src/geo.py's knots_to_mps behavior.
func KnotsToMps(knots float64) float64 {
	if math.IsNaN(knots) {
		return 0.0
	}
	return knots * knotsToMps
}

// ParseTimeS parses a timestamp value into Unix seconds. It accepts
// ISO-8601 strings (a trailing "Z" is treated as "+00:00"), epoch
// numbers (as float64 or int64), and time.Time values. Invalid input
// yields 0.0 by design: the time gate in the Candidate Builder
// protects against contamination, so a parse failure degrades rather
// than aborts the cycle (spec §4.1 / §7.5).
func ParseTimeS(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0.0
	case float64:
		if math.IsNaN(v) {
			return 0.0
		}
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case time.Time:
		return float64(v.UTC().Unix())
	case string:
		if v == "" {
			return 0.0
		}
		s := v
		if len(s) > 0 && s[len(s)-1] == 'Z' {
			s = s[:len(s)-1] + "+00:00"
		}
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05.999999-07:00",
			"2006-01-02 15:04:05-07:00",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
		} {
			if t, err := time.Parse(layout, s); err == nil {
				return float64(t.UTC().Unix())
			}
		}
		return 0.0
	default:
		return 0.0
	}
}

// MeanLatLon computes the arithmetic mean of a set of geodetic points,
// used when deriving a projection origin from more than one reference
// point. Returns (0, 0) for an empty input.
func MeanLatLon(points [][2]float64) (lat, lon float64) {
	if len(points) == 0 {
		return 0, 0
	}
	latSamples := make([]float64, len(points))
	lonSamples := make([]float64, len(points))
	for i, p := range points {
		latSamples[i] = p[0]
		lonSamples[i] = p[1]
	}
	return meanOf(latSamples), meanOf(lonSamples)
}
