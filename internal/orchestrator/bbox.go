package orchestrator

import (
	"math"

	"github.com/banshee-data/trackmatch/internal/datastore"
)

// Polygon is the outer ring of a GeoJSON Polygon, as [lon, lat] pairs,
// per spec §3's Viewshed Message entity ("the first (outer) ring is
// used").
type Polygon [][2]float64

// BBoxFromPolygon computes the axis-aligned bounding box of a
// polygon's outer ring (spec §4.6 step 1).
func BBoxFromPolygon(p Polygon) datastore.BBox {
	box := datastore.BBox{MinLat: math.Inf(1), MaxLat: math.Inf(-1), MinLon: math.Inf(1), MaxLon: math.Inf(-1)}
	for _, pt := range p {
		lon, lat := pt[0], pt[1]
		if lat < box.MinLat {
			box.MinLat = lat
		}
		if lat > box.MaxLat {
			box.MaxLat = lat
		}
		if lon < box.MinLon {
			box.MinLon = lon
		}
		if lon > box.MaxLon {
			box.MaxLon = lon
		}
	}
	return box
}

// BBoxFromSiteRadius derives a bbox from a site point and a radius in
// kilometers, using the approximate degrees-per-km factors
// original_source/app/controllers/matching_controller.py uses
// (1 deg lat ~= 111 km; 1 deg lon ~= 111 km * cos(site_lat)).
func BBoxFromSiteRadius(siteLat, siteLon, radiusKm float64) datastore.BBox {
	const kmPerDegLat = 111.0
	dLat := radiusKm / kmPerDegLat
	cosLat := math.Cos(siteLat * math.Pi / 180.0)
	if math.Abs(cosLat) < 1e-9 {
		cosLat = 1e-9
	}
	dLon := radiusKm / (kmPerDegLat * math.Abs(cosLat))

	return datastore.BBox{
		MinLat: siteLat - dLat,
		MaxLat: siteLat + dLat,
		MinLon: siteLon - dLon,
		MaxLon: siteLon + dLon,
	}
}

// PointInPolygon performs a ray-casting point-in-polygon test on the
// outer ring, per spec §4.6 step 3. lat/lon are in degrees.
func PointInPolygon(p Polygon, lat, lon float64) bool {
	inside := false
	n := len(p)
	if n < 3 {
		return false
	}
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := p[i][0], p[i][1]
		xj, yj := p[j][0], p[j][1]
		intersects := ((yi > lat) != (yj > lat)) &&
			(lon < (xj-xi)*(lat-yi)/(yj-yi)+xi)
		if intersects {
			inside = !inside
		}
		j = i
	}
	return inside
}
