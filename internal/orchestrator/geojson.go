package orchestrator

// GeoJSON FeatureCollection types, hand-built per spec §4.6 step 7's
// "geojson" output — no GeoJSON library appears anywhere in the
// retrieved example pack, so this mirrors
// original_source/app/controllers/matching_controller.py's own
// build_geojson, which likewise hand-builds the dict.

type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// buildGeoJSON assembles one Point feature for the AIS location, one
// Point feature for the ARPA location, and one LineString connecting
// them, per matched pair, each carrying score and ids in properties.
func buildGeoJSON(matches []matchedPairDetail) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection"}
	for _, m := range matches {
		props := map[string]any{
			"arpa_id": m.ArpaID,
			"ais_id":  m.AisID,
			"score":   m.Score,
		}

		fc.Features = append(fc.Features,
			Feature{
				Type:     "Feature",
				Geometry: Geometry{Type: "Point", Coordinates: []float64{m.AisLon, m.AisLat}},
				Properties: mergeProps(props, map[string]any{
					"role": "ais",
					"lat":  m.AisLat,
					"lon":  m.AisLon,
					"lng":  m.AisLng,
				}),
			},
			Feature{
				Type:     "Feature",
				Geometry: Geometry{Type: "Point", Coordinates: []float64{m.ArpaLon, m.ArpaLat}},
				Properties: mergeProps(props, map[string]any{
					"role": "arpa",
					"lat":  m.ArpaLat,
					"lon":  m.ArpaLon,
					"lng":  m.ArpaLng,
				}),
			},
			Feature{
				Type: "Feature",
				Geometry: Geometry{Type: "LineString", Coordinates: [][]float64{
					{m.AisLon, m.AisLat},
					{m.ArpaLon, m.ArpaLat},
				}},
				Properties: mergeProps(props, map[string]any{
					"role":     "link",
					"ais_lat":  m.AisLat,
					"ais_lon":  m.AisLon,
					"ais_lng":  m.AisLng,
					"arpa_lat": m.ArpaLat,
					"arpa_lon": m.ArpaLon,
					"arpa_lng": m.ArpaLng,
				}),
			},
		)
	}
	return fc
}

func mergeProps(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
