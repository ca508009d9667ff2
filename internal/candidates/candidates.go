// Package candidates enumerates admissible ARPA×AIS pairs, applying
// distance and time gates before attaching scores from the Scorer.
package candidates

import (
	"math"

	"github.com/banshee-data/trackmatch/internal/geo"
	"github.com/banshee-data/trackmatch/internal/scoring"
)

// PlanarObservation is a projected observation ready for scoring: x/y
// in meters relative to the site, speed in m/s, heading in degrees
// (0=N, clockwise), and a Unix-seconds timestamp. Optional range/
// bearing fields support the ARPA geo-bearing channel.
type PlanarObservation struct {
	ID        string
	X, Y      float64
	SpeedMs   float64
	HeadingDeg float64
	TimeS     float64

	HasRangeM   bool
	RangeM      float64
	HasBearing  bool
	BearingDeg  float64
}

// Gates bounds the admissible distance and time difference for a
// candidate pair.
type Gates struct {
	GatingDistanceM float64
	TimeGateS       float64
}

// Candidate is one admissible (ARPA, AIS) pair with its feature vector
// and sub-scores, per spec §3's Candidate entity.
type Candidate struct {
	ArpaID string
	AisID  string

	Features  scoring.Features
	SubScores scoring.SubScores
	STotal    float64
}

// Build enumerates all (arpa, ais) pairs, computing features and
// scores, and emits a Candidate for every pair whose distance and time
// gates are both satisfied (inclusive: exactly-at-gate is accepted,
// per spec §8's boundary behavior).
//
// Complexity is O(|arpa| * |ais|); the caller bounds input sizes via
// the fetch limit (spec §4.3).
func Build(arpa, ais []PlanarObservation, gates Gates, cfg scoring.Config, scorer scoring.Scorer) []Candidate {
	if scorer == nil {
		scorer = scoring.Gaussian{}
	}
	out := make([]Candidate, 0, len(arpa)*len(ais))
	for _, a := range arpa {
		for _, i := range ais {
			d := math.Hypot(a.X-i.X, a.Y-i.Y)
			dt := math.Abs(a.TimeS - i.TimeS)
			if d > gates.GatingDistanceM || dt > gates.TimeGateS {
				continue
			}

			f := scoring.Features{
				DistanceM:      d,
				SpeedDiffMs:    math.Abs(a.SpeedMs - i.SpeedMs),
				HeadingDiffDeg: geo.AngleDiff(a.HeadingDeg, i.HeadingDeg),
				TimeDiffS:      dt,
			}
			if a.HasRangeM && i.HasRangeM {
				f.HasRange = true
				f.RangeErrorM = math.Abs(a.RangeM - i.RangeM)
			}
			if a.HasBearing && i.HasBearing {
				f.HasBrgGeo = true
				f.BrgGeoErrorDeg = geo.AngleDiff(a.BearingDeg, i.BearingDeg)
			}

			sub, total := scorer.Score(f, cfg)
			out = append(out, Candidate{
				ArpaID:    a.ID,
				AisID:     i.ID,
				Features:  f,
				SubScores: sub,
				STotal:    total,
			})
		}
	}
	return out
}
