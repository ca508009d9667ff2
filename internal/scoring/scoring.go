// Package scoring computes per-feature similarity kernels and the
// aggregate match score between a planar-projected AIS observation and
// a planar-projected ARPA observation.
package scoring

import "math"

// Config holds the standard deviations and weights used to combine
// feature differences into a single similarity score. Fields mirror
// original_source/src/matching.py's ScoringParams defaults.
type Config struct {
	PosSigmaM     float64
	SpdSigmaMs    float64
	HdgSigmaDeg   float64
	TimeSigmaS    float64
	RangeSigmaM   float64 // 0 disables the optional range channel
	BrgGeoSigmaDeg float64 // 0 disables the optional geo-bearing channel

	WPos    float64
	WSpd    float64
	WHdg    float64
	WTime   float64
	WRange  float64
	WBrgGeo float64
}

// DefaultConfig returns the ScoringParams defaults from
// original_source/src/matching.py (pos_sigma_m=150, spd_sigma_ms=1.5,
// hdg_sigma_deg=20, time_sigma_s=30, w_pos=0.5, w_spd=0.15, w_brg=0.15,
// w_time=0.2; optional range/geo-bearing channels default to 0).
func DefaultConfig() Config {
	return Config{
		PosSigmaM:   150.0,
		SpdSigmaMs:  1.5,
		HdgSigmaDeg: 20.0,
		TimeSigmaS:  30.0,
		WPos:        0.5,
		WSpd:        0.15,
		WHdg:        0.15,
		WTime:       0.2,
	}
}

// Features is the per-pair feature vector computed between one ARPA
// and one AIS observation, already in the planar frame.
type Features struct {
	DistanceM    float64
	SpeedDiffMs  float64
	HeadingDiffDeg float64
	TimeDiffS    float64

	HasRange      bool
	RangeErrorM   float64
	HasBrgGeo     bool
	BrgGeoErrorDeg float64
}

// SubScores holds the Gaussian-kernel score for each feature channel.
type SubScores struct {
	Pos     float64
	Spd     float64
	Hdg     float64
	Time    float64
	Range   float64
	BrgGeo  float64
}

// gaussian implements the exact kernel form spec §4.2 requires:
// exp(-(delta/sigma)^2) — NOT exp(-x^2/2). A zero or negative sigma
// yields a zero sub-score (channel disabled).
func gaussian(delta, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	r := delta / sigma
	return math.Exp(-(r * r))
}

// Score computes the per-feature sub-scores and their weighted-sum
// aggregate for the given feature vector and config.
func Score(f Features, cfg Config) (SubScores, float64) {
	s := SubScores{
		Pos:  gaussian(f.DistanceM, cfg.PosSigmaM),
		Spd:  gaussian(f.SpeedDiffMs, cfg.SpdSigmaMs),
		Hdg:  gaussian(f.HeadingDiffDeg, cfg.HdgSigmaDeg),
		Time: gaussian(f.TimeDiffS, cfg.TimeSigmaS),
	}
	if f.HasRange && cfg.RangeSigmaM > 0 {
		s.Range = gaussian(f.RangeErrorM, cfg.RangeSigmaM)
	}
	if f.HasBrgGeo && cfg.BrgGeoSigmaDeg > 0 {
		s.BrgGeo = gaussian(f.BrgGeoErrorDeg, cfg.BrgGeoSigmaDeg)
	}

	total := cfg.WPos*s.Pos + cfg.WSpd*s.Spd + cfg.WHdg*s.Hdg + cfg.WTime*s.Time +
		cfg.WRange*s.Range + cfg.WBrgGeo*s.BrgGeo
	return s, total
}

// Scorer is the pluggable scoring strategy spec §9's open question
// asks for: the Candidate Builder depends only on this interface, so
// an alternative (e.g. a learned) scorer could be substituted without
// perturbing its contract. Only the Gaussian implementation ships.
type Scorer interface {
	Score(f Features, cfg Config) (SubScores, float64)
}

// Gaussian is the Scorer implementation used throughout this system.
type Gaussian struct{}

// Score implements Scorer.
func (Gaussian) Score(f Features, cfg Config) (SubScores, float64) {
	return Score(f, cfg)
}

var _ Scorer = Gaussian{}
