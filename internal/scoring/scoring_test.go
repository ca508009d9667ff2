package scoring

import (
	"math"
	"testing"
)

func TestGaussianExactForm(t *testing.T) {
	// exp(-(x/sigma)^2), not exp(-x^2/2).
	got := gaussian(10, 10)
	want := math.Exp(-1)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("gaussian(10,10) = %f, want %f", got, want)
	}
}

func TestGaussianZeroSigmaDisables(t *testing.T) {
	if got := gaussian(5, 0); got != 0 {
		t.Errorf("gaussian with zero sigma = %f, want 0", got)
	}
}

func TestScoreScenarioA(t *testing.T) {
	// Scenario A from spec §8: d_m ~= 15m, dtheta_deg = 1, dt_s = 1,
	// default sigmas, expect score > 0.9.
	cfg := DefaultConfig()
	f := Features{
		DistanceM:      15,
		SpeedDiffMs:    0.1 * 0.514444, // ~0.1 knot difference
		HeadingDiffDeg: 1,
		TimeDiffS:      1,
	}
	_, total := Score(f, cfg)
	if total <= 0.9 {
		t.Errorf("total score = %f, want > 0.9", total)
	}
}

func TestScoreOptionalChannelsDisabledByDefault(t *testing.T) {
	cfg := DefaultConfig()
	f := Features{HasRange: true, RangeErrorM: 5, HasBrgGeo: true, BrgGeoErrorDeg: 5}
	sub, _ := Score(f, cfg)
	if sub.Range != 0 || sub.BrgGeo != 0 {
		t.Errorf("optional channels should be 0 when sigma is 0, got range=%f brg=%f", sub.Range, sub.BrgGeo)
	}
}

func TestScoreDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	f := Features{DistanceM: 100, SpeedDiffMs: 1, HeadingDiffDeg: 10, TimeDiffS: 5}
	_, t1 := Score(f, cfg)
	_, t2 := Score(f, cfg)
	if t1 != t2 {
		t.Errorf("score not deterministic: %f != %f", t1, t2)
	}
}
