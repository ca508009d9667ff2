package candidates

import (
	"testing"

	"github.com/banshee-data/trackmatch/internal/scoring"
)

func TestBuildGatesDistance(t *testing.T) {
	arpa := []PlanarObservation{{ID: "a1", X: 0, Y: 0, TimeS: 0}}
	ais := []PlanarObservation{{ID: "i1", X: 10000, Y: 0, TimeS: 0}}
	gates := Gates{GatingDistanceM: 8000, TimeGateS: 1800}
	got := Build(arpa, ais, gates, scoring.DefaultConfig(), nil)
	if len(got) != 0 {
		t.Fatalf("expected 0 candidates beyond gating distance, got %d", len(got))
	}
}

func TestBuildExactlyAtGateIsAccepted(t *testing.T) {
	arpa := []PlanarObservation{{ID: "a1", X: 0, Y: 0, TimeS: 0}}
	ais := []PlanarObservation{{ID: "i1", X: 8000, Y: 0, TimeS: 1800}}
	gates := Gates{GatingDistanceM: 8000, TimeGateS: 1800}
	got := Build(arpa, ais, gates, scoring.DefaultConfig(), nil)
	if len(got) != 1 {
		t.Fatalf("expected exactly-at-gate pair to be accepted, got %d candidates", len(got))
	}
}

func TestBuildEnumeratesAllPairs(t *testing.T) {
	arpa := []PlanarObservation{{ID: "a1"}, {ID: "a2"}}
	ais := []PlanarObservation{{ID: "i1"}, {ID: "i2"}}
	gates := Gates{GatingDistanceM: 1e9, TimeGateS: 1e9}
	got := Build(arpa, ais, gates, scoring.DefaultConfig(), nil)
	if len(got) != 4 {
		t.Fatalf("expected 4 candidates (2x2), got %d", len(got))
	}
}

func TestBuildMissingHeadingContributesZero(t *testing.T) {
	arpa := []PlanarObservation{{ID: "a1", HeadingDeg: 0}}
	ais := []PlanarObservation{{ID: "i1", HeadingDeg: 0}}
	gates := Gates{GatingDistanceM: 1e9, TimeGateS: 1e9}
	got := Build(arpa, ais, gates, scoring.DefaultConfig(), nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Features.HeadingDiffDeg != 0 {
		t.Errorf("zero headings should diff to 0, got %f", got[0].Features.HeadingDiffDeg)
	}
}
