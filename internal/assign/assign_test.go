package assign

import (
	"testing"

	"github.com/banshee-data/trackmatch/internal/candidates"
)

func cand(arpa, ais string, score float64) candidates.Candidate {
	return candidates.Candidate{ArpaID: arpa, AisID: ais, STotal: score}
}

func TestOptimalAcceptsAboveThreshold(t *testing.T) {
	cands := []candidates.Candidate{cand("A1", "I1", 0.95)}
	res := Optimal{}.Assign(cands, []string{"A1"}, []string{"I1"}, 0.8)
	if len(res.Matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Matched))
	}
	if res.Matched[0].Score < 0.8 {
		t.Errorf("matched score %f below threshold", res.Matched[0].Score)
	}
}

func TestOptimalExactlyAtThresholdAccepted(t *testing.T) {
	cands := []candidates.Candidate{cand("A1", "I1", 0.5)}
	res := Optimal{}.Assign(cands, []string{"A1"}, []string{"I1"}, 0.5)
	if len(res.Matched) != 1 {
		t.Fatalf("exactly-at-threshold pair should be accepted, got %d matches", len(res.Matched))
	}
}

func TestOptimalNoCandidatesYieldsAllUnmatched(t *testing.T) {
	res := Optimal{}.Assign(nil, []string{"A1", "A2"}, []string{"I1"}, 0.5)
	if len(res.Matched) != 0 {
		t.Fatalf("expected 0 matches, got %d", len(res.Matched))
	}
	if len(res.UnmatchedArpa) != 2 || len(res.UnmatchedAis) != 1 {
		t.Errorf("expected all ids unmatched, got arpa=%v ais=%v", res.UnmatchedArpa, res.UnmatchedAis)
	}
}

func TestOptimalOneToOneBijection(t *testing.T) {
	cands := []candidates.Candidate{
		cand("A1", "I1", 0.9),
		cand("A1", "I2", 0.9),
		cand("A2", "I1", 0.9),
	}
	res := Optimal{}.Assign(cands, []string{"A1", "A2"}, []string{"I1", "I2"}, 0.5)
	seenArpa := map[string]bool{}
	seenAis := map[string]bool{}
	for _, m := range res.Matched {
		if seenArpa[m.ArpaID] {
			t.Errorf("arpa id %s matched more than once", m.ArpaID)
		}
		if seenAis[m.AisID] {
			t.Errorf("ais id %s matched more than once", m.AisID)
		}
		seenArpa[m.ArpaID] = true
		seenAis[m.AisID] = true
	}
}

// TestScenarioCCompetingCandidatesForceOneToOne mirrors spec §8
// Scenario C: a 2x2 where greedy settles for a locally-best pick that
// leaves one side unmatched or scores lower overall, while the optimal
// Hungarian solver finds the globally better one-to-one assignment.
func TestScenarioCCompetingCandidatesForceOneToOne(t *testing.T) {
	cands := []candidates.Candidate{
		cand("A1", "I1", 0.9), // greedy's first pick
		cand("A1", "I2", 0.7),
		cand("A2", "I1", 0.8),
		cand("A2", "I2", 0.1), // far worse, so greedy can't recover A2 once I1 is taken
	}
	arpaIDs := []string{"A1", "A2"}
	aisIDs := []string{"I1", "I2"}

	optimal := Optimal{}.Assign(cands, arpaIDs, aisIDs, 0.5)
	greedy := Greedy{}.Assign(cands, arpaIDs, aisIDs, 0.5)

	if len(optimal.Matched) != 2 {
		t.Fatalf("expected optimal to match both arpa ids, got %d", len(optimal.Matched))
	}

	var optimalTotal, greedyTotal float64
	for _, m := range optimal.Matched {
		optimalTotal += m.Score
	}
	for _, m := range greedy.Matched {
		greedyTotal += m.Score
	}

	if greedyTotal >= optimalTotal {
		t.Errorf("greedy fallback total (%f) should be strictly lower than optimal total (%f)", greedyTotal, optimalTotal)
	}
}

func TestRectangularPaddingNeverAccepted(t *testing.T) {
	// 1 arpa, 2 ais: padding must not manufacture a phantom match.
	cands := []candidates.Candidate{cand("A1", "I1", 0.9)}
	res := Optimal{}.Assign(cands, []string{"A1"}, []string{"I1", "I2"}, 0.5)
	if len(res.Matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Matched))
	}
	if len(res.UnmatchedAis) != 1 || res.UnmatchedAis[0] != "I2" {
		t.Errorf("expected I2 unmatched, got %v", res.UnmatchedAis)
	}
}
