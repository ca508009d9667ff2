// Package assign solves the one-to-one ARPA<->AIS assignment problem
// over a set of scored candidates, under an acceptance threshold.
package assign

import (
	"sort"

	"github.com/banshee-data/trackmatch/internal/candidates"
)

// MatchedPair is one accepted assignment, per spec §3's Matched Pair
// entity.
type MatchedPair struct {
	ArpaID string
	AisID  string
	Score  float64
	Features  candidates.Candidate
}

// Result is the outcome of an assignment pass.
type Result struct {
	Matched      []MatchedPair
	UnmatchedArpa []string
	UnmatchedAis  []string
}

// Assigner solves the minimum-cost bipartite assignment (or an
// equivalent strategy) over a candidate set.
type Assigner interface {
	Assign(cands []candidates.Candidate, arpaIDs, aisIDs []string, acceptThreshold float64) Result
}

// Optimal solves the assignment via the Hungarian/Jonker-Volgenant
// algorithm (spec §4.4, step 1-2).
type Optimal struct{}

// Greedy is the explicitly non-optimal fallback assigner: iterate
// candidates by descending score, accept each pair whose endpoints are
// still free and whose score meets the threshold (spec §4.4's
// "Fallback" clause). Tests exercising this path must document it, per
// spec's own requirement, since it can produce a strictly lower total
// score than Optimal (spec §8 Scenario C).
type Greedy struct{}

var _ Assigner = Optimal{}
var _ Assigner = Greedy{}

// Assign implements Assigner using the optimal Hungarian solver.
func (Optimal) Assign(cands []candidates.Candidate, arpaIDs, aisIDs []string, acceptThreshold float64) Result {
	arpaIdx := indexOf(arpaIDs)
	aisIdx := indexOf(aisIDs)

	n := len(arpaIDs)
	m := len(aisIDs)
	cost := make([][]float64, n)
	byCell := make(map[[2]int]candidates.Candidate, len(cands))
	for i := range cost {
		cost[i] = make([]float64, m)
		for j := range cost[i] {
			cost[i][j] = forbiddenCost
		}
	}
	for _, c := range cands {
		i, okI := arpaIdx[c.ArpaID]
		j, okJ := aisIdx[c.AisID]
		if !okI || !okJ {
			continue
		}
		cost[i][j] = 1.0 - c.STotal
		byCell[[2]int{i, j}] = c
	}

	assignment := hungarianAssign(cost)

	return buildResult(assignment, arpaIDs, aisIDs, byCell, acceptThreshold)
}

// Assign implements Assigner using the greedy descending-score
// fallback.
func (Greedy) Assign(cands []candidates.Candidate, arpaIDs, aisIDs []string, acceptThreshold float64) Result {
	sorted := make([]candidates.Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].STotal > sorted[j].STotal })

	matchedArpa := make(map[string]bool)
	matchedAis := make(map[string]bool)
	var matched []MatchedPair

	for _, c := range sorted {
		if matchedArpa[c.ArpaID] || matchedAis[c.AisID] {
			continue
		}
		if c.STotal < acceptThreshold {
			continue
		}
		matchedArpa[c.ArpaID] = true
		matchedAis[c.AisID] = true
		matched = append(matched, MatchedPair{ArpaID: c.ArpaID, AisID: c.AisID, Score: c.STotal, Features: c})
	}

	return Result{
		Matched:       matched,
		UnmatchedArpa: complement(arpaIDs, matchedArpa),
		UnmatchedAis:  complement(aisIDs, matchedAis),
	}
}

func buildResult(assignment []int, arpaIDs, aisIDs []string, byCell map[[2]int]candidates.Candidate, acceptThreshold float64) Result {
	matchedArpa := make(map[string]bool)
	matchedAis := make(map[string]bool)
	var matched []MatchedPair

	for i, j := range assignment {
		if j < 0 {
			continue
		}
		c, ok := byCell[[2]int{i, j}]
		if !ok {
			continue
		}
		if c.STotal < acceptThreshold {
			continue
		}
		matchedArpa[c.ArpaID] = true
		matchedAis[c.AisID] = true
		matched = append(matched, MatchedPair{ArpaID: c.ArpaID, AisID: c.AisID, Score: c.STotal, Features: c})
	}

	return Result{
		Matched:       matched,
		UnmatchedArpa: complement(arpaIDs, matchedArpa),
		UnmatchedAis:  complement(aisIDs, matchedAis),
	}
}

func indexOf(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

func complement(ids []string, matched map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !matched[id] {
			out = append(out, id)
		}
	}
	return out
}
