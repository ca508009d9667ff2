// Package orchestrator implements the Matching Orchestrator: on each
// trigger, it resolves a spatial filter, fetches and sanitizes recent
// AIS/ARPA observations, projects them, builds candidates, solves the
// assignment, and assembles a result bundle for subscribers.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trackmatch/internal/assign"
	"github.com/banshee-data/trackmatch/internal/candidates"
	"github.com/banshee-data/trackmatch/internal/datastore"
	"github.com/banshee-data/trackmatch/internal/geo"
	"github.com/banshee-data/trackmatch/internal/scoring"
	"github.com/banshee-data/trackmatch/internal/timeutil"
)

// Config bundles the projection context, scoring config, gates, and
// threshold an Orchestrator runs with. Constructed once at startup
// from internal/config.
type Config struct {
	Projection      *geo.Context
	Scoring         scoring.Config
	Gates           candidates.Gates
	AcceptThreshold float64
	SiteLat         float64
	SiteLon         float64
	FilterRadiusKM  float64
}

// Request is one match_cycle invocation's parameters (spec §4.6).
type Request struct {
	Polygon   Polygon // nil if no polygon supplied
	Since     time.Duration
	AisLimit  int
	ArpaLimit int
}

type matchedPairDetail struct {
	ArpaID, AisID             string
	Score                     float64
	AisLat, AisLon, AisLng    float64
	ArpaLat, ArpaLon, ArpaLng float64
}

// MatchedPairOut is one emitted matched pair, per spec §4.6 step 7.
// AisLon/AisLng (and ArpaLon/ArpaLng) carry identical values: spec §6
// requires every outbound record to echo both names for downstream
// compatibility with consumers expecting either convention.
type MatchedPairOut struct {
	ArpaID    string            `json:"arpa_id"`
	AisID     string            `json:"ais_id"`
	Score     float64           `json:"score"`
	Features  scoring.Features  `json:"features"`
	SubScores scoring.SubScores `json:"sub_scores"`
	AisLat    float64           `json:"ais_lat"`
	AisLon    float64           `json:"ais_lon"`
	AisLng    float64           `json:"ais_lng"`
	ArpaLat   float64           `json:"arpa_lat"`
	ArpaLon   float64           `json:"arpa_lon"`
	ArpaLng   float64           `json:"arpa_lng"`
	Ais       datastore.AISRow  `json:"ais"`
	Arpa      datastore.ARPARow `json:"arpa"`
}

// Statistics mirrors spec §4.6 step 7's statistics shape.
type Statistics struct {
	TotalAIS           int     `json:"total_ais"`
	TotalARPA          int     `json:"total_arpa"`
	Matched            int     `json:"matched"`
	UnmatchedAIS       int     `json:"unmatched_ais"`
	UnmatchedARPA      int     `json:"unmatched_arpa"`
	CandidatesGenerated int    `json:"candidates_generated"`
	ProcessingTimeS    float64 `json:"processing_time_s"`
	AverageScore       float64 `json:"average_score"`
	ScoreStdDev        float64 `json:"score_stddev"`
}

// Parameters mirrors spec §4.6 step 7's parameters shape.
type Parameters struct {
	GatingDistanceM float64        `json:"gating_distance_m"`
	TimeGateS       float64        `json:"time_gate_s"`
	AcceptThreshold float64        `json:"accept_threshold"`
	SiteRadiusKM    float64        `json:"site_radius_km"`
	BBox            datastore.BBox `json:"bbox"`
	HasPolygon      bool           `json:"has_polygon"`
}

// Result is the full result bundle handed to subscribers.
type Result struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	CycleID        string            `json:"cycle_id"`
	Timestamp      time.Time         `json:"timestamp"`
	MatchedPairs   []MatchedPairOut  `json:"matched_pairs"`
	UnmatchedAIS   []string          `json:"unmatched_ais"`
	UnmatchedARPA  []string          `json:"unmatched_arpa"`
	Statistics     Statistics        `json:"statistics"`
	Parameters     Parameters        `json:"parameters"`
	GeoJSON        FeatureCollection `json:"geojson"`
}

// Subscriber receives the Result of every successful cycle, in FIFO
// order relative to other cycles (spec §5's ordering guarantees). A
// cycle whose fetch fails is returned to its caller but not delivered.
type Subscriber interface {
	Deliver(Result)
}

// Orchestrator is the Matching Orchestrator. It is otherwise stateless
// across cycles (spec §4.6's "State" clause); the cycle mutex ensures
// the upstream-trigger path and the synchronous request path never run
// concurrently (spec §5).
type Orchestrator struct {
	cfg     Config
	store   datastore.Store
	assigner assign.Assigner
	scorer  scoring.Scorer
	clock   timeutil.Clock

	cycleMu sync.Mutex

	subMu sync.Mutex
	subs  []Subscriber
}

// New constructs an Orchestrator. assigner/scorer/clock may be nil to
// use the default optimal assigner, Gaussian scorer, and real clock.
func New(cfg Config, store datastore.Store, assigner assign.Assigner, scorer scoring.Scorer, clock timeutil.Clock) *Orchestrator {
	if assigner == nil {
		assigner = assign.Optimal{}
	}
	if scorer == nil {
		scorer = scoring.Gaussian{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Orchestrator{cfg: cfg, store: store, assigner: assigner, scorer: scorer, clock: clock}
}

// Subscribe registers a subscriber for future cycle results.
func (o *Orchestrator) Subscribe(s Subscriber) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	o.subs = append(o.subs, s)
}

// Unsubscribe removes a previously registered subscriber.
func (o *Orchestrator) Unsubscribe(s Subscriber) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for i, sub := range o.subs {
		if sub == s {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			return
		}
	}
}

func (o *Orchestrator) broadcast(r Result) {
	o.subMu.Lock()
	snapshot := make([]Subscriber, len(o.subs))
	copy(snapshot, o.subs)
	o.subMu.Unlock()

	for _, s := range snapshot {
		s.Deliver(r)
	}
}

// RunCycle executes one match_cycle (spec §4.6) and returns its result.
// A successful result is also broadcast to subscribers; when a fetch
// fails, the Success=false result is returned without a broadcast. The
// cycle mutex serializes this against any concurrently-invoked cycle
// (spec §5).
func (o *Orchestrator) RunCycle(ctx context.Context, req Request) Result {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	start := o.clock.Now()
	cycleID := uuid.NewString()

	box, hasPolygon := o.resolveBBox(req.Polygon)

	since := start.Add(-req.Since)
	aisRows, err := o.store.FetchAIS(ctx, box, since)
	if err != nil {
		return o.failure(cycleID, start, fmt.Sprintf("ais fetch failed: %v", err), box, hasPolygon, req)
	}
	arpaRows, err := o.store.FetchARPA(ctx, box, since)
	if err != nil {
		return o.failure(cycleID, start, fmt.Sprintf("arpa fetch failed: %v", err), box, hasPolygon, req)
	}

	if req.AisLimit > 0 && len(aisRows) > req.AisLimit {
		aisRows = aisRows[:req.AisLimit]
	}
	if req.ArpaLimit > 0 && len(arpaRows) > req.ArpaLimit {
		arpaRows = arpaRows[:req.ArpaLimit]
	}

	sanitizedAis := sanitizeAIS(aisRows, req.Polygon)
	sanitizedArpa := sanitizeARPA(arpaRows, req.Polygon)

	planarAis := make([]candidates.PlanarObservation, 0, len(sanitizedAis))
	aisByID := make(map[string]datastore.AISRow, len(sanitizedAis))
	aisIDs := make([]string, 0, len(sanitizedAis))
	for _, r := range sanitizedAis {
		x, y := o.cfg.Projection.Project(r.Lat, r.Lng)
		heading := preferHeading(r.Heading, r.COG)
		planarAis = append(planarAis, candidates.PlanarObservation{
			ID: r.MMSI, X: x, Y: y,
			SpeedMs: geo.KnotsToMps(r.SOG), HeadingDeg: heading,
			TimeS: float64(r.TS.Unix()),
		})
		aisByID[r.MMSI] = r
		aisIDs = append(aisIDs, r.MMSI)
	}

	planarArpa := make([]candidates.PlanarObservation, 0, len(sanitizedArpa))
	arpaByID := make(map[string]datastore.ARPARow, len(sanitizedArpa))
	arpaIDs := make([]string, 0, len(sanitizedArpa))
	for _, r := range sanitizedArpa {
		x, y := o.cfg.Projection.Project(r.Lat, r.Lng)
		obs := candidates.PlanarObservation{
			ID: r.Target, X: x, Y: y,
			SpeedMs: geo.KnotsToMps(r.Speed), HeadingDeg: r.Course,
			TimeS: float64(r.RecvAt.Unix()),
		}
		if r.HasDistance {
			obs.HasRangeM = true
			obs.RangeM = r.DistanceNm * 1852.0
		}
		if r.HasBearing {
			obs.HasBearing = true
			obs.BearingDeg = r.Bearing
		}
		planarArpa = append(planarArpa, obs)
		arpaByID[r.Target] = r
		arpaIDs = append(arpaIDs, r.Target)
	}

	cands := candidates.Build(planarArpa, planarAis, o.cfg.Gates, o.cfg.Scoring, o.scorer)
	assignResult := o.assigner.Assign(cands, arpaIDs, aisIDs, o.cfg.AcceptThreshold)

	matchedOut := make([]MatchedPairOut, 0, len(assignResult.Matched))
	details := make([]matchedPairDetail, 0, len(assignResult.Matched))
	for _, m := range assignResult.Matched {
		aisRow := aisByID[m.AisID]
		arpaRow := arpaByID[m.ArpaID]
		matchedOut = append(matchedOut, MatchedPairOut{
			ArpaID: m.ArpaID, AisID: m.AisID, Score: m.Score,
			Features: m.Features.Features, SubScores: m.Features.SubScores,
			AisLat: aisRow.Lat, AisLon: aisRow.Lng, AisLng: aisRow.Lng,
			ArpaLat: arpaRow.Lat, ArpaLon: arpaRow.Lng, ArpaLng: arpaRow.Lng,
			Ais: aisRow, Arpa: arpaRow,
		})
		details = append(details, matchedPairDetail{
			ArpaID: m.ArpaID, AisID: m.AisID, Score: m.Score,
			AisLat: aisRow.Lat, AisLon: aisRow.Lng, AisLng: aisRow.Lng,
			ArpaLat: arpaRow.Lat, ArpaLon: arpaRow.Lng, ArpaLng: arpaRow.Lng,
		})
	}

	var avgScore, scoreStdDev float64
	if len(matchedOut) > 0 {
		scores := make([]float64, len(matchedOut))
		for i, m := range matchedOut {
			scores[i] = m.Score
		}
		avgScore = stat.Mean(scores, nil)
		if len(scores) > 1 {
			scoreStdDev = stat.StdDev(scores, nil)
		}
	}

	message := "ok"
	if len(sanitizedAis) == 0 || len(sanitizedArpa) == 0 {
		message = "no observations after filtering"
	} else if len(cands) == 0 {
		message = "no matching candidates"
	}

	result := Result{
		Success:       true,
		Message:       message,
		CycleID:       cycleID,
		Timestamp:     start,
		MatchedPairs:  matchedOut,
		UnmatchedAIS:  assignResult.UnmatchedAis,
		UnmatchedARPA: assignResult.UnmatchedArpa,
		Statistics: Statistics{
			TotalAIS:            len(sanitizedAis),
			TotalARPA:           len(sanitizedArpa),
			Matched:             len(matchedOut),
			UnmatchedAIS:        len(assignResult.UnmatchedAis),
			UnmatchedARPA:       len(assignResult.UnmatchedArpa),
			CandidatesGenerated: len(cands),
			ProcessingTimeS:     o.clock.Since(start).Seconds(),
			AverageScore:        avgScore,
			ScoreStdDev:         scoreStdDev,
		},
		Parameters: Parameters{
			GatingDistanceM: o.cfg.Gates.GatingDistanceM,
			TimeGateS:       o.cfg.Gates.TimeGateS,
			AcceptThreshold: o.cfg.AcceptThreshold,
			SiteRadiusKM:    o.cfg.FilterRadiusKM,
			BBox:            box,
			HasPolygon:      hasPolygon,
		},
		GeoJSON: buildGeoJSON(details),
	}

	o.broadcast(result)
	return result
}

func (o *Orchestrator) resolveBBox(p Polygon) (datastore.BBox, bool) {
	if len(p) >= 3 {
		return BBoxFromPolygon(p), true
	}
	return BBoxFromSiteRadius(o.cfg.SiteLat, o.cfg.SiteLon, o.cfg.FilterRadiusKM), false
}

func (o *Orchestrator) failure(cycleID string, start time.Time, message string, box datastore.BBox, hasPolygon bool, req Request) Result {
	return Result{
		Success:   false,
		Message:   message,
		CycleID:   cycleID,
		Timestamp: start,
		Parameters: Parameters{
			GatingDistanceM: o.cfg.Gates.GatingDistanceM,
			TimeGateS:       o.cfg.Gates.TimeGateS,
			AcceptThreshold: o.cfg.AcceptThreshold,
			SiteRadiusKM:    o.cfg.FilterRadiusKM,
			BBox:            box,
			HasPolygon:      hasPolygon,
		},
	}
}

// sanitizeAIS drops zero-coordinate rows and, when a polygon is
// supplied, rows outside it (spec §4.6 step 3).
func sanitizeAIS(rows []datastore.AISRow, p Polygon) []datastore.AISRow {
	out := make([]datastore.AISRow, 0, len(rows))
	for _, r := range rows {
		if r.Lat == 0 && r.Lng == 0 {
			continue
		}
		if len(p) >= 3 && !PointInPolygon(p, r.Lat, r.Lng) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sanitizeARPA(rows []datastore.ARPARow, p Polygon) []datastore.ARPARow {
	out := make([]datastore.ARPARow, 0, len(rows))
	for _, r := range rows {
		if r.Lat == 0 && r.Lng == 0 {
			continue
		}
		if len(p) >= 3 && !PointInPolygon(p, r.Lat, r.Lng) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// preferHeading returns heading when finite and non-zero, else cog,
// per spec §4.6 step 4.
func preferHeading(heading, cog float64) float64 {
	if !math.IsNaN(heading) && !math.IsInf(heading, 0) && heading != 0 {
		return heading
	}
	return cog
}
