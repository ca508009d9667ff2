// Package trigger implements the upstream viewshed-subscription trigger
// layer: a persistent WebSocket client that parses inbound viewshed
// FeatureCollections and invokes a match cycle for each one, with
// auto-reconnect, explicit start/stop control, and a write-back of the
// cycle's result onto the same upstream connection.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/banshee-data/trackmatch/internal/orchestrator"
	"github.com/banshee-data/trackmatch/internal/timeutil"
)

// DefaultReconnectDelay mirrors settings.WEBSOCKET_RECONNECT_DELAY's
// default of 5 seconds.
const DefaultReconnectDelay = 5 * time.Second

// featureCollection is the inbound viewshed message shape this listener
// parses: a GeoJSON FeatureCollection in which one feature names the
// visible-sea-area polygon (spec §4.7's trigger-detection rule).
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// feature is one entry of an inbound featureCollection.
type feature struct {
	Type       string `json:"type"`
	Properties struct {
		Type    string  `json:"type"`
		Bearing float64 `json:"bearing"`
		Zoom    float64 `json:"zoom"`
	} `json:"properties"`
	Geometry struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	} `json:"geometry"`
}

// visibleSeaAreaRing scans fc for the first feature whose
// properties.type is "visible_sea_area" and geometry is a Polygon, and
// returns that polygon's outer ring. ok is false when no such feature
// is present, meaning fc is not a trigger frame.
func visibleSeaAreaRing(fc featureCollection) (ring [][2]float64, ok bool) {
	for _, f := range fc.Features {
		if f.Properties.Type != "visible_sea_area" {
			continue
		}
		if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates) == 0 {
			continue
		}
		return f.Geometry.Coordinates[0], true
	}
	return nil, false
}

// Runner is the subset of Orchestrator the listener drives a cycle
// through. Satisfied by *orchestrator.Orchestrator.
type Runner interface {
	RunCycle(ctx context.Context, req orchestrator.Request) orchestrator.Result
}

// Listener is the persistent upstream WebSocket subscriber. is_active
// and is_running are tracked as separate flags, matching
// original_source/app/services/websocket.py's own split: is_active is
// the operator's start/stop intent, is_running reflects whether the
// listen loop is currently executing.
type Listener struct {
	url            string
	reconnectDelay time.Duration
	clock          timeutil.Clock
	runner         Runner

	isActive  atomic.Bool
	isRunning atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures a Listener at construction time.
type Option func(*Listener)

// WithClock overrides the listener's clock (for deterministic tests).
func WithClock(c timeutil.Clock) Option {
	return func(l *Listener) { l.clock = c }
}

// WithReconnectDelay overrides the default reconnect delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(l *Listener) { l.reconnectDelay = d }
}

// New constructs an inactive Listener against the given upstream URL.
// autoStart mirrors settings.WEBSOCKET_AUTO_START and is informational:
// when true, the caller should immediately follow construction with
// Start, which launches the listen loop.
func New(url string, runner Runner, autoStart bool, opts ...Option) *Listener {
	l := &Listener{
		url:            url,
		runner:         runner,
		clock:          timeutil.RealClock{},
		reconnectDelay: DefaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsActive reports the operator's start/stop intent.
func (l *Listener) IsActive() bool { return l.isActive.Load() }

// IsRunning reports whether the listen loop is currently executing.
func (l *Listener) IsRunning() bool { return l.isRunning.Load() }

// Start begins the listen loop if not already active, matching
// start_listener's idempotent "already_active" behavior.
func (l *Listener) Start(ctx context.Context) map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isActive.Load() {
		return map[string]any{"status": "already_active", "message": "listener is already running", "is_active": true}
	}

	l.isActive.Store(true)
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	go l.listenLoop(runCtx)

	return map[string]any{"status": "started", "message": "listener started successfully", "is_active": true, "url": l.url}
}

// Stop halts the listen loop, matching stop_listener's idempotent
// "already_inactive" behavior.
func (l *Listener) Stop() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isActive.Load() {
		return map[string]any{"status": "already_inactive", "message": "listener is already stopped", "is_active": false}
	}

	l.isActive.Store(false)
	if l.cancel != nil {
		l.cancel()
	}

	return map[string]any{"status": "stopped", "message": "listener stopped successfully", "is_active": false}
}

// Status mirrors get_status's shape.
func (l *Listener) Status() map[string]any {
	return map[string]any{
		"is_active":  l.isActive.Load(),
		"is_running": l.isRunning.Load(),
		"url":        l.url,
	}
}

func (l *Listener) listenLoop(ctx context.Context) {
	l.isRunning.Store(true)
	defer l.isRunning.Store(false)

	for l.isActive.Load() {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.Dial(ctx, l.url, nil)
		if err != nil {
			log.Printf("trigger: connect error: %v", err)
			if !l.waitForReconnect(ctx) {
				return
			}
			continue
		}

		log.Printf("trigger: connected to %s", l.url)
		l.readLoop(ctx, conn)
		conn.CloseNow()

		if !l.isActive.Load() || ctx.Err() != nil {
			return
		}
		if !l.waitForReconnect(ctx) {
			return
		}
	}
}

func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if !l.isActive.Load() || ctx.Err() != nil {
			return
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("trigger: read error: %v", err)
			}
			return
		}
		l.handleMessage(ctx, conn, data)
	}
}

// handleMessage parses one inbound frame and, when it is a trigger
// frame (spec §4.7), runs a match cycle and writes the result back onto
// conn as an assignments_weighted envelope (spec §6). conn may be nil
// in tests, in which case the write-back is skipped.
func (l *Listener) handleMessage(ctx context.Context, conn *websocket.Conn, data []byte) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		log.Printf("trigger: non-JSON or unparsable message: %v", err)
		return
	}
	if fc.Type != "FeatureCollection" {
		log.Printf("trigger: ignoring non-FeatureCollection message")
		return
	}

	ring, ok := visibleSeaAreaRing(fc)
	if !ok {
		log.Printf("trigger: viewshed message has no visible_sea_area polygon")
		return
	}

	poly := make(orchestrator.Polygon, len(ring))
	for i, pt := range ring {
		poly[i] = pt
	}

	result := l.runner.RunCycle(ctx, orchestrator.Request{Polygon: poly})
	l.writeBack(ctx, conn, result, fc)
}

// writeBack sends the assignments_weighted envelope for result back
// onto conn, echoing triggerMsg as message_listener per spec §6. It is
// a no-op when conn is nil.
func (l *Listener) writeBack(ctx context.Context, conn *websocket.Conn, result orchestrator.Result, triggerMsg featureCollection) {
	if conn == nil {
		return
	}

	envelope := map[string]any{
		"type":             "assignments_weighted",
		"pairs":            result.MatchedPairs,
		"unmatched_ais":    result.UnmatchedAIS,
		"unmatched_arpa":   result.UnmatchedARPA,
		"message_listener": triggerMsg,
		"timestamp":        result.Timestamp,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("trigger: marshal assignments_weighted: %v", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		log.Printf("trigger: write assignments_weighted: %v", err)
	}
}

func (l *Listener) waitForReconnect(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-l.clock.After(l.reconnectDelay):
		return true
	}
}
