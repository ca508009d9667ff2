package trigger

import (
	"context"
	"time"

	"github.com/banshee-data/trackmatch/internal/orchestrator"
	"github.com/banshee-data/trackmatch/internal/timeutil"
)

// DebugReplayer drives cycles from a single static polygon on a fixed
// interval, for offline testing without an upstream WebSocket (spec
// §4.7's "debug mode replays a static message on a timer").
type DebugReplayer struct {
	runner   Runner
	clock    timeutil.Clock
	interval time.Duration
	polygon  orchestrator.Polygon

	cancel context.CancelFunc
}

// NewDebugReplayer constructs a replayer over a fixed polygon.
func NewDebugReplayer(runner Runner, clock timeutil.Clock, interval time.Duration, polygon orchestrator.Polygon) *DebugReplayer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &DebugReplayer{runner: runner, clock: clock, interval: interval, polygon: polygon}
}

// Start begins firing RunCycle once per interval until Stop is called
// or ctx is canceled.
func (d *DebugReplayer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go func() {
		ticker := d.clock.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C():
				d.runner.RunCycle(runCtx, orchestrator.Request{Polygon: d.polygon})
			}
		}
	}()
}

// Stop halts the replay loop.
func (d *DebugReplayer) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}
