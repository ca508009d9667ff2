package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banshee-data/trackmatch/internal/admin"
	"github.com/banshee-data/trackmatch/internal/cache"
	"github.com/banshee-data/trackmatch/internal/candidates"
	"github.com/banshee-data/trackmatch/internal/config"
	"github.com/banshee-data/trackmatch/internal/datastore"
	"github.com/banshee-data/trackmatch/internal/geo"
	"github.com/banshee-data/trackmatch/internal/httpapi"
	"github.com/banshee-data/trackmatch/internal/orchestrator"
	"github.com/banshee-data/trackmatch/internal/scoring"
	"github.com/banshee-data/trackmatch/internal/trigger"
	"github.com/banshee-data/trackmatch/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPathFlag  = flag.String("db-path", "trackmatch.db", "path to sqlite DB file")
	configFile  = flag.String("config", "", "path to JSON tuning configuration overlay (optional)")
	redisAddr   = flag.String("redis-addr", "", "Redis address for the Recent-Track Cache primary backend (empty disables Redis, uses memory only)")
	upstreamURL = flag.String("upstream-url", "", "WebSocket URL for the upstream viewshed Trigger Layer (overrides config/env)")
	debugReplay = flag.Bool("debug-replay", false, "Run the Trigger Layer in debug replay mode instead of dialing upstream")
	versionFlag = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stdout)

	if *versionFlag {
		fmt.Printf("trackmatch v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := datastore.OpenSQLiteStore(*dbPathFlag)
	if err != nil {
		log.Fatalf("failed to open datastore: %v", err)
	}
	defer store.Close()

	projCtx, err := geo.NewContext(cfg.GetSiteLat(), cfg.GetSiteLon(), cfg.GetProjection())
	if err != nil {
		log.Fatalf("failed to build geo projection context: %v", err)
	}

	orchCfg := orchestrator.Config{
		Projection: projCtx,
		Scoring: scoring.Config{
			PosSigmaM:      cfg.GetPosSigmaM(),
			SpdSigmaMs:     cfg.GetSpdSigmaMs(),
			HdgSigmaDeg:    cfg.GetHdgSigmaDeg(),
			TimeSigmaS:     cfg.GetTimeSigmaS(),
			RangeSigmaM:    cfg.GetRangeSigmaM(),
			BrgGeoSigmaDeg: cfg.GetBrgGeoSigmaDeg(),
			WPos:           cfg.GetWPos(),
			WSpd:           cfg.GetWSpd(),
			WHdg:           cfg.GetWHdg(),
			WTime:          cfg.GetWTime(),
			WRange:         cfg.GetWRange(),
			WBrgGeo:        cfg.GetWBrgGeo(),
		},
		Gates: candidates.Gates{
			GatingDistanceM: cfg.GetGatingDistanceM(),
			TimeGateS:       cfg.GetTimeGateS(),
		},
		AcceptThreshold: cfg.GetMatchThreshold(),
		SiteLat:         cfg.GetSiteLat(),
		SiteLon:         cfg.GetSiteLon(),
		FilterRadiusKM:  cfg.GetFilterRadiusKM(),
	}
	orch := orchestrator.New(orchCfg, store, nil, nil, nil)

	recentCache := cache.New(buildRedisBackend(*redisAddr), cache.NewMemoryBackend(), nil, cfg.GetCacheMaxSize(), cfg.GetCacheTTL())
	orch.Subscribe(cacheSubscriber{cache: recentCache})

	upstream := *upstreamURL
	if upstream == "" {
		upstream = cfg.GetUpstreamURL()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var listener httpapi.Listener
	var wg sync.WaitGroup

	if *debugReplay {
		replayer := trigger.NewDebugReplayer(orch, nil, 30*time.Second, orchestrator.Polygon{
			{cfg.GetSiteLon() - 0.2, cfg.GetSiteLat() - 0.2},
			{cfg.GetSiteLon() + 0.2, cfg.GetSiteLat() - 0.2},
			{cfg.GetSiteLon() + 0.2, cfg.GetSiteLat() + 0.2},
			{cfg.GetSiteLon() - 0.2, cfg.GetSiteLat() + 0.2},
		})
		listener = &debugReplayAdapter{replayer: replayer}
		replayer.Start(ctx)
		log.Printf("trigger layer running in debug replay mode (interval=30s)")
	} else if upstream != "" {
		l := trigger.New(upstream, orch, cfg.GetAutoStart(), trigger.WithReconnectDelay(cfg.GetReconnectDelay()))
		listener = l
		if cfg.GetAutoStart() {
			l.Start(ctx)
		}
		log.Printf("trigger layer configured for upstream %s (auto_start=%v)", upstream, cfg.GetAutoStart())
	} else {
		listener = trigger.New("", orch, false)
		log.Printf("trigger layer has no upstream_url configured; start it via /listener/start once one is set")
	}

	httpServer := httpapi.NewServer(orch, recentCache, listener)
	mux := httpServer.Mux()
	if err := admin.Mount(mux, store.DB(), "trackmatch"); err != nil {
		log.Fatalf("failed to mount admin routes: %v", err)
	}

	srv := &http.Server{Addr: *listen, Handler: mux}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("trackmatch v%s listening on %s", version.Version, *listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	wg.Wait()
	log.Printf("graceful shutdown complete")
}

func loadConfig() (*config.AppConfig, error) {
	envCfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if *configFile == "" {
		return envCfg, nil
	}
	overlay, err := config.LoadOverlay(*configFile)
	if err != nil {
		return nil, err
	}
	return envCfg.Merge(overlay), nil
}

func buildRedisBackend(addr string) cache.Backend {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return cache.NewRedisBackend(client, "trackmatch:recent")
}

// cacheSubscriber adapts the Recent-Track Cache to orchestrator.Subscriber
// so every cycle result is retained for /cache/recent and /ws's initial
// snapshot, mirroring original_source/app/services/websocket.py's own
// cache-then-broadcast sequencing.
type cacheSubscriber struct {
	cache *cache.Cache
}

func (s cacheSubscriber) Deliver(r orchestrator.Result) {
	if err := s.cache.Add(context.Background(), r.CycleID, r); err != nil {
		log.Printf("cache subscriber: add entry: %v", err)
	}
}

// debugReplayAdapter satisfies httpapi.Listener over a *trigger.DebugReplayer,
// which runs on a fixed interval rather than exposing start/stop/status
// semantics of its own.
type debugReplayAdapter struct {
	replayer *trigger.DebugReplayer
}

func (d *debugReplayAdapter) Start(ctx context.Context) map[string]any {
	return map[string]any{"status": "already_active", "message": "debug replay mode runs on a fixed interval and cannot be started/stopped via this endpoint"}
}

func (d *debugReplayAdapter) Stop() map[string]any {
	return map[string]any{"status": "already_active", "message": "debug replay mode runs on a fixed interval and cannot be started/stopped via this endpoint"}
}

func (d *debugReplayAdapter) Status() map[string]any {
	return map[string]any{"is_active": true, "is_running": true, "mode": "debug_replay"}
}
