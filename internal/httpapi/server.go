// Package httpapi exposes the matching engine over HTTP: cycle
// triggers, cache introspection, listener control, and a WebSocket
// broadcast surface for connected UI clients, per spec §6.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/banshee-data/trackmatch/internal/cache"
	"github.com/banshee-data/trackmatch/internal/httputil"
	"github.com/banshee-data/trackmatch/internal/orchestrator"
	"github.com/banshee-data/trackmatch/internal/trigger"
)

// Listener is the subset of trigger.Listener the HTTP facade controls.
type Listener interface {
	Start(ctx context.Context) map[string]any
	Stop() map[string]any
	Status() map[string]any
}

var _ Listener = (*trigger.Listener)(nil)

// Server wires the Matching Orchestrator, Recent-Track Cache, and
// upstream Listener to an HTTP mux (spec §6's endpoint list).
type Server struct {
	orch     *orchestrator.Orchestrator
	cache    *cache.Cache
	listener Listener

	subMu   sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
}

func (c *wsClient) Deliver(r orchestrator.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = writeJSON(ctx, c.conn, map[string]any{
		"type":      "match_result",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"result":    r,
	})
}

// NewServer constructs the HTTP facade. The server subscribes itself
// to the orchestrator's broadcast so every cycle result reaches
// connected WebSocket clients (spec §6's "/ws" surface).
func NewServer(orch *orchestrator.Orchestrator, c *cache.Cache, listener Listener) *Server {
	s := &Server{orch: orch, cache: c, listener: listener, clients: make(map[*wsClient]struct{})}
	orch.Subscribe(broadcastFunc(s.broadcastToClients))
	return s
}

// broadcastFunc adapts a plain function to orchestrator.Subscriber.
type broadcastFunc func(orchestrator.Result)

func (f broadcastFunc) Deliver(r orchestrator.Result) { f(r) }

func (s *Server) broadcastToClients(r orchestrator.Result) {
	s.subMu.Lock()
	snapshot := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.subMu.Unlock()

	for _, c := range snapshot {
		c.Deliver(r)
	}
}

// Mux builds the HTTP handler tree (spec §6).
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/match", s.handleMatch)
	mux.HandleFunc("/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/cache/recent", s.handleCacheRecent)
	mux.HandleFunc("/cache/clear", s.handleCacheClear)
	mux.HandleFunc("/listener/start", s.handleListenerStart)
	mux.HandleFunc("/listener/stop", s.handleListenerStop)
	mux.HandleFunc("/listener/status", s.handleListenerStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	stats := s.cache.Stats(r.Context())
	httputil.WriteJSONOK(w, map[string]any{
		"status":    "ok",
		"backend":   stats.Backend,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req orchestrator.Request
	if r.Body != nil {
		var body struct {
			Polygon      orchestrator.Polygon `json:"polygon"`
			SinceMinutes float64              `json:"since_minutes"`
			AisLimit     int                  `json:"ais_limit"`
			ArpaLimit    int                  `json:"arpa_limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			req.Polygon = body.Polygon
			req.Since = time.Duration(body.SinceMinutes * float64(time.Minute))
			req.AisLimit = body.AisLimit
			req.ArpaLimit = body.ArpaLimit
		}
	}
	res := s.orch.RunCycle(r.Context(), req)
	httputil.WriteJSONOK(w, res)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.cache.Stats(r.Context()))
}

func (s *Server) handleCacheRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.cache.GetRecent(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"data":  entries,
		"stats": s.cache.Stats(r.Context()),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.cache.Clear(r.Context()); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"message": "cache cleared successfully"})
}

func (s *Server) handleListenerStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.listener.Start(r.Context()))
}

func (s *Server) handleListenerStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.listener.Stop())
}

func (s *Server) handleListenerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.listener.Status())
}

// handleWebSocket upgrades the connection and sends the initial
// snapshot message, then keeps the connection registered for
// broadcast delivery until it disconnects (spec §6's "/ws" surface,
// mirroring original_source/app/api/routes.py's websocket_endpoint).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket accept error: %v", err)
		return
	}
	client := &wsClient{conn: conn}

	s.subMu.Lock()
	s.clients[client] = struct{}{}
	s.subMu.Unlock()

	defer func() {
		s.subMu.Lock()
		delete(s.clients, client)
		s.subMu.Unlock()
		conn.CloseNow()
	}()

	ctx := r.Context()
	recent, _ := s.cache.GetRecent(ctx, 50)
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	_ = writeJSON(initCtx, conn, map[string]any{
		"type":        "initial_data",
		"data":        recent,
		"cache_stats": s.cache.Stats(ctx),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	cancel()

	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
