// Package api exposes the dashboard's HTTP presentation surface: batch and
// instrument selection, SL preview/apply, the standalone calculators, the
// hedge estimator and a WebSocket event stream.
package api

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"time"

	"trade-trackerv1/internal/logger"
	"trade-trackerv1/internal/metrics"
	"trade-trackerv1/internal/model"
	"trade-trackerv1/internal/selector"
	"trade-trackerv1/internal/slrule"
	"trade-trackerv1/internal/store/sqlite"
	"trade-trackerv1/internal/updater"
)

// Server holds the wired collaborators behind the HTTP surface.
type Server struct {
	sel     *selector.Selector
	engine  *slrule.Engine
	upd     *updater.Updater
	market  model.MarketData // nil when no broker credentials configured
	journal *sqlite.Journal  // nil when auditing disabled
	prom    *metrics.Metrics
	hub     *Hub

	srv *http.Server
}

// Config wires a Server.
type Config struct {
	Addr    string
	Store   model.RecordStore
	Engine  *slrule.Engine
	Market  model.MarketData
	Journal *sqlite.Journal
	Metrics *metrics.Metrics
}

// NewServer builds the Server and its routes.
func NewServer(cfg Config) *Server {
	store := cfg.Store
	if cfg.Metrics != nil {
		store = measuredStore{RecordStore: cfg.Store, observe: cfg.Metrics.StoreFetchDur.Observe}
	}
	s := &Server{
		sel:     selector.New(store),
		engine:  cfg.Engine,
		upd:     updater.New(store, cfg.Journal),
		market:  cfg.Market,
		journal: cfg.Journal,
		prom:    cfg.Metrics,
	}
	s.hub = NewHub(func(n int) {
		if s.prom != nil {
			s.prom.WSClients.Set(float64(n))
		}
	})

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.srv = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// Hub returns the WebSocket hub, for broadcasting from outside the handlers.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] dashboard listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/batches", s.instrument("batches", s.handleBatches))
	mux.HandleFunc("/api/instruments", s.instrument("instruments", s.handleInstruments))
	mux.HandleFunc("/api/legs", s.instrument("legs", s.handleLegs))
	mux.HandleFunc("/api/sl/preview", s.instrument("sl_preview", s.handlePreview))
	mux.HandleFunc("/api/sl/apply", s.instrument("sl_apply", s.handleApply))
	mux.HandleFunc("/api/hedge", s.instrument("hedge", s.handleHedge))
	mux.HandleFunc("/api/calc/additional", s.instrument("calc_additional", s.handleCalcAdditional))
	mux.HandleFunc("/api/calc/latesession", s.instrument("calc_latesession", s.handleCalcLateSession))
	mux.HandleFunc("/api/journal", s.instrument("journal", s.handleJournal))
	mux.HandleFunc("/api/status", s.instrument("status", s.handleStatus))
	mux.HandleFunc("/ws", s.hub.HandleWS)
}

// instrument wraps a handler with CORS, preflight handling, the per-endpoint
// interaction counter and an interaction ID carried through the request
// context and echoed in the X-Interaction-ID header.
func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if s.prom != nil {
			s.prom.InteractionsTotal.WithLabelValues(endpoint).Inc()
		}
		id := logger.NewInteractionID(endpoint, time.Now())
		ctx := logger.WithInteractionID(r.Context(), id)
		w.Header().Set("X-Interaction-ID", id)
		slog.Debug("interaction", append([]any{slog.String("endpoint", endpoint)}, logger.Attrs(ctx)...)...)
		h(w, r.WithContext(ctx))
	}
}

// measuredStore times snapshot fetches for the store latency histogram.
type measuredStore struct {
	model.RecordStore
	observe func(seconds float64)
}

func (m measuredStore) FetchAll(ctx context.Context) ([]model.TradeLegRecord, error) {
	start := time.Now()
	legs, err := m.RecordStore.FetchAll(ctx)
	m.observe(time.Since(start).Seconds())
	return legs, err
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
