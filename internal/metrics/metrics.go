package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the SL tracker.
type Metrics struct {
	InteractionsTotal  *prometheus.CounterVec // labels: endpoint
	SLUpdatesTotal     *prometheus.CounterVec // labels: result=ok|error
	InvalidInstrument  prometheus.Counter
	StoreFetchDur      prometheus.Histogram
	MarketDataFailures prometheus.Counter
	WSClients          prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		InteractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sltracker_interactions_total",
			Help: "Dashboard interactions handled, by endpoint",
		}, []string{"endpoint"}),
		SLUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sltracker_sl_updates_total",
			Help: "Individual SL record writes, by result",
		}, []string{"result"}),
		InvalidInstrument: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sltracker_invalid_instrument_total",
			Help: "SL computations rejected for unrecognized instruments",
		}),
		StoreFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sltracker_store_fetch_duration_seconds",
			Help:    "Record store snapshot fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		MarketDataFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sltracker_market_data_failures_total",
			Help: "Hedge price lookups that returned unavailable",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sltracker_ws_clients",
			Help: "Connected dashboard WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.InteractionsTotal,
		m.SLUpdatesTotal,
		m.InvalidInstrument,
		m.StoreFetchDur,
		m.MarketDataFailures,
		m.WSClients,
	)

	return m
}

// HealthStatus represents dependency health for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool `json:"redis_connected"`
	SQLiteOK       bool `json:"sqlite_ok"`

	// MarketDataConfigured distinguishes "operator runs without broker
	// credentials" from "configured market data is failing"; only the
	// latter degrades overall health.
	MarketDataConfigured bool `json:"market_data_configured"`
	MarketDataOK         bool `json:"market_data_ok"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetMarketDataConfigured(v bool) {
	h.mu.Lock()
	h.MarketDataConfigured = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetMarketDataOK(v bool) {
	h.mu.Lock()
	h.MarketDataOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// The journal and market data degrade gracefully; only losing the
	// record store makes the dashboard unusable.
	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK || (h.MarketDataConfigured && !h.MarketDataOK) {
		overallStatus = "degraded"
	}
	if !h.RedisConnected {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status               string  `json:"status"`
		Uptime               string  `json:"uptime"`
		RedisConnected       bool    `json:"redis_connected"`
		RedisLatencyMs       float64 `json:"redis_latency_ms"`
		SQLiteOK             bool    `json:"sqlite_ok"`
		SQLiteLatencyMs      float64 `json:"sqlite_latency_ms"`
		MarketDataConfigured bool    `json:"market_data_configured"`
		MarketDataOK         bool    `json:"market_data_ok"`
		LastCheckAt          string  `json:"last_check_at"`
	}{
		Status:               overallStatus,
		Uptime:               time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:       h.RedisConnected,
		RedisLatencyMs:       h.RedisLatencyMs,
		SQLiteOK:             h.SQLiteOK,
		SQLiteLatencyMs:      h.SQLiteLatencyMs,
		MarketDataConfigured: h.MarketDataConfigured,
		MarketDataOK:         h.MarketDataOK,
		LastCheckAt:          h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
