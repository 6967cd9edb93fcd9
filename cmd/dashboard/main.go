package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"trade-trackerv1/config"
	"trade-trackerv1/internal/api"
	"trade-trackerv1/internal/logger"
	"trade-trackerv1/internal/marketdata"
	"trade-trackerv1/internal/metrics"
	"trade-trackerv1/internal/model"
	"trade-trackerv1/internal/slrule"
	redisstore "trade-trackerv1/internal/store/redis"
	sqlitestore "trade-trackerv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	lg := logger.Init("dashboard", slogLevel())
	lg.Info("starting")

	cfg := config.Load()

	policy, err := slrule.ParsePolicy(cfg.SLPolicy)
	if err != nil {
		log.Fatalf("[dashboard] %v", err)
	}
	log.Printf("[dashboard] SL policy: %s", policy)

	// ---- Health & metrics ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown context ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Record store (required) ----
	store, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[dashboard] record store init failed: %v", err)
	}
	defer store.Close()
	health.SetRedisConnected(true)

	// ---- Update journal (degrades to no audit trail) ----
	var journal *sqlitestore.Journal
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	journal, err = sqlitestore.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Printf("[dashboard] WARNING: journal init failed: %v (continuing without audit trail)", err)
		journal = nil
	} else {
		defer journal.Close()
		health.SetSQLiteOK(true)
	}

	// ---- Market data (optional; hedge estimator off without creds) ----
	var market model.MarketData
	if cfg.HasAngelCreds() {
		market = marketdata.NewAngelSource(marketdata.Config{
			APIKey:     cfg.AngelAPIKey,
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
		})
		health.SetMarketDataConfigured(true)
		health.SetMarketDataOK(true)
		log.Printf("[dashboard] market data enabled (Angel One)")
	} else {
		log.Printf("[dashboard] no Angel One credentials, hedge estimator disabled")
	}

	// ---- Periodic liveness checks ----
	if journal != nil {
		health.StartLivenessChecker(ctx, store.Client(), journal.DB(), 15*time.Second)
	} else {
		health.StartLivenessChecker(ctx, store.Client(), nil, 15*time.Second)
	}

	// ---- API server ----
	srv := api.NewServer(api.Config{
		Addr:    cfg.ListenAddr,
		Store:   store,
		Engine:  slrule.New(policy),
		Market:  market,
		Journal: journal,
		Metrics: prom,
	})
	srv.Start()

	<-sigCh
	log.Printf("[dashboard] shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	log.Printf("[dashboard] bye")
}

func slogLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
