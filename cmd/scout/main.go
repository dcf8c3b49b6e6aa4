// Package main runs the token scout: discovery feeds in, signal evaluation
// per tick, decisions out, and optional order execution against the venue.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-token-scout/internal/config"
	"solana-token-scout/internal/decide"
	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/engine"
	"solana-token-scout/internal/executor"
	"solana-token-scout/internal/logging"
	"solana-token-scout/internal/observability"
	"solana-token-scout/internal/registry"
	"solana-token-scout/internal/scheduler"
	"solana-token-scout/internal/sources"
	"solana-token-scout/internal/storage"
	chstore "solana-token-scout/internal/storage/clickhouse"
	"solana-token-scout/internal/storage/memory"
	"solana-token-scout/internal/storage/migrations"
	pgstore "solana-token-scout/internal/storage/postgres"
	"solana-token-scout/internal/throttle"
)

// Public endpoints used when the config leaves base_url empty.
const (
	dexscreenerURL = "https://api.dexscreener.com"
	rugcheckURL    = "https://api.rugcheck.xyz/v1"
	bubblemapsURL  = "https://api.bubblemaps.io/v1"
	moniURL        = "https://api.discover.getmoni.io/v1"
	gmgnURL        = "https://gmgn.ai/defi/api/v1"
)

func main() {
	loadEnvFile()

	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("environment", cfg.Environment).
		Str("storage_backend", cfg.Storage.Backend).
		Bool("execution_enabled", cfg.Execution.Enabled).
		Msg("token scout starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("token scout failed")
	}
	log.Info().Msg("token scout stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	candidates, trades, audit, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("")
	}

	reg := registry.New(registry.Options{
		Store:     candidates,
		Audit:     audit,
		MaxActive: cfg.Engine.MaxActiveCandidates,
		Logger:    log,
	})
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	adapters, gates := buildAdapters(cfg, log)
	defer func() {
		for _, g := range gates {
			g.Close()
		}
	}()

	discoverers, closeStreams, err := buildDiscoverers(ctx, cfg, adapters, log)
	if err != nil {
		return fmt.Errorf("build discoverers: %w", err)
	}
	defer closeStreams()

	var trader engine.Trader
	var reconciler scheduler.Reconciler
	if cfg.Execution.Enabled {
		venueGate := throttle.NewGate(cfg.Sources.GMGN.RateLimit, cfg.Sources.GMGN.Burst, cfg.Sources.GMGN.MaxConcurrency)
		defer venueGate.Close()
		venue := sources.NewGMGNVenue(newSourceClient(cfg.Sources.GMGN, gmgnURL, venueGate))

		exec := executor.New(executor.Options{
			Trades:         trades,
			Venue:          venue,
			MaxRetries:     cfg.Execution.MaxRetries,
			InitialBackoff: cfg.Execution.InitialBackoff,
			MaxBackoff:     cfg.Execution.MaxBackoff,
			PollInterval:   cfg.Execution.PollInterval,
			OrderTimeout:   cfg.Execution.OrderTimeout,
			Slippage:       cfg.Execution.Slippage,
			Metrics:        metrics,
			Logger:         log,
		})
		trader = exec
		reconciler = exec

		if err := exec.Reconcile(ctx); err != nil {
			log.Warn().Err(err).Msg("startup trade reconciliation failed")
		}
	}

	eng := engine.New(engine.Options{
		Registry:    reg,
		Adapters:    adapters,
		Discoverers: discoverers,
		Trader:      trader,
		Decision: decide.Params{
			MaxTopHolderShare: cfg.Decision.MaxTopHolderShare,
			MinSentiment:      cfg.Decision.MinSentiment,
			WatchSentiment:    cfg.Decision.WatchSentiment,
			PositionSize:      cfg.Execution.PositionSize,
		},
		RetryBudget:   cfg.Engine.RetryBudget,
		MaxConcurrent: cfg.Engine.MaxConcurrentEvaluations,
		MaxOpenTrades: cfg.Execution.MaxConcurrentTrades,
		Metrics:       metrics,
		Logger:        log,
	})

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, log)
	}

	sched := scheduler.New(scheduler.Options{
		Engine:          eng,
		Sweeper:         reg,
		Reconciler:      reconciler,
		PollInterval:    cfg.Scheduler.PollInterval,
		CycleTimeout:    cfg.Scheduler.CycleTimeout,
		StalenessTTL:    cfg.Scheduler.StalenessTTL,
		SweepInterval:   cfg.Scheduler.SweepInterval,
		ShutdownTimeout: cfg.Scheduler.ShutdownTimeout,
		Metrics:         metrics,
		Logger:          log,
	})
	return sched.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		c, err := config.Default()
		if err != nil {
			return nil, err
		}
		return c, c.Validate()
	}
	return config.LoadWithEnv(path)
}

// createStores wires the storage backend: in-memory for development, or
// PostgreSQL with migrations applied, plus the optional ClickHouse signal
// audit log.
func createStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (
	storage.CandidateStore, storage.TradeRecordStore, storage.SignalLogStore, func(), error,
) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var candidates storage.CandidateStore
	var trades storage.TradeRecordStore

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		candidates = pgstore.NewCandidateStore(pool)
		trades = pgstore.NewTradeRecordStore(pool)
		log.Info().Msg("postgres storage ready")
	default:
		candidates = memory.NewCandidateStore()
		trades = memory.NewTradeRecordStore()
		log.Info().Msg("in-memory storage ready")
	}

	var audit storage.SignalLogStore
	if cfg.Storage.Clickhouse.Enabled {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.Clickhouse.DSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		cleanups = append(cleanups, func() { _ = conn.Close() })
		audit = chstore.NewSignalLogStore(conn)
		log.Info().Msg("clickhouse signal audit ready")
	} else if cfg.Storage.Backend == "memory" {
		audit = memory.NewSignalLogStore()
	}

	return candidates, trades, audit, cleanup, nil
}

// buildAdapters creates one throttled HTTP client per signal source.
func buildAdapters(cfg *config.Config, log zerolog.Logger) (map[domain.Source]sources.Adapter, []*throttle.Gate) {
	var gates []*throttle.Gate
	gate := func(sc config.SourceConfig) *throttle.Gate {
		g := throttle.NewGate(sc.RateLimit, sc.Burst, sc.MaxConcurrency)
		gates = append(gates, g)
		return g
	}

	dexscreener := sources.NewDexscreener(
		newSourceClient(cfg.Sources.Dexscreener, dexscreenerURL, gate(cfg.Sources.Dexscreener)),
		sources.FilterThresholds{
			MinVolumeUSD:    cfg.Filter.MinVolumeUSD,
			MaxAge:          cfg.Filter.MaxAge,
			MinHolders:      cfg.Filter.MinHolders,
			MinLiquidityUSD: cfg.Filter.MinLiquidityUSD,
		},
		log,
	)

	adapters := map[domain.Source]sources.Adapter{
		domain.SourceFilter:       dexscreener,
		domain.SourceVetting:      sources.NewRugcheck(newSourceClient(cfg.Sources.Rugcheck, rugcheckURL, gate(cfg.Sources.Rugcheck))),
		domain.SourceDistribution: sources.NewBubblemaps(newSourceClient(cfg.Sources.Bubblemaps, bubblemapsURL, gate(cfg.Sources.Bubblemaps))),
		domain.SourceSentiment:    sources.NewMoni(newSourceClient(cfg.Sources.Moni, moniURL, gate(cfg.Sources.Moni))),
		domain.SourceSmartMoney:   sources.NewGMGN(newSourceClient(cfg.Sources.GMGN, gmgnURL, gate(cfg.Sources.GMGN)), log),
	}
	return adapters, gates
}

// buildDiscoverers wires the discovery feeds: the Dexscreener profile poll
// plus the pump.fun launch stream when enabled.
func buildDiscoverers(ctx context.Context, cfg *config.Config, adapters map[domain.Source]sources.Adapter, log zerolog.Logger) ([]sources.Discoverer, func(), error) {
	var discoverers []sources.Discoverer
	closeStreams := func() {}

	if dex, ok := adapters[domain.SourceFilter].(*sources.Dexscreener); ok {
		discoverers = append(discoverers, dex)
	}

	if cfg.Sources.Pumpfun.Enabled {
		streamCfg := sources.DefaultPumpfunConfig()
		streamCfg.ReconnectDelay = cfg.Sources.Pumpfun.ReconnectDelay
		streamCfg.PingInterval = cfg.Sources.Pumpfun.PingInterval
		stream, err := sources.NewPumpfunStream(ctx, cfg.Sources.Pumpfun.WebsocketURL, &streamCfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect pump.fun stream: %w", err)
		}
		discoverers = append(discoverers, stream)
		closeStreams = func() { _ = stream.Close() }
	}

	return discoverers, closeStreams, nil
}

func newSourceClient(sc config.SourceConfig, fallbackURL string, gate *throttle.Gate) *sources.Client {
	baseURL := sc.BaseURL
	if baseURL == "" {
		baseURL = fallbackURL
	}
	opts := []sources.ClientOption{
		sources.WithTimeout(sc.Timeout),
		sources.WithGate(gate),
	}
	if sc.APIKey != "" {
		opts = append(opts, sources.WithAPIKey(sc.APIKey))
	}
	return sources.NewClient(baseURL, opts...)
}

func startMetricsServer(cfg *config.Config, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// loadEnvFile loads environment variables from .env if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
