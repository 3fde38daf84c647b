package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/dreamplay/rewards/kv"
	"github.com/dreamplay/rewards/kv/boltstore"
	"github.com/dreamplay/rewards/kv/pgxstore"
	"github.com/dreamplay/rewards/kv/s3store"
	"github.com/dreamplay/rewards/pkg/chain"
	"github.com/dreamplay/rewards/pkg/clock"
	"github.com/dreamplay/rewards/pkg/httpkit"
	"github.com/dreamplay/rewards/pkg/logger"
	"github.com/dreamplay/rewards/pkg/metrics"
	"github.com/dreamplay/rewards/pkg/pgxdb"
	"github.com/dreamplay/rewards/pkg/ratelimit"
	"github.com/dreamplay/rewards/rewards"
	"github.com/dreamplay/rewards/web/api"
	"github.com/dreamplay/rewards/web/config"
	"github.com/dreamplay/rewards/web/handler"
)

var (
	version = "dev"
	date    = "unknown"
)

var errUnknownBackend = errors.New("unknown store backend")

func main() {
	// A missing .env is fine; the environment wins either way
	_ = godotenv.Load()

	cfg := config.New()

	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "DreamPlay rewards service starting",
		slog.String("version", version),
		slog.String("date", date),
		slog.String("store", cfg.StoreBackend),
	)
	metrics.BuildInfo.WithLabelValues(version, date).Set(1)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to open store", slog.String("backend", cfg.StoreBackend), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()
	store = kv.WithTimeout(kv.Instrument(store, cfg.StoreBackend), cfg.StoreTimeout)

	graph, err := sponsorGraph(cfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to configure sponsor graph", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.ChainRPCURL == "" {
		log.WarnContext(ctx, "CHAIN_RPC_URL not set, sponsor checks and commissions are unavailable")
	}

	clk := clock.SystemClock{}
	opts := []rewards.Option{rewards.WithClock(clk), rewards.WithLogger(log)}
	ledger := rewards.NewLedger(store, opts...)

	mux := http.NewServeMux()
	handler.NewRewards(
		rewards.NewActionLogger(store, ledger, graph, opts...),
		ledger,
		rewards.NewLeaderboardView(store, opts...),
		rewards.NewCommissionEngine(store, graph, opts...),
		graph,
	).AddRoutes(mux)
	handler.NewSystem(cfg.StoreBackend, clk).AddRoutes(mux)

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitRPM,
		Burst:             cfg.RateLimitBurst,
		TrustProxy:        cfg.RateLimitTrustProxy,
	}, clk)
	tooMany := httpkit.JsonError(api.TooManyRequests(ratelimit.ErrRateLimited))

	var h http.Handler = mux
	h = metrics.Middleware(h)
	h = limiter.Middleware(tooMany)(h)
	h = cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})(h)
	h = logger.NewMiddleware(log)(h)

	addr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.InfoContext(ctx, "Server started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	log.InfoContext(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "Server forced to shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	log.InfoContext(ctx, "Server exited gracefully")
}

// openStore builds the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config) (kv.Store, func(), error) {
	switch cfg.StoreBackend {
	case kv.BackendMemory:
		return kv.NewMemStore(), func() {}, nil

	case kv.BackendPostgres:
		pool, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		// the store's closer owns the pool
		store, closeStore := pgxstore.New(pool)
		return store, closeStore, nil

	case kv.BackendBolt:
		store, err := boltstore.Open(cfg.BoltPath, nil)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case kv.BackendS3:
		store, err := s3store.NewFromConfig(ctx, s3store.Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownBackend, cfg.StoreBackend)
	}
}

// sponsorGraph dials the chain when an RPC endpoint is configured. Without one
// the factory answers every read with chain.ErrNotConfigured.
func sponsorGraph(cfg config.Config) (*chain.Factory, error) {
	if !common.IsHexAddress(cfg.ChainFactoryAddress) {
		return nil, fmt.Errorf("invalid CHAIN_FACTORY_ADDRESS %q", cfg.ChainFactoryAddress)
	}
	address := common.HexToAddress(cfg.ChainFactoryAddress)

	if cfg.ChainRPCURL == "" {
		return chain.NewFactory(nil, address), nil
	}

	client, err := chain.Dial(cfg.ChainRPCURL)
	if err != nil {
		return nil, err
	}
	return chain.NewFactory(client, address, chain.WithTimeout(cfg.ChainTimeout)), nil
}
