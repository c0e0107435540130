package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prizepool/config"
	"prizepool/core/state"
	"prizepool/gateway"
	gwconfig "prizepool/gateway/config"
	"prizepool/gateway/middleware"
	"prizepool/gateway/routes"
	"prizepool/integrations/randomness"
	"prizepool/integrations/venue"
	"prizepool/integrations/webhooks"
	"prizepool/native/lottery"
	"prizepool/observability/logging"
	"prizepool/observability/metrics"
	telemetry "prizepool/observability/otel"
	"prizepool/storage"
)

// blockSeconds converts wall clock time into the synthetic height used for
// the randomness recovery clock when no external chain supplies one.
const blockSeconds = 12

// awardPollInterval is how often the background loop checks for an elapsed
// epoch and pending simulated randomness.
const awardPollInterval = 15 * time.Second

func syntheticHeight() uint64 {
	return uint64(time.Now().Unix()) / blockSeconds
}

func main() {
	var cfgPath string
	var gatewayCfgPath string
	flag.StringVar(&cfgPath, "config", "./prizepool.toml", "path to service configuration")
	flag.StringVar(&gatewayCfgPath, "gateway-config", "", "path to HTTP surface configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PRIZEPOOL_ENV"))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logging.Setup("prizepoold", env).Error("load config", "error", err)
		os.Exit(1)
	}

	var logOpts []logging.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logging.WithRotatingFile(cfg.LogFile))
	}
	logger := logging.Setup("prizepoold", env, logOpts...)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("prizepoold", env))
	if err != nil {
		logger.Error("initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	gwCfg, err := gwconfig.Load(gatewayCfgPath)
	if err != nil {
		logger.Error("load gateway config", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager, err := state.NewManager(db)
	if err != nil {
		logger.Error("open state manager", "error", err)
		os.Exit(1)
	}

	params, err := cfg.PoolParams()
	if err != nil {
		logger.Error("derive pool parameters", "error", err)
		os.Exit(1)
	}

	var yieldVenue lottery.YieldVenue
	if cfg.Venue.Endpoint != "" {
		yieldVenue = venue.NewClient(cfg.Venue.Endpoint)
		logger.Info("using external yield venue", "endpoint", cfg.Venue.Endpoint)
	} else {
		yieldVenue = venue.NewSimulator(cfg.Venue.SimulatedAPRBps)
		logger.Info("using simulated yield venue", "apr_bps", cfg.Venue.SimulatedAPRBps)
	}

	var coordinator lottery.Coordinator
	var randSim *randomness.Simulator
	if cfg.Randomness.Endpoint != "" {
		coordinator = randomness.NewClient(cfg.Randomness.Endpoint, randomness.Config{
			SubscriptionID:   cfg.Randomness.SubscriptionID,
			KeyHash:          cfg.Randomness.KeyHash,
			Confirmations:    cfg.Randomness.Confirmations,
			CallbackGasLimit: cfg.Randomness.CallbackGasLimit,
			NumWords:         cfg.Randomness.NumWords,
		})
		logger.Info("using external randomness coordinator", "endpoint", cfg.Randomness.Endpoint)
	} else {
		randSim = randomness.NewSimulator(cfg.Randomness.SimulatedDelayBlocks, cfg.Randomness.NumWords, syntheticHeight)
		coordinator = randSim
		logger.Info("using simulated randomness coordinator", "delay_blocks", cfg.Randomness.SimulatedDelayBlocks)
	}

	epochStart := cfg.EpochStartTime
	if epochStart == 0 {
		epochStart = uint64(time.Now().Unix())
	}
	engine, err := lottery.NewEngine(manager, yieldVenue, coordinator, params, epochStart)
	if err != nil {
		logger.Error("construct lottery engine", "error", err)
		os.Exit(1)
	}
	engine.SetHeightFunc(syntheticHeight)

	if cfg.Webhook.Endpoint != "" {
		dispatcher, err := webhooks.NewDispatcher(cfg.Webhook.Endpoint, []byte(cfg.Webhook.Secret))
		if err != nil {
			logger.Error("configure webhooks", "error", err)
			os.Exit(1)
		}
		defer dispatcher.Close()
		engine.SetEmitter(webhooks.NewEmitter(dispatcher, nil))
		logger.Info("draw webhooks enabled", "endpoint", cfg.Webhook.Endpoint)
	}

	service := gateway.NewService(engine, manager, metrics.Lottery())

	rateLimits := make(map[string]middleware.RateLimit)
	for _, entry := range gwCfg.RateLimits {
		rateLimits[entry.ID] = middleware.RateLimit{
			RequestsPerMinute: entry.RequestsPerMinute,
			Burst:             entry.Burst,
		}
	}
	if len(rateLimits) == 0 {
		rateLimits[routes.LimitMutations] = middleware.RateLimit{RequestsPerMinute: 120, Burst: 20}
		rateLimits[routes.LimitQueries] = middleware.RateLimit{RequestsPerMinute: 600, Burst: 60}
		rateLimits[routes.LimitAdmin] = middleware.RateLimit{RequestsPerMinute: 30, Burst: 5}
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   gwCfg.Observability.ServiceName,
		MetricsPrefix: gwCfg.Observability.MetricsPrefix,
		LogRequests:   gwCfg.Observability.LogRequests,
		Enabled:       gwCfg.Observability.Enabled,
	}, logger)

	router := routes.New(routes.Config{
		Service:       service,
		AdminToken:    cfg.AdminToken,
		RateLimiter:   middleware.NewRateLimiter(rateLimits, logger),
		Observability: obs,
		CORS: middleware.CORSConfig{
			AllowedOrigins: gwCfg.CORS.AllowedOrigins,
			AllowedMethods: gwCfg.CORS.AllowedMethods,
			AllowedHeaders: gwCfg.CORS.AllowedHeaders,
		},
	})
	handler := otelhttp.NewHandler(router, "prizepoold")

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  gwCfg.ReadTimeout,
		WriteTimeout: gwCfg.WriteTimeout,
		IdleTimeout:  gwCfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go awardLoop(ctx, logger, service, randSim)

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("listen", "address", cfg.ListenAddress, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("listening", "address", listener.Addr().String())
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("serve", "error", serveErr)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
}
