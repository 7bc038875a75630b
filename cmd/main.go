package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/skillcheck/internal/adapters/content"
	"github.com/okian/skillcheck/internal/adapters/http/api"
	"github.com/okian/skillcheck/internal/adapters/http/swagger"
	"github.com/okian/skillcheck/internal/adapters/llm"
	"github.com/okian/skillcheck/internal/adapters/ratelimit"
	app "github.com/okian/skillcheck/internal/app"
	"github.com/okian/skillcheck/internal/config"
	"github.com/okian/skillcheck/internal/domain/phase"
	"github.com/okian/skillcheck/internal/domain/scoring"
	"github.com/okian/skillcheck/pkg/logger"
	"github.com/okian/skillcheck/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeoutSlack         = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	redisPingTimeout          = 2 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Default Go collectors live on the default registry; ours is separate.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if cfg.LogFormat != logger.FormatText {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
			os.Exit(1)
		}
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	handler, cleanup, err := buildHandler(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to start", logger.Error(err))
	}
	defer cleanup()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.LLM.Timeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildHandler wires every component from cfg. The returned cleanup releases
// the Redis connection, if any.
func buildHandler(ctx context.Context, cfg *config.Config, log logger.Logger) (http.Handler, func(), error) {
	gen, model, err := newGenerator(ctx, cfg.LLM, log)
	if err != nil {
		return nil, nil, err
	}

	store, err := content.New(content.WithDir(cfg.Content.Dir))
	if err != nil {
		return nil, nil, err
	}

	policy, err := phase.ParsePolicy(cfg.Mentor.PhasePolicy)
	if err != nil {
		return nil, nil, err
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithGenerator(gen),
		app.WithModelName(model),
		app.WithRubrics(store),
		app.WithFallbackOpenScore(cfg.Scoring.FallbackOpenScore),
		app.WithScoringEngine(scoring.NewEngine(scoring.WithWeights(scoring.Weights{
			Likert: cfg.Scoring.LikertWeight,
			Open:   cfg.Scoring.OpenWeight,
		}))),
		app.WithPhaseTracker(phase.NewTracker(phase.WithPolicy(policy))),
	)

	proxies, err := ratelimit.ParseProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return nil, nil, err
	}

	var scripter redis.Scripter
	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn(ctx, "redis unreachable; rate limiting fails open until it recovers",
				logger.String("addr", cfg.Redis.Addr), logger.Error(err))
		}
		cancel()
		scripter = client
		cleanup = func() { _ = client.Close() }
	}
	limiter := ratelimit.New(scripter, cfg.RateLimit.QPS,
		ratelimit.WithLogger(log.Named("ratelimit")),
		ratelimit.WithTrustedProxies(proxies))

	router := mux.NewRouter()
	swagger.Register(ctx, router)
	api.NewServer(svc, store,
		api.WithRateLimit(limiter.Middleware),
		api.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
	).Register(ctx, router)

	log.Info(ctx, "service configured",
		logger.Bool("llmConfigured", svc.Configured()),
		logger.String("model", model),
		logger.String("phasePolicy", string(policy)),
		logger.Bool("rateLimited", limiter.Enabled()))
	return router, cleanup, nil
}

// newGenerator builds the Gemini client. Without a key it fails when the
// model is required and otherwise returns a nil generator.
func newGenerator(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (llm.Generator, string, error) {
	client, err := llm.NewGemini(ctx, cfg.APIKey,
		llm.WithModel(cfg.Model),
		llm.WithTemperature(cfg.Temperature),
		llm.WithTimeout(cfg.Timeout()),
		llm.WithLogger(log.Named("llm")),
	)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		if cfg.Required {
			return nil, "", config.ErrMissingAPIKey
		}
		log.Warn(ctx, "no model API key; model-backed endpoints will answer 503")
		return nil, "", nil
	case err != nil:
		return nil, "", err
	}
	return client, client.Model(), nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
