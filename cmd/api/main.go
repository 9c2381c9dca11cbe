// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saathi-labs/companion-api/internal/admin"
	"github.com/saathi-labs/companion-api/internal/auth"
	"github.com/saathi-labs/companion-api/internal/character"
	"github.com/saathi-labs/companion-api/internal/chat"
	"github.com/saathi-labs/companion-api/internal/config"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/health"
	"github.com/saathi-labs/companion-api/internal/ledger"
	"github.com/saathi-labs/companion-api/internal/llm"
	"github.com/saathi-labs/companion-api/internal/metrics"
	"github.com/saathi-labs/companion-api/internal/middleware"
	"github.com/saathi-labs/companion-api/internal/payment"
	"github.com/saathi-labs/companion-api/internal/rating"
	"github.com/saathi-labs/companion-api/internal/razorpay"
	"github.com/saathi-labs/companion-api/internal/server"
	"github.com/saathi-labs/companion-api/internal/speech"
	"github.com/saathi-labs/companion-api/internal/user"
	"github.com/saathi-labs/companion-api/internal/voice"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	completer, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("completion provider ready", "provider", cfg.LLM.Provider)

	coins := ledger.New(db.DB)

	characterRepo := character.NewRepository(db.DB)
	characterSvc := character.NewService(characterRepo, logger)
	characterHandler := character.NewHandler(characterSvc)

	if err := characterSvc.SeedDefaults(ctx); err != nil {
		return err
	}

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	sessions := auth.NewSessionStore(redis.Client, cfg.Session, cfg.App.Name)
	cookies := auth.NewCookieWriter(cfg.Session)
	authSvc := auth.NewService(userSvc, sessions, logger)
	authHandler := auth.NewHandler(authSvc, cookies)

	chatSvc := chat.NewService(chat.ServiceConfig{
		Repo:          chat.NewRepository(db.DB),
		Characters:    characterSvc,
		Ledger:        coins,
		Completer:     completer,
		HistoryWindow: cfg.LLM.HistoryWindow,
		Logger:        logger,
	})
	chatHandler := chat.NewHandler(chatSvc)

	voiceSvc := voice.NewService(voice.ServiceConfig{
		Chat:          chatSvc,
		Transcriber:   speech.NewWhisper(cfg.OpenAI, logger),
		Synthesizer:   speech.NewElevenLabs(cfg.ElevenLabs, logger),
		MinAudioBytes: cfg.Voice.MinAudioBytes,
		Logger:        logger,
	})
	voiceHandler := voice.NewHandler(voiceSvc)

	paymentSvc := payment.NewService(
		payment.NewRepository(db.DB, coins),
		razorpay.NewClient(cfg.Razorpay, logger),
		coins,
		cfg.Payment,
		logger,
	)
	paymentHandler := payment.NewHandler(paymentSvc)

	ratingHandler := rating.NewHandler(
		rating.NewService(rating.NewRepository(db.DB), logger),
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Credentials: cfg.Admin,
		Elevator:    authSvc,
		Cookies:     cookies,
		Analytics:   admin.NewAnalyticsRepository(db.DB),
		Credits:     coins,
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		DBPing:      db.Ping,
		RedisPing:   redis.Ping,
		Logger:      logger,
	})

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware)
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen:   true,
			BypassFunc: isOperational,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())

	authenticator := middleware.Authenticator(authSvc, cookies.Name())
	session := middleware.OptionalSession(authSvc, cookies.Name())
	messageLimiter := middleware.MessageLimiter(
		redis.Client,
		cfg.RateLimit.MessagesPerMin,
		cfg.RateLimit.MessagesBurst,
	)

	router.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r, session)
		userHandler.RegisterRoutes(r, authenticator)
		characterHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r, authenticator, messageLimiter)
		voiceHandler.RegisterRoutes(r, authenticator, messageLimiter)
		ratingHandler.RegisterRoutes(r, authenticator)
		paymentHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r,
			middleware.AdminHost(cfg.Admin.HostAllowed),
			session,
			userHandler.RegisterAdminRoutes,
			characterHandler.RegisterAdminRoutes,
		)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := completer.Close(); err != nil {
		logger.Error("completion provider close error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// isOperational exempts health checks and metric scrapes from the global rate limit.
func isOperational(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/livez", "/readyz", "/metrics":
		return true
	}
	return false
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
