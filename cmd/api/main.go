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

	autowds "github.com/autowds/server"
	"github.com/autowds/server/internal/admin"
	"github.com/autowds/server/internal/auth"
	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
	"github.com/autowds/server/internal/credit"
	"github.com/autowds/server/internal/health"
	"github.com/autowds/server/internal/mail"
	"github.com/autowds/server/internal/middleware"
	"github.com/autowds/server/internal/payment"
	"github.com/autowds/server/internal/server"
	"github.com/autowds/server/internal/task"
	"github.com/autowds/server/internal/template"
	"github.com/autowds/server/internal/user"
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

	if cfg.Database.Migrate {
		if err := core.Migrate(ctx, db, autowds.Migrations); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	mailer, err := mail.NewMailer(cfg.Mail)
	if err != nil {
		return err
	}
	codeStore := mail.NewCodeStore(redis.Client)

	creditRepo := credit.NewRepository(db.DB)
	creditSvc := credit.NewService(creditRepo, db)
	creditHandler := credit.NewHandler(creditSvc, cfg.Credit)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(
		userRepo, creditSvc, codeStore, mailer, db, cfg.Credit,
	)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(jwtManager, userSvc)
	authHandler := auth.NewHandler(authSvc)

	taskSvc := task.NewService(task.NewRepository(db.DB, db))
	taskHandler := task.NewHandler(taskSvc)

	templateSvc := template.NewService(template.NewRepository(db.DB), db)
	templateHandler := template.NewHandler(templateSvc)

	providers := map[string]payment.Provider{}

	var alipayClient *payment.AlipayClient
	if cfg.Pay.Alipay.Enabled {
		alipayClient, err = payment.NewAlipayClient(cfg.Pay.Alipay)
		if err != nil {
			return err
		}
		providers[alipayClient.Name()] = alipayClient
		logger.Info("alipay channel enabled")
	}

	var wechatClient *payment.WechatClient
	if cfg.Pay.Wechat.Enabled {
		wechatClient, err = payment.NewWechatClient(cfg.Pay.Wechat)
		if err != nil {
			return err
		}
		providers[wechatClient.Name()] = wechatClient
		logger.Info("wechat pay channel enabled")
	}

	paymentSvc := payment.NewService(
		payment.NewRepository(db.DB), providers, userSvc, cfg.Pay, logger,
	)
	paymentHandler := payment.NewHandler(
		paymentSvc, alipayClient, wechatClient, logger,
	)

	sweeper := payment.NewSweeper(paymentSvc, cfg.Pay.Sweep, logger)
	if len(providers) > 0 {
		if err := sweeper.Start(); err != nil {
			return err
		}
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("database", db)
	healthHandler.Register("redis", redis)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Repo:       admin.NewRepository(db.DB),
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	adminOnly := middleware.RequireAdmin

	// authenticated routes get a second, per-user quota scaled by edition;
	// it must run after the authenticator so the claims are in context
	editionLimiter := middleware.EditionRateLimiter(
		redis.Client, middleware.DefaultEditionLimits,
	)
	authedLimited := func(next http.Handler) http.Handler {
		return authenticator(editionLimiter(next))
	}

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		creditHandler.RegisterRoutes(r, authedLimited)
		taskHandler.RegisterRoutes(r, authedLimited)
		templateHandler.RegisterRoutes(r, authedLimited)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			paymentHandler.RegisterRoutes(r)
		})

		// provider callbacks authenticate by signature, not bearer token
		paymentHandler.RegisterWebhookRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(adminOnly)
			adminHandler.RegisterRoutes(r)
			paymentHandler.RegisterAdminRoutes(r)
		})
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

	if len(providers) > 0 {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			logger.Error("sweep shutdown error", "error", err)
		}
	}

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
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
