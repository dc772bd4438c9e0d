package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"

	"github.com/iliyamo/messagely/internal/cache"
	"github.com/iliyamo/messagely/internal/config"
	"github.com/iliyamo/messagely/internal/database"
	"github.com/iliyamo/messagely/internal/handler"
	"github.com/iliyamo/messagely/internal/middleware"
	"github.com/iliyamo/messagely/internal/queue"
	"github.com/iliyamo/messagely/internal/repository"
	"github.com/iliyamo/messagely/internal/router"
	"github.com/iliyamo/messagely/internal/service"
	"github.com/iliyamo/messagely/internal/utils"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	pflag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// A missing .env is normal outside development.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("load env file", "file", *envFile, "err", err)
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Error("open database", "driver", cfg.DB.Driver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		logger.Error("migrate database", "err", err)
		os.Exit(1)
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return
	}

	tokens, err := utils.NewTokenService(cfg.Token)
	if err != nil {
		logger.Error("token service", "err", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Info("redis unavailable, rate limiting and message cache disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	messages := repository.NewMessageRepo(db)

	opts := []service.MessageOption{service.WithLogger(logger)}
	if mc := cache.NewMessageCache(config.LoadCacheConfig(), rdb); mc != nil {
		opts = append(opts, service.WithCache(mc))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := config.LoadEventsConfig()
	if events.PublishEnabled {
		opts = append(opts, service.WithEvents(service.NewAMQPPublisher(events.URL, events.Queue)))
	}
	if events.ConsumerEnabled {
		go func() {
			if err := queue.StartMessageConsumer(ctx, events, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("message consumer stopped", "err", err)
			}
		}()
	}

	authSvc := service.NewAuthService(users, tokens, cfg.BcryptCost, logger)
	msgSvc := service.NewMessageService(messages, users, opts...)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
				logger.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
				return nil
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), tokens, limiter)
	router.RegisterMessages(e, handler.NewMessageHandler(msgSvc), tokens, limiter)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DB.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", "err", err)
	}
}
