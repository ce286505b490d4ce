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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/venue-operations/internal/cache"
	"github.com/iliyamo/venue-operations/internal/config"
	"github.com/iliyamo/venue-operations/internal/database"
	"github.com/iliyamo/venue-operations/internal/handler"
	"github.com/iliyamo/venue-operations/internal/metrics"
	"github.com/iliyamo/venue-operations/internal/notify"
	"github.com/iliyamo/venue-operations/internal/queue"
	"github.com/iliyamo/venue-operations/internal/repository"
	"github.com/iliyamo/venue-operations/internal/router"
	"github.com/iliyamo/venue-operations/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(env string) *slog.Logger {
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(&cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Redis is optional: without it the cache and the limiter pass through.
	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	hub := notify.NewHub(logger, notify.WithBuffer(cfg.NotifyBuffer), notify.WithMetrics(m))
	opts := []service.Option{service.WithMetrics(m), service.WithReadTimeout(cfg.ReadTimeout)}
	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQP.Enabled {
		pub := queue.NewPublisher(cfg.AMQP, logger, m)
		defer pub.Close()
		opts = append(opts, service.WithBroker(pub),
			service.WithBrokerBacklog(cfg.AMQP.Backlog), service.WithBrokerTimeout(cfg.AMQP.PublishTimeout))

		audit := queue.NewAuditConsumer(cfg.AMQP, queue.DefaultAuditPath, logger)
		g.Go(func() error {
			if err := audit.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	engine := service.NewEngine(repository.NewStore(db), cache.New(rdb, cfg.Cache, logger, m), hub, logger, opts...)
	g.Go(func() error {
		engine.RunReaper(gctx, cfg.ReaperEvery)
		return nil
	})
	g.Go(func() error {
		engine.RunForwarder(gctx)
		return nil
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			logger.LogAttrs(context.Background(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	router.RegisterRoutes(e, router.Deps{
		Venue:     handler.NewVenueHandler(engine),
		Stream:    handler.NewEventStream(hub, logger),
		DB:        db,
		Gatherer:  reg,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
	})

	addr := ":" + cfg.Port // Address string with port
	g.Go(func() error {
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
