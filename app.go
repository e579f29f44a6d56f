package main

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/config"
	"github.com/kendall-kelly/wholesale-orders-api/controllers"
	"github.com/kendall-kelly/wholesale-orders-api/middleware"
	"github.com/kendall-kelly/wholesale-orders-api/services"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// application holds the wired engine of one process
type application struct {
	cfg         *config.Config
	logger      *logrus.Logger
	db          *gorm.DB
	registry    *prometheus.Registry
	dispatcher  *services.Dispatcher
	sweeper     *services.DeadlineSweeper
	controllers controllers.Controllers
	closers     []func()
}

// newApplication builds the services and their collaborators. Optional backends
// (Redis, Pub/Sub, S3) are only dialed when configured.
func newApplication(ctx context.Context, cfg *config.Config, logger *logrus.Logger, db *gorm.DB) (*application, error) {
	app := &application{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	numbers, err := utils.NewNumberGenerator(cfg.SnowflakeNode)
	if err != nil {
		return nil, err
	}

	sinks := []services.EventSink{services.NewNotificationSink(db), services.NewLogSink(logger)}
	if cfg.PubSubTopic != "" {
		sink, closeFn, err := services.OpenPubSubSink(ctx, cfg.PubSubProjectID, cfg.PubSubTopic)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closeFn)
		sinks = append(sinks, sink)
		logger.WithField("topic", cfg.PubSubTopic).Info("Publishing engine events to Pub/Sub")
	}
	app.dispatcher = services.NewDispatcher(logger, cfg.EventBufferSize, sinks...)
	app.dispatcher.Start(cfg.EventWorkers)

	deps := services.Dependencies{
		DB:        db,
		Publisher: app.dispatcher,
		Metrics:   services.NewMetrics(app.registry),
		Logger:    logger,
		Numbers:   numbers,
	}

	var locker services.SweepLocker = &services.LocalSweepLocker{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		app.closers = append(app.closers, func() { rdb.Close() })
		locker = services.NewRedisSweepLocker(rdb, cfg.SweepLockTTL)
	}

	var images services.ImageService
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		images = services.NewS3ImageService(s3Service)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, return evidence uploads are disabled")
	}

	orders := services.NewOrderService(deps)
	app.sweeper = services.NewDeadlineSweeper(deps, orders, locker, services.SweepConfig{
		BatchSize:    cfg.SweepBatchSize,
		Concurrency:  cfg.SweepConcurrency,
		OrderTimeout: cfg.SweepOrderTimeout,
		KeyWindow:    cfg.SweepKeyWindow,
	})
	app.controllers = controllers.Controllers{
		Orders:      controllers.NewOrderController(orders),
		Returns:     controllers.NewReturnController(services.NewReturnService(deps, decimal.NewFromFloat(cfg.RestockFeePercent), images)),
		CreditNotes: controllers.NewCreditNoteController(services.NewCreditService(deps)),
		Cron:        controllers.NewCronController(app.sweeper),
		Users:       controllers.NewUserController(db),
		Settings:    controllers.NewSettingsController(services.NewConfirmationSettingsService(deps)),
	}
	return app, nil
}

// Close drains pending events and releases the optional backends
func (a *application) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newRouter mounts health, metrics and engine routes behind the given guards
func newRouter(app *application, auth controllers.RouteAuth) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(app.logger))
	router.Use(middleware.NewMetricsBuilder(app.registry).Build())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
	}
	controllers.RegisterRoutes(v1, app.controllers, auth)
	return router
}

// productionAuth wires the real guards: Auth0 tokens, user to actor mapping and the cron secret
func productionAuth(app *application) controllers.RouteAuth {
	return controllers.RouteAuth{
		Token:          middleware.EnsureValidToken(app.cfg, app.logger),
		Actor:          middleware.ResolveActor(app.db),
		Cron:           middleware.RequireCronSecret(app.cfg.CronSecret),
		ManageSettings: middleware.RequireScope(middleware.ScopeManageSettings),
	}
}
