package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yingkiat/swing-sage/internal/boundary"
	"github.com/yingkiat/swing-sage/internal/cache"
	"github.com/yingkiat/swing-sage/internal/config"
	cronrunner "github.com/yingkiat/swing-sage/internal/cron"
	"github.com/yingkiat/swing-sage/internal/db"
	"github.com/yingkiat/swing-sage/internal/eventstore"
	"github.com/yingkiat/swing-sage/internal/handler"
	"github.com/yingkiat/swing-sage/internal/logger"
	"github.com/yingkiat/swing-sage/internal/metrics"
	"github.com/yingkiat/swing-sage/internal/projection"
	gormrepository "github.com/yingkiat/swing-sage/internal/repository/gorm"
	"github.com/yingkiat/swing-sage/internal/views"
)

func main() {
	cfgPath := os.Getenv("SS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	m := metrics.New()

	engine := &projection.Engine{
		Repo:    store,
		Logger:  logger,
		Metrics: m,
		Config: projection.Config{
			SnapshotThreshold: decimal.NewFromFloat(cfg.Projection.SnapshotThreshold),
		},
	}
	eventStore := &eventstore.Store{
		Repo:    store,
		Engine:  engine,
		Logger:  logger,
		Metrics: m,
	}

	validator, err := boundary.NewValidator()
	if err != nil {
		logger.Fatal("schema compile failed", zap.Error(err))
	}
	emitter := &boundary.Emitter{Store: eventStore, Validator: validator, Logger: logger}
	getter := &boundary.Getter{Store: eventStore}

	viewSvc := &views.Service{
		Repo: store,
		Config: views.Config{
			ConcentrationThreshold: decimal.NewFromFloat(cfg.Views.ConcentrationThreshold),
			ActivityWindowDays:     cfg.Views.ActivityWindowDays,
			PerformanceWindowDays:  cfg.Views.PerformanceWindowDays,
		},
	}

	var eventCache *cache.EventCache
	if cfg.Cache.Enabled {
		eventCache, err = cache.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Warn("cache disabled", zap.Error(err))
			eventCache = nil
		} else {
			defer eventCache.Close()
		}
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	eventsHandler := &handler.EventsHandler{
		Emitter: emitter,
		Getter:  getter,
		Cache:   eventCache,
		Logger:  logger,
	}
	eventsHandler.Register(router)
	portfolioHandler := &handler.PortfolioHandler{Views: viewSvc}
	portfolioHandler.Register(router)
	adminHandler := &handler.AdminHandler{Engine: engine, Logger: logger}
	adminHandler.Register(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add(cfg.Cron.Snapshot, func(ctx context.Context) {
			if err := engine.TakeScheduledSnapshot(ctx); err != nil {
				logger.Warn("scheduled snapshot failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register snapshot failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
