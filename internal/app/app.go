// Package app provides application initialization and dependency injection.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/openveg/directory-service/config"
	"github.com/openveg/directory-service/internal/cache"
	"github.com/openveg/directory-service/internal/domain/model"
	apphttp "github.com/openveg/directory-service/internal/http"
	"github.com/openveg/directory-service/internal/logger"
	"github.com/openveg/directory-service/internal/repository"
	"github.com/openveg/directory-service/internal/service"
)

// App holds the wired application components. Everything is
// constructed once here and passed by reference: no hidden singletons.
type App struct {
	Router  *gin.Engine
	Mongo   *repository.MongoDB
	Store   *cache.MemoryStore
	Cache   *cache.Service
	Warmer  *service.CacheWarmer
	Monitor *service.AlertMonitor
}

// InitializeApp creates and wires all application dependencies.
func InitializeApp(cfg config.Config) (*App, error) {
	logger.Init(cfg.Server.LogLevel, cfg.Server.LogPretty)
	log := logger.Logger()

	mongo, err := repository.NewMongoDB(cfg.Database.URI, cfg.Database.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	store := cache.NewMemoryStore(cfg.Cache.CleanupInterval)
	cacheSvc := cache.NewService(store, cfg.Cache.TTL, cfg.Cache.OpTimeout, log)

	restaurants := repository.NewRepository[model.Restaurant, *model.Restaurant](mongo, model.KindRestaurant, cacheSvc, log)
	recipes := repository.NewRepository[model.Recipe, *model.Recipe](mongo, model.KindRecipe, cacheSvc, log)
	markets := repository.NewRepository[model.Market, *model.Market](mongo, model.KindMarket, cacheSvc, log)
	businesses := repository.NewRepository[model.Business, *model.Business](mongo, model.KindBusiness, cacheSvc, log)
	doctors := repository.NewRepository[model.Doctor, *model.Doctor](mongo, model.KindDoctor, cacheSvc, log)
	sanctuaries := repository.NewRepository[model.Sanctuary, *model.Sanctuary](mongo, model.KindSanctuary, cacheSvc, log)

	reviewRepo := repository.NewReviewRepository(mongo)
	reviewSvc := service.NewReviewService(reviewRepo, cacheSvc, log)

	var routines []service.WarmRoutine
	routines = append(routines, entityRoutines(restaurants, cfg.Warming.TopN)...)
	routines = append(routines, entityRoutines(recipes, cfg.Warming.TopN)...)
	routines = append(routines, entityRoutines(markets, cfg.Warming.TopN)...)
	routines = append(routines, entityRoutines(businesses, cfg.Warming.TopN)...)
	routines = append(routines, entityRoutines(doctors, cfg.Warming.TopN)...)
	routines = append(routines, entityRoutines(sanctuaries, cfg.Warming.TopN)...)
	warmer := service.NewCacheWarmer(routines, log)

	monitor := service.NewAlertMonitor(cacheSvc, alertThresholds(cfg.Alerts), alertNotifiers(cfg.Alerts, log), log)

	healthHandler := apphttp.NewHealthHandler()
	healthHandler.AddChecker("database", mongo)
	healthHandler.AddChecker("cache", cacheCheckerFunc(cacheSvc.HealthCheck))

	router := apphttp.NewRouter(healthHandler, apphttp.RouterConfig{
		RateLimit:   cfg.Server.RateLimit,
		RateWindow:  cfg.Server.RateWindow,
		CORSOrigins: cfg.Server.CORSOrigins,
	},
		apphttp.NewEntityHandler(restaurants),
		apphttp.NewEntityHandler(recipes),
		apphttp.NewEntityHandler(markets),
		apphttp.NewEntityHandler(businesses),
		apphttp.NewEntityHandler(doctors),
		apphttp.NewEntityHandler(sanctuaries),
		apphttp.NewReviewHandler(reviewSvc),
		apphttp.NewCacheHandler(cacheSvc, warmer, monitor),
	)

	return &App{
		Router:  router,
		Mongo:   mongo,
		Store:   store,
		Cache:   cacheSvc,
		Warmer:  warmer,
		Monitor: monitor,
	}, nil
}

// Start begins the background jobs the configuration enables.
func (a *App) Start(cfg config.Config) {
	if cfg.Warming.Enabled {
		a.Warmer.StartAutoWarming(cfg.Warming.Interval)
	}
	if cfg.Alerts.Enabled {
		a.Monitor.Start(cfg.Alerts.Interval)
	}
}

// Shutdown stops background jobs and closes connections.
func (a *App) Shutdown(ctx context.Context) error {
	a.Warmer.StopAutoWarming()
	a.Monitor.Stop()
	a.Store.Stop()
	return a.Mongo.Close(ctx)
}

// entityRoutines builds the two warming steps of one entity kind.
func entityRoutines[T any, PT interface {
	*T
	repository.Document
}](repo *repository.Repository[T, PT], topN int) []service.WarmRoutine {
	kind := repo.Kind().String()
	return []service.WarmRoutine{
		{
			Name: kind + ":listings",
			Run:  repo.WarmListings,
		},
		{
			Name: kind + ":top",
			Run: func(ctx context.Context) (int, error) {
				return repo.WarmTop(ctx, topN)
			},
		},
	}
}

func alertThresholds(cfg config.AlertsConfig) service.AlertThresholds {
	thresholds := service.DefaultAlertThresholds()
	thresholds.MinHitRatio = cfg.MinHitRatio
	thresholds.CriticalHitRatio = cfg.CriticalHitRatio
	thresholds.MaxMemoryBytes = cfg.MaxMemoryBytes
	thresholds.MaxKeys = cfg.MaxKeys
	thresholds.ResolveGracePeriod = cfg.ResolveGracePeriod
	return thresholds
}

func alertNotifiers(cfg config.AlertsConfig, log zerolog.Logger) []service.Notifier {
	notifiers := []service.Notifier{
		service.NewLogNotifier("email", log),
		service.NewLogNotifier("chat", log),
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, service.NewWebhookNotifier(cfg.WebhookURL))
	}
	return notifiers
}

// cacheCheckerFunc adapts the cache health probe to the HealthChecker
// interface.
type cacheCheckerFunc func(ctx context.Context) error

func (f cacheCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
