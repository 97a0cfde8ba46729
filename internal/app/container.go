package app

import (
	"context"
	"log"
	"os"
	"time"

	"feedpulse/internal/analyzer"
	"feedpulse/internal/config"
	"feedpulse/internal/database"
	dbpostgres "feedpulse/internal/database/postgres"
	"feedpulse/internal/infrastructure/cache"
	"feedpulse/internal/infrastructure/fetcher"
	"feedpulse/internal/language"
	"feedpulse/internal/refresh"
	"feedpulse/internal/repository"
	"feedpulse/internal/scheduler"
	"feedpulse/internal/usecase"
	"feedpulse/internal/ws"
)

// Container wires the whole engine together: storage, cache, fetchers,
// the scheduler and the usecases the HTTP layer serves.
type Container struct {
	Config config.Config
	Logger *log.Logger

	DB    database.DB
	Cache *cache.Redis

	Hub      *ws.Hub
	Notifier *ws.Notifier

	Sources   repository.FeedSourceRepository
	Instances repository.FeedInstanceRepository
	Metrics   repository.HealthMetricRepository
	Articles  repository.ArticleRepository

	Scheduler *scheduler.Scheduler

	Monitor          usecase.MonitorUsecase
	SourceAdmin      usecase.SourceAdminUsecase
	SchedulerControl usecase.SchedulerControlUsecase
}

func NewContainer(cfg config.Config) (*Container, error) {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	redisCache := cache.NewRedis(cfg.Redis, logger)

	hub := ws.NewHub(logger)
	notifier := ws.NewNotifier(hub, logger)

	sources := repository.NewPostgresFeedSourceRepository(db)
	instances := repository.NewPostgresFeedInstanceRepository(db)
	metrics := repository.NewPostgresHealthMetricRepository(db)
	articles := repository.NewPostgresArticleRepository(db)

	calculator := refresh.NewCalculator(cfg.Refresh)
	detector := language.ScriptDetector{}

	feedFetcher := fetcher.NewFeedFetcher(cfg.Scheduler.FetchTimeout)
	scrapeFetcher := fetcher.NewScrapeFetcher(cfg.Scheduler.FetchTimeout)

	sched := scheduler.New(
		cfg.Scheduler,
		sources, instances, metrics, articles,
		feedFetcher, scrapeFetcher,
		calculator, detector, notifier, logger,
	)

	an := analyzer.New(cfg.Health, sources, instances, metrics, articles, logger)

	return &Container{
		Config: cfg,
		Logger: logger,

		DB:    db,
		Cache: redisCache,

		Hub:      hub,
		Notifier: notifier,

		Sources:   sources,
		Instances: instances,
		Metrics:   metrics,
		Articles:  articles,

		Scheduler: sched,

		Monitor:          usecase.NewMonitorUsecase(an, sources, redisCache, notifier, cfg.Redis.DashboardTTL, logger),
		SourceAdmin:      usecase.NewSourceAdminUsecase(sources, instances, redisCache, logger),
		SchedulerControl: usecase.NewSchedulerControlUsecase(sched),
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
