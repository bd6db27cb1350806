package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coolmotors/coolmotors-backend/internal/cron"
	"github.com/coolmotors/coolmotors-backend/internal/imaging"
	"github.com/coolmotors/coolmotors-backend/internal/likes"
	"github.com/coolmotors/coolmotors-backend/internal/listings"
	"github.com/coolmotors/coolmotors-backend/internal/users"
	"github.com/coolmotors/coolmotors-backend/pkg/config"
	"github.com/coolmotors/coolmotors-backend/pkg/db"
	"github.com/coolmotors/coolmotors-backend/pkg/logger"
	"github.com/coolmotors/coolmotors-backend/pkg/metrics"
	"github.com/coolmotors/coolmotors-backend/pkg/redis"
	"github.com/coolmotors/coolmotors-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.Mongo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	s3Client, err := s3.NewClient(context.Background(), cfg.AWS, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	processor, err := imaging.NewProcessor(cfg.Media.ImageMaxWidth, cfg.Media.ImageQuality)
	if err != nil {
		logg.Error(context.Background(), "failed to create image processor", err)
		os.Exit(1)
	}

	listingsService, err := listings.NewService(listings.ServiceParams{
		Drafts:      listings.NewDraftRepository(dbClient),
		Vehicles:    listings.NewVehicleRepository(dbClient),
		Sold:        listings.NewSoldRepository(dbClient),
		Owners:      users.NewRepository(dbClient),
		Likes:       likes.NewRepository(dbClient),
		Storage:     s3Client,
		Processor:   processor,
		Metrics:     metrics.NewListingMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
		MaxPerOwner: cfg.Listings.MaxPerOwner,
		ListingTTL:  cfg.Listings.TTL(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	expiredJob, err := cron.NewExpiredListingJob(cron.ExpiredListingJobParams{
		Logger:   logg,
		Listings: listingsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expired listing job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiredJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
