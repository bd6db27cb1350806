package main

import (
	"context"
	"net/http"
	"os"

	"github.com/coolmotors/coolmotors-backend/api/routes"
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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	promRegistry := prometheus.NewRegistry()

	listingsService, err := listings.NewService(listings.ServiceParams{
		Drafts:      listings.NewDraftRepository(dbClient),
		Vehicles:    listings.NewVehicleRepository(dbClient),
		Sold:        listings.NewSoldRepository(dbClient),
		Owners:      users.NewRepository(dbClient),
		Likes:       likes.NewRepository(dbClient),
		Storage:     s3Client,
		Processor:   processor,
		Metrics:     metrics.NewListingMetrics(promRegistry),
		Logger:      logg,
		MaxPerOwner: cfg.Listings.MaxPerOwner,
		ListingTTL:  cfg.Listings.TTL(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, s3Client, listingsService, promRegistry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
