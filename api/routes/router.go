package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coolmotors/coolmotors-backend/api/controllers"
	"github.com/coolmotors/coolmotors-backend/api/middleware"
	"github.com/coolmotors/coolmotors-backend/internal/listings"
	"github.com/coolmotors/coolmotors-backend/pkg/config"
	"github.com/coolmotors/coolmotors-backend/pkg/db"
	"github.com/coolmotors/coolmotors-backend/pkg/enums"
	"github.com/coolmotors/coolmotors-backend/pkg/logger"
	"github.com/coolmotors/coolmotors-backend/pkg/redis"
	"github.com/coolmotors/coolmotors-backend/pkg/storage/s3"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	mongo db.Pinger,
	redisClient *redis.Client,
	s3Client s3.Pinger,
	listingsService listings.Service,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, mongo, redisClient, s3Client))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Get("/api/v1/vehicles/{id}", controllers.GetVehicle(listingsService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/pending-vehicles", func(r chi.Router) {
			r.Post("/list", controllers.SubmitListing(listingsService, cfg.Media, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
				r.Get("/oldest", controllers.OldestPendingVehicle(listingsService, logg))
				r.Get("/{id}/next", controllers.NextPendingVehicle(listingsService, logg))
				r.Post("/{id}/approve", controllers.ApprovePendingVehicle(listingsService, logg))
				r.Delete("/{id}/disapprove", controllers.DisapprovePendingVehicle(listingsService, logg))
			})
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Patch("/{id}/sold", controllers.MarkVehicleSold(listingsService, logg))
			r.Delete("/{id}", controllers.DeleteVehicle(listingsService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
				r.Patch("/{id}/feature", controllers.FeatureVehicle(listingsService, true, logg))
				r.Patch("/{id}/unfeature", controllers.FeatureVehicle(listingsService, false, logg))
			})
		})
	})

	return r
}
