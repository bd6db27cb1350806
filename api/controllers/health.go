package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/coolmotors/coolmotors-backend/api/responses"
	"github.com/coolmotors/coolmotors-backend/pkg/config"
	"github.com/coolmotors/coolmotors-backend/pkg/db"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
	"github.com/coolmotors/coolmotors-backend/pkg/logger"
	"github.com/coolmotors/coolmotors-backend/pkg/redis"
	"github.com/coolmotors/coolmotors-backend/pkg/storage/s3"
)

const readinessTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CoolMotors-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, mongo db.Pinger, cache redis.Pinger, storage s3.Pinger) http.HandlerFunc {
	type dependency struct {
		name string
		ping func(context.Context) error
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CoolMotors-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		deps := []dependency{}
		if mongo != nil {
			deps = append(deps, dependency{"mongo", mongo.Ping})
		}
		if cache != nil {
			deps = append(deps, dependency{"redis", cache.Ping})
		}
		if storage != nil {
			deps = append(deps, dependency{"s3", storage.Ping})
		}

		for _, dep := range deps {
			if err := dep.ping(ctx); err != nil {
				failCtx := logg.WithField(r.Context(), "dependency", dep.name)
				responses.WriteError(failCtx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
