package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/gelatokw/scoops-backend/api/responses"
	"github.com/gelatokw/scoops-backend/pkg/config"
	"github.com/gelatokw/scoops-backend/pkg/db"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/logger"
	"github.com/gelatokw/scoops-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Scoops-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports whether the API's backing services are reachable.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Scoops-Env", cfg.App.Env)

		checks := map[string]string{}
		var pingErr error

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["postgres"] = err.Error()
				pingErr = multierr.Append(pingErr, err)
			} else {
				checks["postgres"] = "ok"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				pingErr = multierr.Append(pingErr, err)
			} else {
				checks["redis"] = "ok"
			}
		}

		if pingErr != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "dependencies unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
