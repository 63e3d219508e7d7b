package handlers

import (
	"context"
	"net/http"

	"github.com/Mnabil10/fasket-backend/api/responses"
	"github.com/Mnabil10/fasket-backend/pkg/config"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

// HealthCheck is a named dependency probe.
type HealthCheck struct {
	Name string
	Ping func(context.Context) error
}

func Healthz(cfg *config.Config, logg *logger.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, check := range checks {
			if check.Ping == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable"))
				return
			}
		}
		w.Header().Set("X-Fasket-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
