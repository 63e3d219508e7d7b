package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mnabil10/fasket-backend/api/handlers"
	"github.com/Mnabil10/fasket-backend/api/middleware"
	"github.com/Mnabil10/fasket-backend/internal/balances"
	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/internal/ledger"
	"github.com/Mnabil10/fasket-backend/internal/payouts"
	"github.com/Mnabil10/fasket-backend/internal/settlement"
	"github.com/Mnabil10/fasket-backend/pkg/config"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

// HandlerParams carries everything the ops router serves.
type HandlerParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Settlement   settlement.Service
	Payouts      payouts.Service
	Ledger       ledger.Service
	LedgerRepo   ledger.Repository
	Balances     balances.Repository
	Commission   commission.Repository
	HealthChecks []handlers.HealthCheck
}

// NewHandler builds the worker's HTTP surface: health, metrics and the
// admin settlement/payout endpoints.
func NewHandler(params HandlerParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.Recoverer(logg))

	r.Get("/healthz", handlers.Healthz(cfg, logg, params.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Post("/orders/{orderID}/settle", handlers.SettleOrder(params.Settlement, logg))
		r.Post("/commission-configs", handlers.CreateCommissionConfig(params.Commission, logg))

		r.Route("/providers/{providerID}", func(r chi.Router) {
			r.Get("/balance", handlers.Balance(params.Balances, logg))
			r.Get("/statement", handlers.Statement(params.Ledger, logg))
			r.Get("/statement.csv", handlers.StatementCSV(params.LedgerRepo, logg))
			r.Post("/holds/release", handlers.ReleaseHolds(params.Settlement, logg))
		})

		r.Post("/payouts", handlers.CreatePayout(params.Payouts, logg))
		r.Post("/payouts/{payoutID}/status", handlers.UpdatePayoutStatus(params.Payouts, logg))
	})

	return r
}
