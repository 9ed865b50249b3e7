package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/garagebook/internal/logging"
	"github.com/dmitrijs2005/garagebook/internal/server/metrics"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/server/services"
)

// AccountAPI is satisfied by *services.AccountService.
type AccountAPI interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.Session, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	Me(ctx context.Context, accountID int64) (*models.Account, error)
}

// VehicleAPI is satisfied by *services.VehicleService.
type VehicleAPI interface {
	Create(ctx context.Context, accountID int64, in services.VehicleInput) (*models.Vehicle, error)
	List(ctx context.Context, accountID int64, now time.Time) ([]models.VehicleView, error)
	Get(ctx context.Context, accountID, id int64, now time.Time) (*models.VehicleView, error)
	Update(ctx context.Context, accountID, id int64, in services.VehicleInput) (*models.Vehicle, error)
	Delete(ctx context.Context, accountID, id int64) error
	Summary(ctx context.Context, accountID int64, now time.Time) (models.Summary, error)
}

// ExportAPI is satisfied by *services.ExportService.
type ExportAPI interface {
	Export(ctx context.Context, accountID int64, now time.Time) (*services.Export, error)
}

// Deps is everything the router needs. Exports may be nil, which disables
// the export endpoint; Health may be nil, which reports healthy.
// TrustProxyHeaders makes X-Forwarded-For / X-Real-Ip the client address.
type Deps struct {
	Accounts          AccountAPI
	Vehicles          VehicleAPI
	Exports           ExportAPI
	Tokens            TokenVerifier
	Metrics           *metrics.Metrics
	Health            func(ctx context.Context) error
	Logger            logging.Logger
	AuthRateLimit     int
	TrustProxyHeaders bool
	Now               func() time.Time
}

type handler struct {
	accounts AccountAPI
	vehicles VehicleAPI
	exports  ExportAPI
	health   func(ctx context.Context) error
	logger   logging.Logger
	now      func() time.Time
}

// NewRouter assembles the full middleware stack and route table.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("module", "httpapi")

	h := &handler{
		accounts: d.Accounts,
		vehicles: d.Vehicles,
		exports:  d.Exports,
		health:   d.Health,
		logger:   logger,
		now:      d.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	gate := Gate(d.Tokens, logger)
	limit := RateLimit(d.AuthRateLimit)

	mux := http.NewServeMux()

	mux.Handle("POST /api/auth/signup", limit(http.HandlerFunc(h.signup)))
	mux.Handle("POST /api/auth/login", limit(http.HandlerFunc(h.login)))
	mux.Handle("GET /api/auth/me", gate(http.HandlerFunc(h.me)))

	mux.Handle("GET /api/vehicles", gate(http.HandlerFunc(h.listVehicles)))
	mux.Handle("POST /api/vehicles", gate(http.HandlerFunc(h.createVehicle)))
	mux.Handle("GET /api/vehicles/summary", gate(http.HandlerFunc(h.summary)))
	mux.Handle("POST /api/vehicles/export", gate(http.HandlerFunc(h.export)))
	mux.Handle("GET /api/vehicles/{id}", gate(http.HandlerFunc(h.getVehicle)))
	mux.Handle("PUT /api/vehicles/{id}", gate(http.HandlerFunc(h.updateVehicle)))
	mux.Handle("DELETE /api/vehicles/{id}", gate(http.HandlerFunc(h.deleteVehicle)))

	mux.HandleFunc("GET /api/health", h.healthCheck)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "route not found")
	})

	return Chain(mux,
		RequestID(),
		ClientIP(d.TrustProxyHeaders),
		Recover(logger),
		AccessLog(logger),
		Instrument(d.Metrics),
	)
}
