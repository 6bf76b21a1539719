package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventregistry/internal/delivery/http/controllers"
	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/delivery/http/middleware"
	"eventregistry/internal/domain"
	"eventregistry/internal/obs"
)

// RouterConfig carries the controllers and cross-cutting dependencies of the HTTP API.
type RouterConfig struct {
	Logger        *slog.Logger
	Verifier      domain.TokenVerifier
	Metrics       *obs.Metrics
	RateLimiter   *middleware.RateLimiter
	CORSOrigins   []string
	WebhookSecret string
	CronSecret    string
	// Health reports whether the service can reach its database.
	Health func(ctx context.Context) error

	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Waitlist      *controllers.WaitlistController
	Payments      *controllers.PaymentController
	Cleanup       *controllers.CleanupController
}

// NewRouter initializes the HTTP router with all application routes and wraps
// it in the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)
	webhook := middleware.RequireSecret(cfg.WebhookSecret)
	cron := middleware.RequireSecret(cfg.CronSecret)

	// Events
	mux.HandleFunc("POST /events", auth(cfg.Events.CreateEvent))
	mux.HandleFunc("GET /events", auth(cfg.Events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(cfg.Events.GetEvent))
	mux.HandleFunc("GET /events/{eventID}/slots", auth(cfg.Events.AvailableSlots))
	mux.HandleFunc("PATCH /events/{eventID}/capacity", auth(cfg.Events.UpdateCapacity))
	mux.HandleFunc("DELETE /events/{eventID}", auth(cfg.Events.DeleteEvent))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(cfg.Registrations.Register))
	mux.HandleFunc("GET /events/{eventID}/registrations", auth(cfg.Registrations.ListEventRegistrations))
	mux.HandleFunc("GET /me/registrations", auth(cfg.Registrations.ListMyRegistrations))
	mux.HandleFunc("GET /registrations/{registrationID}", auth(cfg.Registrations.GetRegistration))
	mux.HandleFunc("POST /registrations/{registrationID}/cancel", auth(cfg.Registrations.CancelRegistration))
	mux.HandleFunc("POST /registrations/{registrationID}/reject", auth(cfg.Registrations.RejectRegistration))

	// Waiting list
	mux.HandleFunc("GET /events/{eventID}/waitlist", auth(cfg.Waitlist.ListWaitlist))
	mux.HandleFunc("DELETE /events/{eventID}/waitlist", auth(cfg.Waitlist.LeaveWaitlist))
	mux.HandleFunc("GET /events/{eventID}/waitlist/position", auth(cfg.Waitlist.WaitlistPosition))
	mux.HandleFunc("POST /events/{eventID}/waitlist/promote", auth(cfg.Waitlist.PromoteNext))

	// Payments
	mux.HandleFunc("POST /registrations/{registrationID}/payments", auth(cfg.Payments.CreatePayment))
	mux.HandleFunc("POST /registrations/{registrationID}/payments/{paymentID}", webhook(cfg.Payments.LinkPayment))
	mux.HandleFunc("POST /payments/{paymentID}/status", webhook(cfg.Payments.UpdateStatus))

	// Cron
	mux.HandleFunc("POST /cron/cleanup", cron(cfg.Cleanup.RunCleanup))

	// Ops
	mux.HandleFunc("GET /healthz", healthHandler(cfg.Health))
	mux.Handle("GET /metrics", cfg.Metrics.Handler())
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var h http.Handler = cfg.Metrics.Instrument(mux)
	h = cfg.RateLimiter.Middleware(h)
	h = middleware.LoggingMiddleware(cfg.Logger, h)
	h = middleware.RequestID(h)
	return middleware.CORS(cfg.CORSOrigins, h)
}

// HealthResponse is the data payload for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "database unreachable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
