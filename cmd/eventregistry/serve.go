package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	_ "eventregistry/docs"
	"eventregistry/internal/adapters/auth"
	deliveryhttp "eventregistry/internal/delivery/http"
	"eventregistry/internal/delivery/http/controllers"
	"eventregistry/internal/delivery/http/middleware"
	"eventregistry/internal/obs"
	"eventregistry/internal/scheduler"
	"eventregistry/internal/services"
)

// @title Event Registry API
// @version 1.0
// @description Event capacity, registrations, waiting list, payment correlation and retention.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey WebhookSecret
// @in header
// @name Authorization
// @securityDefinitions.apikey CronSecret
// @in header
// @name Authorization
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the cleanup scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	metrics := obs.NewMetrics()
	notifier, err := a.notifier()
	if err != nil {
		return fmt.Errorf("email notifier: %w", err)
	}
	deps := a.deps(metrics, notifier)

	eventSvc := services.NewEventService(deps)
	registrationSvc := services.NewRegistrationService(deps)
	waitlistSvc := services.NewWaitlistService(deps)
	paymentSvc := services.NewPaymentService(deps)
	cleanupSvc := services.NewCleanupService(deps, a.cfg.Retention)

	sched := scheduler.New(scheduler.Config{Schedule: a.cfg.CleanupSchedule}, cleanupSvc, a.logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	handler := deliveryhttp.NewRouter(deliveryhttp.RouterConfig{
		Logger:        a.logger,
		Verifier:      auth.NewJWTVerifier(a.cfg.JWTSecret),
		Metrics:       metrics,
		RateLimiter:   middleware.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
		CORSOrigins:   a.cfg.CORSOrigins,
		WebhookSecret: a.cfg.WebhookSecret,
		CronSecret:    a.cfg.CronSecret,
		Health:        a.db.PingContext,
		Events:        controllers.NewEventController(a.logger, eventSvc),
		Registrations: controllers.NewRegistrationController(a.logger, registrationSvc),
		Waitlist:      controllers.NewWaitlistController(a.logger, waitlistSvc),
		Payments:      controllers.NewPaymentController(a.logger, paymentSvc),
		Cleanup:       controllers.NewCleanupController(a.logger, cleanupSvc),
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      a.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "port", a.cfg.Port, "env", a.cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
