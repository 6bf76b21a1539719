package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"eventregistry/config"
	"eventregistry/internal/adapters/email"
	"eventregistry/internal/domain"
	"eventregistry/internal/obs"
	"eventregistry/internal/repository/postgres"
	"eventregistry/internal/services"
)

// app bundles what every subcommand needs: configuration, logging and the database.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  domain.Store
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  postgres.NewStore(db, cfg.LockTimeout),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "err", err)
	}
}

func (a *app) deps(metrics *obs.Metrics, notifier domain.Notifier) services.Deps {
	return services.Deps{
		Store:    a.store,
		Notifier: notifier,
		Clock:    domain.SystemClock{},
		Logger:   a.logger,
		Metrics:  metrics,
		Timeout:  a.cfg.RequestTimeout,
	}
}

func (a *app) notifier() (domain.Notifier, error) {
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    a.cfg.EmailProvider,
		FromAddress: a.cfg.EmailFrom,
		FromName:    a.cfg.EmailFromName,
		SES: email.SESConfig{
			Region:             a.cfg.SES.Region,
			AccessKeyID:        a.cfg.SES.AccessKeyID,
			SecretAccessKey:    a.cfg.SES.SecretAccessKey,
			InsecureSkipVerify: a.cfg.SES.InsecureSkipVerify,
		},
	}, a.logger)
	if err != nil {
		return nil, err
	}
	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, err
	}
	return email.NewNotifier(a.store.Repos(), mailer, renderer, domain.SystemClock{}, a.logger), nil
}
