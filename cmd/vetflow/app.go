package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/jrsteele09/vetflow-console/api"
	"github.com/jrsteele09/vetflow-console/auth"
	"github.com/jrsteele09/vetflow-console/internal/config"
	"github.com/jrsteele09/vetflow-console/internal/metrics"
	"github.com/jrsteele09/vetflow-console/payment"
	"github.com/jrsteele09/vetflow-console/sessions"
	"github.com/jrsteele09/vetflow-console/subscription"
	"github.com/jrsteele09/vetflow-console/token"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      config.Config
	registry *prometheus.Registry
	repo     *sessions.FileRepo
	client   *api.Client
	session  *auth.SessionManager
	tracker  *subscription.Tracker
	poller   *payment.Poller
}

func newApp(cfg config.Config, out io.Writer) (*app, error) {
	registry := prometheus.NewRegistry()
	collectors := metrics.New(registry)

	var repoOptions []sessions.FileRepoOption
	if secret := cfg.GetStoreSecret(); secret != "" {
		repoOptions = append(repoOptions, sessions.WithSecret(secret))
	}
	repo, err := sessions.NewFileRepo(cfg.GetDataFolder(), repoOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] session store")
	}

	client, err := api.New(cfg.GetAPIBaseURL(), token.NewRepoSource(repo),
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithMetrics(collectors),
		api.WithTracerProvider(otel.GetTracerProvider()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] api client")
	}

	session, err := auth.NewSessionManager(repo, client, auth.WithMetrics(collectors))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] session manager")
	}
	session.OnInvalidated(func(reason error) {
		fmt.Fprintln(out, "Your session has expired, please log in again.")
	})

	tracker, err := subscription.NewTracker(client)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] subscription tracker")
	}

	poller, err := payment.NewPoller(client,
		payment.WithInterval(cfg.GetPaymentPollInterval()),
		payment.WithMaxAttempts(cfg.GetPaymentPollAttempts()),
		payment.WithMetrics(collectors),
		payment.WithOnPaid(func(ctx context.Context, _ payment.Result) error {
			_, err := tracker.Refresh(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] payment poller")
	}

	log.Debug().Str("backend", cfg.GetAPIBaseURL()).Str("store", repo.Path()).Msg("vetflow console ready")
	return &app{
		cfg:      cfg,
		registry: registry,
		repo:     repo,
		client:   client,
		session:  session,
		tracker:  tracker,
		poller:   poller,
	}, nil
}

// writeMetrics dumps the collected metrics in the text exposition format,
// suitable for a node_exporter textfile collector.
func (a *app) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, a.registry), "[app.writeMetrics]")
}
