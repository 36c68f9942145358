package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"tellme/config"
	"tellme/internal/apiclient"
	"tellme/internal/booking"
	"tellme/internal/catalog"
	"tellme/internal/core"
	"tellme/internal/favorites"
	"tellme/internal/logging"
	"tellme/internal/observability/metrics"
	"tellme/internal/onboarding"
	"tellme/internal/payments"
	"tellme/internal/storage"
	"tellme/internal/storage/redis"
	"tellme/internal/storage/sqlite"
	"tellme/internal/tokens"
)

// app wires every client component for one CLI invocation
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	registry *prometheus.Registry
	metrics  *metrics.ClientMetrics

	tokens     tokens.Store
	backend    storage.Storage
	client     *apiclient.Client
	catalog    *catalog.Catalog
	slots      booking.SlotSource
	booker     *booking.Booker
	bookings   booking.Submitter
	favorites  *favorites.Favorites
	toggler    favorites.Toggler
	payments   *payments.Flow
	onboarding *onboarding.Client
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = metrics.NewClientMetrics(a.registry)

	store, backend, err := openTokenStore(ctx, cfg.Tokens, logger)
	if err != nil {
		return nil, err
	}
	a.tokens = store
	a.backend = backend

	a.client = apiclient.New(store, apiclient.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout.Duration,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            logger,
		Metrics:           a.metrics,
	})
	a.catalog = catalog.New(a.client, cfg.API.MediaBaseURL, logger)
	a.slots = logging.NewSlotSourceLogger(a.catalog, logger)
	a.booker = booking.NewBooker(a.client, logger)
	a.bookings = logging.NewSubmitterLogger(a.booker, logger)
	a.favorites = favorites.New(a.client, store, logger, a.metrics)
	a.toggler = logging.NewTogglerLogger(a.favorites, logger)
	a.payments = payments.NewFlow(payments.NewClient(a.client, logger), logger)
	a.onboarding = onboarding.NewClient(a.client, logger)

	return a, nil
}

// openTokenStore picks the credential store configured for this machine
func openTokenStore(ctx context.Context, cfg config.TokensConfig, logger *slog.Logger) (tokens.Store, storage.Storage, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open token database: %w", err)
		}
		return tokens.NewPersistentStore(db, logger), db, nil

	case config.BackendRedis:
		rdb, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.Options{
			Key: cfg.RedisKey,
			TTL: cfg.RedisTTL.Duration,
		})
		if err != nil {
			return nil, nil, err
		}
		return tokens.NewPersistentStore(rdb, logger), rdb, nil

	default:
		return tokens.NewMemoryStore(nil), nil, nil
	}
}

// session starts a booking session with the logging decorators in place
func (a *app) session(offering core.ServiceOffering) (*booking.Session, error) {
	return booking.NewSession(offering, booking.Deps{
		Slots:    a.slots,
		Bookings: a.bookings,
		Tokens:   a.tokens,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
}

// Close reports request metrics at debug level and releases the token backend
func (a *app) Close() error {
	if families, err := a.registry.Gather(); err == nil {
		for _, mf := range families {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			a.logger.Debug("client metric", "name", mf.GetName(), "series", len(mf.GetMetric()), "total", total)
		}
	}
	if a.backend != nil {
		return a.backend.Close()
	}
	return nil
}
