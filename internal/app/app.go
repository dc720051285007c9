package app

import (
	"context"
	"fmt"

	appoptions "github.com/apurbab29/futu-options/internal/application/service/options"
	"github.com/apurbab29/futu-options/internal/config"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"
	"github.com/apurbab29/futu-options/internal/infrastructure/broker"
	"github.com/apurbab29/futu-options/internal/infrastructure/csvstore"
	"github.com/apurbab29/futu-options/internal/infrastructure/futu"
	"github.com/apurbab29/futu-options/internal/infrastructure/polygon"
	"github.com/apurbab29/futu-options/internal/infrastructure/snapshots"

	"github.com/sirupsen/logrus"
)

// App owns the chain service and the resources behind it.
type App struct {
	Service  *appoptions.Service
	Provider interfaces.MarketDataProvider
	Exporter *csvstore.Exporter

	snapshots *snapshots.Repository
	publisher *broker.Publisher
	logger    *logrus.Logger
}

// NewProvider builds the market data provider selected by OPTIONS_PROVIDER.
func NewProvider(cfg *config.Config, cache *csvstore.TableCache, logger *logrus.Logger) (interfaces.MarketDataProvider, error) {
	switch cfg.Options.Provider {
	case config.ProviderFutu:
		return futu.NewProvider(futu.ProviderConfig{
			Addr:      cfg.Futu.Addr,
			Timeout:   cfg.Futu.Timeout,
			ChainDays: cfg.Options.ChainDays,
			Location:  cfg.Options.Location,
		}, logger), nil
	case config.ProviderPolygon:
		return polygon.NewProvider(polygon.ProviderConfig{
			APIKey:    cfg.Polygon.APIKey,
			ChainDays: cfg.Options.ChainDays,
			Location:  cfg.Options.Location,
		}, logger)
	case config.ProviderCSV:
		return csvstore.NewSource(cfg.CSV.SourceFile, cache, cfg.Options.Location, logger), nil
	default:
		return nil, fmt.Errorf("unknown options provider %q", cfg.Options.Provider)
	}
}

// New wires the provider, the CSV exporter and, when DATABASE_DSN is set,
// the snapshot repository into a chain service.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	cache := csvstore.NewTableCache()
	provider, err := NewProvider(cfg, cache, logger)
	if err != nil {
		return nil, err
	}
	exporter := csvstore.NewExporter(cfg.Export.Dir, cfg.Export.Label, cache)

	opts := []appoptions.Option{appoptions.WithExporter(exporter)}
	a := &App{Provider: provider, Exporter: exporter, logger: logger}
	if cfg.Postgres.DSN != "" {
		repo, err := snapshots.NewRepository(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		a.snapshots = repo
		opts = append(opts, appoptions.WithSnapshots(repo))
	}
	if cfg.RabbitMQ.URL != "" {
		pub, err := broker.NewPublisher(cfg.RabbitMQ, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = pub
		opts = append(opts, appoptions.WithPublisher(pub))
	}

	a.Service = appoptions.NewService(provider, appoptions.Config{
		CandidateLimit: cfg.Options.CandidateLimit,
		Location:       cfg.Options.Location,
	}, logger, opts...)

	logger.WithFields(logrus.Fields{
		"component": "app",
		"provider":  provider.Name(),
		"limit":     cfg.Options.CandidateLimit,
		"snapshots": a.snapshots != nil,
		"publisher": a.publisher != nil,
	}).Info("chain service ready")
	return a, nil
}

func (a *App) Close() {
	if a.snapshots != nil {
		a.snapshots.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.WithError(err).Warn("close run publisher")
		}
	}
}
