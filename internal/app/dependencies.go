package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/b2b-trading/internal/health"
	"github.com/vladislavdragonenkov/b2b-trading/internal/metrics"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/catalog"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/command"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/orders"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricelists"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/pricing"
	"github.com/vladislavdragonenkov/b2b-trading/internal/storage/memory"
	"github.com/vladislavdragonenkov/b2b-trading/internal/storage/postgres"
	"github.com/vladislavdragonenkov/b2b-trading/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/b2b-trading/internal/version"
)

// pinger реализуют оба хранилища.
type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Store      domain.Store
	Metrics    *metrics.CommandMetrics
	Catalog    *catalog.Service
	Orders     *orders.Manager
	PriceLists *pricelists.Manager
	Pricing    *pricing.Service
	Health     *healthcheck.Handler
	Logger     *log.Entry

	closeFn func()
}

// NewDependencies собирает сервисы поверх готового хранилища.
func NewDependencies(store domain.Store, m *metrics.CommandMetrics, hasher catalog.PasswordHasher, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if hasher == nil {
		hasher = catalog.BcryptHasher{}
	}

	runner := command.NewRunner(store, logger.WithField("layer", "command"), m)
	resolver := pricing.NewResolver(logger.WithField("layer", "pricing"), m)

	deps := &Dependencies{
		Store:      store,
		Metrics:    m,
		Catalog:    catalog.NewService(runner, hasher, logger.WithField("layer", "catalog")),
		Orders:     orders.NewManager(runner, resolver, logger.WithField("layer", "orders")),
		PriceLists: pricelists.NewManager(runner, logger.WithField("layer", "pricelists")),
		Pricing:    pricing.NewService(runner, resolver),
		Health:     healthcheck.NewHandler(version.Version()),
		Logger:     logger,
	}
	if p, ok := store.(pinger); ok {
		deps.Health.RegisterChecker("storage", healthcheck.NewCheckFunc("storage", p.Ping))
	}
	return deps
}

// Services отдаёт сервисы HTTP-слою.
func (d *Dependencies) Services() httpapi.Services {
	return httpapi.Services{
		Catalog:    d.Catalog,
		Orders:     d.Orders,
		PriceLists: d.PriceLists,
		Pricing:    d.Pricing,
	}
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d == nil || d.closeFn == nil {
		return
	}
	d.closeFn()
}

// initRuntimeDependencies открывает хранилище по конфигурации и собирает сервисы.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	hasher := catalog.BcryptHasher{Cost: cfg.BcryptCost}
	m := metrics.NewCommandMetrics()

	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("используется in-memory хранилище")
		deps := NewDependencies(memory.NewStore(), m, hasher, logger)
		deps.Health.SetTimeout(cfg.HealthTimeout)
		return deps, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for storage driver %q", cfg.StorageDriver)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("миграции postgres применены")
		}
		logger.Info("используется postgres хранилище")
		deps := NewDependencies(store, m, hasher, logger)
		deps.Health.SetTimeout(cfg.HealthTimeout)
		deps.closeFn = store.Close
		return deps, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
