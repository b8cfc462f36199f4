// Package app wires the two processes together: the delivery service (HTTP
// API, websocket tracking, location relay) and the dispatch worker (queue
// consumer). Both are assembled from dig containers built here.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/gateway/drivers"
	"delivery-dispatch/internal/gateway/orders"
	"delivery-dispatch/internal/http/handlers"
	"delivery-dispatch/internal/http/router"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/ports/deliverytx"
	"delivery-dispatch/internal/relay"
	"delivery-dispatch/internal/repository"
	"delivery-dispatch/internal/service/delivery"
	"delivery-dispatch/internal/transport/ws"
)

// ContainerBuilder is a dig container builder for the delivery service.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder.
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function.
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function.
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerRelay(container); err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	if err := registerGateways(container); err != nil {
		return nil, fmt.Errorf("gateways: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns the delivery-service container.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		config.Load,
		NewLogger,
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

// relayBroadcasts keeps the relay counter apart from other prometheus.Counter
// values in the graph.
type relayBroadcasts prometheus.Counter

func registerRelay(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config) *redis.Client {
			return redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		},
		func() relayBroadcasts {
			return registerCollector(metrics.NewRelayBroadcastsTotal()).(prometheus.Counter)
		},
		func(rdb *redis.Client, logger logx.Logger, b relayBroadcasts) *relay.Hub {
			return relay.NewHub(rdb, logger, b)
		},
		func(h *relay.Hub) relay.Publisher { return h },
	)
}

func registerGateways(container *dig.Container) error {
	return provideAll(container,
		func() prometheus.Counter {
			return registerCollector(metrics.NewGatewayRetriesTotal()).(prometheus.Counter)
		},
		func(cfg *config.Config, logger logx.Logger, retries prometheus.Counter) drivers.Locator {
			base := drivers.NewHTTPGateway(cfg.Locator.BaseURL, cfg.Locator.Timeout)
			return drivers.NewRetryingLocator(base, logger, retries, drivers.RetryConfig{
				MaxAttempts: cfg.Locator.MaxAttempts,
				BaseDelay:   cfg.Locator.BaseDelay,
				MaxDelay:    cfg.Locator.MaxDelay,
			})
		},
		func(cfg *config.Config, logger logx.Logger, retries prometheus.Counter) orders.Gateway {
			base := orders.NewHTTPGateway(cfg.Orders.BaseURL, cfg.Orders.Timeout)
			return orders.NewRetryingGateway(base, logger, retries, orders.RetryConfig{
				MaxAttempts: cfg.Orders.MaxAttempts,
				BaseDelay:   cfg.Orders.BaseDelay,
				MaxDelay:    cfg.Orders.MaxDelay,
			})
		},
	)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		repository.NewDeliveryRepo,
		func(repo *repository.DeliveryRepo) deliverytx.Runner { return repo },
		func(repo *repository.DeliveryRepo) delivery.Store { return repo },
		delivery.NewUsecase,
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		handlers.New,
		handlers.NewDeliveryUsecase,
		handlers.NewDeliveryHandler,
		func(h *relay.Hub, logger logx.Logger) *ws.Tracker { return ws.NewTracker(h, logger) },
		func(h *handlers.Handlers, dh *handlers.DeliveryHandler, tracker *ws.Tracker, logger logx.Logger) http.Handler {
			return router.New(h, dh, tracker, logger)
		},
		serverProvider,
	)
}
