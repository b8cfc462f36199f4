package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/repository"
	"delivery-dispatch/internal/service/dispatch"
	"delivery-dispatch/internal/transport/rabbit"
)

// WorkerContainerBuilder is a dig container builder for the dispatch worker.
type WorkerContainerBuilder struct {
	dbConnect  func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	brokerDial func(string) (*rabbit.Client, error)
	logFatalf  func(string, ...interface{})
}

// NewWorkerContainerBuilder returns a new worker container builder.
func NewWorkerContainerBuilder() *WorkerContainerBuilder {
	return &WorkerContainerBuilder{
		dbConnect:  connectDbWithRetry,
		brokerDial: rabbit.Dial,
		logFatalf:  log.Fatalf,
	}
}

// WithDBConnect sets the database connection function.
func (b *WorkerContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *WorkerContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithBrokerDial sets the broker connection function.
func (b *WorkerContainerBuilder) WithBrokerDial(fn func(string) (*rabbit.Client, error)) *WorkerContainerBuilder {
	if fn != nil {
		b.brokerDial = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function.
func (b *WorkerContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *WorkerContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container.
func (b *WorkerContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *WorkerContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerGateways(container); err != nil {
		return nil, fmt.Errorf("gateways: %w", err)
	}
	if err := registerBroker(container, b.brokerDial); err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	if err := registerDispatch(container); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return container, nil
}

// MustBuildWorkerContainer builds and returns the dispatch-worker container.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewWorkerContainerBuilder().MustBuild(ctx)
}

func registerBroker(container *dig.Container, dial func(string) (*rabbit.Client, error)) error {
	return provideAll(container,
		func(cfg *config.Config) (*rabbit.Client, error) {
			return dial(cfg.Rabbit.URL())
		},
		// the publisher channel also declares the topology once at startup
		func(client *rabbit.Client) (*rabbit.Publisher, error) {
			ch, err := client.Channel()
			if err != nil {
				return nil, fmt.Errorf("open publish channel: %w", err)
			}
			if err := rabbit.DeclareTopology(ch); err != nil {
				return nil, fmt.Errorf("declare topology: %w", err)
			}
			return rabbit.NewPublisher(ch, true)
		},
	)
}

func registerDispatch(container *dig.Container) error {
	return provideAll(container,
		repository.NewDeliveryRepo,
		func(repo *repository.DeliveryRepo) dispatch.Repository { return repo },
		func(p *rabbit.Publisher) dispatch.EventPublisher { return p },
		func() *prometheus.CounterVec {
			return registerCollector(metrics.NewDispatchMessagesTotal()).(*prometheus.CounterVec)
		},
		dispatch.NewProcessor,
		func(
			client *rabbit.Client,
			cfg *config.Config,
			proc *dispatch.Processor,
			pub *rabbit.Publisher,
			logger logx.Logger,
		) (*rabbit.Consumer, error) {
			ch, err := client.Channel()
			if err != nil {
				return nil, fmt.Errorf("open consume channel: %w", err)
			}
			policy := rabbit.RetryPolicy{
				Delay:       cfg.Dispatch.RetryDelay,
				MaxAttempts: cfg.Dispatch.RetryMaxAttempts,
			}
			return rabbit.NewConsumer(
				ch,
				rabbit.QueueDispatch,
				cfg.Dispatch.Prefetch,
				cfg.Dispatch.HandlerTimeout,
				policy,
				pub,
				proc.Handle,
				logger,
			), nil
		},
	)
}
