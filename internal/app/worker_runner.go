package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/transport/rabbit"
)

// WorkerRunner runs the dispatch consumer loop.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner.
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the consumer using the provided DI container.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger logx.Logger,
	consumer *rabbit.Consumer,
	client *rabbit.Client,
) error {
	if consumer == nil {
		return fmt.Errorf("queue consumer is nil: worker container misconfigured")
	}
	defer closeWorker(pool, client, logger)

	logger.Info("dispatch-worker started")
	return consumer.Run(ctx)
}

func closeWorker(pool *pgxpool.Pool, client *rabbit.Client, logger logx.Logger) {
	if client != nil {
		client.Close()
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("dispatch-worker stopped")
}
