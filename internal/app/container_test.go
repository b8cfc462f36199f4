package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/http/handlers"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/transport/ws"
)

func setupTestContainer(t *testing.T) *dig.Container {
	t.Helper()

	c := dig.New()

	providers := []struct {
		name     string
		provider any
	}{
		{"context", func() context.Context { return context.Background() }},
		{"logger", func() logx.Logger { return logx.Nop() }},
		{"config", func() *config.Config { return config.Default() }},
		{"pgxpool", func() *pgxpool.Pool { return &pgxpool.Pool{} }},
	}

	for _, p := range providers {
		err := c.Provide(p.provider)
		require.NoErrorf(t, err, "provide %s", p.name)
	}

	require.NoError(t, registerRelay(c))
	require.NoError(t, registerGateways(c))
	require.NoError(t, registerService(c))
	require.NoError(t, registerHTTP(c))

	return c
}

func verifyServer(t *testing.T, srv *http.Server) {
	t.Helper()

	require.NotNil(t, srv, "http.Server is nil")
	require.Equal(t, ":8080", srv.Addr)
	require.Greater(t, srv.ReadHeaderTimeout, time.Duration(0))
	require.Greater(t, srv.ReadTimeout, time.Duration(0))
	require.Greater(t, srv.WriteTimeout, time.Duration(0))
	require.Greater(t, srv.IdleTimeout, time.Duration(0))
}

func TestRegisterServiceAndHTTP_ProvidesHttpServerAndHandlers(t *testing.T) {
	t.Parallel()

	c := setupTestContainer(t)

	err := c.Invoke(func(
		srv *http.Server,
		base *handlers.Handlers,
		deliveryHandler *handlers.DeliveryHandler,
		tracker *ws.Tracker,
	) {
		verifyServer(t, srv)
		require.NotNil(t, base)
		require.NotNil(t, deliveryHandler)
		require.NotNil(t, tracker)
	})
	require.NoError(t, err)
}

func TestProvideAll_Success(t *testing.T) {
	t.Parallel()

	c := dig.New()

	err := provideAll(c,
		func() context.Context { return context.Background() },
		func() time.Duration { return 3 * time.Second },
	)
	require.NoError(t, err)

	err = c.Invoke(func(ctx context.Context, d time.Duration) {
		require.NotNil(t, ctx)
		require.Equal(t, 3*time.Second, d)
	})
	require.NoError(t, err)
}

func TestProvideAll_BadProvider(t *testing.T) {
	t.Parallel()

	c := dig.New()
	err := provideAll(c, "not a constructor")
	require.Error(t, err)
}

// Container builds are lazy: nothing dials out until Invoke, so building both
// containers must succeed with no infrastructure around.
func TestMustBuild_NoInfrastructure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var fatals int
	fatalf := func(string, ...interface{}) { fatals++ }

	c := NewContainerBuilder().WithLogFatalf(fatalf).MustBuild(ctx)
	require.NotNil(t, c)

	wc := NewWorkerContainerBuilder().WithLogFatalf(fatalf).MustBuild(ctx)
	require.NotNil(t, wc)

	require.Zero(t, fatals)
}
