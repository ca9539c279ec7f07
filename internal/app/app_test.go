package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradecrawl/screenerd/internal/config"
)

// Build registers event collectors on the default Prometheus registry, so
// the full wiring is exercised exactly once per test binary.
func TestBuildWiresDependencies(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := Build(context.Background(), &cfg)
	require.NoError(t, err)
	require.NotNil(t, a)

	require.Nil(t, a.store, "no DSN must mean no controls store")
	require.NotNil(t, a.cache)
	require.NotNil(t, a.hub)
	require.NotNil(t, a.manager)
	require.NotNil(t, a.pipeline)
	require.NotNil(t, a.mon)
	require.NotNil(t, a.apiServer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
}

func TestAPIOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 90 * time.Second
	cfg.Auth.Enabled = false
	cfg.Auth.APIKey = "ignored"

	opts := apiOptions(cfg)
	require.Empty(t, opts.APIKey, "disabled auth must not leak a key")
	require.Equal(t, 90*time.Second, opts.RequestTimeout)

	cfg.Auth.Enabled = true
	opts = apiOptions(cfg)
	require.Equal(t, "ignored", opts.APIKey)
}
