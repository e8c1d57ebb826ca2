package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addonpulse/addonpulse/internal/resilience"
)

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("relay")
	cfg.Registry = registry

	client := resilience.NewClient(cfg)

	assert.Equal(t, 1, registry.UpstreamCount())

	health := registry.GetHealth("relay")
	require.NotNil(t, health)
	assert.Equal(t, "relay", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.False(t, health.IsDegraded())
	assert.False(t, health.IsUnhealthy())

	assert.Equal(t, "relay", client.Name())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("relay")
	cfg.Registry = registry

	_ = resilience.NewClient(cfg)

	assert.Equal(t, 1, registry.UpstreamCount())

	registry.Unregister("relay")

	assert.Equal(t, 0, registry.UpstreamCount())
	assert.Nil(t, registry.GetHealth("relay"))
}

func TestRegistry_RecordSuccessAndFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("relay")
	cfg.Registry = registry

	_ = resilience.NewClient(cfg)

	health := registry.GetHealth("relay")
	require.NotNil(t, health)
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	registry.RecordSuccess("relay")
	registry.RecordFailure("relay", errors.New("relay unavailable"))

	health = registry.GetHealth("relay")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.Equal(t, "relay unavailable", health.LastError)
}

func TestRegistry_GetAllHealth(t *testing.T) {
	registry := resilience.NewRegistry()

	for _, name := range []string{"relay", "account-api"} {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}

	all := registry.GetAllHealth()
	assert.Len(t, all, 2)

	names := make(map[string]bool, len(all))
	for _, h := range all {
		names[h.Name] = true
	}
	assert.True(t, names["relay"])
	assert.True(t, names["account-api"])
}
