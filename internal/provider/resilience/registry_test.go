package resilience_test

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amedasmap/amedasmap/internal/provider/resilience"
)

func registeredClient(registry *resilience.Registry, name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	client := registeredClient(registry, "jma")

	assert.Len(t, registry.GetAllHealth(), 1)
	assert.Equal(t, "jma", client.Name())

	health := registry.GetHealth("jma")
	require.NotNil(t, health)
	assert.Equal(t, "jma", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Equal(t, resilience.LevelHealthy, health.Level())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = registeredClient(registry, "jma")
	registry.RecordSuccess("jma")

	_ = registeredClient(registry, "jma")

	require.Len(t, registry.GetAllHealth(), 1)
	assert.Nil(t, registry.GetHealth("jma").LastSuccessAt)
}

func TestRegistry_RecordSuccessAndFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = registeredClient(registry, "jma")

	health := registry.GetHealth("jma")
	require.NotNil(t, health)
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)

	registry.RecordSuccess("jma")
	registry.RecordFailure("jma", assert.AnError)

	health = registry.GetHealth("jma")
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_GetAllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"jma-window", "jma", "jma-directory"} {
		_ = registeredClient(registry, name)
	}

	healthList := registry.GetAllHealth()
	require.Len(t, healthList, 3)
	assert.Equal(t, "jma", healthList[0].Name)
	assert.Equal(t, "jma-directory", healthList[1].Name)
	assert.Equal(t, "jma-window", healthList[2].Name)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.Nil(t, registry.GetHealth("nonexistent"))
	// must not panic
	registry.RecordSuccess("nonexistent")
	registry.RecordFailure("nonexistent", assert.AnError)
}

func TestProviderHealth_Level(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  resilience.Level
	}{
		{gobreaker.StateClosed, resilience.LevelHealthy},
		{gobreaker.StateHalfOpen, resilience.LevelDegraded},
		{gobreaker.StateOpen, resilience.LevelUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.want, h.Level())
		})
	}
}
