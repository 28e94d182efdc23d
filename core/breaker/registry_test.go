package breaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knearme/showcase/core/errors"
)

func newTestRegistry(t *testing.T, cfg RegistryConfig) *Registry {
	t.Helper()
	r, err := NewRegistry(cfg)
	require.NoError(t, err)
	return r
}

func tripCapability(r *Registry, capability string) {
	threshold := r.Get(capability).Config().FailureThreshold
	for i := 0; i < threshold; i++ {
		r.RecordFailure(capability, stderrors.New("boom"))
	}
}

func TestRegistry_LazyCreation(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	require.Empty(t, r.Status())

	require.True(t, r.CanExecute("discovery"))

	status := r.Status()
	require.Len(t, status, 1)
	assert.Equal(t, StateClosed, status["discovery"].State)
}

func TestRegistry_GetReturnsSameBreaker(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	if r.Get("discovery") != r.Get("discovery") {
		t.Error("expected the same breaker instance per capability")
	}
}

func TestRegistry_OverridesMatchByGlob(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{
		Overrides: []Override{
			{Pattern: "agent.*", Config: CriticalConfig()},
		},
	})

	agentCfg := r.Get("agent.narrative").Config()
	assert.Equal(t, 3, agentCfg.FailureThreshold)
	assert.Equal(t, 120*time.Second, agentCfg.Timeout)

	otherCfg := r.Get("discovery").Config()
	assert.Equal(t, 5, otherCfg.FailureThreshold)
}

func TestRegistry_InvalidOverridePattern(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{
		Overrides: []Override{{Pattern: "[", Config: DefaultConfig()}},
	})
	require.Error(t, err)
}

func TestRegistry_StatusReflectsCounters(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	r.RecordFailure("discovery", stderrors.New("boom"))
	r.RecordFailure("discovery", stderrors.New("boom"))
	r.RecordSuccess("content-generation")

	status := r.Status()
	assert.Equal(t, 2, status["discovery"].Failures)
	assert.Equal(t, 1, status["content-generation"].Successes)
}

func TestRegistry_ResetForcesClosed(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	tripCapability(r, "discovery")
	require.Equal(t, []string{"discovery"}, r.OpenCapabilities())

	r.Reset("discovery")

	assert.Empty(t, r.OpenCapabilities())
	assert.True(t, r.CanExecute("discovery"))
}

func TestRegistry_ResetAll(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	tripCapability(r, "discovery")
	tripCapability(r, "web-search")
	require.Len(t, r.OpenCapabilities(), 2)

	r.ResetAll()

	assert.Empty(t, r.OpenCapabilities())
}

// =============================================================================
// Kill Switch Tests
// =============================================================================

func TestRegistry_KillSwitchFiresOnceAtThirdOpen(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	r := newTestRegistry(t, RegistryConfig{
		KillSwitch: func(reason, source string) {
			mu.Lock()
			calls = append(calls, reason+"|"+source)
			mu.Unlock()
		},
	})

	tripCapability(r, "discovery")
	tripCapability(r, "web-search")
	require.Empty(t, calls, "kill switch must not fire below threshold")

	tripCapability(r, "content-generation")
	require.Len(t, calls, 1, "kill switch fires exactly once at the third open")

	assert.Contains(t, calls[0], "3 agent circuits open")
	assert.True(t, strings.HasSuffix(calls[0], "|circuit_breaker"))

	// Fourth and fifth opens in the same crossing do not re-fire.
	tripCapability(r, "agent.narrative")
	tripCapability(r, "agent.layout")
	assert.Len(t, calls, 1)
}

func TestRegistry_KillSwitchRearmsAfterRecovery(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	r := newTestRegistry(t, RegistryConfig{
		KillSwitch: func(reason, source string) {
			mu.Lock()
			fired++
			mu.Unlock()
		},
	})

	for _, cap := range []string{"a", "b", "c"} {
		tripCapability(r, cap)
	}
	require.Equal(t, 1, fired)

	// Recovery drops the open count below the threshold and re-arms.
	r.Reset("a")
	r.Reset("b")

	tripCapability(r, "a")
	tripCapability(r, "b")
	assert.Equal(t, 2, fired, "a fresh crossing fires again")
}

func TestRegistry_KillSwitchRefiresAfterTimeoutRecovery(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	r := newTestRegistry(t, RegistryConfig{
		KillSwitch: func(reason, source string) {
			mu.Lock()
			fired++
			mu.Unlock()
		},
	})

	clock := newFakeClock()
	caps := []string{"a", "b", "c"}
	for _, cap := range caps {
		r.Get(cap).now = clock.now
		tripCapability(r, cap)
	}
	require.Equal(t, 1, fired)

	// All three breakers go half-open after the timeout, which drops the
	// open count to zero and re-arms the switch.
	clock.advance(DefaultConfig().Timeout + time.Second)
	for _, cap := range caps {
		require.True(t, r.CanExecute(cap))
	}

	// Failed probes reopen every breaker: a fresh crossing fires again.
	for _, cap := range caps {
		r.RecordFailure(cap, stderrors.New("boom"))
	}
	assert.Equal(t, 2, fired, "reopening after half-open is a new crossing")
}

func TestRegistry_NoKillSwitchConfigured(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	// Must not panic without a callback.
	for i := 0; i < 4; i++ {
		tripCapability(r, fmt.Sprintf("cap-%d", i))
	}
	assert.Len(t, r.OpenCapabilities(), 4)
}

// =============================================================================
// Do Tests
// =============================================================================

func TestDo_RecordsSuccess(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	got, err := Do(context.Background(), r, "discovery", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, r.Status()["discovery"].Successes)
}

func TestDo_RecordsFailureAndReturnsOriginalError(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})
	boom := stderrors.New("boom")

	_, err := Do(context.Background(), r, "discovery", func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, r.Status()["discovery"].Failures)
}

func TestDo_FailsFastWhenOpen(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})
	tripCapability(r, "discovery")

	invoked := false
	_, err := Do(context.Background(), r, "discovery", func(ctx context.Context) (string, error) {
		invoked = true
		return "ok", nil
	})

	require.Error(t, err)
	assert.False(t, invoked, "fn must not run when the breaker is open")
	assert.Equal(t, errors.TierBreakerOpen, errors.GetTier(err))
}

func TestRegistry_ConcurrentRecordFailure(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RecordFailure("discovery", stderrors.New("boom"))
		}()
	}
	wg.Wait()

	// No lost increments: the breaker opened at threshold 5 and never ran
	// past it within the closed state.
	assert.Equal(t, StateOpen, r.Status()["discovery"].State)
	assert.Equal(t, 50, r.Status()["discovery"].Failures)
}
