package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knearme/showcase/core/breaker"
	"github.com/knearme/showcase/core/errors"
	"github.com/knearme/showcase/core/project"
	"github.com/knearme/showcase/core/providers"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// fakeClient returns canned responses keyed by schema name.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]*providers.Response
	errs      map[string]error
	calls     []string
}

func (c *fakeClient) Complete(_ context.Context, req *providers.Request) (*providers.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req.SchemaName)
	if err := c.errs[req.SchemaName]; err != nil {
		return nil, err
	}
	if resp := c.responses[req.SchemaName]; resp != nil {
		return resp, nil
	}
	return &providers.Response{Object: map[string]any{}}, nil
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func newTestDispatcher(t *testing.T, client providers.Client) (*Dispatcher, *breaker.Registry) {
	t.Helper()
	registry, err := breaker.NewRegistry(breaker.RegistryConfig{
		Logger: slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	d := NewDispatcher(client, registry, nil, slog.New(slog.DiscardHandler))
	d.Register(narrativeSpec())
	d.Register(layoutSpec())
	return d, registry
}

// Minimal role specs mirroring the real role packages, kept local so the
// dispatcher tests do not depend on prompt wording.
func narrativeSpec() Spec {
	return Spec{
		Role:       RoleNarrative,
		Capability: "agent.narrative",
		SchemaName: "write_copy",
		Schema:     map[string]any{"type": "object"},
		BuildUser:  func(*Context) string { return "write" },
		Decode: func(resp *providers.Response, result *RoleResult) {
			payload := &NarrativePayload{Updates: map[string]string{}}
			if s, ok := resp.Object["title"].(string); ok {
				payload.Updates["title"] = s
			}
			result.Narrative = payload
		},
	}
}

func layoutSpec() Spec {
	return Spec{
		Role:       RoleLayout,
		Capability: "agent.layout",
		SchemaName: "arrange",
		Schema:     map[string]any{"type": "object"},
		BuildUser:  func(*Context) string { return "arrange" },
		Decode: func(resp *providers.Response, result *RoleResult) {
			payload := &LayoutPayload{}
			if s, ok := resp.Object["heroImageId"].(string); ok {
				payload.HeroImageID = s
			}
			result.Layout = payload
		},
	}
}

func testContext() *Context {
	return &Context{State: &project.State{ProjectType: "chimney rebuild"}}
}

// =============================================================================
// Single Dispatch
// =============================================================================

func TestDispatch_Success(t *testing.T) {
	client := &fakeClient{responses: map[string]*providers.Response{
		"write_copy": {Object: map[string]any{
			"title":      "Chimney Rebuild in Denver",
			"confidence": 0.9,
		}},
	}}
	d, _ := newTestDispatcher(t, client)

	result := d.Dispatch(context.Background(), RoleNarrative, testContext())

	require.False(t, result.Failed())
	assert.Equal(t, RoleNarrative, result.Role)
	assert.Equal(t, 0.9, result.Confidence)
	require.NotNil(t, result.Narrative)
	assert.Equal(t, "Chimney Rebuild in Denver", result.Narrative.Updates["title"])
	assert.Nil(t, result.Layout)
}

func TestDispatch_MissingConfidenceDefaults(t *testing.T) {
	client := &fakeClient{responses: map[string]*providers.Response{
		"write_copy": {Object: map[string]any{"title": "T"}},
	}}
	d, _ := newTestDispatcher(t, client)

	result := d.Dispatch(context.Background(), RoleNarrative, testContext())

	assert.Equal(t, 0.5, result.Confidence)
}

func TestDispatch_FailureYieldsEmptyPayload(t *testing.T) {
	client := &fakeClient{errs: map[string]error{
		"write_copy": errors.NewTieredError(errors.TierTimeout, "deadline exceeded", nil),
	}}
	d, registry := newTestDispatcher(t, client)

	result := d.Dispatch(context.Background(), RoleNarrative, testContext())

	require.True(t, result.Failed())
	assert.True(t, result.Retryable)
	assert.Equal(t, errors.TierTimeout, errors.GetTier(result.Err))
	require.NotNil(t, result.Narrative)
	assert.NotNil(t, result.Narrative.Updates, "narrative updates map must never be nil")
	assert.Empty(t, result.Narrative.Updates)

	status := registry.Status()["agent.narrative"]
	assert.Equal(t, 1, status.Failures)
}

func TestDispatch_RetryAfterHonorsProviderHint(t *testing.T) {
	client := &fakeClient{errs: map[string]error{
		"write_copy": errors.NewTieredError(errors.TierRateLimit, "too many requests", nil).
			WithRetryAfter(30 * time.Second),
	}}
	d, _ := newTestDispatcher(t, client)

	result := d.Dispatch(context.Background(), RoleNarrative, testContext())

	require.True(t, result.Retryable)
	assert.Equal(t, 30*time.Second, result.RetryAfter)
}

func TestDispatch_RetryAfterDefaultsToBackoff(t *testing.T) {
	client := &fakeClient{errs: map[string]error{
		"write_copy": errors.NewTieredError(errors.TierTimeout, "deadline exceeded", nil),
	}}
	d, _ := newTestDispatcher(t, client)

	result := d.Dispatch(context.Background(), RoleNarrative, testContext())

	require.True(t, result.Retryable)
	assert.Equal(t, errors.DefaultBackoffConfig().BaseBackoff, result.RetryAfter)
}

func TestDispatch_ValidationFailureNotRetryable(t *testing.T) {
	client := &fakeClient{errs: map[string]error{
		"write_copy": errors.NewTieredError(errors.TierValidation, "bad input", nil),
	}}
	d, _ := newTestDispatcher(t, client)

	result := d.Dispatch(context.Background(), RoleNarrative, testContext())

	require.True(t, result.Failed())
	assert.False(t, result.Retryable)
	assert.Zero(t, result.RetryAfter)
}

func TestDispatch_OpenBreakerFailsFast(t *testing.T) {
	client := &fakeClient{}
	d, registry := newTestDispatcher(t, client)
	for i := 0; i < breaker.DefaultConfig().FailureThreshold; i++ {
		registry.RecordFailure("agent.narrative", errors.ErrTimeout)
	}

	result := d.Dispatch(context.Background(), RoleNarrative, testContext())

	require.True(t, result.Failed())
	assert.Equal(t, errors.TierBreakerOpen, errors.GetTier(result.Err))
	assert.False(t, result.Retryable)
	assert.Equal(t, 0, client.callCount())
}

func TestDispatch_UnknownRole(t *testing.T) {
	d, _ := newTestDispatcher(t, &fakeClient{})

	result := d.Dispatch(context.Background(), Role("unknown"), testContext())

	require.True(t, result.Failed())
	assert.Equal(t, errors.TierValidation, errors.GetTier(result.Err))
}

// =============================================================================
// Parallel Dispatch
// =============================================================================

func TestDispatchParallel_IndependentBranches(t *testing.T) {
	client := &fakeClient{
		responses: map[string]*providers.Response{
			"arrange": {Object: map[string]any{
				"heroImageId": "img-2",
				"confidence":  0.8,
			}},
		},
		errs: map[string]error{
			"write_copy": errors.NewTieredError(errors.TierRateLimit, "too many requests", nil),
		},
	}
	d, registry := newTestDispatcher(t, client)

	results := d.DispatchParallel(context.Background(), testContext(),
		RoleNarrative, RoleLayout)

	require.Len(t, results, 2)

	narrative := results[RoleNarrative]
	require.True(t, narrative.Failed())
	assert.True(t, narrative.Retryable)
	assert.True(t, narrative.Parallel)

	layout := results[RoleLayout]
	require.False(t, layout.Failed(), "one branch's failure must not affect the other")
	assert.True(t, layout.Parallel)
	assert.Equal(t, "img-2", layout.Layout.HeroImageID)

	// Each branch recorded against its own capability.
	status := registry.Status()
	assert.Equal(t, 1, status["agent.narrative"].Failures)
	assert.Equal(t, 0, status["agent.layout"].Failures)
}
