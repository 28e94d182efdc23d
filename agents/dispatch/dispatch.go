// Package dispatch routes orchestrator work to role-specialized sub-agents
// through the circuit breaker registry, returning tagged results the merge
// site can switch on exhaustively.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/knearme/showcase/core/breaker"
	"github.com/knearme/showcase/core/errors"
	"github.com/knearme/showcase/core/images"
	"github.com/knearme/showcase/core/project"
	"github.com/knearme/showcase/core/providers"
)

// DefaultTimeout bounds a single role dispatch when the spec does not set
// its own.
const DefaultTimeout = 30 * time.Second

// defaultConfidence is assumed when a role's response omits its score.
const defaultConfidence = 0.5

// Context carries the per-turn inputs a role prompt draws from.
type Context struct {
	State   *project.State
	Message string
}

// Spec declares how one role is dispatched: its capability, request shape,
// and response decoding. Role packages export their spec and the
// composition root registers them.
type Spec struct {
	Role         Role
	Capability   string
	Timeout      time.Duration
	Temperature  *float64
	SchemaName   string
	Schema       map[string]any
	System       string
	AttachImages bool

	// BuildUser renders the user turn from the dispatch context.
	BuildUser func(dctx *Context) string

	// Decode fills the role's payload from the provider response.
	Decode func(resp *providers.Response, result *RoleResult)
}

// Dispatcher executes role specs against the completion service.
type Dispatcher struct {
	client   providers.Client
	registry *breaker.Registry
	fetcher  *images.Fetcher
	logger   *slog.Logger

	mu    sync.RWMutex
	specs map[Role]Spec
}

// NewDispatcher creates a dispatcher. fetcher may be nil, which disables
// image attachment.
func NewDispatcher(client providers.Client, registry *breaker.Registry, fetcher *images.Fetcher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client:   client,
		registry: registry,
		fetcher:  fetcher,
		logger:   logger,
		specs:    make(map[Role]Spec),
	}
}

// Register installs a role spec, replacing any previous spec for the role.
func (d *Dispatcher) Register(spec Spec) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.specs[spec.Role] = spec
}

// Dispatch runs one role. Failures are encoded in the result: Err is the
// classified error, Retryable its tier behavior, and the payload the
// role's empty form.
func (d *Dispatcher) Dispatch(ctx context.Context, role Role, dctx *Context) *RoleResult {
	start := time.Now()
	result := &RoleResult{Role: role}

	d.mu.RLock()
	spec, ok := d.specs[role]
	d.mu.RUnlock()
	if !ok {
		result.Err = errors.NewTieredError(errors.TierValidation,
			fmt.Sprintf("no spec registered for role %q", role), nil)
		result.emptyPayload()
		return result
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &providers.Request{
		System:      spec.System,
		SchemaName:  spec.SchemaName,
		Schema:      spec.Schema,
		Temperature: spec.Temperature,
		History: []providers.Message{
			{Role: providers.RoleUser, Content: spec.BuildUser(dctx)},
		},
	}
	if spec.AttachImages && d.fetcher != nil && dctx.State != nil {
		req.Images = d.fetcher.Prepare(ctx, dctx.State.Images)
	}

	resp, err := breaker.Do(ctx, d.registry, spec.Capability,
		func(ctx context.Context) (*providers.Response, error) {
			return d.client.Complete(ctx, req)
		})
	result.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		classified := errors.Classify(err)
		result.Err = classified
		result.Retryable = errors.IsRetryable(classified)
		if result.Retryable {
			result.RetryAfter = errors.DetermineBackoff(errors.DefaultBackoffConfig(), 0, classified)
		}
		result.emptyPayload()
		d.logger.Warn("role dispatch failed",
			"role", role,
			"capability", spec.Capability,
			"tier", errors.GetTier(classified).String(),
			"retryable", result.Retryable,
			"retry_after", result.RetryAfter,
			"duration_ms", result.DurationMs,
		)
		return result
	}

	result.Confidence = d.readConfidence(role, resp.Object)
	spec.Decode(resp, result)
	return result
}

// DispatchParallel runs independent roles concurrently. One branch's
// failure never cancels another; each branch records against its own
// capability.
func (d *Dispatcher) DispatchParallel(ctx context.Context, dctx *Context, roles ...Role) map[Role]*RoleResult {
	results := make(map[Role]*RoleResult, len(roles))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, role := range roles {
		wg.Add(1)
		go func(role Role) {
			defer wg.Done()
			result := d.Dispatch(ctx, role, dctx)
			result.Parallel = true
			mu.Lock()
			results[role] = result
			mu.Unlock()
		}(role)
	}
	wg.Wait()
	return results
}

// readConfidence pulls the schema-declared confidence from the response,
// assuming the default when the model omitted it.
func (d *Dispatcher) readConfidence(role Role, object map[string]any) float64 {
	if object != nil {
		if score, ok := object["confidence"].(float64); ok {
			return score
		}
	}
	d.logger.Warn("role response omitted confidence, assuming default",
		"role", role,
		"default", defaultConfidence,
	)
	return defaultConfidence
}
