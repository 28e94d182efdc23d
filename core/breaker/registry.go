package breaker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gobwas/glob"

	"github.com/knearme/showcase/core/errors"
)

// KillSwitchSource tags kill-switch invocations originating here.
const KillSwitchSource = "circuit_breaker"

// DefaultKillThreshold is the number of simultaneously open capabilities
// that triggers the process-wide kill switch.
const DefaultKillThreshold = 3

// KillSwitchFunc is invoked when too many capabilities are open at once.
type KillSwitchFunc func(reason, source string)

// Override binds a breaker configuration to capability names matching a
// glob pattern, e.g. "agent.*" or "discovery".
type Override struct {
	Pattern string
	Config  Config
}

type compiledOverride struct {
	matcher glob.Glob
	config  Config
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Default is the configuration applied to capabilities with no
	// matching override.
	Default Config

	// Overrides are evaluated in order; the first matching pattern wins.
	Overrides []Override

	// KillSwitch, when set, fires once each time the count of open
	// capabilities crosses KillThreshold.
	KillSwitch KillSwitchFunc

	// KillThreshold defaults to DefaultKillThreshold.
	KillThreshold int

	// Store, when set, receives best-effort snapshots on every state
	// transition so external tooling can inspect breaker state.
	Store *Store

	Logger *slog.Logger
}

// Registry manages one circuit breaker per capability name. Breakers are
// created lazily on first use and persist for the life of the process.
type Registry struct {
	mu        sync.RWMutex
	breakers  map[string]*Breaker
	defaults  Config
	overrides []compiledOverride

	killSwitch    KillSwitchFunc
	killThreshold int
	killFired     bool

	store  *Store
	logger *slog.Logger
}

// NewRegistry creates a registry from the given configuration.
// Invalid override patterns are rejected.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	overrides := make([]compiledOverride, 0, len(cfg.Overrides))
	for _, o := range cfg.Overrides {
		matcher, err := glob.Compile(o.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile override pattern %q: %w", o.Pattern, err)
		}
		overrides = append(overrides, compiledOverride{matcher: matcher, config: o.Config})
	}

	killThreshold := cfg.KillThreshold
	if killThreshold <= 0 {
		killThreshold = DefaultKillThreshold
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		breakers:      make(map[string]*Breaker),
		defaults:      cfg.Default.withDefaults(),
		overrides:     overrides,
		killSwitch:    cfg.KillSwitch,
		killThreshold: killThreshold,
		store:         cfg.Store,
		logger:        logger,
	}, nil
}

// Get retrieves or lazily creates the breaker for a capability.
func (r *Registry) Get(capability string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[capability]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock
	if b, ok := r.breakers[capability]; ok {
		return b
	}

	b = New(capability, r.resolveConfig(capability))
	r.breakers[capability] = b
	return b
}

func (r *Registry) resolveConfig(capability string) Config {
	for _, o := range r.overrides {
		if o.matcher.Match(capability) {
			return o.config.withDefaults()
		}
	}
	return r.defaults
}

// CanExecute reports whether a call to the capability may proceed.
func (r *Registry) CanExecute(capability string) bool {
	b := r.Get(capability)
	allowed := b.CanExecute()

	// The open to half-open transition happens lazily inside the breaker,
	// so this is the only point where the open count can drop without a
	// recorded outcome or a reset.
	if b.State() == StateHalfOpen {
		r.reevaluateKillSwitch()
	}
	return allowed
}

// RecordSuccess registers a successful call against the capability.
func (r *Registry) RecordSuccess(capability string) {
	b := r.Get(capability)
	closed := b.RecordSuccess()
	r.persist(b)

	if closed {
		r.logger.Info("circuit closed", "capability", capability)
		r.reevaluateKillSwitch()
	}
}

// RecordFailure registers a failed call against the capability. A breaker
// that transitions to open triggers a kill-switch evaluation.
func (r *Registry) RecordFailure(capability string, err error) {
	b := r.Get(capability)
	opened := b.RecordFailure()
	r.persist(b)

	if opened {
		r.logger.Warn("circuit opened",
			"capability", capability,
			"error", err,
		)
		r.onCircuitOpened()
	}
}

// onCircuitOpened fires the kill switch exactly once each time the open
// count crosses the threshold. Subsequent opens while already past the
// threshold do not re-fire.
func (r *Registry) onCircuitOpened() {
	open := r.OpenCapabilities()

	r.mu.Lock()
	shouldFire := len(open) >= r.killThreshold && !r.killFired && r.killSwitch != nil
	if shouldFire {
		r.killFired = true
	}
	fn := r.killSwitch
	r.mu.Unlock()

	if !shouldFire {
		return
	}

	reason := fmt.Sprintf("%d agent circuits open: %v", len(open), open)
	r.logger.Error("kill switch triggered", "open_capabilities", open)
	fn(reason, KillSwitchSource)
}

// reevaluateKillSwitch re-arms the kill switch once the open count has
// dropped back below the threshold.
func (r *Registry) reevaluateKillSwitch() {
	open := r.OpenCapabilities()

	r.mu.Lock()
	if len(open) < r.killThreshold {
		r.killFired = false
	}
	r.mu.Unlock()
}

// CapabilityStatus is the administrative view of one breaker.
type CapabilityStatus struct {
	State     State `json:"state"`
	Failures  int   `json:"failures"`
	Successes int   `json:"successes"`
}

// Status returns per-capability state and counters.
func (r *Registry) Status() map[string]CapabilityStatus {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	status := make(map[string]CapabilityStatus, len(breakers))
	for _, b := range breakers {
		snap := b.Snapshot()
		status[snap.Capability] = CapabilityStatus{
			State:     snap.State,
			Failures:  snap.Failures,
			Successes: snap.Successes,
		}
	}
	return status
}

// OpenCapabilities returns the sorted names of capabilities currently open.
func (r *Registry) OpenCapabilities() []string {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	open := make([]string, 0)
	for _, b := range breakers {
		if b.State() == StateOpen {
			open = append(open, b.Capability())
		}
	}
	sort.Strings(open)
	return open
}

// Reset force-closes the breaker for a capability.
func (r *Registry) Reset(capability string) {
	r.mu.RLock()
	b, ok := r.breakers[capability]
	r.mu.RUnlock()
	if !ok {
		return
	}

	b.ForceReset()
	r.persist(b)
	r.reevaluateKillSwitch()
}

// ResetAll force-closes every breaker.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	for _, b := range breakers {
		b.ForceReset()
		r.persist(b)
	}
	r.reevaluateKillSwitch()
}

// persist writes a best-effort snapshot to the store. Store failures are
// logged and never affect the call path.
func (r *Registry) persist(b *Breaker) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(b.Snapshot()); err != nil {
		r.logger.Warn("breaker snapshot persist failed",
			"capability", b.Capability(),
			"error", err,
		)
	}
}

// OpenError returns the typed fail-fast error for a rejected capability.
func OpenError(capability string) error {
	return errors.NewTieredError(errors.TierBreakerOpen,
		fmt.Sprintf("capability %q temporarily unavailable", capability), nil).
		WithContext("capability", capability)
}

// Do executes fn through the capability's breaker. When the breaker is open
// it fails fast with a breaker-open tiered error without invoking fn.
// Otherwise the outcome is recorded and the original error returned.
func Do[T any](ctx context.Context, r *Registry, capability string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if !r.CanExecute(capability) {
		return zero, OpenError(capability)
	}

	result, err := fn(ctx)
	if err != nil {
		r.RecordFailure(capability, err)
		return zero, err
	}

	r.RecordSuccess(capability)
	return result, nil
}
