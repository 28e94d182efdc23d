// Package breaker implements per-capability circuit breakers guarding every
// AI-backed operation, with a registry-level kill switch for correlated
// failure across capabilities.
package breaker

import (
	"sync"
	"time"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed allows requests to proceed normally.
	StateClosed State = iota

	// StateOpen blocks all requests until the timeout elapses.
	StateOpen

	// StateHalfOpen allows probe requests to test recovery.
	StateHalfOpen
)

var stateNames = map[State]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half_open",
}

// String returns the string representation of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Config configures a single capability's breaker.
type Config struct {
	// FailureThreshold is the failure count within one window that opens
	// the breaker from closed.
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int `yaml:"success_threshold"`

	// Timeout is the time an open breaker waits before probing half-open.
	Timeout time.Duration `yaml:"timeout"`

	// Window is the rolling window after which counters reset.
	Window time.Duration `yaml:"window"`
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Timeout:          60 * time.Second,
		Window:           120 * time.Second,
	}
}

// CriticalConfig returns a stricter configuration for capabilities that
// should trip early and avoid hammering an already-struggling dependency.
func CriticalConfig() Config {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 3
	cfg.Timeout = 120 * time.Second
	return cfg
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	return c
}

// Breaker is one capability's circuit-breaker state machine. Owned
// exclusively by the Registry; all mutation happens under its mutex.
type Breaker struct {
	mu         sync.Mutex
	capability string
	config     Config

	state       State
	failures    int
	successes   int
	lastFailure time.Time
	lastSuccess time.Time
	windowStart time.Time
	openedAt    time.Time

	now func() time.Time
}

// New creates a breaker for a capability in the closed state.
func New(capability string, config Config) *Breaker {
	b := &Breaker{
		capability: capability,
		config:     config.withDefaults(),
		state:      StateClosed,
		now:        time.Now,
	}
	b.windowStart = b.now()
	return b
}

// advance lazily moves the breaker forward in time: expired windows reset
// the counters, and an open breaker whose timeout has elapsed transitions
// to half-open with the success counter cleared.
func (b *Breaker) advance(now time.Time) {
	if now.Sub(b.windowStart) > b.config.Window {
		b.failures = 0
		b.successes = 0
		b.windowStart = now
	}

	if b.state == StateOpen && now.Sub(b.openedAt) > b.config.Timeout {
		b.state = StateHalfOpen
		b.successes = 0
	}
}

// CanExecute reports whether a call may proceed. Closed and half-open
// breakers allow the call; open breakers reject it.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.now())
	return b.state != StateOpen
}

// RecordSuccess registers a successful call. Returns true when the breaker
// transitioned to closed as a result.
func (b *Breaker) RecordSuccess() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.advance(now)

	b.successes++
	b.lastSuccess = now

	if b.state == StateHalfOpen && b.successes >= b.config.SuccessThreshold {
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		b.windowStart = now
		return true
	}
	return false
}

// RecordFailure registers a failed call. Returns true when the breaker
// transitioned to open as a result. A single half-open failure reopens the
// breaker regardless of accumulated successes.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.advance(now)

	b.failures++
	b.lastFailure = now

	switch b.state {
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.open(now)
			return true
		}
	case StateHalfOpen:
		b.open(now)
		return true
	}
	return false
}

func (b *Breaker) open(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	b.successes = 0
}

// ForceReset returns the breaker to the closed state with all counters
// cleared. Administrative use only.
func (b *Breaker) ForceReset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.windowStart = b.now()
}

// State returns the current state after lazy time advancement.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.now())
	return b.state
}

// Capability returns the capability name this breaker protects.
func (b *Breaker) Capability() string {
	return b.capability
}

// Config returns the breaker configuration.
func (b *Breaker) Config() Config {
	return b.config
}

// Snapshot is a point-in-time copy of a breaker's counters for the
// administrative surface and the snapshot store.
type Snapshot struct {
	Capability  string    `json:"capability"`
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	Successes   int       `json:"successes"`
	LastFailure time.Time `json:"last_failure,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	WindowStart time.Time `json:"window_start"`
	OpenedAt    time.Time `json:"opened_at,omitzero"`
}

// Snapshot returns a copy of the breaker's current state and counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.now())
	return Snapshot{
		Capability:  b.capability,
		State:       b.state,
		Failures:    b.failures,
		Successes:   b.successes,
		LastFailure: b.lastFailure,
		LastSuccess: b.lastSuccess,
		WindowStart: b.windowStart,
		OpenedAt:    b.openedAt,
	}
}
