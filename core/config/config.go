// Package config loads and watches the showcase configuration file.
package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"gopkg.in/yaml.v3"

	"github.com/knearme/showcase/core/breaker"
	"github.com/knearme/showcase/core/images"
	"github.com/knearme/showcase/core/providers"
)

// Config is the full application configuration.
type Config struct {
	LogLevel  string           `yaml:"log_level"`
	Providers providers.Config `yaml:"providers"`
	Breakers  BreakersConfig   `yaml:"breakers"`
	Images    images.Config    `yaml:"images"`

	// VocabularyPath points at the extraction vocabulary file. Empty uses
	// the built-in vocabulary.
	VocabularyPath string `yaml:"vocabulary_path"`

	// StorePath is the directory holding the sqlite breaker snapshot
	// database. Empty disables persistence.
	StorePath string `yaml:"store_path"`

	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
}

// BreakersConfig configures the circuit breaker registry.
type BreakersConfig struct {
	Default breaker.Config `yaml:"default"`

	// Overrides maps capability glob patterns onto breaker configs, e.g.
	// "agent.*" for all sub-agent roles.
	Overrides map[string]breaker.Config `yaml:"overrides"`

	KillThreshold int `yaml:"kill_threshold"`
}

// OrchestratorConfig tunes per-turn behavior.
type OrchestratorConfig struct {
	RoleTimeout   time.Duration `yaml:"role_timeout"`
	MarketContext bool          `yaml:"market_context"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		Providers: providers.DefaultProvidersConfig(),
		Breakers: BreakersConfig{
			Default: breaker.DefaultConfig(),
			Overrides: map[string]breaker.Config{
				"agent.*": breaker.CriticalConfig(),
			},
			KillThreshold: breaker.DefaultKillThreshold,
		},
		Images: images.DefaultConfig(),
		Orchestrator: OrchestratorConfig{
			RoleTimeout: 30 * time.Second,
		},
	}
}

// Manager holds the active config behind an atomic pointer so readers
// never block a reload.
type Manager struct {
	configPtr unsafe.Pointer
	path      string

	watcherMu sync.RWMutex
	watchers  []func(*Config)
}

// NewManager creates a manager seeded with defaults. path may be empty,
// in which case Load keeps the defaults plus environment overrides.
func NewManager(path string) *Manager {
	m := &Manager{path: path}
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(DefaultConfig()))
	return m
}

// Get returns the active config.
func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

// Load reads the config file over the defaults, applies environment
// overrides, and swaps the result in.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if m.path != "" {
		data, err := os.ReadFile(m.path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvironment(cfg)

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)
	return nil
}

// OnChange registers a callback invoked after every successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("SHOWCASE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SHOWCASE_PROVIDER"); v != "" {
		cfg.Providers.DefaultProvider = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Providers.Anthropic.APIKey == "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("SHOWCASE_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("SHOWCASE_VOCABULARY"); v != "" {
		cfg.VocabularyPath = v
	}
	if v := os.Getenv("SHOWCASE_ROLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Orchestrator.RoleTimeout = d
		}
	}
}
