package travesty

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/travesty/disclose"
	"github.com/hazyhaar/travesty/timing"
)

// Config is the top-level engine configuration. Throttling intervals are the
// only time-based behaviour in the engine and are treated as configuration.
type Config struct {
	// Debounce controls the watcher's flush scheduling.
	Debounce DebounceConfig `yaml:"debounce"`
	// Disclosure controls the popup's event scheduling.
	Disclosure DisclosureConfig `yaml:"disclosure"`
	// WrapperClass overrides the CSS class on replacement wrappers.
	WrapperClass string `yaml:"wrapper_class"`
	// Incremental enables the mutation watcher. When the platform reports
	// no structural-change observation, set false: the engine then performs
	// only the initial full pass.
	Incremental bool `yaml:"incremental"`
}

// DebounceConfig controls mutation batching.
type DebounceConfig struct {
	Window  time.Duration `yaml:"window"`
	MaxWait time.Duration `yaml:"max_wait"`
}

// DisclosureConfig controls popup event scheduling.
type DisclosureConfig struct {
	PointerThrottle time.Duration `yaml:"pointer_throttle"`
	ScrollThrottle  time.Duration `yaml:"scroll_throttle"`
	EscapeDebounce  time.Duration `yaml:"escape_debounce"`
}

// DefaultConfig returns the engine defaults with incremental observation on.
func DefaultConfig() *Config {
	cfg := &Config{Incremental: true}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 250 * time.Millisecond
	}
	if c.Debounce.MaxWait <= 0 {
		c.Debounce.MaxWait = 2 * time.Second
	}
	if c.Disclosure.PointerThrottle <= 0 {
		c.Disclosure.PointerThrottle = 100 * time.Millisecond
	}
	if c.Disclosure.ScrollThrottle <= 0 {
		c.Disclosure.ScrollThrottle = 150 * time.Millisecond
	}
	if c.Disclosure.EscapeDebounce <= 0 {
		c.Disclosure.EscapeDebounce = 150 * time.Millisecond
	}
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("travesty: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("travesty: parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) debounce() timing.Config {
	return timing.Config{Delay: c.Debounce.Window, MaxWait: c.Debounce.MaxWait}
}

func (c *Config) disclosure() disclose.Config {
	return disclose.Config{
		PointerThrottle: timing.Config{Delay: c.Disclosure.PointerThrottle},
		ScrollThrottle:  timing.Config{Delay: c.Disclosure.ScrollThrottle},
		EscapeDebounce:  timing.Config{Delay: c.Disclosure.EscapeDebounce},
	}
}
