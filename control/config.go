// control/config.go
// Author: momentics <momentics@gmail.com>
//
// File/env configuration for puki and a thread-safe runtime config store
// with reload listeners.

package control

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/momentics/puki/api"
)

// DefaultPort is the TCP port served when nothing else is configured.
const DefaultPort = 8080

// Config is the complete process configuration. CPU pins the reactor
// thread; -1 disables pinning.
type Config struct {
	Port           int         `yaml:"port"`
	Bind           string      `yaml:"bind"`
	ReadBufferSize int         `yaml:"read_buffer_size"`
	MaxEvents      int         `yaml:"max_events"`
	Echo           bool        `yaml:"echo"`
	CPU            int         `yaml:"cpu"`
	Async          bool        `yaml:"async"`
	Log            LogConfig   `yaml:"log"`
	Admin          AdminConfig `yaml:"admin"`
}

// LogConfig selects the log sink and level.
type LogConfig struct {
	// Console logs to stdout instead of syslog.
	Console bool   `yaml:"console"`
	Level   string `yaml:"level"`
}

// AdminConfig configures the HTTP admin endpoint; empty Addr disables it.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:           DefaultPort,
		Bind:           "0.0.0.0",
		ReadBufferSize: 1024,
		MaxEvents:      128,
		CPU:            -1,
		Log:            LogConfig{Level: "info"},
	}
}

// LoadConfig builds a Config from defaults, then the YAML file at path (if
// path is non-empty), then PUKI_* environment variables, and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PUKI_PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PUKI_PORT: %w", err)
		}
		c.Port = p
	}
	if v, ok := lookup("PUKI_BIND"); ok {
		c.Bind = v
	}
	if v, ok := lookup("PUKI_ECHO"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PUKI_ECHO: %w", err)
		}
		c.Echo = b
	}
	if v, ok := lookup("PUKI_ADMIN_ADDR"); ok {
		c.Admin.Addr = v
	}
	if v, ok := lookup("PUKI_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 0..65535", c.Port))
	}
	if _, err := c.BindAddr(); err != nil {
		errs = append(errs, err)
	}
	if c.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("read_buffer_size must be positive, got %d", c.ReadBufferSize))
	}
	if c.MaxEvents <= 0 {
		errs = append(errs, fmt.Errorf("max_events must be positive, got %d", c.MaxEvents))
	}
	if c.CPU < -1 {
		errs = append(errs, fmt.Errorf("cpu must be -1 or a cpu index, got %d", c.CPU))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", api.ErrInvalidArgument, errors.Join(errs...))
}

// BindAddr parses Bind as an IPv4 address.
func (c *Config) BindAddr() (netip.Addr, error) {
	a, err := netip.ParseAddr(c.Bind)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("bind: %w", err)
	}
	if !a.Is4() {
		return netip.Addr{}, fmt.Errorf("bind %s: only IPv4 is served", c.Bind)
	}
	return a, nil
}

// Flatten renders the config as dotted keys for the ConfigStore.
func (c *Config) Flatten() map[string]any {
	return map[string]any{
		"port":             c.Port,
		"bind":             c.Bind,
		"read_buffer_size": c.ReadBufferSize,
		"max_events":       c.MaxEvents,
		"echo":             c.Echo,
		"cpu":              c.CPU,
		"async":            c.Async,
		"log.console":      c.Log.Console,
		"log.level":        c.Log.Level,
		"admin.addr":       c.Admin.Addr,
	}
}

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(map[string]any)
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.snapshotLocked()
}

func (cs *ConfigStore) snapshotLocked() map[string]any {
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges new values and notifies listeners with the result.
// Listeners run synchronously, outside the lock, in registration order.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	snap := cs.snapshotLocked()
	listeners := append([]func(map[string]any){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func(map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
