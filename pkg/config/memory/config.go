package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/code-escrow/pkg/config"
)

var errDeveloperInduced = errors.New("in memory config: developer induced error")

// Config holds a value set by the caller. Tests use it to override
// environment driven settings.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	induced  bool
	shutdown bool
}

// NewConfig returns a config holding value. A nil value means unset.
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.induced:
		return nil, errDeveloperInduced
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

// Shutdown implements Config.Shutdown
func (c *Config) Shutdown() {
	c.set(func() { c.shutdown = true })
}

// SetValue sets the value returned by subsequent Get calls.
func (c *Config) SetValue(value interface{}) {
	c.set(func() { c.value = value })
}

// ClearValue unsets the value, so Get returns config.ErrNoValue.
func (c *Config) ClearValue() {
	c.set(func() { c.value = nil })
}

// InduceErrors makes Get fail until StopInducingErrors is called.
func (c *Config) InduceErrors() {
	c.set(func() { c.induced = true })
}

func (c *Config) StopInducingErrors() {
	c.set(func() { c.induced = false })
}

func (c *Config) set(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}
