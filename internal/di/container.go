// Package di wires tondex services from configuration.
package di

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrServiceNotFound is returned when neither an instance nor a builder is
// registered under a name.
var ErrServiceNotFound = errors.New("service not found")

// Container holds named services. Builders run lazily on first Get and their
// result is cached.
type Container struct {
	mu       sync.Mutex
	services map[string]any
	builders map[string]Builder
	closers  []namedCloser
}

// Builder creates a service instance.
type Builder func(c *Container) (any, error)

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates an empty container.
func New() *Container {
	return &Container{
		services: make(map[string]any),
		builders: make(map[string]Builder),
	}
}

// Register stores a ready instance.
func (c *Container) Register(name string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterBuilder stores a builder for lazy instantiation.
func (c *Container) RegisterBuilder(name string, b Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[name] = b
}

// Get returns the service registered under name, building it if needed.
// Built services that implement io.Closer are closed by Close.
func (c *Container) Get(name string) (any, error) {
	c.mu.Lock()
	if s, ok := c.services[name]; ok {
		c.mu.Unlock()
		return s, nil
	}
	b, ok := c.builders[name]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	// Builders may Get their own dependencies, so the lock is not held here.
	s, err := b(c)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.services[name]; ok {
		if closer, ok := s.(io.Closer); ok {
			_ = closer.Close()
		}
		return existing, nil
	}
	c.services[name] = s
	if closer, ok := s.(io.Closer); ok {
		c.closers = append(c.closers, namedCloser{name, closer})
	}
	return s, nil
}

// Resolve is Get with a type assertion.
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	s, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := s.(T)
	if !ok {
		return zero, fmt.Errorf("service %s is %T, not %T", name, s, zero)
	}
	return t, nil
}

// Has reports whether name has an instance or a builder.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.services[name]
	if !ok {
		_, ok = c.builders[name]
	}
	return ok
}

// ServiceNames returns every registered name in sorted order.
func (c *Container) ServiceNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(c.services)+len(c.builders))
	for n := range c.services {
		seen[n] = struct{}{}
	}
	for n := range c.builders {
		seen[n] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Close closes built services in reverse build order.
func (c *Container) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", closers[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Service names.
const (
	ServiceConfig  = "config"
	ServiceLogger  = "logger"
	ServiceDeriver = "deriver"
	ServiceJournal = "journal"
)
