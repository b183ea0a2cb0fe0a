// Package di provides a small lazily-resolving service container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves registered services by name.
type ServiceRegistry interface {
	Get(name string) any
	Has(name string) bool
}

// Container is a ServiceRegistry that also accepts registrations.
type Container interface {
	ServiceRegistry
	Register(name string, service any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

// entry builds its service at most once.
type entry struct {
	once    sync.Once
	factory func(ServiceRegistry) any
	svc     any
}

type container struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

// Register stores an already constructed service.
func (c *container) Register(name string, service any) {
	e := &entry{svc: service}
	e.once.Do(func() {})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = e
}

// RegisterFactory stores a factory invoked once, on first Get.
// Factories may resolve other services; a dependency cycle deadlocks.
func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{factory: factory}
}

// Has reports whether name was registered.
func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}

// Get resolves a service, building it from its factory if needed.
// Unknown names panic; they are wiring bugs.
func (c *container) Get(name string) any {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	e.once.Do(func() {
		e.svc = e.factory(c)
	})
	return e.svc
}
