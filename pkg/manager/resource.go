package manager

import "sync"

// Resource is an external dependency with an explicit open/close lifecycle.
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin creates a named resource for registration.
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

type registry struct {
	mu      sync.Mutex
	plugins []ResourcePlugin
	opened  []Resource
}

var defaultRegistry = &registry{}

// RegisterResourcePlugin records a plugin; called from package init functions.
func RegisterResourcePlugin(p ResourcePlugin) {
	if p == nil {
		return
	}
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.plugins = append(defaultRegistry.plugins, p)
}

// MustInitResources opens every registered resource, panicking on failure.
func MustInitResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.plugins {
		r := p.MustCreateResource()
		r.MustOpen()
		defaultRegistry.opened = append(defaultRegistry.opened, r)
	}
}

// CloseResources closes opened resources in reverse order.
func CloseResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.opened) - 1; i >= 0; i-- {
		defaultRegistry.opened[i].Close()
	}
	defaultRegistry.opened = nil
}
