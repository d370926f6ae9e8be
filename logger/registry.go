package logger

import (
	"sync"
)

// Names of the loggers wirekit itself asks for.
const (
	NameWiring    = "wiring"
	NameLifecycle = "lifecycle"
	NameSchedule  = "schedule"
	NameBootstrap = "bootstrap"
)

// registry holds loggers registered under a name so packages can share one
// configured logger without passing it around.
var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores a named logger in the registry.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get retrieves a named logger. If the name is not registered it returns the
// global logger tagged with the requested component name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults seeds the registry with component-tagged loggers for the
// given names, or for wirekit's own loggers when none are given. Call it after
// Init so the registered loggers pick up the configured output.
func RegisterDefaults(names ...string) {
	if len(names) == 0 {
		names = []string{NameWiring, NameLifecycle, NameSchedule, NameBootstrap}
	}
	for _, name := range names {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}

// Unregister removes a named logger; later Get calls fall back to the global logger.
func Unregister(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.loggers, name)
}
