package executor

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Session)
)

// Register adds a session factory to the registry.
// Called by backend implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Session) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a session factory by name.
func Get(name string) (func(*slog.Logger) Session, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates an unconnected session for cfg.Type.
// The logger is passed to the backend constructor (nil uses discard logger).
func New(cfg Config, logger *slog.Logger) (Session, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("executor type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownExecutorError{
			Type:      cfg.Type,
			Available: List(),
		}
	}
	return factory(logger), nil
}

// List returns all registered executor names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an executor type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownExecutorError is returned when an unknown executor type is requested.
type UnknownExecutorError struct {
	Type      string
	Available []string
}

func (e *UnknownExecutorError) Error() string {
	return fmt.Sprintf("unknown executor type %q\nAvailable executors: %v\nHint: Check your target.type in cqlunit.yaml", e.Type, e.Available)
}
