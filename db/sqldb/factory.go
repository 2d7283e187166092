package sqldb

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnsupportedType = errors.New("unsupported database type")

// ClientFactory builds a Client for one database type ("pgsql", "mysql").
// Driver packages register theirs from Register().
type ClientFactory func(conf *Conf) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ClientFactory{}
)

// RegisterFactory replaces any factory already registered for dbType
func RegisterFactory(dbType string, factory ClientFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[dbType] = factory
}

// Types lists the registered database types, sorted
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func New(dbType string, conf *Conf) (Client, error) {
	registryMu.RLock()
	factory, ok := registry[dbType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnsupportedType, dbType, Types())
	}
	return factory(conf)
}
