// Package keyonlylocks provides non-blocking locks identified by key only.
// A second acquirer of a held key fails immediately instead of waiting.
package keyonlylocks

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrHeld = errors.New("lock already held")

// Set is a group of key locks. The zero value is ready to use.
type Set struct {
	held sync.Map // key -> struct{}
}

// TryAcquire takes all keys or none. On success it returns the function releasing them.
func (s *Set) TryAcquire(keys ...string) (func(), error) {
	var acquired []string
	for _, key := range keys {
		if _, loaded := s.held.LoadOrStore(key, struct{}{}); loaded {
			s.release(acquired) // rollback
			return nil, &HeldError{Key: key}
		}
		acquired = append(acquired, key)
	}
	var once sync.Once
	return func() { once.Do(func() { s.release(acquired) }) }, nil
}

func (s *Set) release(keys []string) {
	for _, key := range keys {
		s.held.Delete(key)
	}
}

// Held lists the locked keys, sorted
func (s *Set) Held() []string {
	var keys []string
	s.held.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Key joins parts into a lock key, e.g. "invoice:2024-001"
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

type HeldError struct {
	Key string
}

func (e *HeldError) Error() string {
	return "key " + e.Key + ": " + ErrHeld.Error()
}

func (e *HeldError) Is(target error) bool {
	return target == ErrHeld
}
