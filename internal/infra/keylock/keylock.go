// Package keylock provides a keyed mutex: one lock per key, created on
// demand and released when no goroutine holds or waits for it.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locks serializes work per key. Different keys never block each other.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New creates an empty set of keyed locks.
func New() *Locks {
	return &Locks{locks: make(map[string]*entry)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (l *Locks) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len returns how many keys are currently held or awaited.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
