/*
lock.go - Per-tenant mutual exclusion

PURPOSE:
  The engine is logically single-threaded per tenant: two concurrent
  waterfall runs against the same tenant's ledgers would corrupt the
  deficit invariant through lost updates. KeyedLock serializes units of
  work by tenant identifier. Work on different tenants runs in parallel.
*/
package ledger

import "sync"

type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given key and returns its unlock func.
func (l *KeyedLock) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
