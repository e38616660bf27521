package provider

import "sync"

// providerLocks serializes control operations per provider id so two
// connects (or a connect and a disconnect) never overlap on one client.
type providerLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newProviderLocks() *providerLocks {
	return &providerLocks{locks: make(map[int]*sync.Mutex)}
}

// lock acquires the mutex for id and returns its release function.
func (l *providerLocks) lock(id int) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
