package lock

import "sync"

// KeyMutex provides exclusive sections keyed by an arbitrary string, used to
// serialize read-modify-write cycles on per-directory ledger files within a
// single process. Mutexes are created on first use and never discarded; the
// number of distinct asset directories touched by one process is bounded by
// the working set, so the map stays small.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyMutex creates an empty keyed mutex set.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, blocking until it is available, and
// returns the unlock function.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
