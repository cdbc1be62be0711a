package service

import "sync"

// keyedMutex provides one mutex per key. Mutexes are created on first use
// and kept for the process lifetime; the key space is bounded by the judge
// and team rosters, so there is nothing to evict.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

// lockPair acquires both keys' mutexes in sorted key order so concurrent
// votes touching the same two teams cannot deadlock.
func (k *keyedMutex) lockPair(a, b string) func() {
	if b < a {
		a, b = b, a
	}
	ma := k.get(a)
	mb := k.get(b)
	ma.Lock()
	mb.Lock()
	return func() {
		mb.Unlock()
		ma.Unlock()
	}
}
