package workflow

import "sync"

// keyedMutex hands out one mutex per key. Requisition and product writer
// locks are keyed mutexes; operations on unrelated keys never contend.
// Entries are refcounted and evicted once the last holder releases, so the
// map stays proportional to in-flight commands rather than total key
// cardinality.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	m    sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedEntry{}}
}

func (k *keyedMutex) acquire(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *keyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	e := k.acquire(key)
	e.m.Lock()
	return func() {
		e.m.Unlock()
		k.release(key, e)
	}
}

// LockAll acquires the mutexes for the given keys in slice order. Callers
// must pass keys already sorted so every caller agrees on acquisition
// order.
func (k *keyedMutex) LockAll(keys []string) func() {
	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, k.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
