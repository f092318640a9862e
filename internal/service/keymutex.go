package service

import "sync"

// keyMutex serializes read-modify-write sequences per cart identifier so two
// concurrent mutations of the same cart cannot race on the store. Entries are
// kept for the process lifetime; the population is bounded by the set of
// identifiers a single instance serves.
type keyMutex struct {
	locks sync.Map
}

func (k *keyMutex) Lock(key string) func() {
	actual, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// LockBoth acquires both identifiers in lexicographic order so concurrent
// merges cannot deadlock.
func (k *keyMutex) LockBoth(a, b string) func() {
	if a == b {
		return k.Lock(a)
	}
	if a > b {
		a, b = b, a
	}
	unlockA := k.Lock(a)
	unlockB := k.Lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}
