package paypal

import "sync"

// recordLocks serializes operations on the same checkout order. Entries are
// reference counted and dropped once nobody holds or waits on them.
type recordLocks struct {
	mu    sync.Mutex
	locks map[uint]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[uint]*recordLock)}
}

// Lock blocks until id is free and returns the matching unlock func.
func (l *recordLocks) Lock(id uint) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &recordLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *recordLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
