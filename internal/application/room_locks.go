package application

import "sync"

// roomLocks hands out one mutex per room id. Entries are dropped once no goroutine holds
// or waits on them.
type roomLocks struct {
	mu    sync.Mutex
	locks map[int64]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[int64]*roomLock)}
}

// Lock blocks until roomID is free and returns the matching unlock func.
func (l *roomLocks) Lock(roomID int64) func() {
	l.mu.Lock()
	lock, ok := l.locks[roomID]
	if !ok {
		lock = &roomLock{}
		l.locks[roomID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
