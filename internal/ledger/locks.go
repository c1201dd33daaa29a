package ledger

import "sync"

// userLocks serializes mutating operations per user: at most one
// in-flight write per user, different users never block each other.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[int64]*sync.Mutex)}
}

// Lock acquires the user's mutex and returns the unlock func.
func (l *userLocks) Lock(userID int64) func() {
	l.mu.Lock()
	um, ok := l.m[userID]
	if !ok {
		um = &sync.Mutex{}
		l.m[userID] = um
	}
	l.mu.Unlock()

	um.Lock()
	return um.Unlock
}
