// Package command contains write operations (CQRS - Commands).
package command

import "sync"

// ══════════════════════════════════════════════════════════════════════════════
// USER LOCKS
// Serializes event application per user. Events for the same user are applied
// one at a time; events for different users proceed concurrently.
// ══════════════════════════════════════════════════════════════════════════════

// userLocks keeps one mutex per user ID.
// Locks are never removed: the set of users is bounded and mutexes are cheap.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// newUserLocks creates an empty lock set.
func newUserLocks() *userLocks {
	return &userLocks{m: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for the given user, creating it on first use.
// The returned function releases the mutex.
func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	mu, ok := l.m[userID]
	if !ok {
		mu = &sync.Mutex{}
		l.m[userID] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}
