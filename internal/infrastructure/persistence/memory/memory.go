// Package memory provides in-memory implementations of the engine's
// repositories. Used for single-instance deployments without a database
// and as the storage backend in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository is an in-memory append-only XP ledger.
type LedgerRepository struct {
	mu     sync.RWMutex
	byUser map[string][]*progression.XPEvent
}

// NewLedgerRepository creates an empty ledger.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{byUser: make(map[string][]*progression.XPEvent)}
}

// Append adds an entry to the ledger.
func (r *LedgerRepository) Append(_ context.Context, event *progression.XPEvent) error {
	if event == nil {
		return shared.NewDomainError("progression", "Append", shared.ErrInvalidInput, "event is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[event.UserID] = append(r.byUser[event.UserID], event.Clone())
	return nil
}

// GetByUser returns the user's entries, newest first.
func (r *LedgerRepository) GetByUser(_ context.Context, userID string, limit int) ([]*progression.XPEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.byUser[userID]
	out := make([]*progression.XPEvent, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i].Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetByUserSince returns the user's entries created at or after the given time,
// newest first.
func (r *LedgerRepository) GetByUserSince(_ context.Context, userID string, since time.Time) ([]*progression.XPEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.byUser[userID]
	out := make([]*progression.XPEvent, 0)
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].CreatedAt.Before(since) {
			continue
		}
		out = append(out, entries[i].Clone())
	}
	return out, nil
}

// CountByUser returns the number of entries of a user.
func (r *LedgerRepository) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AVATAR REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AvatarRepository is an in-memory avatar store.
type AvatarRepository struct {
	mu      sync.RWMutex
	avatars map[string]*progression.Avatar
}

// NewAvatarRepository creates an empty avatar store.
func NewAvatarRepository() *AvatarRepository {
	return &AvatarRepository{avatars: make(map[string]*progression.Avatar)}
}

// Get returns the avatar of a user.
func (r *AvatarRepository) Get(_ context.Context, userID string) (*progression.Avatar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	avatar, ok := r.avatars[userID]
	if !ok {
		return nil, shared.ErrAvatarNotFound
	}
	return avatar.Clone(), nil
}

// Save stores the avatar (create or update).
func (r *AvatarRepository) Save(_ context.Context, avatar *progression.Avatar) error {
	if avatar == nil {
		return shared.NewDomainError("progression", "Save", shared.ErrInvalidInput, "avatar is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.avatars[avatar.UserID] = avatar.Clone()
	return nil
}

// GetAll returns all avatars, ordered by user ID for determinism.
func (r *AvatarRepository) GetAll(_ context.Context) ([]*progression.Avatar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*progression.Avatar, 0, len(r.avatars))
	for _, avatar := range r.avatars {
		out = append(out, avatar.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Count returns the number of avatars.
func (r *AvatarRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.avatars), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRACKER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// TrackerRepository is an in-memory activity tracker store.
type TrackerRepository struct {
	mu       sync.RWMutex
	trackers map[string]*progression.Tracker
}

// NewTrackerRepository creates an empty tracker store.
func NewTrackerRepository() *TrackerRepository {
	return &TrackerRepository{trackers: make(map[string]*progression.Tracker)}
}

// Get returns the tracker of a user.
func (r *TrackerRepository) Get(_ context.Context, userID string) (*progression.Tracker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tracker, ok := r.trackers[userID]
	if !ok {
		return nil, shared.NewDomainError("progression", "Find", shared.ErrNotFound, "tracker not found")
	}
	return tracker.Clone(), nil
}

// Save stores the tracker (create or update).
func (r *TrackerRepository) Save(_ context.Context, tracker *progression.Tracker) error {
	if tracker == nil {
		return shared.NewDomainError("progression", "Save", shared.ErrInvalidInput, "tracker is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.trackers[tracker.UserID] = tracker.Clone()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// UnlockRepository is an in-memory achievement unlock store.
type UnlockRepository struct {
	mu     sync.RWMutex
	byUser map[string][]achievement.Unlock
	seen   map[string]bool
}

// NewUnlockRepository creates an empty unlock store.
func NewUnlockRepository() *UnlockRepository {
	return &UnlockRepository{
		byUser: make(map[string][]achievement.Unlock),
		seen:   make(map[string]bool),
	}
}

func unlockKey(userID, achievementID string) string {
	return userID + "\x00" + achievementID
}

// GetByUser returns all unlocks of a user, oldest first.
func (r *UnlockRepository) GetByUser(_ context.Context, userID string) ([]achievement.Unlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unlocks := r.byUser[userID]
	out := make([]achievement.Unlock, len(unlocks))
	copy(out, unlocks)
	return out, nil
}

// Save stores an unlock record. Saving the same (user, achievement) pair
// twice fails with shared.ErrAlreadyExists.
func (r *UnlockRepository) Save(_ context.Context, unlock achievement.Unlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := unlockKey(unlock.UserID, unlock.AchievementID)
	if r.seen[key] {
		return shared.NewDomainError("achievement", "Unlock", shared.ErrAlreadyExists, "achievement already unlocked")
	}

	r.seen[key] = true
	r.byUser[unlock.UserID] = append(r.byUser[unlock.UserID], unlock)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD SNAPSHOT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository is an in-memory leaderboard snapshot store.
// Only the latest snapshot per scope is retained.
type SnapshotRepository struct {
	mu     sync.RWMutex
	latest map[string]*leaderboard.Snapshot
}

// NewSnapshotRepository creates an empty snapshot store.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{latest: make(map[string]*leaderboard.Snapshot)}
}

// Save stores a leaderboard snapshot, replacing the previous one of the scope.
func (s *SnapshotRepository) Save(_ context.Context, snapshot *leaderboard.Snapshot) error {
	if snapshot == nil {
		return shared.NewDomainError("leaderboard", "Save", shared.ErrInvalidInput, "snapshot is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *snapshot
	clone.Entries = make([]leaderboard.Entry, len(snapshot.Entries))
	copy(clone.Entries, snapshot.Entries)
	s.latest[snapshot.Scope.String()] = &clone
	return nil
}

// GetLatest returns the latest snapshot of a scope.
func (s *SnapshotRepository) GetLatest(_ context.Context, scope leaderboard.Scope) (*leaderboard.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.latest[scope.String()]
	if !ok {
		return nil, shared.ErrLeaderboardEmpty
	}

	clone := *snapshot
	clone.Entries = make([]leaderboard.Entry, len(snapshot.Entries))
	copy(clone.Entries, snapshot.Entries)
	return &clone, nil
}
