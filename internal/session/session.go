// Package session keeps login sessions in memory: the authenticated client and
// the recipient staged for the next transfer. Every mutation of a session runs
// under that session's own lock; unrelated sessions never contend.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultTTL is how long an idle session stays valid.
	DefaultTTL = 30 * time.Minute
	// DefaultLockTimeout bounds the wait for a busy session.
	DefaultLockTimeout = 2 * time.Second
)

var (
	// ErrNotFound is returned for unknown, closed or expired tokens.
	ErrNotFound = errors.New("session not found")
	// ErrLockTimeout is returned when another request held the session too long.
	ErrLockTimeout = errors.New("timed out waiting for session")
)

// Selection is the recipient staged for an upcoming transfer.
type Selection struct {
	RecipientClientID string
	RecipientName     string
	AccountNumber     string
	SelectedAt        time.Time
}

// Session is a read-only snapshot of a session entry.
type Session struct {
	Token     string
	ClientID  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Selection *Selection
}

type entry struct {
	lock      *semaphore.Weighted
	token     string
	clientID  string
	createdAt time.Time
	// fields below are guarded by lock
	lastSeen  time.Time
	selection *Selection
}

// Store maps session tokens to entries.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	ttl         time.Duration
	lockTimeout time.Duration
	now         func() time.Time
	lastSweep   time.Time
}

// NewStore builds an empty store. Zero durations select the defaults.
func NewStore(ttl, lockTimeout time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		sessions:    make(map[string]*entry),
		ttl:         ttl,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// TTL reports the idle lifetime of a session.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create opens a session for an authenticated client and returns it.
func (s *Store) Create(clientID string) Session {
	now := s.now().UTC()
	e := &entry{
		lock:      semaphore.NewWeighted(1),
		token:     uuid.NewString(),
		clientID:  clientID,
		createdAt: now,
		lastSeen:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) >= s.ttl {
		s.sweepLocked(now)
	}
	s.sessions[e.token] = e
	return e.snapshot(s.ttl)
}

// Get returns the session for token and refreshes its idle timer.
func (s *Store) Get(ctx context.Context, token string) (Session, error) {
	var out Session
	err := s.Update(ctx, token, func(tx *Tx) error {
		out = tx.entry.snapshot(s.ttl)
		return nil
	})
	return out, err
}

// Delete closes the session. Deleting an unknown token is a no-op.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Len reports the number of open sessions, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle past the TTL and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) int {
	s.lastSweep = now
	removed := 0
	for token, e := range s.sessions {
		// Busy sessions are in use, hence not idle.
		if !e.lock.TryAcquire(1) {
			continue
		}
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, token)
			removed++
		}
		e.lock.Release(1)
	}
	return removed
}

// Update runs fn with exclusive access to the session. Calls on the same token
// are serialized; fn's error is returned unchanged and nothing fn did through
// the Tx is rolled back.
func (s *Store) Update(ctx context.Context, token string, fn func(tx *Tx) error) error {
	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	if err := e.lock.Acquire(lockCtx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	defer e.lock.Release(1)

	now := s.now().UTC()
	if now.Sub(e.lastSeen) > s.ttl {
		s.Delete(token)
		return ErrNotFound
	}
	// Logout may have removed the entry while this call waited for the lock.
	s.mu.RLock()
	current, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || current != e {
		return ErrNotFound
	}
	e.lastSeen = now

	return fn(&Tx{entry: e, now: now})
}

func (e *entry) snapshot(ttl time.Duration) Session {
	out := Session{
		Token:     e.token,
		ClientID:  e.clientID,
		CreatedAt: e.createdAt,
		ExpiresAt: e.lastSeen.Add(ttl),
	}
	if e.selection != nil {
		sel := *e.selection
		out.Selection = &sel
	}
	return out
}

// Tx is the view of a session handed to Update callbacks. It is only valid
// inside the callback.
type Tx struct {
	entry *entry
	now   time.Time
}

// ClientID returns the authenticated client of the session.
func (tx *Tx) ClientID() string {
	return tx.entry.clientID
}

// Selection returns a copy of the staged selection, if any.
func (tx *Tx) Selection() (Selection, bool) {
	if tx.entry.selection == nil {
		return Selection{}, false
	}
	return *tx.entry.selection, true
}

// Stage replaces any staged selection.
func (tx *Tx) Stage(sel Selection) {
	if sel.SelectedAt.IsZero() {
		sel.SelectedAt = tx.now
	}
	tx.entry.selection = &sel
}

// ClearSelection drops the staged selection.
func (tx *Tx) ClearSelection() {
	tx.entry.selection = nil
}
