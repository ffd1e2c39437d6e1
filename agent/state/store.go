// Package state holds the session model and its persistence contract.
// Three Store implementations ship: an in-memory map (tests, single-node
// deployments), an Upstash Redis REST store, and a Postgres store.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scambait/honeynet/agent/contract"
)

const DefaultLockTimeout = 5 * time.Second

// Store is the keyed, lockable session persistence used by the manager.
type Store interface {
	// GetOrCreate loads the session or atomically inserts a fresh one,
	// so two concurrent first requests for the same id cannot both
	// create. Returns a private copy.
	GetOrCreate(ctx context.Context, id string, now time.Time) (*Session, error)
	// Save persists the session, replacing the stored copy.
	Save(ctx context.Context, s *Session) error
	// WithLock runs fn while holding the per-session mutex. At most one
	// fn per id is in flight; different ids proceed in parallel. An
	// acquisition deadline overrun yields contract.ErrLockTimeout and
	// fn is never invoked.
	WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error
}

// keyedLock serializes work per session id. Entries are refcounted by
// holders and waiters and evicted when the last one releases, so the map
// is bounded by the number of sessions with in-flight requests.
//
// The Redis and Postgres stores reuse it, which serializes sessions within
// one process only. Cross-instance locking is a deployment concern the
// stores do not take on.
type keyedLock struct {
	timeout time.Duration

	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock(timeout time.Duration) *keyedLock {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &keyedLock{
		timeout: timeout,
		locks:   make(map[string]*lockEntry),
	}
}

func (l *keyedLock) acquire(id string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[id] = e
	}
	e.refs++
	return e
}

func (l *keyedLock) release(id string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}

// run acquires the id's lock, executes fn, and releases on every exit
// path, including fn panicking.
func (l *keyedLock) run(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	e := l.acquire(id)
	defer l.release(id, e)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: session=%s: %v", contract.ErrLockTimeout, id, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: session=%s after %s", contract.ErrLockTimeout, id, l.timeout)
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}
