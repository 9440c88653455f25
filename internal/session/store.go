package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxSessions = 1000
	DefaultIdleTTL     = 30 * time.Minute
)

// Store keeps live sessions in memory. A session that stays idle for the TTL,
// is pushed out by newer ones, or is closed explicitly is passed to onClose.
//
// The LRU calls its eviction callback under its own lock, so evicted sessions are
// only queued there. The hook runs outside the lock: in the goroutine whose call
// caused the eviction, or in a background sweep for sessions that expired on their own.
type Store struct {
	// mu makes the Get+Add refresh atomic with respect to Close.
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	onClose  func(*Session)

	pendingMu sync.Mutex
	pending   []*Session

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewStore(size int, ttl time.Duration, onClose func(*Session)) *Store {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}

	st := &Store{
		onClose: onClose,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	st.sessions = expirable.NewLRU[string, *Session](size, st.evicted, ttl)

	go st.sweep(max(ttl/10, time.Second))

	return st
}

// evicted runs under the LRU lock and must not block.
func (st *Store) evicted(_ string, s *Session) {
	if s.closed.Swap(true) {
		return
	}

	st.pendingMu.Lock()
	st.pending = append(st.pending, s)
	st.pendingMu.Unlock()
}

// drain hands every queued session to the close hook.
func (st *Store) drain() {
	for {
		st.pendingMu.Lock()
		batch := st.pending
		st.pending = nil
		st.pendingMu.Unlock()

		if len(batch) == 0 {
			return
		}
		if st.onClose == nil {
			continue
		}
		for _, s := range batch {
			st.onClose(s)
		}
	}
}

func (st *Store) sweep(every time.Duration) {
	defer close(st.stopped)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			st.drain()
		}
	}
}

func (st *Store) Add(s *Session) {
	st.sessions.Add(s.ID, s)
	st.drain()
}

// Get returns the session and restarts its idle timer.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions.Get(id)
	if ok {
		st.sessions.Add(id, s)
		// expired between Get and Add: do not resurrect it
		if s.closed.Load() {
			st.sessions.Remove(id)
			ok = false
		}
	}
	st.mu.Unlock()

	st.drain()

	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close removes the session, handing it to the close callback before returning.
func (st *Store) Close(id string) error {
	st.mu.Lock()
	removed := st.sessions.Remove(id)
	st.mu.Unlock()

	st.drain()

	if !removed {
		return ErrNotFound
	}
	return nil
}

// CloseAll stops the background sweep and closes every session, for example at shutdown.
// It returns once all close callbacks have finished.
func (st *Store) CloseAll() {
	st.stopOnce.Do(func() { close(st.stop) })
	<-st.stopped

	st.mu.Lock()
	st.sessions.Purge()
	st.mu.Unlock()

	st.drain()
}

func (st *Store) Len() int {
	return st.sessions.Len()
}
