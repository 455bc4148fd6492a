package memstore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

type entry struct {
	turnMu     sync.Mutex
	state      domain.SessionState
	hasState   bool
	lastAccess time.Time
}

// Store keeps session state in process memory. Each session carries its own
// turn mutex: Acquire serializes whole turns per session while the map lock
// only guards short state reads and writes. Idle sessions are evicted by a
// background janitor when idleTTL is positive.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	idleTTL time.Duration
	logger  *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func New(idleTTL time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		entries: make(map[string]*entry),
		idleTTL: idleTTL,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	if idleTTL > 0 {
		go s.janitor()
	}
	return s
}

func (s *Store) Acquire(sessionKey string) (release func()) {
	e := s.entryFor(sessionKey)
	e.turnMu.Lock()
	return e.turnMu.Unlock
}

func (s *Store) Get(sessionKey string) (domain.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionKey]
	if !ok || !e.hasState {
		return domain.SessionState{}, false
	}
	e.lastAccess = time.Now()
	return e.state, true
}

func (s *Store) Put(state domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state.SessionKey]
	if !ok {
		e = &entry{}
		s.entries[state.SessionKey] = e
	}
	e.state = state
	e.hasState = true
	e.lastAccess = time.Now()
}

// Delete drops the session's state. While a turn holds the session, the
// entry must survive so its turn mutex keeps serializing; removing it would
// hand the next Acquire a fresh mutex and break the per-session critical
// section. In that case only the state is cleared.
func (s *Store) Delete(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionKey]
	if !ok {
		return
	}
	if !e.turnMu.TryLock() {
		e.state = domain.SessionState{}
		e.hasState = false
		return
	}
	e.turnMu.Unlock()
	delete(s.entries, sessionKey)
}

func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) entryFor(sessionKey string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionKey]
	if !ok {
		e = &entry{lastAccess: time.Now()}
		s.entries[sessionKey] = e
	}
	return e
}

func (s *Store) janitor() {
	interval := s.idleTTL / 4
	if interval < time.Second {
		interval = s.idleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Store) evictIdle() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.lastAccess.After(cutoff) {
			continue
		}
		// Skip sessions with a turn in flight.
		if !e.turnMu.TryLock() {
			continue
		}
		e.turnMu.Unlock()
		delete(s.entries, key)
		s.logger.Debug("session_evicted", slog.String("session_key", key))
	}
}
