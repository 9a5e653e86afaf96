package session

import (
	"context"
	"sync"
	"time"

	"friday/internal/nlu"
)

// Store keeps one dialogue session per conversational context, e.g. one per
// terminal or per HTTP session id. Sessions idle for longer than the TTL are
// replaced by fresh ones on the next Get.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	nlu      *nlu.Understander
	now      func() time.Time
}

func New(u *nlu.Understander, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		nlu:      u,
		now:      time.Now,
	}
}

// Get returns the live session for id, creating it when missing or expired.
func (s *Store) Get(id string) *Session {
	now := s.now()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok && !sess.expired(now, s.ttl) {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && !sess.expired(now, s.ttl) {
		return sess
	}
	sess = &Session{
		id:         id,
		processor:  nlu.NewProcessor(s.nlu),
		lastActive: now,
		clock:      s.now,
	}
	s.sessions[id] = sess
	return sess
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and reports how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.ttl) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Session owns the rolling state of one conversation. Turns on the same
// session run one at a time.
type Session struct {
	id        string
	processor *nlu.Processor
	clock     func() time.Time

	mu         sync.Mutex
	lastActive time.Time
}

func (s *Session) ID() string { return s.id }

// Turn runs one utterance through the fast path, or the final path when
// final is set, and returns the structures handed to d in order.
func (s *Session) Turn(ctx context.Context, text string, final bool, d nlu.Dispatcher) ([]*nlu.TextStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.clock()

	var dispatched []*nlu.TextStructure
	record := nlu.DispatchFunc(func(ctx context.Context, ts *nlu.TextStructure) error {
		dispatched = append(dispatched, ts)
		return d.Dispatch(ctx, ts)
	})

	var err error
	if final {
		err = s.processor.FinalAssist(ctx, text, record)
	} else {
		err = s.processor.FastAssist(ctx, text, record)
	}
	s.lastActive = s.clock()
	return dispatched, err
}

// Previous returns the structures carried over from the last final turn.
func (s *Session) Previous() []*nlu.TextStructure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processor.Previous()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	if !s.mu.TryLock() {
		// a turn is running
		return false
	}
	defer s.mu.Unlock()
	return now.Sub(s.lastActive) > ttl
}
