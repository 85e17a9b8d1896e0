package web

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"mdplayground/internal/session"
)

type entry struct {
	session  *session.Session
	lastSeen time.Time
}

// Store keeps one session per browser, keyed by the cookie id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  func() *session.Session
	ttl      time.Duration
	max      int
	now      func() time.Time
	logger   Logger

	sweeper *gocron.Scheduler
}

func NewStore(factory func() *session.Session, ttl time.Duration, max int, logger Logger) *Store {
	return &Store{
		sessions: map[string]*entry{},
		factory:  factory,
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns the session for id, creating a fresh one under a new id when
// id is unknown. created reports whether a new session was made.
func (s *Store) Get(id string) (sess *session.Session, key string, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.sessions[id]; ok && id != "" {
		e.lastSeen = now
		return e.session, id, false
	}
	if s.max > 0 && len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}
	key = uuid.NewString()
	e := &entry{session: s.factory(), lastSeen: now}
	s.sessions[key] = e
	return e.session, key, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	idle := lo.Keys(lo.PickBy(s.sessions, func(_ string, e *entry) bool {
		return e.lastSeen.Before(cutoff)
	}))
	for _, id := range idle {
		s.sessions[id].session.Close()
		delete(s.sessions, id)
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	if len(idle) > 0 && s.logger != nil {
		s.logger.Info("web.sessions.swept", map[string]any{"removed": len(idle), "remaining": remaining})
	}
	return len(idle)
}

func (s *Store) evictOldestLocked() {
	ids := lo.Keys(s.sessions)
	if len(ids) == 0 {
		return
	}
	oldest := lo.MinBy(ids, func(a, b string) bool {
		return s.sessions[a].lastSeen.Before(s.sessions[b].lastSeen)
	})
	s.sessions[oldest].session.Close()
	delete(s.sessions, oldest)
	if s.logger != nil {
		s.logger.Warn("web.sessions.evicted", map[string]any{"max": s.max})
	}
}

// StartSweeper runs Sweep every interval until StopSweeper is called.
func (s *Store) StartSweeper(interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	sched := gocron.NewScheduler(time.UTC)
	sched.SingletonModeAll()
	if _, err := sched.Every(interval).Do(s.Sweep); err != nil {
		return err
	}
	sched.StartAsync()
	s.mu.Lock()
	s.sweeper = sched
	s.mu.Unlock()
	return nil
}

func (s *Store) StopSweeper() {
	s.mu.Lock()
	sched := s.sweeper
	s.sweeper = nil
	s.mu.Unlock()
	if sched != nil {
		sched.Stop()
	}
}
