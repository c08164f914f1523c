package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/labstack/gommon/random"
	"github.com/redis/go-redis/v9"

	"rentdesk/internal/caching"
	"rentdesk/internal/form"
)

// ErrSessionNotFound is returned for unknown or expired session tokens.
var ErrSessionNotFound = errors.New("form session not found")

const sessionTokenLength = 32

type sessionEntry struct {
	controller *form.Controller
	lastActive time.Time
}

// FormSessionService tracks the live form controllers, one per in-progress
// application. Controllers live in memory; serialized drafts mirror them in
// redis so a session survives a process restart and expires by TTL.
type FormSessionService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	cache    caching.CacheService
	ttl      time.Duration
}

func NewFormSessionService(cache caching.CacheService, ttl time.Duration) *FormSessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FormSessionService{
		sessions: make(map[string]*sessionEntry),
		cache:    cache,
		ttl:      ttl,
	}
}

// Create starts a new form session and returns its opaque token.
func (s *FormSessionService) Create(ctx context.Context) (string, *form.Controller) {
	token := random.String(sessionTokenLength)
	controller := form.NewController()

	s.mu.Lock()
	s.sessions[token] = &sessionEntry{controller: controller, lastActive: time.Now()}
	s.mu.Unlock()

	s.persist(ctx, token, controller)
	return token, controller
}

// Controller resolves a token to its live controller, reviving the session
// from the draft cache when the process has restarted since it was created.
func (s *FormSessionService) Controller(ctx context.Context, token string) (*form.Controller, error) {
	s.mu.RLock()
	entry, ok := s.sessions[token]
	s.mu.RUnlock()
	if ok {
		s.mu.Lock()
		entry.lastActive = time.Now()
		s.mu.Unlock()
		return entry.controller, nil
	}

	state, err := s.cache.GetDraft(ctx, token)
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	controller := form.FromState(state)
	s.mu.Lock()
	// Another request may have revived it first; keep whichever landed.
	if existing, ok := s.sessions[token]; ok {
		controller = existing.controller
		existing.lastActive = time.Now()
	} else {
		s.sessions[token] = &sessionEntry{controller: controller, lastActive: time.Now()}
	}
	s.mu.Unlock()
	return controller, nil
}

// Persist writes the session's current draft back to the cache. Called after
// every mutation; failures only cost restart recovery, so they are logged.
func (s *FormSessionService) Persist(ctx context.Context, token string) {
	s.mu.RLock()
	entry, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.persist(ctx, token, entry.controller)
}

func (s *FormSessionService) persist(ctx context.Context, token string, controller *form.Controller) {
	if err := s.cache.SetDraft(ctx, token, controller.State(), s.ttl); err != nil {
		log.Printf("WARN: failed to persist form draft %s: %v", token, err)
	}
}

// End discards a session, normally right after a successful submission.
func (s *FormSessionService) End(ctx context.Context, token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	if err := s.cache.DeleteDraft(ctx, token); err != nil {
		log.Printf("WARN: failed to delete form draft %s: %v", token, err)
	}
}

// SweepExpired drops in-memory sessions idle past the TTL. The redis drafts
// carry their own TTL, so only the live map needs sweeping; runs on the
// background scheduler.
func (s *FormSessionService) SweepExpired() int {
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, entry := range s.sessions {
		if entry.lastActive.Before(cutoff) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// ActiveSessions reports the number of live in-memory sessions.
func (s *FormSessionService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
