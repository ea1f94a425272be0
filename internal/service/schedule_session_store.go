package service

import (
	"context"
	"errors"
	"sync"
	"time"

	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
)

var errSessionNotFound = appErrors.Clone(appErrors.ErrNotFound, "scheduling workflow not found or expired")

// SessionStore keeps in-flight workflows keyed by session id. Get returns ErrNotFound for
// missing or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Workflow, error)
	Save(ctx context.Context, w *Workflow) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// MemorySessionStore keeps workflows in process memory. Entries expire ttl after their
// last update.
type MemorySessionStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*Workflow
}

// NewMemorySessionStore builds an in-memory store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemorySessionStore{
		ttl:   ttl,
		items: make(map[string]*Workflow),
	}
}

// Get returns a copy of the stored workflow.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*Workflow, error) {
	s.mu.RLock()
	w, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errSessionNotFound
	}
	if time.Since(w.UpdatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return nil, errSessionNotFound
	}
	return w.clone(), nil
}

// Save stores a copy of the workflow and drops any workflow that has expired, so abandoned
// sessions do not accumulate.
func (s *MemorySessionStore) Save(_ context.Context, w *Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[w.ID] = w.clone()
	s.pruneLocked()
	return nil
}

func (s *MemorySessionStore) pruneLocked() {
	for id, w := range s.items {
		if time.Since(w.UpdatedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}

// Delete drops the workflow.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Count returns the number of live workflows.
func (s *MemorySessionStore) Count(context.Context) (int, error) {
	return s.Len(), nil
}

// Len returns the number of live workflows.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := 0
	for _, w := range s.items {
		if time.Since(w.UpdatedAt) <= s.ttl {
			live++
		}
	}
	return live
}

type sessionStateRepository interface {
	Get(ctx context.Context, id string, dest interface{}) error
	Set(ctx context.Context, id string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// RedisSessionStore keeps workflows in Redis, refreshing the TTL on every save.
type RedisSessionStore struct {
	repo sessionStateRepository
	ttl  time.Duration
}

// NewRedisSessionStore builds a Redis-backed store.
func NewRedisSessionStore(repo sessionStateRepository, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisSessionStore{repo: repo, ttl: ttl}
}

// Get loads the workflow.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Workflow, error) {
	var w Workflow
	if err := s.repo.Get(ctx, id, &w); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, errSessionNotFound
		}
		return nil, appErrors.Persistence(err, "failed to load workflow")
	}
	return &w, nil
}

// Save stores the workflow.
func (s *RedisSessionStore) Save(ctx context.Context, w *Workflow) error {
	return s.repo.Set(ctx, w.ID, w, s.ttl)
}

// Delete drops the workflow.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Count returns the number of stored workflows.
func (s *RedisSessionStore) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
