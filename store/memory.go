package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alimasry/go-live-edit/layout"
)

// MemoryStore is an in-memory implementation of LayoutStore.
type MemoryStore struct {
	mu      sync.RWMutex
	layouts map[string]*Layout
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{layouts: make(map[string]*Layout)}
}

// getOrCreateLocked implements fetch-or-create-empty. Caller must hold
// the write lock.
func (s *MemoryStore) getOrCreateLocked(pageSlug string) *Layout {
	if l, ok := s.layouts[pageSlug]; ok {
		return l
	}
	now := time.Now()
	l := &Layout{
		ID:         uuid.NewString(),
		PageSlug:   pageSlug,
		Components: []layout.Component{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.layouts[pageSlug] = l
	return l
}

func (s *MemoryStore) Get(_ context.Context, pageSlug string) (*Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(pageSlug).clone(), nil
}

func (s *MemoryStore) SaveDraft(_ context.Context, pageSlug string, components []layout.Component) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.getOrCreateLocked(pageSlug)
	now := time.Now()
	draft := cloneComponents(components)
	if draft == nil {
		draft = []layout.Component{}
	}
	l.DraftComponents = draft
	l.DraftUpdatedAt = &now
	l.UpdatedAt = now
	return now, nil
}

func (s *MemoryStore) DiscardDraft(_ context.Context, pageSlug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.layouts[pageSlug]
	if !ok {
		return nil
	}
	l.DraftComponents = nil
	l.DraftUpdatedAt = nil
	l.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Publish(_ context.Context, pageSlug string) (time.Time, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.layouts[pageSlug]
	if !ok {
		return time.Time{}, 0, ErrNotFound
	}
	if l.DraftComponents != nil {
		l.Components = l.DraftComponents
		l.DraftComponents = nil
		l.DraftUpdatedAt = nil
	}
	now := time.Now()
	l.PublishedAt = &now
	l.Version++
	l.UpdatedAt = now
	return now, l.Version, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Layout, 0, len(s.layouts))
	for _, l := range s.layouts {
		result = append(result, *l.clone())
	}
	return result, nil
}

// put seeds a layout directly, bypassing fetch-or-create. Used by
// CachedStore to fill the cache from the backing store.
func (s *MemoryStore) put(l *Layout) {
	s.mu.Lock()
	s.layouts[l.PageSlug] = l.clone()
	s.mu.Unlock()
}

// has reports whether a layout is cached for the slug.
func (s *MemoryStore) has(pageSlug string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.layouts[pageSlug]
	return ok
}
