package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alimasry/go-live-edit/layout"
)

// CachedStore wraps a backing LayoutStore with an in-memory cache.
// Reads are served from the cache once a layout has been loaded, and
// draft writes are applied to the cache immediately and flushed to the
// backing store in the background. Publish and discard are synchronous
// against the backing store since they change authoritative state.
type CachedStore struct {
	cache   *MemoryStore
	backing LayoutStore

	mu    sync.Mutex
	dirty map[string]time.Time // pageSlug -> draftUpdatedAt at last local write

	flushInterval time.Duration
	logger        zerolog.Logger
	stop          chan struct{}
	done          chan struct{}
}

// NewCachedStore creates a CachedStore flushing dirty drafts to the
// backing store every flushInterval.
func NewCachedStore(backing LayoutStore, flushInterval time.Duration, logger zerolog.Logger) *CachedStore {
	cs := &CachedStore{
		cache:         NewMemoryStore(),
		backing:       backing,
		dirty:         make(map[string]time.Time),
		flushInterval: flushInterval,
		logger:        logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go cs.flushLoop()
	return cs
}

func (cs *CachedStore) Get(ctx context.Context, pageSlug string) (*Layout, error) {
	if cs.cache.has(pageSlug) {
		return cs.cache.Get(ctx, pageSlug)
	}
	// Cache miss — load from backing store.
	l, err := cs.backing.Get(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	cs.cache.put(l)
	return l, nil
}

func (cs *CachedStore) SaveDraft(ctx context.Context, pageSlug string, components []layout.Component) (time.Time, error) {
	// Ensure the layout is in the cache so the flush has full state.
	if _, err := cs.Get(ctx, pageSlug); err != nil {
		return time.Time{}, err
	}
	savedAt, err := cs.cache.SaveDraft(ctx, pageSlug, components)
	if err != nil {
		return time.Time{}, err
	}
	cs.mu.Lock()
	cs.dirty[pageSlug] = savedAt
	cs.mu.Unlock()
	return savedAt, nil
}

func (cs *CachedStore) DiscardDraft(ctx context.Context, pageSlug string) error {
	if err := cs.backing.DiscardDraft(ctx, pageSlug); err != nil {
		return err
	}
	cs.cache.DiscardDraft(ctx, pageSlug)
	cs.mu.Lock()
	delete(cs.dirty, pageSlug)
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) Publish(ctx context.Context, pageSlug string) (time.Time, int, error) {
	// Push any unflushed draft first so the backend publishes the
	// latest local state.
	if err := cs.flushSlug(ctx, pageSlug); err != nil {
		return time.Time{}, 0, fmt.Errorf("flush before publish: %w", err)
	}
	publishedAt, version, err := cs.backing.Publish(ctx, pageSlug)
	if err != nil {
		return time.Time{}, 0, err
	}
	// Refresh the cache with the published state.
	if l, err := cs.backing.Get(ctx, pageSlug); err == nil {
		cs.cache.put(l)
	}
	return publishedAt, version, nil
}

func (cs *CachedStore) List(ctx context.Context) ([]Layout, error) {
	return cs.backing.List(ctx)
}

// flushSlug writes the cached draft for one slug to the backing store
// if it is dirty.
func (cs *CachedStore) flushSlug(ctx context.Context, pageSlug string) error {
	cs.mu.Lock()
	stamp, dirty := cs.dirty[pageSlug]
	cs.mu.Unlock()
	if !dirty {
		return nil
	}

	l, err := cs.cache.Get(ctx, pageSlug)
	if err != nil {
		return err
	}
	if _, err := cs.backing.SaveDraft(ctx, pageSlug, l.DraftComponents); err != nil {
		return err
	}

	// Only clear the dirty mark if no newer local write happened.
	cs.mu.Lock()
	if cur, ok := cs.dirty[pageSlug]; ok && cur.Equal(stamp) {
		delete(cs.dirty, pageSlug)
	}
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) flushLoop() {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()
	defer close(cs.done)

	for {
		select {
		case <-ticker.C:
			cs.flush()
		case <-cs.stop:
			cs.flush()
			return
		}
	}
}

// flush writes all dirty drafts to the backing store. Failures are
// logged and retried on the next cycle.
func (cs *CachedStore) flush() {
	cs.mu.Lock()
	slugs := make([]string, 0, len(cs.dirty))
	for slug := range cs.dirty {
		slugs = append(slugs, slug)
	}
	cs.mu.Unlock()

	ctx := context.Background()
	for _, slug := range slugs {
		if err := cs.flushSlug(ctx, slug); err != nil {
			cs.logger.Warn().Err(err).Str("pageSlug", slug).Msg("failed to flush draft to backing store")
		}
	}
}

// Close signals the flush loop to perform a final flush and waits for
// it to complete.
func (cs *CachedStore) Close() {
	close(cs.stop)
	<-cs.done
}
