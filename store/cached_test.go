package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestCachedStore(t *testing.T, backing LayoutStore) *CachedStore {
	t.Helper()
	cs := NewCachedStore(backing, time.Hour, zerolog.Nop()) // long interval — no auto flush
	t.Cleanup(cs.Close)
	return cs
}

func TestCachedStore_ReadThrough(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()

	backing.SaveDraft(ctx, "home", testComponents("a"))

	cs := newTestCachedStore(t, backing)

	l, err := cs.Get(ctx, "home")
	if err != nil {
		t.Fatal(err)
	}
	if !l.HasDraft() || len(l.DraftComponents) != 1 {
		t.Errorf("backing state not loaded: %+v", l)
	}
}

func TestCachedStore_WriteBehindDraft(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()
	cs := newTestCachedStore(t, backing)

	if _, err := cs.SaveDraft(ctx, "home", testComponents("a")); err != nil {
		t.Fatal(err)
	}

	// The cache sees the draft immediately.
	l, _ := cs.Get(ctx, "home")
	if !l.HasDraft() {
		t.Fatal("cache missing draft after save")
	}

	// The backing store only sees it after a flush.
	bl, _ := backing.Get(ctx, "home")
	if bl.HasDraft() {
		t.Fatal("draft flushed synchronously, expected write-behind")
	}

	cs.flush()
	bl, _ = backing.Get(ctx, "home")
	if !bl.HasDraft() || len(bl.DraftComponents) != 1 {
		t.Errorf("draft not flushed to backing store: %+v", bl)
	}
}

func TestCachedStore_PublishFlushesFirst(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()
	cs := newTestCachedStore(t, backing)

	cs.SaveDraft(ctx, "home", testComponents("a", "b"))

	// Publish must see the unflushed draft.
	_, version, err := cs.Publish(ctx, "home")
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	bl, _ := backing.Get(ctx, "home")
	if len(bl.Components) != 2 || bl.HasDraft() {
		t.Errorf("backing store after publish: %+v", bl)
	}

	// The cache reflects the published state too.
	l, _ := cs.Get(ctx, "home")
	if l.Version != 2 || l.HasDraft() {
		t.Errorf("cache after publish: %+v", l)
	}
}

func TestCachedStore_DiscardDraftSynchronous(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()
	cs := newTestCachedStore(t, backing)

	cs.SaveDraft(ctx, "home", testComponents("a"))
	cs.flush()

	if err := cs.DiscardDraft(ctx, "home"); err != nil {
		t.Fatal(err)
	}

	bl, _ := backing.Get(ctx, "home")
	if bl.HasDraft() {
		t.Error("backing store still has draft after discard")
	}
	l, _ := cs.Get(ctx, "home")
	if l.HasDraft() {
		t.Error("cache still has draft after discard")
	}
}

func TestCachedStore_CloseFlushes(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()
	cs := NewCachedStore(backing, time.Hour, zerolog.Nop())

	cs.SaveDraft(ctx, "home", testComponents("a"))
	cs.Close()

	bl, _ := backing.Get(ctx, "home")
	if !bl.HasDraft() {
		t.Error("close did not flush pending draft")
	}
}
