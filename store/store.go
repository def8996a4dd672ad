// Package store abstracts layout persistence: one Layout document per
// page slug, holding the published component tree and an optional
// working draft.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alimasry/go-live-edit/layout"
)

// ErrNotFound is returned by Publish when no layout exists for the slug.
var ErrNotFound = errors.New("layout not found")

// Layout is the persisted aggregate for a page. A nil DraftComponents
// means the layout is clean. Version increments only on publish.
type Layout struct {
	ID              string             `json:"id"`
	PageSlug        string             `json:"pageSlug"`
	Components      []layout.Component `json:"components"`
	DraftComponents []layout.Component `json:"draftComponents,omitempty"`
	PublishedAt     *time.Time         `json:"publishedAt"`
	DraftUpdatedAt  *time.Time         `json:"draftUpdatedAt,omitempty"`
	Version         int                `json:"version"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// HasDraft reports whether a working draft is stored.
func (l *Layout) HasDraft() bool {
	return l.DraftComponents != nil
}

// clone returns a deep copy so callers can't alias stored state.
func (l *Layout) clone() *Layout {
	cp := *l
	cp.Components = cloneComponents(l.Components)
	cp.DraftComponents = cloneComponents(l.DraftComponents)
	if l.PublishedAt != nil {
		ts := *l.PublishedAt
		cp.PublishedAt = &ts
	}
	if l.DraftUpdatedAt != nil {
		ts := *l.DraftUpdatedAt
		cp.DraftUpdatedAt = &ts
	}
	return &cp
}

func cloneComponents(comps []layout.Component) []layout.Component {
	if comps == nil {
		return nil
	}
	result := make([]layout.Component, len(comps))
	for i := range comps {
		result[i] = *comps[i].Clone()
	}
	return result
}

// LayoutStore abstracts layout persistence.
// Implementations: MemoryStore, SQLiteStore, FirestoreStore, and the
// write-behind CachedStore wrapper.
type LayoutStore interface {
	// Get fetches the layout for pageSlug, creating an empty one
	// (version 1, never published) if none exists.
	Get(ctx context.Context, pageSlug string) (*Layout, error)
	// SaveDraft upserts the draft component set, creating the layout
	// if absent. Returns the save timestamp.
	SaveDraft(ctx context.Context, pageSlug string, components []layout.Component) (time.Time, error)
	// DiscardDraft clears the stored draft without touching the
	// published components.
	DiscardDraft(ctx context.Context, pageSlug string) error
	// Publish copies the draft over the published components (when a
	// draft exists), clears the draft, stamps publishedAt and
	// increments the version. Fails with ErrNotFound if no layout
	// exists for the slug.
	Publish(ctx context.Context, pageSlug string) (time.Time, int, error)
	// List returns all stored layouts.
	List(ctx context.Context) ([]Layout, error)
}
