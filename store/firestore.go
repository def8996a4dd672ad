package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/uuid"

	"github.com/alimasry/go-live-edit/layout"
)

// FirestoreStore is a Firestore-backed implementation of LayoutStore.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a new FirestoreStore using the given Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		collection: "layouts",
	}
}

func (s *FirestoreStore) docRef(pageSlug string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(pageSlug)
}

// componentsToFirestore converts components to plain maps via a JSON
// round trip, so arbitrary prop values survive Firestore encoding.
func componentsToFirestore(comps []layout.Component) ([]any, error) {
	if comps == nil {
		comps = []layout.Component{}
	}
	data, err := json.Marshal(comps)
	if err != nil {
		return nil, fmt.Errorf("encode components: %w", err)
	}
	var out []any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode components: %w", err)
	}
	return out, nil
}

func componentsFromFirestore(raw any) ([]layout.Component, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	var comps []layout.Component
	if err := json.Unmarshal(data, &comps); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	return comps, nil
}

func snapshotToLayout(pageSlug string, snap *firestore.DocumentSnapshot) (*Layout, error) {
	data := snap.Data()

	components, err := componentsFromFirestore(data["components"])
	if err != nil {
		return nil, err
	}
	if components == nil {
		components = []layout.Component{}
	}
	draft, err := componentsFromFirestore(data["draftComponents"])
	if err != nil {
		return nil, err
	}

	l := &Layout{
		PageSlug:        pageSlug,
		Components:      components,
		DraftComponents: draft,
	}
	l.ID, _ = data["id"].(string)
	if v, ok := data["version"].(int64); ok {
		l.Version = int(v)
	}
	if t, ok := data["publishedAt"].(time.Time); ok {
		l.PublishedAt = &t
	}
	if t, ok := data["draftUpdatedAt"].(time.Time); ok {
		l.DraftUpdatedAt = &t
	}
	l.CreatedAt, _ = data["createdAt"].(time.Time)
	l.UpdatedAt, _ = data["updatedAt"].(time.Time)
	return l, nil
}

func (s *FirestoreStore) Get(ctx context.Context, pageSlug string) (*Layout, error) {
	snap, err := s.docRef(pageSlug).Get(ctx)
	if status.Code(err) == codes.NotFound {
		// Fetch-or-create-empty semantics.
		now := time.Now()
		_, err = s.docRef(pageSlug).Create(ctx, map[string]any{
			"id":         uuid.NewString(),
			"components": []any{},
			"version":    1,
			"createdAt":  now,
			"updatedAt":  now,
		})
		if err != nil && status.Code(err) != codes.AlreadyExists {
			return nil, fmt.Errorf("create layout %q: %w", pageSlug, err)
		}
		snap, err = s.docRef(pageSlug).Get(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("get layout %q: %w", pageSlug, err)
	}
	return snapshotToLayout(pageSlug, snap)
}

func (s *FirestoreStore) SaveDraft(ctx context.Context, pageSlug string, components []layout.Component) (time.Time, error) {
	encoded, err := componentsToFirestore(components)
	if err != nil {
		return time.Time{}, err
	}
	// Ensure the layout document exists.
	if _, err := s.Get(ctx, pageSlug); err != nil {
		return time.Time{}, err
	}
	now := time.Now()
	_, err = s.docRef(pageSlug).Update(ctx, []firestore.Update{
		{Path: "draftComponents", Value: encoded},
		{Path: "draftUpdatedAt", Value: now},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("save draft %q: %w", pageSlug, err)
	}
	return now, nil
}

func (s *FirestoreStore) DiscardDraft(ctx context.Context, pageSlug string) error {
	_, err := s.docRef(pageSlug).Update(ctx, []firestore.Update{
		{Path: "draftComponents", Value: firestore.Delete},
		{Path: "draftUpdatedAt", Value: firestore.Delete},
		{Path: "updatedAt", Value: time.Now()},
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("discard draft %q: %w", pageSlug, err)
	}
	return nil
}

func (s *FirestoreStore) Publish(ctx context.Context, pageSlug string) (time.Time, int, error) {
	var (
		publishedAt time.Time
		version     int
	)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(s.docRef(pageSlug))
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data := snap.Data()

		components := data["components"]
		if draft, ok := data["draftComponents"]; ok && draft != nil {
			components = draft
		}
		if v, ok := data["version"].(int64); ok {
			version = int(v) + 1
		} else {
			version = 1
		}
		publishedAt = time.Now()

		return tx.Update(s.docRef(pageSlug), []firestore.Update{
			{Path: "components", Value: components},
			{Path: "draftComponents", Value: firestore.Delete},
			{Path: "draftUpdatedAt", Value: firestore.Delete},
			{Path: "publishedAt", Value: publishedAt},
			{Path: "version", Value: version},
			{Path: "updatedAt", Value: publishedAt},
		})
	})
	if err == ErrNotFound {
		return time.Time{}, 0, ErrNotFound
	}
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("publish %q: %w", pageSlug, err)
	}
	return publishedAt, version, nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]Layout, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var result []Layout
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		l, err := snapshotToLayout(snap.Ref.ID, snap)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, nil
}
