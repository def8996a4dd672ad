package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
)

func testFirestoreStore(t *testing.T) *FirestoreStore {
	t.Helper()
	projectID := os.Getenv("FIRESTORE_PROJECT")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT not set, skipping Firestore tests")
	}
	client, err := firestore.NewClient(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewFirestoreStore(client)
}

// uniqueSlug returns a unique page slug for test isolation.
func uniqueSlug(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func cleanupLayout(t *testing.T, s *FirestoreStore, pageSlug string) {
	t.Helper()
	if _, err := s.docRef(pageSlug).Delete(context.Background()); err != nil {
		t.Logf("cleanup failed for %s: %v", pageSlug, err)
	}
}

func TestFirestoreStore_GetCreatesEmpty(t *testing.T) {
	s := testFirestoreStore(t)
	ctx := context.Background()
	slug := uniqueSlug(t)
	defer cleanupLayout(t, s, slug)

	l, err := s.Get(ctx, slug)
	if err != nil {
		t.Fatal(err)
	}
	if l.PageSlug != slug || l.Version != 1 || l.HasDraft() {
		t.Errorf("unexpected layout: %+v", l)
	}
}

func TestFirestoreStore_DraftAndPublish(t *testing.T) {
	s := testFirestoreStore(t)
	ctx := context.Background()
	slug := uniqueSlug(t)
	defer cleanupLayout(t, s, slug)

	if _, err := s.SaveDraft(ctx, slug, testComponents("a", "b")); err != nil {
		t.Fatal(err)
	}

	l, err := s.Get(ctx, slug)
	if err != nil {
		t.Fatal(err)
	}
	if !l.HasDraft() || len(l.DraftComponents) != 2 {
		t.Fatalf("draft not persisted: %+v", l)
	}

	_, version, err := s.Publish(ctx, slug)
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	l, err = s.Get(ctx, slug)
	if err != nil {
		t.Fatal(err)
	}
	if l.HasDraft() || len(l.Components) != 2 {
		t.Errorf("unexpected layout after publish: %+v", l)
	}
}

func TestFirestoreStore_DiscardDraft(t *testing.T) {
	s := testFirestoreStore(t)
	ctx := context.Background()
	slug := uniqueSlug(t)
	defer cleanupLayout(t, s, slug)

	if _, err := s.SaveDraft(ctx, slug, testComponents("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.DiscardDraft(ctx, slug); err != nil {
		t.Fatal(err)
	}

	l, err := s.Get(ctx, slug)
	if err != nil {
		t.Fatal(err)
	}
	if l.HasDraft() {
		t.Error("draft should be gone after discard")
	}
}
