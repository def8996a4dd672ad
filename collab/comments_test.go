package collab

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThreadWithComment(t *testing.T, c *Coordinator, content string) (*Thread, *Comment) {
	t.Helper()
	thread, err := c.AddThread("hero", &ThreadPosition{X: 10, Y: 20}, "")
	require.NoError(t, err)
	comment, err := c.AddComment(thread.ID, content)
	require.NoError(t, err)
	require.NotNil(t, comment)
	return thread, comment
}

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"no mentions here", nil},
		{"hey @alice look at this", []string{"alice"}},
		{"@alice @bob @alice", []string{"alice", "bob"}},
		{"email a@b is not a mention of b alone? @b counts", []string{"b"}},
	}
	for _, tt := range tests {
		got := extractMentions(tt.content)
		assert.Equal(t, tt.want, got, "content %q", tt.content)
	}
}

func TestAddComment(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	thread, comment := newThreadWithComment(t, c, "looks **great** @bob")

	assert.Equal(t, thread.ID, comment.ThreadID)
	assert.Equal(t, "u1", comment.AuthorID)
	assert.Equal(t, []string{"bob"}, comment.Mentions)
	assert.Contains(t, comment.HTML, "<strong>great</strong>")

	stored, ok := c.Thread(thread.ID)
	require.True(t, ok)
	require.Len(t, stored.Comments, 1)

	// Comment lands in the activity feed.
	feed := c.Activity()
	require.NotEmpty(t, feed)
	assert.Equal(t, ActivityCommentAdded, feed[0].Type)
}

func TestAddCommentUnknownThread(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	comment, err := c.AddComment("ghost", "hello")
	require.NoError(t, err)
	assert.Nil(t, comment)
}

func TestEditCommentAuthorGated(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	thread, comment := newThreadWithComment(t, c, "original")

	// A remote comment by another author cannot be edited locally.
	c.HandleEvent(Event{Type: EventCommentAdd, Comment: &Comment{
		ID: "remote", ThreadID: thread.ID, AuthorID: "u2", Content: "theirs",
	}})
	c.EditComment(thread.ID, "remote", "hijacked")

	stored, _ := c.Thread(thread.ID)
	for _, cm := range stored.Comments {
		if cm.ID == "remote" {
			assert.Equal(t, "theirs", cm.Content)
		}
	}

	// Own comment edits apply and stamp updatedAt.
	c.EditComment(thread.ID, comment.ID, "revised")
	stored, _ = c.Thread(thread.ID)
	assert.Equal(t, "revised", stored.Comments[0].Content)
	assert.NotNil(t, stored.Comments[0].UpdatedAt)
}

func TestDeleteCommentAuthorGated(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	thread, comment := newThreadWithComment(t, c, "mine")
	c.HandleEvent(Event{Type: EventCommentAdd, Comment: &Comment{
		ID: "remote", ThreadID: thread.ID, AuthorID: "u2", Content: "theirs",
	}})

	c.DeleteComment(thread.ID, "remote")
	stored, _ := c.Thread(thread.ID)
	assert.Len(t, stored.Comments, 2, "foreign comment must survive")

	c.DeleteComment(thread.ID, comment.ID)
	stored, _ = c.Thread(thread.ID)
	assert.Len(t, stored.Comments, 1)
}

func TestResolveReopenThread(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	thread, _ := newThreadWithComment(t, c, "fix this")

	c.ResolveThread(thread.ID)
	stored, _ := c.Thread(thread.ID)
	assert.True(t, stored.IsResolved)
	assert.Equal(t, "u1", stored.ResolvedBy)
	assert.NotNil(t, stored.ResolvedAt)

	c.ReopenThread(thread.ID)
	stored, _ = c.Thread(thread.ID)
	assert.False(t, stored.IsResolved)
	assert.Empty(t, stored.ResolvedBy)
	assert.Nil(t, stored.ResolvedAt)
}

func TestReactionToggle(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	thread, comment := newThreadWithComment(t, c, "nice")

	c.AddReaction(thread.ID, comment.ID, "👍")
	stored, _ := c.Thread(thread.ID)
	require.Len(t, stored.Comments[0].Reactions, 1)
	assert.Equal(t, "👍", stored.Comments[0].Reactions[0].Emoji)

	// Same emoji again removes it.
	c.AddReaction(thread.ID, comment.ID, "👍")
	stored, _ = c.Thread(thread.ID)
	assert.Empty(t, stored.Comments[0].Reactions)

	// Different emojis accumulate.
	c.AddReaction(thread.ID, comment.ID, "👍")
	c.AddReaction(thread.ID, comment.ID, "🎉")
	stored, _ = c.Thread(thread.ID)
	assert.Len(t, stored.Comments[0].Reactions, 2)
}

func TestThreadsFilterByComponent(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	_, err := c.AddThread("hero", nil, "")
	require.NoError(t, err)
	_, err = c.AddThread("footer", nil, "")
	require.NoError(t, err)

	assert.Len(t, c.Threads(""), 2)
	assert.Len(t, c.Threads("hero"), 1)
	assert.Empty(t, c.Threads("sidebar"))
}

func TestAnnotationLifecycle(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")

	a, err := c.AddAnnotation(Annotation{Type: AnnotationPin, X: 5, Y: 5, Color: "#f00"})
	require.NoError(t, err)
	assert.Equal(t, "u1", a.AuthorID)
	assert.NotEmpty(t, a.ID)

	c.UpdateAnnotation(a.ID, func(an *Annotation) { an.Label = "check spacing" })
	anns := c.Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, "check spacing", anns[0].Label)

	c.DeleteAnnotation(a.ID)
	assert.Empty(t, c.Annotations())
}

func TestActivityFeedCapped(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")

	for i := 0; i < maxActivityEntries+20; i++ {
		require.NoError(t, c.RecordActivity(ActivityComponentEdited, "hero", "edit"))
	}

	feed := c.Activity()
	assert.Len(t, feed, maxActivityEntries)
	// Newest first.
	assert.Equal(t, ActivityComponentEdited, feed[0].Type)
}

func TestActivityCommentPreviewTruncated(t *testing.T) {
	c := newTestCoordinator(t, "u1", "Alice")
	long := strings.Repeat("x", 200)
	newThreadWithComment(t, c, long)

	feed := c.Activity()
	require.NotEmpty(t, feed)
	assert.LessOrEqual(t, len(feed[0].Message), 50)
}
