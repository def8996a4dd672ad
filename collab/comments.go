package collab

import (
	"bytes"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
)

var mentionRe = regexp.MustCompile(`@(\w+)`)

var commentMarkdown = goldmark.New()

// extractMentions pulls @handles out of comment content.
func extractMentions(content string) []string {
	matches := mentionRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var mentions []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			mentions = append(mentions, m[1])
		}
	}
	return mentions
}

// renderCommentHTML converts markdown comment content to HTML for the
// comments panel. Render failures fall back to empty HTML; the raw
// content is always preserved.
func renderCommentHTML(content string) string {
	var buf bytes.Buffer
	if err := commentMarkdown.Convert([]byte(content), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// AddThread creates an unresolved thread with no comments, anchored to
// a component and optionally a field path or canvas position.
func (c *Coordinator) AddThread(componentID string, pos *ThreadPosition, fieldPath string) (*Thread, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	thread := &Thread{
		ID:          uuid.NewString(),
		ComponentID: componentID,
		Position:    pos,
		FieldPath:   fieldPath,
		Comments:    []Comment{},
		CreatedAt:   time.Now(),
	}
	c.threads[thread.ID] = thread
	cp := *thread
	c.mu.Unlock()
	return &cp, nil
}

// AddComment appends a comment by the local user to a thread, extracts
// @mentions and emits an activity entry plus a comment:add event.
func (c *Coordinator) AddComment(threadID, content string) (*Comment, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	thread, ok := c.threads[threadID]
	if !ok {
		c.mu.Unlock()
		return nil, nil
	}
	comment := Comment{
		ID:         uuid.NewString(),
		ThreadID:   threadID,
		AuthorID:   c.localUserID,
		AuthorName: c.local.Name,
		Content:    content,
		HTML:       renderCommentHTML(content),
		CreatedAt:  time.Now(),
		Reactions:  []Reaction{},
		Mentions:   extractMentions(content),
	}
	thread.Comments = append(thread.Comments, comment)
	userID := c.localUserID
	userName := c.local.Name
	threadSnapshot := *thread
	c.mu.Unlock()

	preview := content
	if len(preview) > 50 {
		preview = preview[:50]
	}
	c.addActivity(ActivityCommentAdded, userID, userName, threadSnapshot.ComponentID, preview)
	c.emit(Event{Type: EventCommentAdd, Comment: &comment, Thread: &threadSnapshot})
	return &comment, nil
}

// EditComment replaces a comment's content. A no-op unless the local
// user authored it.
func (c *Coordinator) EditComment(threadID, commentID, content string) {
	c.mu.Lock()
	thread, ok := c.threads[threadID]
	if !ok || !c.connected {
		c.mu.Unlock()
		return
	}
	var edited *Comment
	for i := range thread.Comments {
		cm := &thread.Comments[i]
		if cm.ID == commentID && cm.AuthorID == c.localUserID {
			now := time.Now()
			cm.Content = content
			cm.HTML = renderCommentHTML(content)
			cm.Mentions = extractMentions(content)
			cm.UpdatedAt = &now
			snapshot := *cm
			edited = &snapshot
			break
		}
	}
	c.mu.Unlock()

	if edited != nil {
		c.emit(Event{Type: EventCommentUpdate, Comment: edited})
	}
}

// DeleteComment removes a comment. A no-op unless the local user
// authored it.
func (c *Coordinator) DeleteComment(threadID, commentID string) {
	c.mu.Lock()
	thread, ok := c.threads[threadID]
	if !ok || !c.connected {
		c.mu.Unlock()
		return
	}
	deleted := false
	for i := range thread.Comments {
		if thread.Comments[i].ID == commentID {
			if thread.Comments[i].AuthorID == c.localUserID {
				thread.Comments = append(thread.Comments[:i], thread.Comments[i+1:]...)
				deleted = true
			}
			break
		}
	}
	c.mu.Unlock()

	if deleted {
		c.emit(Event{Type: EventCommentDelete, ThreadID: threadID, CommentID: commentID})
	}
}

// ResolveThread marks a thread resolved, stamping resolver and time.
// Any collaborator with comment permission may resolve.
func (c *Coordinator) ResolveThread(threadID string) {
	c.mu.Lock()
	thread, ok := c.threads[threadID]
	if !ok || !c.connected || !c.permissions.CanComment {
		c.mu.Unlock()
		return
	}
	now := time.Now()
	thread.IsResolved = true
	thread.ResolvedBy = c.localUserID
	thread.ResolvedAt = &now
	userID := c.localUserID
	userName := c.local.Name
	componentID := thread.ComponentID
	c.mu.Unlock()

	c.addActivity(ActivityCommentResolved, userID, userName, componentID, "")
	c.emit(Event{Type: EventThreadResolve, ThreadID: threadID, UserID: userID})
}

// ReopenThread clears a thread's resolved state.
func (c *Coordinator) ReopenThread(threadID string) {
	c.mu.Lock()
	thread, ok := c.threads[threadID]
	if !ok || !c.connected || !c.permissions.CanComment {
		c.mu.Unlock()
		return
	}
	thread.IsResolved = false
	thread.ResolvedBy = ""
	thread.ResolvedAt = nil
	userID := c.localUserID
	c.mu.Unlock()

	c.emit(Event{Type: EventThreadReopen, ThreadID: threadID, UserID: userID})
}

// AddReaction toggles the local user's emoji reaction on a comment:
// reacting again with the same emoji removes it.
func (c *Coordinator) AddReaction(threadID, commentID, emoji string) {
	c.mu.Lock()
	thread, ok := c.threads[threadID]
	if !ok || !c.connected {
		c.mu.Unlock()
		return
	}
	var updated *Comment
	for i := range thread.Comments {
		cm := &thread.Comments[i]
		if cm.ID != commentID {
			continue
		}
		removed := false
		for j, r := range cm.Reactions {
			if r.UserID == c.localUserID && r.Emoji == emoji {
				cm.Reactions = append(cm.Reactions[:j], cm.Reactions[j+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			cm.Reactions = append(cm.Reactions, Reaction{
				Emoji:    emoji,
				UserID:   c.localUserID,
				UserName: c.local.Name,
			})
		}
		snapshot := *cm
		updated = &snapshot
		break
	}
	c.mu.Unlock()

	if updated != nil {
		c.emit(Event{Type: EventCommentUpdate, Comment: updated})
	}
}

// Thread returns a copy of a thread, if present.
func (c *Coordinator) Thread(threadID string) (*Thread, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.threads[threadID]
	if !ok {
		return nil, false
	}
	cp := *t
	cp.Comments = append([]Comment(nil), t.Comments...)
	return &cp, true
}

// Threads returns copies of all threads for a component ("" for all).
func (c *Coordinator) Threads(componentID string) []Thread {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []Thread
	for _, t := range c.threads {
		if componentID != "" && t.ComponentID != componentID {
			continue
		}
		cp := *t
		cp.Comments = append([]Comment(nil), t.Comments...)
		result = append(result, cp)
	}
	return result
}

// AddAnnotation places a visual annotation owned by the local user.
func (c *Coordinator) AddAnnotation(a Annotation) (*Annotation, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	a.ID = uuid.NewString()
	a.AuthorID = c.localUserID
	a.CreatedAt = time.Now()
	c.annotations[a.ID] = &a
	cp := a
	c.mu.Unlock()
	return &cp, nil
}

// UpdateAnnotation mutates an annotation. Author-gated no-op otherwise.
func (c *Coordinator) UpdateAnnotation(id string, update func(*Annotation)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.annotations[id]
	if !ok || a.AuthorID != c.localUserID {
		return
	}
	update(a)
	a.ID = id
	a.AuthorID = c.localUserID
}

// DeleteAnnotation removes an annotation. Author-gated no-op otherwise.
func (c *Coordinator) DeleteAnnotation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.annotations[id]
	if ok && a.AuthorID == c.localUserID {
		delete(c.annotations, id)
	}
}

// Annotations returns copies of all annotations.
func (c *Coordinator) Annotations() []Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Annotation, 0, len(c.annotations))
	for _, a := range c.annotations {
		result = append(result, *a)
	}
	return result
}
