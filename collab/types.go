// Package collab implements the collaboration coordinator: best-effort,
// eventually-consistent shared awareness among editors of the same page.
// It synchronizes presence, advisory component locks, comment threads,
// annotations and an activity feed. It never merges remote component
// content edits into the local tree; awareness only.
package collab

import "time"

// Status is the activity state of a collaborator.
type Status string

const (
	StatusActive Status = "active"
	StatusIdle   Status = "idle"
	StatusAway   Status = "away"
)

// User identifies a collaborator at connect time.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// CursorPosition is a viewport-relative pointer position.
type CursorPosition struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	ViewportWidth  int     `json:"viewportWidth"`
	ViewportHeight int     `json:"viewportHeight"`
}

// SelectionRange points at a component and optionally a field range in it.
type SelectionRange struct {
	ComponentID string `json:"componentId"`
	StartOffset int    `json:"startOffset,omitempty"`
	EndOffset   int    `json:"endOffset,omitempty"`
	FieldPath   string `json:"fieldPath,omitempty"`
}

// Presence is the ephemeral per-connection state of one collaborator.
// Name, avatar and color are assigned at connect time and stable for
// the session. Lifetime is bounded by the connection.
type Presence struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Email              string          `json:"email,omitempty"`
	Avatar             string          `json:"avatar,omitempty"`
	Color              string          `json:"color"`
	Cursor             *CursorPosition `json:"cursor,omitempty"`
	Selection          *SelectionRange `json:"selection,omitempty"`
	LastSeen           time.Time       `json:"lastSeen"`
	Status             Status          `json:"status"`
	CurrentPage        string          `json:"currentPage,omitempty"`
	EditingComponentID string          `json:"editingComponentId,omitempty"`
}

// Reaction is one user's emoji reaction on a comment. Re-adding the
// same emoji by the same user removes it (toggle).
type Reaction struct {
	Emoji    string `json:"emoji"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Comment is a single message in a thread. Only its author may edit or
// delete it.
type Comment struct {
	ID         string     `json:"id"`
	ThreadID   string     `json:"threadId"`
	AuthorID   string     `json:"authorId"`
	AuthorName string     `json:"authorName"`
	Content    string     `json:"content"`
	HTML       string     `json:"html,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	Reactions  []Reaction `json:"reactions"`
	Mentions   []string   `json:"mentions"`
}

// ThreadPosition anchors a thread on the canvas.
type ThreadPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Thread is an ordered comment conversation anchored to a component.
type Thread struct {
	ID          string          `json:"id"`
	ComponentID string          `json:"componentId"`
	Position    *ThreadPosition `json:"position,omitempty"`
	FieldPath   string          `json:"fieldPath,omitempty"`
	Comments    []Comment       `json:"comments"`
	IsResolved  bool            `json:"isResolved"`
	CreatedAt   time.Time       `json:"createdAt"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
	ResolvedBy  string          `json:"resolvedBy,omitempty"`
}

// AnnotationType selects the visual shape of an annotation.
type AnnotationType string

const (
	AnnotationHighlight AnnotationType = "highlight"
	AnnotationPin       AnnotationType = "pin"
	AnnotationArrow     AnnotationType = "arrow"
	AnnotationBox       AnnotationType = "box"
)

// Annotation is a visual markup placed on the canvas, author-owned.
type Annotation struct {
	ID             string         `json:"id"`
	Type           AnnotationType `json:"type"`
	ComponentID    string         `json:"componentId,omitempty"`
	X              float64        `json:"x"`
	Y              float64        `json:"y"`
	Width          float64        `json:"width,omitempty"`
	Height         float64        `json:"height,omitempty"`
	Color          string         `json:"color"`
	Label          string         `json:"label,omitempty"`
	AuthorID       string         `json:"authorId"`
	CreatedAt      time.Time      `json:"createdAt"`
	LinkedThreadID string         `json:"linkedThreadId,omitempty"`
}

// ActivityType classifies an activity feed entry.
type ActivityType string

const (
	ActivityComponentAdded   ActivityType = "component_added"
	ActivityComponentRemoved ActivityType = "component_removed"
	ActivityComponentEdited  ActivityType = "component_edited"
	ActivityComponentMoved   ActivityType = "component_moved"
	ActivityCommentAdded     ActivityType = "comment_added"
	ActivityCommentResolved  ActivityType = "comment_resolved"
	ActivityPagePublished    ActivityType = "page_published"
	ActivityPageSaved        ActivityType = "page_saved"
	ActivityUserJoined       ActivityType = "user_joined"
	ActivityUserLeft         ActivityType = "user_left"
)

// ActivityEntry is one line in the audit/publish-summary feed.
type ActivityEntry struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	UserID      string       `json:"userId"`
	UserName    string       `json:"userName"`
	Timestamp   time.Time    `json:"timestamp"`
	ComponentID string       `json:"componentId,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// SyncState summarizes the realtime transport's health.
type SyncState struct {
	IsConnected    bool       `json:"isConnected"`
	IsSynced       bool       `json:"isSynced"`
	PendingChanges int        `json:"pendingChanges"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Permissions gates what the local collaborator may do.
type Permissions struct {
	CanEdit    bool `json:"canEdit"`
	CanComment bool `json:"canComment"`
	CanPublish bool `json:"canPublish"`
	CanInvite  bool `json:"canInvite"`
	CanDelete  bool `json:"canDelete"`
}
