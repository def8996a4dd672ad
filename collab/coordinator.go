package collab

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConnected means a collaboration action was invoked before
// Connect (or after Disconnect). This is a programmer error, unlike
// lock conflicts or author-gated no-ops.
var ErrNotConnected = errors.New("not connected to a collaboration room")

var presenceColors = []string{
	"#EF4444", "#F59E0B", "#10B981", "#3B82F6",
	"#8B5CF6", "#EC4899", "#14B8A6", "#F97316",
}

// Coordinator maintains the local replica of shared awareness state:
// who is present, which components are locked, open comment threads,
// annotations and the activity feed. Inbound peer events are applied
// via HandleEvent; locally originated events are published on Outbound
// for the transport to broadcast.
type Coordinator struct {
	logger zerolog.Logger

	mu          sync.Mutex
	connected   bool
	roomID      string
	localUserID string
	local       *Presence

	collaborators map[string]*Presence
	locks         map[string]string // componentId -> userId
	threads       map[string]*Thread
	annotations   map[string]*Annotation
	activity      []ActivityEntry
	syncState     SyncState
	permissions   Permissions

	outbound chan Event
}

// NewCoordinator creates a disconnected coordinator.
func NewCoordinator(logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		logger:        logger,
		collaborators: make(map[string]*Presence),
		locks:         make(map[string]string),
		threads:       make(map[string]*Thread),
		annotations:   make(map[string]*Annotation),
		outbound:      make(chan Event, 64),
	}
}

// Outbound delivers locally originated events for the realtime
// transport to publish. Events are dropped if nobody is draining.
func (c *Coordinator) Outbound() <-chan Event {
	return c.outbound
}

func (c *Coordinator) emit(e Event) {
	select {
	case c.outbound <- e:
	default:
		// Transport too slow or absent, drop.
	}
}

// Connect establishes the local presence entry in a room.
func (c *Coordinator) Connect(roomID string, user User) {
	c.mu.Lock()
	presence := &Presence{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Avatar:      user.Avatar,
		Color:       presenceColors[rand.Intn(len(presenceColors))],
		LastSeen:    time.Now(),
		Status:      StatusActive,
		CurrentPage: roomID,
	}
	c.connected = true
	c.roomID = roomID
	c.localUserID = user.ID
	c.local = presence
	c.collaborators[user.ID] = presence
	c.syncState.IsConnected = true
	c.permissions = Permissions{CanEdit: true, CanComment: true, CanPublish: true}
	snapshot := *presence
	c.mu.Unlock()

	c.addActivity(ActivityUserJoined, user.ID, user.Name, "", user.Name+" joined the session")
	c.emit(Event{Type: EventPresenceUpdate, Presence: &snapshot})
}

// Disconnect tears down local presence, releasing every lock held by
// the local user. Idempotent.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	userID := c.localUserID
	userName := ""
	if c.local != nil {
		userName = c.local.Name
	}
	for componentID, owner := range c.locks {
		if owner == userID {
			delete(c.locks, componentID)
		}
	}
	c.connected = false
	c.roomID = ""
	c.localUserID = ""
	c.local = nil
	c.collaborators = make(map[string]*Presence)
	c.syncState.IsConnected = false
	c.mu.Unlock()

	c.addActivity(ActivityUserLeft, userID, userName, "", userName+" left the session")
	c.emit(Event{Type: EventPresenceLeave, UserID: userID})
}

// IsConnected reports whether the coordinator has an active room.
func (c *Coordinator) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// RoomID returns the connected room id, or "".
func (c *Coordinator) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// LocalPresence returns a copy of the local presence entry, or nil.
func (c *Coordinator) LocalPresence() *Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local == nil {
		return nil
	}
	cp := *c.local
	return &cp
}

// Collaborators returns copies of all known presence entries.
func (c *Coordinator) Collaborators() []Presence {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Presence, 0, len(c.collaborators))
	for _, p := range c.collaborators {
		result = append(result, *p)
	}
	return result
}

// touchLocalLocked bumps lastSeen and forces status active.
// Caller must hold the lock and have verified connection.
func (c *Coordinator) touchLocalLocked() {
	c.local.LastSeen = time.Now()
	c.local.Status = StatusActive
}

// UpdateCursor publishes the local cursor position.
func (c *Coordinator) UpdateCursor(pos CursorPosition) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.local.Cursor = &pos
	c.touchLocalLocked()
	userID := c.localUserID
	c.mu.Unlock()

	c.emit(Event{Type: EventCursorMove, UserID: userID, Cursor: &pos})
}

// UpdateSelection publishes the local selection. Nil clears it.
func (c *Coordinator) UpdateSelection(sel *SelectionRange) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.local.Selection = sel
	c.touchLocalLocked()
	userID := c.localUserID
	c.mu.Unlock()

	c.emit(Event{Type: EventSelectionChange, UserID: userID, Selection: sel})
}

// UpdateEditingComponent publishes which component the local user is
// editing inline. Empty clears it.
func (c *Coordinator) UpdateEditingComponent(componentID string) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.local.EditingComponentID = componentID
	c.touchLocalLocked()
	snapshot := *c.local
	c.mu.Unlock()

	c.emit(Event{Type: EventPresenceUpdate, Presence: &snapshot})
}

// MarkIdle degrades the local status. Called by the host's idle timer.
func (c *Coordinator) MarkIdle() { c.setStatus(StatusIdle) }

// MarkAway degrades the local status further.
func (c *Coordinator) MarkAway() { c.setStatus(StatusAway) }

func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.local.Status = s
	snapshot := *c.local
	c.mu.Unlock()

	c.emit(Event{Type: EventPresenceUpdate, Presence: &snapshot})
}

// LockComponent attempts to acquire the advisory edit lock for a
// component. First writer wins: it succeeds iff no lock exists or the
// local user already holds it. There is no queueing and no expiry
// beyond explicit unlock or disconnect.
func (c *Coordinator) LockComponent(componentID string) bool {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return false
	}
	owner, locked := c.locks[componentID]
	if locked && owner != c.localUserID {
		c.mu.Unlock()
		return false
	}
	c.locks[componentID] = c.localUserID
	userID := c.localUserID
	c.mu.Unlock()

	c.emit(Event{Type: EventComponentLock, ComponentID: componentID, UserID: userID})
	return true
}

// UnlockComponent releases the lock if the local user owns it.
func (c *Coordinator) UnlockComponent(componentID string) {
	c.mu.Lock()
	if !c.connected || c.locks[componentID] != c.localUserID {
		c.mu.Unlock()
		return
	}
	delete(c.locks, componentID)
	c.mu.Unlock()

	c.emit(Event{Type: EventComponentUnlock, ComponentID: componentID})
}

// IsComponentLocked reports whether a different user holds the lock.
// A user is never locked out by their own lock.
func (c *Coordinator) IsComponentLocked(componentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, locked := c.locks[componentID]
	return locked && owner != c.localUserID
}

// LockOwner returns the presence of the lock holder, or nil.
func (c *Coordinator) LockOwner(componentID string) *Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, locked := c.locks[componentID]
	if !locked {
		return nil
	}
	if p, ok := c.collaborators[owner]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// Sync returns the current transport sync summary.
func (c *Coordinator) Sync() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncState
}

// Permissions returns the local collaborator's permissions.
func (c *Coordinator) Permissions() Permissions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permissions
}

// HandleEvent applies one inbound peer event to the local replica.
// Each case mutates only its corresponding map; events are applied in
// receipt order with no conflict resolution beyond the first-writer-
// wins and toggle rules. Unknown event types are ignored.
func (c *Coordinator) HandleEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Type {
	case EventPresenceUpdate:
		if e.Presence != nil {
			p := *e.Presence
			c.collaborators[p.ID] = &p
		}

	case EventPresenceLeave:
		delete(c.collaborators, e.UserID)
		// No lock may persist referencing a departed collaborator;
		// sweep mirrors local disconnect behavior.
		for componentID, owner := range c.locks {
			if owner == e.UserID {
				delete(c.locks, componentID)
			}
		}

	case EventCursorMove:
		if p, ok := c.collaborators[e.UserID]; ok && e.Cursor != nil {
			cur := *e.Cursor
			p.Cursor = &cur
			p.LastSeen = time.Now()
			p.Status = StatusActive
		}

	case EventSelectionChange:
		if p, ok := c.collaborators[e.UserID]; ok {
			p.Selection = e.Selection
		}

	case EventComponentLock:
		c.locks[e.ComponentID] = e.UserID

	case EventComponentUnlock:
		delete(c.locks, e.ComponentID)

	case EventCommentAdd:
		if e.Comment != nil {
			if t, ok := c.threads[e.Comment.ThreadID]; ok {
				t.Comments = append(t.Comments, *e.Comment)
			} else if e.Thread != nil {
				// Thread created remotely; adopt it.
				nt := *e.Thread
				c.threads[nt.ID] = &nt
			}
		}

	case EventCommentUpdate:
		if e.Comment != nil {
			if t, ok := c.threads[e.Comment.ThreadID]; ok {
				for i := range t.Comments {
					if t.Comments[i].ID == e.Comment.ID {
						t.Comments[i] = *e.Comment
						break
					}
				}
			}
		}

	case EventCommentDelete:
		if t, ok := c.threads[e.ThreadID]; ok {
			for i := range t.Comments {
				if t.Comments[i].ID == e.CommentID {
					t.Comments = append(t.Comments[:i], t.Comments[i+1:]...)
					break
				}
			}
		}

	case EventThreadResolve:
		if t, ok := c.threads[e.ThreadID]; ok {
			now := time.Now()
			t.IsResolved = true
			t.ResolvedBy = e.UserID
			t.ResolvedAt = &now
		}

	case EventThreadReopen:
		if t, ok := c.threads[e.ThreadID]; ok {
			t.IsResolved = false
			t.ResolvedBy = ""
			t.ResolvedAt = nil
		}

	case EventSyncState:
		if e.Sync != nil {
			c.syncState = *e.Sync
		}

	case EventError:
		c.logger.Error().Str("code", e.Code).Msg("collaboration error: " + e.Message)
	}
}
