package collab

import "encoding/json"

// EventType tags a collaboration event. The set is closed: unknown
// types are ignored by HandleEvent.
type EventType string

const (
	EventPresenceUpdate  EventType = "presence:update"
	EventPresenceLeave   EventType = "presence:leave"
	EventCursorMove      EventType = "cursor:move"
	EventSelectionChange EventType = "selection:change"
	EventComponentLock   EventType = "component:lock"
	EventComponentUnlock EventType = "component:unlock"
	EventCommentAdd      EventType = "comment:add"
	EventCommentUpdate   EventType = "comment:update"
	EventCommentDelete   EventType = "comment:delete"
	EventThreadResolve   EventType = "thread:resolve"
	EventThreadReopen    EventType = "thread:reopen"
	EventSyncState       EventType = "sync:state"
	EventError           EventType = "error"
)

// Event is the wire shape exchanged between collaborating sessions.
// Which fields are set depends on Type. The event vocabulary is the
// transport contract; the wire protocol underneath is not prescribed.
type Event struct {
	Type        EventType       `json:"type"`
	UserID      string          `json:"userId,omitempty"`
	Presence    *Presence       `json:"presence,omitempty"`
	Cursor      *CursorPosition `json:"cursor,omitempty"`
	Selection   *SelectionRange `json:"selection,omitempty"`
	ComponentID string          `json:"componentId,omitempty"`
	ThreadID    string          `json:"threadId,omitempty"`
	CommentID   string          `json:"commentId,omitempty"`
	Comment     *Comment        `json:"comment,omitempty"`
	Thread      *Thread         `json:"thread,omitempty"`
	Sync        *SyncState      `json:"sync,omitempty"`
	Message     string          `json:"message,omitempty"`
	Code        string          `json:"code,omitempty"`
}

// Encode serializes an Event to JSON bytes.
func (e Event) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

// DecodeEvent parses an Event from JSON bytes.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
