package server

import (
	"encoding/json"

	"github.com/alimasry/go-live-edit/collab"
)

// Message types exchanged over WebSocket.
const (
	MsgJoin  = "join"
	MsgEvent = "event"
	MsgSync  = "sync"
	MsgError = "error"
)

// ClientMessage is a message from client to server: either a room join
// or a collaboration event to relay.
type ClientMessage struct {
	Type  string        `json:"type"`
	Room  string        `json:"room,omitempty"`
	User  collab.User   `json:"user,omitempty"`
	Event *collab.Event `json:"event,omitempty"`
}

// ServerMessage is a message from server to client. A sync message
// carries the full awareness snapshot sent on join; event messages
// relay one peer event.
type ServerMessage struct {
	Type         string            `json:"type"`
	Room         string            `json:"room,omitempty"`
	Participants []collab.Presence `json:"participants,omitempty"`
	Locks        map[string]string `json:"locks,omitempty"`
	Threads      []collab.Thread   `json:"threads,omitempty"`
	Event        *collab.Event     `json:"event,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
