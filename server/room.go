package server

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/alimasry/go-live-edit/collab"
)

type joinMessage struct {
	client   *Client
	presence collab.Presence
}

type eventMessage struct {
	client *Client
	event  collab.Event
}

// Room coordinates collaboration for a single page. It is the
// authoritative relay for awareness state: presence, advisory locks and
// open comment threads, so late joiners can sync. All handling is
// serialized through a single goroutine.
type Room struct {
	id     string
	logger zerolog.Logger

	clients  map[*Client]string // client -> user id
	presence map[string]collab.Presence
	locks    map[string]string
	threads  map[string]*collab.Thread

	incoming chan eventMessage
	join     chan joinMessage
	leave    chan *Client // connection closing
	detach   chan *Client // switching to another room
	stop     chan struct{}
}

func newRoom(id string, logger zerolog.Logger) *Room {
	return &Room{
		id:       id,
		logger:   logger,
		clients:  make(map[*Client]string),
		presence: make(map[string]collab.Presence),
		locks:    make(map[string]string),
		threads:  make(map[string]*collab.Thread),
		incoming: make(chan eventMessage, 64),
		join:     make(chan joinMessage, 16),
		leave:    make(chan *Client, 16),
		detach:   make(chan *Client, 16),
		stop:     make(chan struct{}),
	}
}

// Run is the room's main loop. It serializes all event handling.
func (r *Room) Run() {
	for {
		select {
		case jm := <-r.join:
			r.handleJoin(jm)
		case c := <-r.leave:
			r.handleLeave(c, true)
		case c := <-r.detach:
			r.handleLeave(c, false)
		case em := <-r.incoming:
			r.handleEvent(em)
		case <-r.stop:
			return
		}
	}
}

func (r *Room) handleJoin(jm joinMessage) {
	c := jm.client
	r.clients[c] = jm.presence.ID
	r.presence[jm.presence.ID] = jm.presence
	c.mu.Lock()
	c.room = r
	c.mu.Unlock()

	// Send the full awareness snapshot to the joining client.
	c.sendMsg(ServerMessage{
		Type:         MsgSync,
		Room:         r.id,
		Participants: r.participants(),
		Locks:        r.lockSnapshot(),
		Threads:      r.threadSnapshot(),
	})

	// Notify other clients about the new collaborator.
	p := jm.presence
	r.broadcast(c, collab.Event{Type: collab.EventPresenceUpdate, Presence: &p})
}

// handleLeave removes a client. closeSend is set when the underlying
// connection is going away; a room switch keeps the channel open for
// the next room.
func (r *Room) handleLeave(c *Client, closeSend bool) {
	userID, ok := r.clients[c]
	if !ok {
		return
	}
	delete(r.clients, c)
	c.mu.Lock()
	// The client may already point at its next room.
	if c.room == r {
		c.room = nil
	}
	c.mu.Unlock()
	if closeSend {
		close(c.send)
	}

	// A user may have several tabs open; only drop presence once the
	// last connection is gone.
	for _, otherID := range r.clients {
		if otherID == userID {
			return
		}
	}
	delete(r.presence, userID)
	for componentID, owner := range r.locks {
		if owner == userID {
			delete(r.locks, componentID)
		}
	}
	r.broadcast(nil, collab.Event{Type: collab.EventPresenceLeave, UserID: userID})
}

func (r *Room) handleEvent(em eventMessage) {
	userID := r.clients[em.client]
	e := em.event

	switch e.Type {
	case collab.EventComponentLock:
		// First writer wins: the room arbitrates lock grants.
		if owner, locked := r.locks[e.ComponentID]; locked && owner != userID {
			// Correct the sender with the actual owner.
			em.client.sendMsg(ServerMessage{Type: MsgEvent, Event: &collab.Event{
				Type:        collab.EventComponentLock,
				ComponentID: e.ComponentID,
				UserID:      owner,
			}})
			return
		}
		r.locks[e.ComponentID] = userID
		e.UserID = userID

	case collab.EventComponentUnlock:
		if r.locks[e.ComponentID] != userID {
			return
		}
		delete(r.locks, e.ComponentID)

	case collab.EventPresenceUpdate:
		if e.Presence != nil {
			r.presence[e.Presence.ID] = *e.Presence
		}

	case collab.EventCursorMove, collab.EventSelectionChange:
		e.UserID = userID
		if p, ok := r.presence[userID]; ok {
			if e.Cursor != nil {
				cur := *e.Cursor
				p.Cursor = &cur
			}
			if e.Type == collab.EventSelectionChange {
				p.Selection = e.Selection
			}
			p.LastSeen = time.Now()
			p.Status = collab.StatusActive
			r.presence[userID] = p
		}

	case collab.EventCommentAdd:
		if e.Comment == nil {
			return
		}
		if t, ok := r.threads[e.Comment.ThreadID]; ok {
			t.Comments = append(t.Comments, *e.Comment)
		} else if e.Thread != nil {
			nt := *e.Thread
			r.threads[nt.ID] = &nt
		}

	case collab.EventCommentUpdate:
		if e.Comment == nil {
			return
		}
		if t, ok := r.threads[e.Comment.ThreadID]; ok {
			for i := range t.Comments {
				if t.Comments[i].ID == e.Comment.ID {
					t.Comments[i] = *e.Comment
					break
				}
			}
		}

	case collab.EventCommentDelete:
		if t, ok := r.threads[e.ThreadID]; ok {
			for i := range t.Comments {
				if t.Comments[i].ID == e.CommentID {
					t.Comments = append(t.Comments[:i], t.Comments[i+1:]...)
					break
				}
			}
		}

	case collab.EventThreadResolve:
		if t, ok := r.threads[e.ThreadID]; ok {
			now := time.Now()
			t.IsResolved = true
			t.ResolvedBy = userID
			t.ResolvedAt = &now
			e.UserID = userID
		}

	case collab.EventThreadReopen:
		if t, ok := r.threads[e.ThreadID]; ok {
			t.IsResolved = false
			t.ResolvedBy = ""
			t.ResolvedAt = nil
		}

	case collab.EventPresenceLeave, collab.EventSyncState, collab.EventError:
		// Server-originated kinds; clients may not inject them.
		return
	}

	r.broadcast(em.client, e)
}

// broadcast relays an event to every client except the originator.
func (r *Room) broadcast(from *Client, e collab.Event) {
	msg := ServerMessage{Type: MsgEvent, Event: &e}
	for c := range r.clients {
		if c != from {
			c.sendMsg(msg)
		}
	}
}

func (r *Room) participants() []collab.Presence {
	result := make([]collab.Presence, 0, len(r.presence))
	for _, p := range r.presence {
		result = append(result, p)
	}
	return result
}

func (r *Room) lockSnapshot() map[string]string {
	snapshot := make(map[string]string, len(r.locks))
	for k, v := range r.locks {
		snapshot[k] = v
	}
	return snapshot
}

func (r *Room) threadSnapshot() []collab.Thread {
	result := make([]collab.Thread, 0, len(r.threads))
	for _, t := range r.threads {
		cp := *t
		cp.Comments = append([]collab.Comment(nil), t.Comments...)
		result = append(result, cp)
	}
	return result
}
