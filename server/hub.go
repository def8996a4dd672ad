package server

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/alimasry/go-live-edit/collab"
)

type joinRequest struct {
	client *Client
	room   string
	user   collab.User
}

// Hub owns the set of active rooms and routes join requests. Rooms are
// created lazily on first join and each runs its own goroutine.
type Hub struct {
	logger zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*Room

	joinRoom chan joinRequest
	stop     chan struct{}
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:   logger,
		rooms:    make(map[string]*Room),
		joinRoom: make(chan joinRequest, 16),
		stop:     make(chan struct{}),
	}
}

// Run processes join requests until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case req := <-h.joinRoom:
			h.handleJoin(req)
		case <-h.stop:
			return
		}
	}
}

// Stop shuts down the hub and all rooms.
func (h *Hub) Stop() {
	close(h.stop)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.rooms {
		close(r.stop)
	}
	h.rooms = make(map[string]*Room)
}

func (h *Hub) handleJoin(req joinRequest) {
	if req.room == "" {
		req.client.sendError("join message without room")
		return
	}

	c := req.client
	c.mu.Lock()
	prev := c.room
	c.mu.Unlock()
	if prev != nil {
		prev.detach <- c
	}

	room := h.room(req.room)
	room.join <- joinMessage{client: c, presence: c.presence(req.user)}
}

// room returns the room for a page, creating and starting it if needed.
func (h *Hub) room(id string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[id]
	if !ok {
		r = newRoom(id, h.logger.With().Str("room", id).Logger())
		h.rooms[id] = r
		go r.Run()
		h.logger.Info().Str("room", id).Msg("room created")
	}
	return r
}
