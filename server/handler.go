package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/alimasry/go-live-edit/layout"
	"github.com/alimasry/go-live-edit/registry"
	"github.com/alimasry/go-live-edit/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler exposes the layout REST API and the collaboration WebSocket.
type Handler struct {
	hub      *Hub
	store    store.LayoutStore
	registry registry.Registry
	logger   zerolog.Logger
}

func NewHandler(hub *Hub, st store.LayoutStore, reg registry.Registry, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, store: st, registry: reg, logger: logger}
}

// Routes registers all endpoints on a mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.serveWS)
	mux.HandleFunc("GET /api/components", h.listComponents)
	mux.HandleFunc("GET /api/layouts", h.listLayouts)
	mux.HandleFunc("GET /api/layouts/{pageSlug}", h.getLayout)
	mux.HandleFunc("PUT /api/layouts/{pageSlug}/draft", h.saveDraft)
	mux.HandleFunc("DELETE /api/layouts/{pageSlug}/draft", h.discardDraft)
	mux.HandleFunc("POST /api/layouts/{pageSlug}/publish", h.publish)
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, h.logger)
	h.logger.Info().Str("client", client.ID).Msg("client connected")

	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) listComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.All())
}

func (h *Handler) listLayouts(w http.ResponseWriter, r *http.Request) {
	layouts, err := h.store.List(r.Context())
	if err != nil {
		h.serverError(w, err, "list layouts")
		return
	}
	writeJSON(w, http.StatusOK, layouts)
}

func (h *Handler) getLayout(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("pageSlug")
	l, err := h.store.Get(r.Context(), slug)
	if err != nil {
		h.serverError(w, err, "get layout")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type saveDraftRequest struct {
	Components []layout.Component `json:"components"`
}

type saveDraftResponse struct {
	Success bool      `json:"success"`
	SavedAt time.Time `json:"savedAt"`
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("pageSlug")

	var req saveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	savedAt, err := h.store.SaveDraft(r.Context(), slug, req.Components)
	if err != nil {
		h.serverError(w, err, "save draft")
		return
	}
	writeJSON(w, http.StatusOK, saveDraftResponse{Success: true, SavedAt: savedAt})
}

func (h *Handler) discardDraft(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("pageSlug")
	if err := h.store.DiscardDraft(r.Context(), slug); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "layout not found"})
			return
		}
		h.serverError(w, err, "discard draft")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type publishResponse struct {
	Success     bool      `json:"success"`
	PublishedAt time.Time `json:"publishedAt"`
	Version     int       `json:"version"`
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("pageSlug")
	publishedAt, version, err := h.store.Publish(r.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "layout not found"})
			return
		}
		h.serverError(w, err, "publish")
		return
	}
	writeJSON(w, http.StatusOK, publishResponse{Success: true, PublishedAt: publishedAt, Version: version})
}

func (h *Handler) serverError(w http.ResponseWriter, err error, op string) {
	h.logger.Error().Err(err).Msg(op + " failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
