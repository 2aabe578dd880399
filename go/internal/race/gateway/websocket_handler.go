package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/room"
)

// RoomOpener hands out reference-counted rooms by raw session reference.
type RoomOpener interface {
	Open(ctx context.Context, raw string) (*room.Room, func(), error)
	Self() models.ParticipantID
}

// WebSocketHandler serves race views.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	rooms             RoomOpener
}

func NewWebSocketHandler(cm *ConnectionManager, rooms RoomOpener) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		rooms:             rooms,
	}
}

// HandleRoomConnection handles GET /ws/room?session_id=N. The room is opened
// before the upgrade so a bad reference is a plain HTTP error.
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("session_id")
	if raw == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	rm, release, err := h.rooms.Open(r.Context(), raw)
	if err != nil {
		var transient *room.TransientFetchError
		switch {
		case errors.Is(err, room.ErrInvalidSessionReference):
			http.Error(w, "Invalid session ID", http.StatusBadRequest)
		case errors.As(err, &transient):
			log.Warn().Err(err).Str("session_id", raw).Msg("failed to open room")
			http.Error(w, "session temporarily unavailable", http.StatusServiceUnavailable)
		default:
			log.Error().Err(err).Str("session_id", raw).Msg("failed to open room")
			http.Error(w, "failed to open room", http.StatusInternalServerError)
		}
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, rm, h.rooms.Self(), release); err != nil {
		// The upgrader has already written the HTTP error.
		log.Error().
			Err(err).
			Str("session_id", raw).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats handles GET /ws/stats.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
