package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
)

// Lobby lists open sessions.
type Lobby interface {
	Sessions() ([]*models.Session, time.Time)
	Refresh(ctx context.Context) ([]*models.Session, error)
}

// SessionCreator opens new races on the authority.
type SessionCreator interface {
	CreateSession(ctx context.Context, text string, stake *big.Int) (models.SessionID, error)
}

// LobbyResponse is the body of GET /api/lobby.
type LobbyResponse struct {
	Sessions  []*models.Session `json:"sessions"`
	ScannedAt *time.Time        `json:"scanned_at,omitempty"`
}

// CreateSessionRequest is the body of POST /api/sessions. Stake is a decimal
// integer string so large values survive JSON.
type CreateSessionRequest struct {
	Text  string `json:"text"`
	Stake string `json:"stake"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// LobbyHandler serves discovery and creation.
type LobbyHandler struct {
	lobby   Lobby
	creator SessionCreator
}

func NewLobbyHandler(lobby Lobby, creator SessionCreator) *LobbyHandler {
	return &LobbyHandler{lobby: lobby, creator: creator}
}

// HandleLobby handles GET /api/lobby. ?refresh=true scans before answering,
// otherwise the last background scan is served, scanning once if none exists.
func (h *LobbyHandler) HandleLobby(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, scannedAt := h.lobby.Sessions()
	if r.URL.Query().Get("refresh") == "true" || scannedAt.IsZero() {
		var err error
		if _, err = h.lobby.Refresh(r.Context()); err != nil {
			log.Error().Err(err).Msg("failed to scan lobby")
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to scan lobby"})
			return
		}
		sessions, scannedAt = h.lobby.Sessions()
	}

	resp := LobbyResponse{Sessions: sessions}
	if !scannedAt.IsZero() {
		resp.ScannedAt = &scannedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreateSession handles POST /api/sessions.
func (h *LobbyHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ledgerv1.ErrEmptyText.Error()})
		return
	}
	stake, ok := new(big.Int).SetString(strings.TrimSpace(req.Stake), 10)
	if !ok || stake.Sign() <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ledgerv1.ErrInvalidStake.Error()})
		return
	}

	id, err := h.creator.CreateSession(r.Context(), req.Text, stake)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ledgerv1.ErrEmptyText) || errors.Is(err, ledgerv1.ErrInvalidStake) {
			status = http.StatusBadRequest
		}
		log.Error().Err(err).Msg("failed to create session")
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	log.Info().Str("session_id", id.String()).Str("stake", stake.String()).Msg("session created")
	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: id.String()})
}

func (h *LobbyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/lobby", h.HandleLobby)
	mux.HandleFunc("/api/sessions", h.HandleCreateSession)
}
