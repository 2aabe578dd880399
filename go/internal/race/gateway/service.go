// Package gateway is the local view server: WebSocket race views over room
// state plus the lobby and session creation endpoints.
package gateway

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the view server.
type Config struct {
	ConnectionConfig ConnectionConfig
	AllowedOrigins   []string
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		AllowedOrigins:   []string{"*"},
	}
}

// Service owns the view connections and the HTTP routes.
type Service struct {
	config            Config
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	lobbyHandler      *LobbyHandler
}

func NewService(config Config, rooms RoomOpener, lobby Lobby, creator SessionCreator) *Service {
	cm := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		config:            config,
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, rooms),
		lobbyHandler:      NewLobbyHandler(lobby, creator),
	}
}

// RegisterRoutes registers every gateway route on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.lobbyHandler.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	log.Info().Msg("gateway routes registered")
}

// Handler returns the routes wrapped in CORS.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	return cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         86400,
	}).Handler(mux)
}

// Stop ends every open view.
func (s *Service) Stop() {
	s.connectionManager.CloseAll()
	log.Info().Msg("gateway stopped")
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
