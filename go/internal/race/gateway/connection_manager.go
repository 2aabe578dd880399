package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/room"
)

// ConnectionManager tracks the live race views, grouped by session.
type ConnectionManager struct {
	sessionConnections map[models.SessionID]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
}

// Connection is one browser view of one room.
type Connection struct {
	ID          string
	SessionID   models.SessionID
	Participant models.ParticipantID
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager

	ConnectedAt time.Time

	room    *room.Room
	release func()
	states  <-chan room.State
	unsub   func()

	// closing is closed once the view should end. writePump flushes what is
	// queued and sends a close frame.
	closing   chan struct{}
	closeOnce sync.Once
}

// ConnectionConfig holds the WebSocket limits for view connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		sessionConnections: make(map[models.SessionID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// UpgradeConnection upgrades the request and attaches the view to rm. The
// release func is invoked exactly once when the view ends, including when the
// upgrade itself fails.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, rm *room.Room, participant models.ParticipantID, release func()) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		return err
	}

	states, unsub := rm.Subscribe()
	connection := &Connection{
		ID:          uuid.New().String(),
		SessionID:   rm.ID(),
		Participant: participant,
		Conn:        conn,
		Send:        make(chan []byte, 64),
		Manager:     cm,
		ConnectedAt: time.Now(),
		room:        rm,
		release:     release,
		states:      states,
		unsub:       unsub,
		closing:     make(chan struct{}),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()
	go connection.statePump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("participant", participant.Short()).
		Str("session_id", rm.ID().String()).
		Str("instance", rm.Instance()).
		Msg("view connected")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.sessionConnections[conn.SessionID] == nil {
		cm.sessionConnections[conn.SessionID] = make(map[*Connection]bool)
	}
	cm.sessionConnections[conn.SessionID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID.String()).
		Int("total_connections", len(cm.sessionConnections[conn.SessionID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.sessionConnections[conn.SessionID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	if len(connections) == 0 {
		delete(cm.sessionConnections, conn.SessionID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID.String()).
		Msg("view disconnected")
}

// CloseAll ends every view.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.sessionConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		conn.shutdown()
	}
}

// GetConnectionStats reports the live views per session.
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{Sessions: make(map[string]int)}
	for id, connections := range cm.sessionConnections {
		stats.TotalConnections += len(connections)
		stats.Sessions[id.String()] = len(connections)
	}
	stats.ActiveSessions = len(cm.sessionConnections)
	return stats
}

type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveSessions   int            `json:"active_sessions"`
	Sessions         map[string]int `json:"sessions"`
}

// shutdown ends the view: it stops the state stream, releases the room and
// lets writePump say goodbye. Safe to call from any pump.
func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		c.Manager.unregisterConnection(c)
		c.unsub()
		close(c.closing)
		c.release()
	})
}

// enqueue hands a frame to writePump. A view that cannot keep up is closed.
func (c *Connection) enqueue(frame []byte) {
	select {
	case <-c.closing:
	case c.Send <- frame:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Msg("connection send buffer full, closing connection")
		c.shutdown()
	}
}

func (c *Connection) sendJSON(v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal frame")
		return
	}
	c.enqueue(frame)
}

// statePump forwards room state to the view. It ends the view once the room
// reports itself closed or the subscription ends.
func (c *Connection) statePump() {
	for {
		select {
		case <-c.closing:
			return
		case st, ok := <-c.states:
			if !ok {
				c.shutdown()
				return
			}
			c.sendJSON(stateFrame(st))
			if st.Closed {
				c.shutdown()
				return
			}
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				c.shutdown()
				return
			}

		case <-c.closing:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				c.shutdown()
				return
			}
		}
	}
}

func (c *Connection) flush() {
	for {
		select {
		case message := <-c.Send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Connection) readPump() {
	defer c.shutdown()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
