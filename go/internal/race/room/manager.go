package room

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/models"
)

type managedRoom struct {
	room *Room
	refs int
}

// Manager shares one Room per session among every open view of it. A room
// is torn down when its last view is released.
type Manager struct {
	auth     Authority
	self     models.ParticipantID
	clock    clockwork.Clock
	cfg      Config
	watchers WatcherFactory

	mu    sync.Mutex
	rooms map[models.SessionID]*managedRoom
}

// NewManager creates a room manager acting as self. watchers may be nil to
// poll for phase changes.
func NewManager(auth Authority, self models.ParticipantID, clock clockwork.Clock, cfg Config, watchers WatcherFactory) *Manager {
	return &Manager{
		auth:     auth,
		self:     self,
		clock:    clock,
		cfg:      cfg,
		watchers: watchers,
		rooms:    make(map[models.SessionID]*managedRoom),
	}
}

// Self is the participant every room acts as.
func (m *Manager) Self() models.ParticipantID { return m.self }

// Open returns the room for a raw session reference along with a release
// func the caller must invoke when its view closes. A malformed reference
// fails with ErrInvalidSessionReference before any remote call.
func (m *Manager) Open(ctx context.Context, raw string) (*Room, func(), error) {
	id, err := models.ParseSessionID(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSessionReference, err)
	}

	m.mu.Lock()
	entry, ok := m.rooms[id]
	if ok {
		entry.refs++
		m.mu.Unlock()
		return entry.room, m.releaser(id, entry), nil
	}
	m.mu.Unlock()

	// The first read goes to the authority without holding the registry.
	r, err := Open(ctx, m.auth, id, m.self, m.clock, m.cfg, m.watchers)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	entry, ok = m.rooms[id]
	if !ok {
		entry = &managedRoom{room: r}
		m.rooms[id] = entry
	}
	entry.refs++
	m.mu.Unlock()

	if entry.room != r {
		log.Debug().Str("session_id", id.String()).Msg("concurrent open, keeping the first room")
		r.Close()
	}
	return entry.room, m.releaser(id, entry), nil
}

// releaser hands out a release func that drops one reference, once.
func (m *Manager) releaser(id models.SessionID, entry *managedRoom) func() {
	var once sync.Once
	return func() {
		once.Do(func() { m.release(id, entry) })
	}
}

// Len is the number of live rooms.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// CloseAll tears down every room regardless of open views.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[models.SessionID]*managedRoom)
	m.mu.Unlock()

	for _, entry := range rooms {
		entry.room.Close()
	}
}

func (m *Manager) release(id models.SessionID, entry *managedRoom) {
	m.mu.Lock()
	entry.refs--
	last := entry.refs == 0
	if last && m.rooms[id] == entry {
		delete(m.rooms, id)
	}
	m.mu.Unlock()

	if last {
		log.Debug().Str("session_id", id.String()).Msg("last view released")
		entry.room.Close()
	}
}
