// Package lobby discovers open races: the newest sessions still waiting for
// a second participant and not created by the caller.
package lobby

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/poller"
)

// Source is what the lobby reads from the authority.
type Source interface {
	GetTotalSessionCount(ctx context.Context) (uint64, error)
	GetSession(ctx context.Context, id models.SessionID) (*models.Session, error)
}

// Config sets how far back a scan looks and how often the cache refreshes.
type Config struct {
	ScanLimit       int
	RefreshInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		ScanLimit:       20,
		RefreshInterval: 15 * time.Second,
	}
}

// Lobby scans the authority on demand and keeps the last result cached,
// refreshed in the background while started.
type Lobby struct {
	src   Source
	self  models.ParticipantID
	cfg   Config
	clock clockwork.Clock

	mu      sync.RWMutex
	open    []*models.Session
	scanned time.Time

	refresher *poller.Poller[[]*models.Session]
}

func New(src Source, self models.ParticipantID, clock clockwork.Clock, cfg Config) *Lobby {
	l := &Lobby{src: src, self: self, cfg: cfg, clock: clock}
	l.refresher = poller.New[[]*models.Session](clock,
		poller.Config{Name: "lobby", Interval: cfg.RefreshInterval, Immediate: true},
		l.Scan,
		func(_ context.Context, open []*models.Session) bool {
			l.store(open)
			return false
		},
	)
	return l
}

// Start begins background refreshes.
func (l *Lobby) Start(ctx context.Context) { l.refresher.Start(ctx) }

// Stop ends background refreshes.
func (l *Lobby) Stop() { l.refresher.Stop() }

// Sessions returns the cached open sessions and when they were scanned. A
// zero time means no scan has completed yet.
func (l *Lobby) Sessions() ([]*models.Session, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Session, len(l.open))
	for i, s := range l.open {
		out[i] = s.Clone()
	}
	return out, l.scanned
}

// Refresh scans now and updates the cache.
func (l *Lobby) Refresh(ctx context.Context) ([]*models.Session, error) {
	open, err := l.Scan(ctx)
	if err != nil {
		return nil, err
	}
	l.store(open)
	return open, nil
}

// Scan reads the newest ScanLimit sessions and returns the open ones in
// ascending id order. A session that fails to load is logged and skipped.
func (l *Lobby) Scan(ctx context.Context) ([]*models.Session, error) {
	total, err := l.src.GetTotalSessionCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	limit := uint64(l.cfg.ScanLimit)
	if total < limit {
		limit = total
	}

	open := make([]*models.Session, 0, limit)
	for i := uint64(0); i < limit; i++ {
		id := models.SessionID(total - 1 - i)
		s, err := l.src.GetSession(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debug().Err(err).Str("session_id", id.String()).Msg("skipping unreadable session")
			continue
		}
		if l.isOpen(s) {
			open = append(open, s)
		}
	}

	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open, nil
}

func (l *Lobby) isOpen(s *models.Session) bool {
	return s.Phase != models.RemotePhaseFinished &&
		!s.IsFull() &&
		!s.ParticipantA.Equal(l.self)
}

func (l *Lobby) store(open []*models.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = open
	l.scanned = l.clock.Now()
}
