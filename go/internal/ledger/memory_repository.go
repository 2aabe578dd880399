package ledger

import (
	"context"
	"sync"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
)

// MemoryRepository keeps sessions in process. Used for local play and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[models.SessionID]*Record
	next    uint64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[models.SessionID]*Record),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Create(_ context.Context, s *models.Session) (models.SessionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := models.SessionID(r.next)
	r.next++

	stored := s.Clone()
	stored.ID = id
	r.records[id] = &Record{Session: stored}
	return id, nil
}

func (r *MemoryRepository) Get(_ context.Context, id models.SessionID) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ledgerv1.ErrSessionNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, id models.SessionID, fn func(*Record) error) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ledgerv1.ErrSessionNotFound
	}
	working := rec.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.records[id] = working
	return working.Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id models.SessionID, fn func(*Record) error) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ledgerv1.ErrSessionNotFound
	}
	if err := fn(rec.Clone()); err != nil {
		return nil, err
	}
	delete(r.records, id)
	return rec, nil
}

// Count returns the number of sessions ever created, deleted ones included.
func (r *MemoryRepository) Count(_ context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next, nil
}
