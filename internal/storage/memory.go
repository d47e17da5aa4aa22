// Package storage provides backend state storage implementations.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// Compile-time interface check.
var _ domain.StateStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory timer record store. Safe for concurrent access.
// Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	rec   domain.TimerRecord
	saves int
	log   *logger.Logger
}

// NewMemoryStore creates a store holding an idle timer of the given length.
func NewMemoryStore(totalSeconds int, log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		rec: domain.TimerRecord{Total: totalSeconds, Remaining: totalSeconds},
		log: log,
	}
}

// Load returns a copy of the current record.
func (s *MemoryStore) Load(ctx context.Context) (domain.TimerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TimerRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec, nil
}

// Save overwrites the record.
func (s *MemoryStore) Save(ctx context.Context, rec domain.TimerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("saving timer record (total=%d, remaining=%d, running=%t, paused=%t)",
		rec.Total, rec.Remaining, rec.Running, rec.Paused)
	s.rec = rec
	s.saves++
	return nil
}

// Saves returns how many times the record was written.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
