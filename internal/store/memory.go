package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is the default in-process Store backend, a mutex-guarded map.
// Records are independent, so a single lock over the map is enough; there is
// no cross-key coordination.
type MemoryStore struct {
	mu              sync.RWMutex
	records         map[string]Record
	protectTerminal bool
}

// NewMemoryStore creates an empty in-memory store. When protectTerminal is
// true, SetStatus refuses to move a record out of success or error.
func NewMemoryStore(protectTerminal bool) *MemoryStore {
	return &MemoryStore{
		records:         make(map[string]Record),
		protectTerminal: protectTerminal,
	}
}

func (s *MemoryStore) CreatePending(_ context.Context, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = Record{
		Status:    StatusPending,
		Data:      data,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, upd Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.protectTerminal {
		if existing, ok := s.records[id]; ok && IsTerminalStatus(existing.Status) {
			return ErrTerminalState
		}
	}

	s.records[id] = Record{
		Status:    upd.Status,
		Message:   upd.Message,
		Data:      upd.Data,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) GetStatus(_ context.Context, id string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	return rec, ok, nil
}

func (s *MemoryStore) Cleanup(_ context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live records. Used by tests and the sweeper log.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
