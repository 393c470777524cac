package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	s.sweep()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok || !s.now().Before(record.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Active(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// sweep drops expired records; must be called with mu held
func (s *MemoryStore) sweep() {
	now := s.now()
	for id, r := range s.records {
		if !now.Before(r.ExpiresAt) {
			delete(s.records, id)
		}
	}
}
